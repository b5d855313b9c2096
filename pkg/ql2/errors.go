package ql2

import "fmt"

// ErrorCode represents a goreql error code.
type ErrorCode string

// Error codes.
const (
	// B0xxx: builder contract violations (raised as panics by package reql)
	ErrSpentBuilder     ErrorCode = "B0101"
	ErrDuplicateOptarg  ErrorCode = "B0102"
	ErrUnsupportedArg   ErrorCode = "B0103"
	ErrReleaseSpent     ErrorCode = "B0104"
	ErrCountedReleased  ErrorCode = "B0105"
	ErrNegativeRefCount ErrorCode = "B0106"

	// C0xxx: CEL frontend errors
	ErrCELSyntax            ErrorCode = "C0201"
	ErrUnknownIdentifier    ErrorCode = "C0202"
	ErrUnsupportedConstruct ErrorCode = "C0203"
	ErrMaxDepthExceeded     ErrorCode = "C0204"

	// W0xxx: wire format errors
	ErrInvalidWire      ErrorCode = "W0301"
	ErrSchemaViolation  ErrorCode = "W0302"
	ErrUnknownTermType  ErrorCode = "W0303"
	ErrWasmModuleFailed ErrorCode = "W0304"
	ErrDuplicateWireKey ErrorCode = "W0305"
)

// Error represents a structured goreql error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Err      error
}

// NewError creates a new error. Use a negative position when the error has
// no source location.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// IsContractViolation reports whether the code belongs to the builder
// contract family (B0xxx).
func (e *Error) IsContractViolation() bool {
	return len(e.Code) > 0 && e.Code[0] == 'B'
}

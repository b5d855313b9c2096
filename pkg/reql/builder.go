// Package reql builds query terms by chaining operations.
//
// A Builder owns at most one term. Every operation that takes a Builder as an
// argument consumes it: ownership of the term moves into the new parent and
// the argument becomes spent. Use Copy when the same subtree is needed twice.
//
// # Example
//
//	// ADD(1, 2)
//	sum := reql.Expr(1).Add(2.0)
//
//	// FUNC(MAKE_ARRAY(1), GT(VAR(1), 5))
//	p := reql.NewVar(gen)
//	fn := reql.Fun1(p, p.T().Gt(5))
//
//	term := fn.Release()
//
// # Contract violations
//
// Using a spent builder, attaching the same optarg key twice or passing an
// argument of an unsupported type is a programming error and panics with a
// *ql2.Error whose code starts with "B". Build converts such panics into
// returned errors for code that assembles terms from untrusted input.
package reql

import (
	"fmt"

	"github.com/sandrolain/goreql/pkg/ql2"
)

// Builder is an ownership-transferring handle on a query term.
// The zero value is a spent builder.
type Builder struct {
	term *ql2.Term
}

// KeyValue is a named argument. Passed to Call it lands in the optargs of the
// new term instead of its positional arguments.
type KeyValue struct {
	Key   string
	Value *Builder
}

// Optarg creates a named argument. value is converted as by Expr and is
// consumed when it is a *Builder.
func Optarg(key string, value interface{}) KeyValue {
	return KeyValue{Key: key, Value: Expr(value)}
}

func violation(code ql2.ErrorCode, format string, args ...interface{}) {
	panic(ql2.NewError(code, fmt.Sprintf(format, args...), -1))
}

// IsSpent reports whether the builder no longer owns a term.
func (b *Builder) IsSpent() bool {
	return b == nil || b.term == nil
}

// take moves the owned term out of b.
func (b *Builder) take() *ql2.Term {
	if b.IsSpent() {
		violation(ql2.ErrSpentBuilder, "use of spent builder")
	}
	t := b.term
	b.term = nil
	return t
}

// Expr converts v into a builder.
//
// Accepted values:
//   - *Builder: consumed; its term moves into the result
//   - Var: a fresh VAR term
//   - *ql2.Term, ql2.Term: deep-copied verbatim
//   - *ql2.Datum, ql2.Datum: a DATUM term wrapping a copy
//   - nil, bool, numbers, string, []interface{}, map[string]interface{}: a DATUM term
//
// Any other type panics with ql2.ErrUnsupportedArg.
func Expr(v interface{}) *Builder {
	return &Builder{term: toTerm(v)}
}

// ExprDatum wraps a pre-encoded literal.
func ExprDatum(d *ql2.Datum) *Builder {
	if d == nil {
		return Null()
	}
	return &Builder{term: ql2.NewDatumTerm(d.Clone())}
}

// ExprTerm wraps a pre-built term, deep-copying it.
func ExprTerm(t *ql2.Term) *Builder {
	if t == nil {
		violation(ql2.ErrUnsupportedArg, "nil term")
	}
	return &Builder{term: t.Clone()}
}

// Bool returns a boolean literal.
func Bool(v bool) *Builder {
	return &Builder{term: ql2.NewDatumTerm(ql2.NewBool(v))}
}

// Null returns the null literal.
func Null() *Builder {
	return &Builder{term: ql2.NewDatumTerm(ql2.Null())}
}

// Num returns a numeric literal.
func Num(v float64) *Builder {
	return &Builder{term: ql2.NewDatumTerm(ql2.NewNum(v))}
}

// Str returns a string literal.
func Str(v string) *Builder {
	return &Builder{term: ql2.NewDatumTerm(ql2.NewString(v))}
}

// Array builds a MAKE_ARRAY term whose elements are items, in order.
// Each item is converted as by Expr.
func Array(items ...interface{}) *Builder {
	for _, item := range items {
		if _, ok := item.(KeyValue); ok {
			violation(ql2.ErrUnsupportedArg, "named argument %q inside array", item.(KeyValue).Key)
		}
	}
	return Call(ql2.TermMakeArray, items...)
}

// Call creates a term of the given type with args as its arguments.
// It is the starting point of chains that have no receiver.
func Call(termType ql2.TermType, args ...interface{}) *Builder {
	return assemble(termType, nil, args)
}

// Call creates a term of the given type whose first argument is the term
// owned by b, followed by args. b is spent afterwards.
func (b *Builder) Call(termType ql2.TermType, args ...interface{}) *Builder {
	if b.IsSpent() {
		violation(ql2.ErrSpentBuilder, "%s called on spent builder", termType)
	}
	return assemble(termType, b, args)
}

// pendingArg is an argument validated and ready to be attached.
type pendingArg struct {
	key   string
	named bool
	owner *Builder  // consumed on attach, when set
	term  *ql2.Term // already-owned term, when owner is nil
}

// assemble validates every argument before consuming any of them, so a
// violation leaves the receiver and all arguments untouched.
func assemble(termType ql2.TermType, self *Builder, args []interface{}) *Builder {
	seen := make(map[*Builder]bool, len(args)+1)
	if self != nil {
		seen[self] = true
	}
	claim := func(owner *Builder) {
		if owner.IsSpent() || seen[owner] {
			violation(ql2.ErrSpentBuilder, "spent builder passed as argument to %s", termType)
		}
		seen[owner] = true
	}

	pending := make([]pendingArg, 0, len(args))
	keys := make(map[string]bool)
	for _, arg := range args {
		switch a := arg.(type) {
		case KeyValue:
			if keys[a.Key] {
				violation(ql2.ErrDuplicateOptarg, "duplicate optarg %q for %s", a.Key, termType)
			}
			keys[a.Key] = true
			claim(a.Value)
			pending = append(pending, pendingArg{key: a.Key, named: true, owner: a.Value})
		case *Builder:
			claim(a)
			pending = append(pending, pendingArg{owner: a})
		default:
			pending = append(pending, pendingArg{term: toTerm(arg)})
		}
	}

	out := ql2.NewTerm(termType)
	if self != nil {
		out.AddArg(self.take())
	}
	for _, p := range pending {
		t := p.term
		if p.owner != nil {
			t = p.owner.take()
		}
		if p.named {
			out.SetOptarg(p.key, t)
		} else {
			out.AddArg(t)
		}
	}
	return &Builder{term: out}
}

// toTerm converts a single argument into an owned term.
func toTerm(v interface{}) *ql2.Term {
	switch x := v.(type) {
	case *Builder:
		return x.take()
	case Builder:
		violation(ql2.ErrUnsupportedArg, "Builder passed by value; pass *Builder")
	case KeyValue:
		violation(ql2.ErrUnsupportedArg, "named argument %q outside of a call", x.Key)
	case Var:
		return x.term()
	case *ql2.Term:
		if x == nil {
			violation(ql2.ErrUnsupportedArg, "nil term")
		}
		return x.Clone()
	case ql2.Term:
		return x.Clone()
	}
	d, err := ql2.DatumOf(v)
	if err != nil {
		panic(err)
	}
	return ql2.NewDatumTerm(d)
}

// Copy returns an independent deep copy of b. b is unaffected.
// Copying a spent builder yields a spent builder.
func (b *Builder) Copy() *Builder {
	if b.IsSpent() {
		return &Builder{}
	}
	return &Builder{term: b.term.Clone()}
}

// Release hands the owned term to the caller. b is spent afterwards.
func (b *Builder) Release() *ql2.Term {
	if b.IsSpent() {
		violation(ql2.ErrReleaseSpent, "release of spent builder")
	}
	return b.take()
}

// ReleaseCounted hands the owned term to the caller wrapped in a
// reference-counted ql2.Counted. b is spent afterwards.
func (b *Builder) ReleaseCounted() *ql2.Counted {
	return ql2.NewCounted(b.Release())
}

// Get borrows the owned term without transferring it. It returns nil for a
// spent builder. The caller must not retain the term past the next consuming
// operation on b.
func (b *Builder) Get() *ql2.Term {
	if b.IsSpent() {
		return nil
	}
	return b.term
}

// Swap exchanges the contents of the owned term and dst.
func (b *Builder) Swap(dst *ql2.Term) {
	if b.IsSpent() {
		violation(ql2.ErrSpentBuilder, "swap on spent builder")
	}
	*b.term, *dst = *dst, *b.term
}

// Type returns the type of the owned term.
func (b *Builder) Type() ql2.TermType {
	if b.IsSpent() {
		violation(ql2.ErrSpentBuilder, "type of spent builder")
	}
	return b.term.Type
}

// String returns the debug form of the owned term.
func (b *Builder) String() string {
	if b.IsSpent() {
		return "<spent>"
	}
	return b.term.String()
}

// Build runs fn and releases the builder it returns. Builder contract
// violations raised inside fn are returned as *ql2.Error; any other panic is
// propagated.
func Build(fn func() *Builder) (term *ql2.Term, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*ql2.Error); ok && e.IsContractViolation() {
				term, err = nil, e
				return
			}
			panic(r)
		}
	}()
	return fn().Release(), nil
}

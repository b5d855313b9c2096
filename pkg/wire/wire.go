// Package wire validates, decodes and encodes terms in the JSON wire format.
//
// The wire format is the JSON encoding implemented by package ql2:
//
//	[type, [args...], {optargs}]
//
// with plain JSON values for literals. Input from outside the process is
// first checked against a JSON Schema of that grammar, so malformed input is
// rejected with a schema violation that names the offending location before
// any term is decoded.
package wire

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sandrolain/goreql/pkg/metrics"
	"github.com/sandrolain/goreql/pkg/ql2"
)

// Schema is the JSON Schema of a wire term.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$ref": "#/definitions/term",
  "definitions": {
    "term": {
      "anyOf": [
        {"type": ["null", "boolean", "number", "string"]},
        {"type": "object", "additionalProperties": {"$ref": "#/definitions/term"}},
        {"$ref": "#/definitions/compound"}
      ]
    },
    "compound": {
      "type": "array",
      "minItems": 1,
      "items": [
        {"type": "integer", "minimum": 1},
        {"type": "array", "items": {"$ref": "#/definitions/term"}},
        {"type": "object", "additionalProperties": {"$ref": "#/definitions/term"}}
      ],
      "additionalItems": false
    }
  }
}`

// Validator checks wire input against Schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles Schema.
func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(Schema))
	if err != nil {
		return nil, ql2.NewError(ql2.ErrInvalidWire, "invalid wire schema", -1).WithCause(err)
	}
	return &Validator{schema: schema}, nil
}

// Validate reports whether data is a syntactically valid wire term.
// Term type numbers are not checked against the known set; Decode does that.
func (v *Validator) Validate(data []byte) error {
	if !json.Valid(data) {
		return ql2.NewError(ql2.ErrInvalidWire, "input is not valid JSON", -1)
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return ql2.NewError(ql2.ErrInvalidWire, "schema validation failed", -1).WithCause(err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return ql2.NewError(ql2.ErrSchemaViolation, strings.Join(msgs, "; "), -1)
	}
	return nil
}

// Decode validates data and decodes it into a term.
func (v *Validator) Decode(data []byte) (*ql2.Term, error) {
	if err := v.Validate(data); err != nil {
		return nil, err
	}
	return ql2.ParseTerm(data)
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

func validator() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// Validate checks data with a shared Validator.
func Validate(data []byte) error {
	v, err := validator()
	if err != nil {
		return err
	}
	return v.Validate(data)
}

// Decode validates and decodes data with a shared Validator.
func Decode(data []byte) (*ql2.Term, error) {
	v, err := validator()
	if err != nil {
		return nil, err
	}
	return v.Decode(data)
}

// Encode returns the wire encoding of t, indented when pretty is set.
func Encode(t *ql2.Term, pretty bool) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	metrics.ObserveHandoff("wire", t.Size())
	if !pretty {
		return data, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

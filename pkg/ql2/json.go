package ql2

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// MarshalJSON encodes the datum as a plain JSON value.
func (d *Datum) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDatum(&buf, d, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes the term in the JSON wire protocol:
//
//	DATUM (scalar, object)  plain JSON value
//	DATUM (array)           [2,[...]]
//	MAKE_OBJ (optargs only) {"key": term, ...}
//	other                   [type,[args...]] or [type,[args...],{optargs}]
func (t *Term) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTerm(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTerm(buf *bytes.Buffer, t *Term) error {
	if t == nil {
		return NewError(ErrInvalidWire, "cannot encode nil term", -1)
	}
	if t.Type == TermDatum {
		if t.Datum == nil {
			return NewError(ErrInvalidWire, "DATUM term without payload", -1)
		}
		return writeDatum(buf, t.Datum, true)
	}
	if t.Type == TermMakeObj && len(t.Args) == 0 {
		return writeOptargs(buf, t.Optargs)
	}
	fmt.Fprintf(buf, "[%d,[", t.Type)
	for i, a := range t.Args {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeTerm(buf, a); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	if len(t.Optargs) > 0 {
		buf.WriteByte(',')
		if err := writeOptargs(buf, t.Optargs); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeOptargs(buf *bytes.Buffer, pairs []AssocPair) error {
	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, p.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeTerm(buf, p.Val); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeDatum encodes d. In term position arrays are wrapped as MAKE_ARRAY,
// since a bare JSON array is a term on the wire.
func writeDatum(buf *bytes.Buffer, d *Datum, inTerm bool) error {
	if d == nil {
		buf.WriteString("null")
		return nil
	}
	switch d.Type {
	case DatumNull:
		buf.WriteString("null")
	case DatumBool:
		if d.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case DatumNum:
		if math.IsNaN(d.Num) || math.IsInf(d.Num, 0) {
			return NewError(ErrInvalidWire, fmt.Sprintf("non-finite number %v", d.Num), -1)
		}
		b, err := json.Marshal(d.Num)
		if err != nil {
			return err
		}
		buf.Write(b)
	case DatumStr:
		return writeString(buf, d.Str)
	case DatumArray:
		if inTerm {
			fmt.Fprintf(buf, "[%d,", TermMakeArray)
		}
		buf.WriteByte('[')
		for i, item := range d.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeDatum(buf, item, inTerm); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		if inTerm {
			buf.WriteByte(']')
		}
	case DatumObject:
		buf.WriteByte('{')
		for i, p := range d.Object {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, p.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeDatum(buf, p.Val, inTerm); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return NewError(ErrInvalidWire, "unknown datum type "+d.Type.String(), -1)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// ParseTerm decodes a term from the JSON wire protocol.
//
// Scalars decode to DATUM terms. Objects decode to an object DATUM when every
// value is a datum and to MAKE_OBJ otherwise. Arrays must have the form
// [type], [type,[args...]] or [type,[args...],{optargs}].
func ParseTerm(data []byte) (*Term, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	t, err := decodeTerm(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, wireError(dec, "unexpected data after term", err)
	}
	return t, nil
}

// UnmarshalJSON decodes the term in place. See ParseTerm.
func (t *Term) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTerm(data)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func wireError(dec *json.Decoder, msg string, cause error) *Error {
	e := NewError(ErrInvalidWire, msg, int(dec.InputOffset()))
	if cause != nil && !errors.Is(cause, io.EOF) {
		e.WithCause(cause)
	}
	return e
}

func decodeTerm(dec *json.Decoder) (*Term, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, wireError(dec, "expected a term", err)
	}
	switch v := tok.(type) {
	case nil:
		return NewDatumTerm(Null()), nil
	case bool:
		return NewDatumTerm(NewBool(v)), nil
	case float64:
		return NewDatumTerm(NewNum(v)), nil
	case string:
		return NewDatumTerm(NewString(v)), nil
	case json.Delim:
		switch v {
		case '[':
			return decodeCompound(dec)
		case '{':
			return decodeObject(dec)
		}
	}
	return nil, wireError(dec, fmt.Sprintf("unexpected token %v", tok), nil)
}

func decodeCompound(dec *json.Decoder) (*Term, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, wireError(dec, "expected term type", err)
	}
	num, ok := tok.(float64)
	if !ok || num != math.Trunc(num) {
		return nil, wireError(dec, fmt.Sprintf("term type must be an integer, got %v", tok), nil)
	}
	termType := TermType(num)
	if !termType.Known() || termType == TermDatum {
		return nil, NewError(ErrUnknownTermType, fmt.Sprintf("unknown term type %v", num), int(dec.InputOffset()))
	}
	t := NewTerm(termType)

	if dec.More() {
		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}
		for dec.More() {
			arg, err := decodeTerm(dec)
			if err != nil {
				return nil, err
			}
			t.AddArg(arg)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
	}
	if dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		if err := decodeOptargs(dec, t); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return t, nil
}

// decodeOptargs reads key/term pairs up to and including the closing brace.
func decodeOptargs(dec *json.Decoder, t *Term) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return wireError(dec, "expected optarg key", err)
		}
		key, _ := tok.(string)
		val, err := decodeTerm(dec)
		if err != nil {
			return err
		}
		if !t.SetOptarg(key, val) {
			return NewError(ErrDuplicateWireKey, fmt.Sprintf("duplicate key %q", key), int(dec.InputOffset()))
		}
	}
	return expectDelim(dec, '}')
}

func decodeObject(dec *json.Decoder) (*Term, error) {
	obj := NewTerm(TermMakeObj)
	if err := decodeOptargs(dec, obj); err != nil {
		return nil, err
	}
	pairs := make([]DatumPair, 0, len(obj.Optargs))
	for _, p := range obj.Optargs {
		if p.Val.Type != TermDatum {
			return obj, nil
		}
		pairs = append(pairs, DatumPair{Key: p.Key, Val: p.Val.Datum})
	}
	return NewDatumTerm(NewObject(pairs...)), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return wireError(dec, fmt.Sprintf("expected %q", want), err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return wireError(dec, fmt.Sprintf("expected %q, got %v", want, tok), nil)
	}
	return nil
}

package ql2

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// DatumType identifies the kind of literal held by a Datum.
type DatumType int32

// Datum types, numbered as in the query protocol.
const (
	DatumNull   DatumType = 1
	DatumBool   DatumType = 2
	DatumNum    DatumType = 3
	DatumStr    DatumType = 4
	DatumArray  DatumType = 5
	DatumObject DatumType = 6
)

// String returns the protocol name of the datum type.
func (t DatumType) String() string {
	switch t {
	case DatumNull:
		return "R_NULL"
	case DatumBool:
		return "R_BOOL"
	case DatumNum:
		return "R_NUM"
	case DatumStr:
		return "R_STR"
	case DatumArray:
		return "R_ARRAY"
	case DatumObject:
		return "R_OBJECT"
	}
	return "DatumType(" + strconv.Itoa(int(t)) + ")"
}

// DatumPair is one field of an object datum.
type DatumPair struct {
	Key string
	Val *Datum
}

// Datum is a literal value: null, boolean, number, string, array or object.
// Numbers are always float64, as on the wire.
type Datum struct {
	Type   DatumType
	Bool   bool
	Num    float64
	Str    string
	Array  []*Datum
	Object []DatumPair
}

// Null returns a null datum.
func Null() *Datum { return &Datum{Type: DatumNull} }

// NewBool returns a boolean datum.
func NewBool(b bool) *Datum { return &Datum{Type: DatumBool, Bool: b} }

// NewNum returns a numeric datum.
func NewNum(f float64) *Datum { return &Datum{Type: DatumNum, Num: f} }

// NewString returns a string datum.
func NewString(s string) *Datum { return &Datum{Type: DatumStr, Str: s} }

// NewArray returns an array datum holding items.
func NewArray(items ...*Datum) *Datum {
	return &Datum{Type: DatumArray, Array: items}
}

// NewObject returns an object datum holding pairs in the given order.
func NewObject(pairs ...DatumPair) *Datum {
	return &Datum{Type: DatumObject, Object: pairs}
}

// DatumOf converts a Go value into a Datum.
//
// Accepted: nil, bool, every integer and float kind, string, []interface{},
// map[string]interface{} (fields sorted by key), Datum and *Datum.
func DatumOf(v interface{}) (*Datum, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case *Datum:
		if x == nil {
			return Null(), nil
		}
		return x.Clone(), nil
	case Datum:
		return x.Clone(), nil
	case bool:
		return NewBool(x), nil
	case string:
		return NewString(x), nil
	case float64:
		return NewNum(x), nil
	case float32:
		return NewNum(float64(x)), nil
	case int:
		return NewNum(float64(x)), nil
	case int64:
		return NewNum(float64(x)), nil
	case []interface{}:
		items := make([]*Datum, len(x))
		for i, item := range x {
			d, err := DatumOf(item)
			if err != nil {
				return nil, err
			}
			items[i] = d
		}
		return NewArray(items...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]DatumPair, len(keys))
		for i, k := range keys {
			d, err := DatumOf(x[k])
			if err != nil {
				return nil, err
			}
			pairs[i] = DatumPair{Key: k, Val: d}
		}
		return NewObject(pairs...), nil
	}

	// Remaining numeric kinds (int8, uint16, named numeric types, ...).
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewNum(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return NewNum(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return NewNum(rv.Float()), nil
	case reflect.String:
		return NewString(rv.String()), nil
	case reflect.Bool:
		return NewBool(rv.Bool()), nil
	}
	return nil, NewError(ErrUnsupportedArg, fmt.Sprintf("cannot convert %T to a datum", v), -1)
}

// Value converts the datum back into plain Go values
// (nil, bool, float64, string, []interface{}, map[string]interface{}).
func (d *Datum) Value() interface{} {
	if d == nil {
		return nil
	}
	switch d.Type {
	case DatumBool:
		return d.Bool
	case DatumNum:
		return d.Num
	case DatumStr:
		return d.Str
	case DatumArray:
		out := make([]interface{}, len(d.Array))
		for i, item := range d.Array {
			out[i] = item.Value()
		}
		return out
	case DatumObject:
		out := make(map[string]interface{}, len(d.Object))
		for _, p := range d.Object {
			out[p.Key] = p.Val.Value()
		}
		return out
	}
	return nil
}

// Field returns the value of key in an object datum.
func (d *Datum) Field(key string) (*Datum, bool) {
	if d == nil || d.Type != DatumObject {
		return nil, false
	}
	for _, p := range d.Object {
		if p.Key == key {
			return p.Val, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the datum. Clone of nil is nil.
func (d *Datum) Clone() *Datum {
	if d == nil {
		return nil
	}
	out := &Datum{Type: d.Type, Bool: d.Bool, Num: d.Num, Str: d.Str}
	if d.Array != nil {
		out.Array = make([]*Datum, len(d.Array))
		for i, item := range d.Array {
			out.Array[i] = item.Clone()
		}
	}
	if d.Object != nil {
		out.Object = make([]DatumPair, len(d.Object))
		for i, p := range d.Object {
			out.Object[i] = DatumPair{Key: p.Key, Val: p.Val.Clone()}
		}
	}
	return out
}

// Equal reports whether d and other hold the same value.
// Object field order is significant.
func (d *Datum) Equal(other *Datum) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Type != other.Type {
		return false
	}
	switch d.Type {
	case DatumBool:
		return d.Bool == other.Bool
	case DatumNum:
		return d.Num == other.Num
	case DatumStr:
		return d.Str == other.Str
	case DatumArray:
		if len(d.Array) != len(other.Array) {
			return false
		}
		for i := range d.Array {
			if !d.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
	case DatumObject:
		if len(d.Object) != len(other.Object) {
			return false
		}
		for i := range d.Object {
			if d.Object[i].Key != other.Object[i].Key || !d.Object[i].Val.Equal(other.Object[i].Val) {
				return false
			}
		}
	}
	return true
}

// String returns a compact literal form of the datum.
func (d *Datum) String() string {
	var b strings.Builder
	d.writeTo(&b)
	return b.String()
}

func (d *Datum) writeTo(b *strings.Builder) {
	if d == nil {
		b.WriteString("<nil>")
		return
	}
	switch d.Type {
	case DatumNull:
		b.WriteString("null")
	case DatumBool:
		b.WriteString(strconv.FormatBool(d.Bool))
	case DatumNum:
		b.WriteString(strconv.FormatFloat(d.Num, 'g', -1, 64))
	case DatumStr:
		b.WriteString(strconv.Quote(d.Str))
	case DatumArray:
		b.WriteByte('[')
		for i, item := range d.Array {
			if i > 0 {
				b.WriteString(", ")
			}
			item.writeTo(b)
		}
		b.WriteByte(']')
	case DatumObject:
		b.WriteByte('{')
		for i, p := range d.Object {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(p.Key))
			b.WriteString(": ")
			p.Val.writeTo(b)
		}
		b.WriteByte('}')
	default:
		b.WriteString(d.Type.String())
	}
}

package ql2_test

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/sandrolain/goreql/pkg/ql2"
)

func num(f float64) *ql2.Term { return ql2.NewDatumTerm(ql2.NewNum(f)) }
func str(s string) *ql2.Term  { return ql2.NewDatumTerm(ql2.NewString(s)) }
func call(tt ql2.TermType, args ...*ql2.Term) *ql2.Term {
	t := ql2.NewTerm(tt)
	for _, a := range args {
		t.AddArg(a)
	}
	return t
}

func sampleFunc() *ql2.Term {
	// FUNC(MAKE_ARRAY(1), GT(GET_FIELD(VAR(1), "age"), 25))
	return call(ql2.TermFunc,
		call(ql2.TermMakeArray, num(1)),
		call(ql2.TermGt, call(ql2.TermGetField, call(ql2.TermVar, num(1)), str("age")), num(25)),
	)
}

func TestTermTypeString(t *testing.T) {
	tests := []struct {
		tt   ql2.TermType
		want string
	}{
		{ql2.TermAdd, "ADD"},
		{ql2.TermGetField, "GET_FIELD"},
		{ql2.TermFunc, "FUNC"},
		{ql2.TermType(9999), "TermType(9999)"},
	}
	for _, tt := range tests {
		if got := tt.tt.String(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
	if ql2.TermType(9999).Known() {
		t.Error("expected 9999 to be unknown")
	}
}

func TestTermString(t *testing.T) {
	term := sampleFunc()
	if got, want := term.String(), `FUNC(MAKE_ARRAY(1), GT(GET_FIELD(VAR(1), "age"), 25))`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	filter := call(ql2.TermFilter, call(ql2.TermTable, str("t")))
	filter.SetOptarg("default", ql2.NewDatumTerm(ql2.NewBool(true)))
	if got, want := filter.String(), `FILTER(TABLE("t"), default=true)`; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCloneAndEqual(t *testing.T) {
	orig := sampleFunc()
	orig.SetOptarg("k", num(1))
	dup := orig.Clone()
	if !dup.Equal(orig) {
		t.Fatal("expected clone to equal original")
	}
	dup.Args[1].Args[1].Datum.Num = 30
	if dup.Equal(orig) {
		t.Fatal("expected modified clone to differ")
	}
	if orig.Args[1].Args[1].Datum.Num != 25 {
		t.Fatal("expected original untouched by clone mutation")
	}
	var nilTerm *ql2.Term
	if nilTerm.Clone() != nil || !nilTerm.Equal(nil) || nilTerm.Equal(orig) {
		t.Fatal("unexpected nil handling")
	}
	if got := orig.Size(); got != 10 {
		t.Fatalf("expected 10 nodes, got %d", got)
	}
}

func TestSetOptargRejectsDuplicate(t *testing.T) {
	term := ql2.NewTerm(ql2.TermMakeObj)
	if !term.SetOptarg("a", num(1)) {
		t.Fatal("expected first SetOptarg to succeed")
	}
	if term.SetOptarg("a", num(2)) {
		t.Fatal("expected duplicate SetOptarg to fail")
	}
	if v, _ := term.Optarg("a"); v.Datum.Num != 1 {
		t.Fatalf("expected first value kept, got %s", v)
	}
}

func TestDatumOf(t *testing.T) {
	type myInt int16
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, "null"},
		{"bool", true, "true"},
		{"int", 3, "3"},
		{"named int", myInt(-4), "-4"},
		{"uint", uint64(9), "9"},
		{"float", 1.5, "1.5"},
		{"string", "hi", `"hi"`},
		{"nested", []interface{}{1, []interface{}{"x"}}, `[1, ["x"]]`},
		{"object sorted", map[string]interface{}{"z": 1, "a": nil}, `{"a": null, "z": 1}`},
		{"datum", ql2.NewBool(false), "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ql2.DatumOf(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got := d.String(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}

	_, err := ql2.DatumOf(struct{}{})
	var qe *ql2.Error
	if !errors.As(err, &qe) || qe.Code != ql2.ErrUnsupportedArg {
		t.Fatalf("expected ErrUnsupportedArg, got %v", err)
	}
}

// Wire codec tests

func TestMarshalTerm(t *testing.T) {
	arrayDatum := ql2.NewDatumTerm(ql2.NewArray(ql2.NewNum(1), ql2.NewArray(ql2.NewString("a"))))
	obj := ql2.NewTerm(ql2.TermMakeObj)
	obj.SetOptarg("b", call(ql2.TermAdd, num(1), num(2)))
	filter := call(ql2.TermFilter, call(ql2.TermTable, str("t")), sampleFunc())
	filter.SetOptarg("default", ql2.NewDatumTerm(ql2.NewBool(false)))

	tests := []struct {
		name string
		term *ql2.Term
		want string
	}{
		{"number", num(1.5), `1.5`},
		{"string", str("q\"x"), `"q\"x"`},
		{"null", ql2.NewDatumTerm(ql2.Null()), `null`},
		{"datum array", arrayDatum, `[2,[1,[2,["a"]]]]`},
		{"datum object", ql2.NewDatumTerm(ql2.NewObject(ql2.DatumPair{Key: "k", Val: ql2.NewArray()})), `{"k":[2,[]]}`},
		{"make obj", obj, `{"b":[24,[1,2]]}`},
		{"func", sampleFunc(), `[69,[[2,[1]],[21,[[31,[[10,[1]],"age"]],25]]]]`},
		{"optargs", filter, `[39,[[15,["t"]],[69,[[2,[1]],[21,[[31,[[10,[1]],"age"]],25]]]]],{"default":false}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.term)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, b)
			}
		})
	}
}

func TestDatumMarshalIsPlainJSON(t *testing.T) {
	d := ql2.NewObject(ql2.DatumPair{Key: "xs", Val: ql2.NewArray(ql2.NewNum(1), ql2.NewBool(true))})
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"xs":[1,true]}` {
		t.Fatalf(`expected {"xs":[1,true]}, got %s`, b)
	}
}

func TestWireRoundTrip(t *testing.T) {
	filter := call(ql2.TermFilter, call(ql2.TermTable, str("t")), sampleFunc())
	filter.SetOptarg("default", ql2.NewDatumTerm(ql2.NewBool(true)))
	terms := []*ql2.Term{
		num(42),
		str("hello"),
		ql2.NewDatumTerm(ql2.NewObject(ql2.DatumPair{Key: "a", Val: ql2.NewNum(1)})),
		call(ql2.TermMakeArray, num(1), str("x")),
		call(ql2.TermImplicitVar),
		sampleFunc(),
		filter,
	}
	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			b, err := json.Marshal(term)
			if err != nil {
				t.Fatal(err)
			}
			back, err := ql2.ParseTerm(b)
			if err != nil {
				t.Fatalf("ParseTerm(%s): %v", b, err)
			}
			if !back.Equal(term) {
				t.Fatalf("expected %s, got %s", term, back)
			}
		})
	}
}

func TestParseTermObjects(t *testing.T) {
	datumObj, err := ql2.ParseTerm([]byte(`{"a":1,"b":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if datumObj.Type != ql2.TermDatum || datumObj.Datum.Type != ql2.DatumObject {
		t.Fatalf("expected object DATUM, got %s", datumObj)
	}
	if len(datumObj.Datum.Object) != 2 || datumObj.Datum.Object[0].Key != "a" {
		t.Fatalf("expected field order preserved, got %s", datumObj)
	}

	makeObj, err := ql2.ParseTerm([]byte(`{"a":[24,[1,2]]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := makeObj.String(); got != "MAKE_OBJ(a=ADD(1, 2))" {
		t.Fatalf("expected MAKE_OBJ(a=ADD(1, 2)), got %s", got)
	}
}

func TestParseTermUnmarshal(t *testing.T) {
	var holder struct {
		Term ql2.Term `json:"term"`
	}
	if err := json.Unmarshal([]byte(`{"term":[17,[1,1]]}`), &holder); err != nil {
		t.Fatal(err)
	}
	if got := holder.Term.String(); got != "EQ(1, 1)" {
		t.Fatalf("expected EQ(1, 1), got %s", got)
	}
}

func TestParseTermErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  ql2.ErrorCode
	}{
		{"empty", ``, ql2.ErrInvalidWire},
		{"bad json", `[24,[1,`, ql2.ErrInvalidWire},
		{"type not number", `["ADD",[1]]`, ql2.ErrInvalidWire},
		{"fractional type", `[24.5,[1]]`, ql2.ErrInvalidWire},
		{"unknown type", `[9999,[1]]`, ql2.ErrUnknownTermType},
		{"datum type", `[1,[1]]`, ql2.ErrUnknownTermType},
		{"args not array", `[24,1]`, ql2.ErrInvalidWire},
		{"trailing", `1 2`, ql2.ErrInvalidWire},
		{"duplicate optarg", `[39,[1],{"a":1,"a":2}]`, ql2.ErrDuplicateWireKey},
		{"duplicate object key", `{"a":1,"a":2}`, ql2.ErrDuplicateWireKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ql2.ParseTerm([]byte(tt.input))
			var qe *ql2.Error
			if !errors.As(err, &qe) {
				t.Fatalf("expected *ql2.Error, got %v", err)
			}
			if qe.Code != tt.code {
				t.Fatalf("expected %s, got %s (%v)", tt.code, qe.Code, qe)
			}
			if qe.IsContractViolation() {
				t.Fatalf("expected input error, got contract violation %s", qe.Code)
			}
		})
	}
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	inf := ql2.NewDatumTerm(ql2.NewNum(math.Inf(1)))
	if _, err := json.Marshal(inf); err == nil {
		t.Fatal("expected error for non-finite number")
	}
}

// Counted tests

func TestCountedLifecycle(t *testing.T) {
	c := ql2.NewCounted(sampleFunc())
	if c.Refs() != 1 {
		t.Fatalf("expected 1 ref, got %d", c.Refs())
	}
	c.Retain()
	if c.Drop() {
		t.Fatal("expected Drop with remaining refs to report false")
	}
	if c.Term() == nil {
		t.Fatal("expected term while referenced")
	}
	if !c.Drop() {
		t.Fatal("expected final Drop to report true")
	}
	if c.String() != "<released>" {
		t.Fatalf("expected <released>, got %s", c.String())
	}

	func() {
		defer func() {
			r := recover()
			e, ok := r.(*ql2.Error)
			if !ok || e.Code != ql2.ErrCountedReleased {
				t.Fatalf("expected ErrCountedReleased panic, got %v", r)
			}
		}()
		c.Term()
	}()

	expectCountedPanic := func(code ql2.ErrorCode, fn func()) {
		t.Helper()
		defer func() {
			e, ok := recover().(*ql2.Error)
			if !ok || e.Code != code {
				t.Fatalf("expected %s panic, got %v", code, e)
			}
		}()
		fn()
	}
	expectCountedPanic(ql2.ErrCountedReleased, func() { c.Retain() })
	expectCountedPanic(ql2.ErrCountedReleased, func() { c.Retain() })
	expectCountedPanic(ql2.ErrNegativeRefCount, func() { c.Drop() })
	if c.Refs() != 0 {
		t.Fatalf("expected failed Retain/Drop to leave 0 refs, got %d", c.Refs())
	}
}

func TestCountedConcurrentRetainDrop(t *testing.T) {
	c := ql2.NewCounted(num(1))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		c.Retain()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Term()
			c.Drop()
		}()
	}
	wg.Wait()
	if c.Refs() != 1 {
		t.Fatalf("expected 1 ref after concurrent use, got %d", c.Refs())
	}
	if c.ID().String() == "" {
		t.Fatal("expected a hand-off id")
	}
}

func TestErrorFormatting(t *testing.T) {
	e := ql2.NewError(ql2.ErrCELSyntax, "unexpected token", 4)
	if got := e.Error(); got != "C0201 at position 4: unexpected token" {
		t.Fatalf("unexpected message %q", got)
	}
	cause := errors.New("root")
	wrapped := ql2.NewError(ql2.ErrInvalidWire, "bad", -1).WithCause(cause)
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected wrapped cause")
	}
	if wrapped.IsContractViolation() || !ql2.NewError(ql2.ErrSpentBuilder, "x", -1).IsContractViolation() {
		t.Fatal("unexpected contract classification")
	}
}

package wire_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/reql"
	"github.com/sandrolain/goreql/pkg/wire"
)

func expectCode(t *testing.T, err error, code ql2.ErrorCode) {
	t.Helper()
	var qerr *ql2.Error
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *ql2.Error with code %s, got %v", code, err)
	}
	if qerr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, qerr.Code, qerr)
	}
}

func TestValidateAccepts(t *testing.T) {
	inputs := []string{
		`1`,
		`"text"`,
		`null`,
		`{"a": 1, "b": [24, [1, 2]]}`,
		`[24, [1, 2]]`,
		`[43]`,
		`[15, [[14, ["app"]], "users"], {"read_mode": "outdated"}]`,
		`[69, [[2, [1]], [21, [[31, [[10, [1]], "age"]], 25]]]]`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if err := wire.Validate([]byte(in)); err != nil {
				t.Fatalf("expected %s to be valid, got %v", in, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code ql2.ErrorCode
	}{
		{"not json", `[24, [1,`, ql2.ErrInvalidWire},
		{"empty array", `[]`, ql2.ErrSchemaViolation},
		{"string type tag", `["ADD", [1, 2]]`, ql2.ErrSchemaViolation},
		{"fractional type tag", `[24.5, [1, 2]]`, ql2.ErrSchemaViolation},
		{"zero type tag", `[0, []]`, ql2.ErrSchemaViolation},
		{"args not array", `[24, 5]`, ql2.ErrSchemaViolation},
		{"optargs not object", `[24, [1], [2]]`, ql2.ErrSchemaViolation},
		{"extra element", `[24, [1], {}, 4]`, ql2.ErrSchemaViolation},
		{"nested violation", `[24, [[31, "age"]]]`, ql2.ErrSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, wire.Validate([]byte(tt.in)), tt.code)
		})
	}
}

func TestDecode(t *testing.T) {
	term, err := wire.Decode([]byte(`[69, [[2, [1]], [21, [[31, [[10, [1]], "age"]], 25]]]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `FUNC(MAKE_ARRAY(1), GT(GET_FIELD(VAR(1), "age"), 25))`
	if got := term.String(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestDecodeUnknownTermType(t *testing.T) {
	_, err := wire.Decode([]byte(`[999, [1]]`))
	expectCode(t, err, ql2.ErrUnknownTermType)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	gen := &reql.Counter{}
	row := reql.NewVar(gen)
	built := reql.DB("app").Table("users", reql.Optarg("read_mode", "outdated")).
		Filter(reql.Fun1(row, row.T().GetField("age").Gt(25).All(row.T().HasFields("email")))).
		OrderBy(reql.Desc("age")).
		Limit(10).
		Release()

	for _, pretty := range []bool{false, true} {
		data, err := wire.Encode(built, pretty)
		if err != nil {
			t.Fatalf("Encode(pretty=%v): %v", pretty, err)
		}
		if pretty && !strings.Contains(string(data), "\n") {
			t.Fatalf("expected indented output, got %s", data)
		}
		decoded, err := wire.Decode(data)
		if err != nil {
			t.Fatalf("Decode(pretty=%v): %v", pretty, err)
		}
		if !decoded.Equal(built) {
			t.Fatalf("round trip mismatch:\n  built   %s\n  decoded %s", built, decoded)
		}
	}
}

func TestEncodeRejectsNonFinite(t *testing.T) {
	_, err := wire.Encode(reql.Num(math.NaN()).Add(1).Release(), false)
	expectCode(t, err, ql2.ErrInvalidWire)
}

func TestNewValidator(t *testing.T) {
	v, err := wire.NewValidator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := v.Decode([]byte(`[24, [1, 2]]`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

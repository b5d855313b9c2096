package goreql_test

import (
	"strings"
	"testing"

	"github.com/sandrolain/goreql"
	"github.com/sandrolain/goreql/pkg/celql"
)

func TestVersion(t *testing.T) {
	if !strings.HasPrefix(goreql.Version(), "v") {
		t.Fatalf("unexpected version %q", goreql.Version())
	}
}

func TestPredicate(t *testing.T) {
	term, err := goreql.Predicate(`doc.n == 1`, celql.WithRowName("doc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := term.String(); got != `FUNC(MAKE_ARRAY(1), EQ(GET_FIELD(VAR(1), "n"), 1))` {
		t.Fatalf("unexpected term %s", got)
	}
}

func TestFilterEncodeDecode(t *testing.T) {
	term, err := goreql.Filter(`row.age > 25`, "app", "users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := goreql.Encode(term)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[39,[[15,[[14,["app"]],"users"]],[69,[[2,[1]],[21,[[31,[[10,[1]],"age"]],25]]]]]]`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
	decoded, err := goreql.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decoded.Equal(term) {
		t.Fatalf("round trip mismatch: %s vs %s", term, decoded)
	}
}

func TestMustFilterPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for invalid predicate")
		}
	}()
	goreql.MustFilter(`row.age >`, "app", "users")
}

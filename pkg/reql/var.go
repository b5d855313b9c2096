package reql

import (
	"strconv"
	"sync/atomic"

	"github.com/sandrolain/goreql/pkg/ql2"
)

// SymbolGenerator hands out variable identifiers. Each call must return an
// id that is unique within the generator's scope.
type SymbolGenerator interface {
	NextID() int64
}

// Counter is a SymbolGenerator returning consecutive ids. The zero value
// starts at 1. It is safe for concurrent use.
type Counter struct {
	last atomic.Int64
}

// NewCounter returns a Counter whose first id is start.
func NewCounter(start int64) *Counter {
	c := &Counter{}
	c.last.Store(start - 1)
	return c
}

// NextID implements SymbolGenerator.
func (c *Counter) NextID() int64 {
	return c.last.Add(1)
}

// Var is a bound function parameter. Every use of a Var, through T or as an
// argument, produces a fresh VAR term carrying ID, so a Var may be referenced
// any number of times. Copies of a Var share the id.
type Var struct {
	ID int64
}

// NewVar binds a parameter to a fresh id from gen.
func NewVar(gen SymbolGenerator) Var {
	return Var{ID: gen.NextID()}
}

// VarOf references a parameter whose id is already known.
func VarOf(id int64) Var {
	return Var{ID: id}
}

// T returns a new builder owning a VAR term for v.
func (v Var) T() *Builder {
	return &Builder{term: v.term()}
}

func (v Var) term() *ql2.Term {
	t := ql2.NewTerm(ql2.TermVar)
	t.AddArg(ql2.NewDatumTerm(ql2.NewNum(float64(v.ID))))
	return t
}

// String returns the debug form, e.g. VAR(3).
func (v Var) String() string {
	return "VAR(" + strconv.FormatInt(v.ID, 10) + ")"
}

// Fun builds a function without parameters: FUNC(MAKE_ARRAY(), body).
// body is consumed.
func Fun(body *Builder) *Builder {
	return FunN(nil, body)
}

// Fun1 builds a one-parameter function: FUNC(MAKE_ARRAY(a.ID), body).
// body is consumed.
func Fun1(a Var, body *Builder) *Builder {
	return FunN([]Var{a}, body)
}

// Fun2 builds a two-parameter function: FUNC(MAKE_ARRAY(a.ID, b.ID), body).
// body is consumed.
func Fun2(a, b Var, body *Builder) *Builder {
	return FunN([]Var{a, b}, body)
}

// FunN builds a function over params, declared in order. The parameter list
// holds the literal ids, not VAR terms. body is consumed.
func FunN(params []Var, body *Builder) *Builder {
	if body.IsSpent() {
		violation(ql2.ErrSpentBuilder, "function body is a spent builder")
	}
	ids := make([]interface{}, len(params))
	for i, p := range params {
		ids[i] = float64(p.ID)
	}
	return Call(ql2.TermFunc, Array(ids...), body)
}

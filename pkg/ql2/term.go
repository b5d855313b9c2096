// Package ql2 defines the query-term wire model consumed and produced by goreql.
//
// This package contains type definitions for:
//   - Term: a node of the query expression tree
//   - TermType: the operation tag of a Term
//   - Datum: literal payloads embedded in DATUM terms
//   - Counted: the reference-counted hand-off wrapper
//   - Error types: structured errors with codes
//
// Terms are plain values. Ownership rules are enforced one level up, by the
// builder in package reql.
package ql2

import (
	"strconv"
	"strings"
)

// TermType identifies the operation of a Term.
type TermType int32

// Term types, numbered as in the query protocol.
const (
	// Literals and constructors
	TermDatum       TermType = 1
	TermMakeArray   TermType = 2
	TermMakeObj     TermType = 3
	TermVar         TermType = 10
	TermJavaScript  TermType = 11
	TermError       TermType = 12
	TermImplicitVar TermType = 13

	// Data sources
	TermDB     TermType = 14
	TermTable  TermType = 15
	TermGet    TermType = 16
	TermGetAll TermType = 78

	// Comparison and logic
	TermEq  TermType = 17
	TermNe  TermType = 18
	TermLt  TermType = 19
	TermLe  TermType = 20
	TermGt  TermType = 21
	TermGe  TermType = 22
	TermNot TermType = 23
	TermAny TermType = 66
	TermAll TermType = 67

	// Arithmetic
	TermAdd TermType = 24
	TermSub TermType = 25
	TermMul TermType = 26
	TermDiv TermType = 27
	TermMod TermType = 28

	// Sequences and documents
	TermAppend    TermType = 29
	TermSlice     TermType = 30
	TermGetField  TermType = 31
	TermHasFields TermType = 32
	TermPluck     TermType = 33
	TermWithout   TermType = 34
	TermMerge     TermType = 35
	TermBetween   TermType = 36
	TermReduce    TermType = 37
	TermMap       TermType = 38
	TermFilter    TermType = 39
	TermConcatMap TermType = 40
	TermOrderBy   TermType = 41
	TermDistinct  TermType = 42
	TermCount     TermType = 43
	TermUnion     TermType = 44
	TermNth       TermType = 45
	TermSkip      TermType = 70
	TermLimit     TermType = 71
	TermAsc       TermType = 73
	TermDesc      TermType = 74
	TermIsEmpty   TermType = 86
	TermDefault   TermType = 92
	TermContains  TermType = 93
	TermKeys      TermType = 94
	TermMatch     TermType = 97

	// Control flow and functions
	TermFuncall TermType = 64
	TermBranch  TermType = 65
	TermForEach TermType = 68
	TermFunc    TermType = 69
)

var termTypeNames = map[TermType]string{
	TermDatum:       "DATUM",
	TermMakeArray:   "MAKE_ARRAY",
	TermMakeObj:     "MAKE_OBJ",
	TermVar:         "VAR",
	TermJavaScript:  "JAVASCRIPT",
	TermError:       "ERROR",
	TermImplicitVar: "IMPLICIT_VAR",
	TermDB:          "DB",
	TermTable:       "TABLE",
	TermGet:         "GET",
	TermGetAll:      "GET_ALL",
	TermEq:          "EQ",
	TermNe:          "NE",
	TermLt:          "LT",
	TermLe:          "LE",
	TermGt:          "GT",
	TermGe:          "GE",
	TermNot:         "NOT",
	TermAny:         "ANY",
	TermAll:         "ALL",
	TermAdd:         "ADD",
	TermSub:         "SUB",
	TermMul:         "MUL",
	TermDiv:         "DIV",
	TermMod:         "MOD",
	TermAppend:      "APPEND",
	TermSlice:       "SLICE",
	TermGetField:    "GET_FIELD",
	TermHasFields:   "HAS_FIELDS",
	TermPluck:       "PLUCK",
	TermWithout:     "WITHOUT",
	TermMerge:       "MERGE",
	TermBetween:     "BETWEEN",
	TermReduce:      "REDUCE",
	TermMap:         "MAP",
	TermFilter:      "FILTER",
	TermConcatMap:   "CONCAT_MAP",
	TermOrderBy:     "ORDER_BY",
	TermDistinct:    "DISTINCT",
	TermCount:       "COUNT",
	TermUnion:       "UNION",
	TermNth:         "NTH",
	TermSkip:        "SKIP",
	TermLimit:       "LIMIT",
	TermAsc:         "ASC",
	TermDesc:        "DESC",
	TermIsEmpty:     "IS_EMPTY",
	TermDefault:     "DEFAULT",
	TermContains:    "CONTAINS",
	TermKeys:        "KEYS",
	TermMatch:       "MATCH",
	TermFuncall:     "FUNCALL",
	TermBranch:      "BRANCH",
	TermForEach:     "FOR_EACH",
	TermFunc:        "FUNC",
}

// String returns the protocol name of the term type.
func (t TermType) String() string {
	if name, ok := termTypeNames[t]; ok {
		return name
	}
	return "TermType(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether t is one of the term types defined above.
func (t TermType) Known() bool {
	_, ok := termTypeNames[t]
	return ok
}

// AssocPair is a named argument of a Term.
type AssocPair struct {
	Key string
	Val *Term
}

// Term is a node of the query expression tree.
type Term struct {
	Type TermType

	// Datum is set only for TermDatum nodes.
	Datum *Datum

	// Relations
	Args    []*Term     // positional arguments, order is significant
	Optargs []AssocPair // named arguments, keys unique, insertion ordered
}

// NewTerm creates a new term of the given type with no arguments.
func NewTerm(termType TermType) *Term {
	return &Term{Type: termType}
}

// NewDatumTerm creates a DATUM term embedding d.
func NewDatumTerm(d *Datum) *Term {
	return &Term{Type: TermDatum, Datum: d}
}

// AddArg appends a positional argument.
func (t *Term) AddArg(arg *Term) {
	t.Args = append(t.Args, arg)
}

// Optarg returns the named argument stored under key.
func (t *Term) Optarg(key string) (*Term, bool) {
	for _, p := range t.Optargs {
		if p.Key == key {
			return p.Val, true
		}
	}
	return nil, false
}

// SetOptarg attaches a named argument. It reports false, leaving the term
// unchanged, when key is already present.
func (t *Term) SetOptarg(key string, val *Term) bool {
	if _, ok := t.Optarg(key); ok {
		return false
	}
	t.Optargs = append(t.Optargs, AssocPair{Key: key, Val: val})
	return true
}

// Clone returns a deep copy of the term. Clone of nil is nil.
func (t *Term) Clone() *Term {
	if t == nil {
		return nil
	}
	out := &Term{Type: t.Type, Datum: t.Datum.Clone()}
	if len(t.Args) > 0 {
		out.Args = make([]*Term, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = a.Clone()
		}
	}
	if len(t.Optargs) > 0 {
		out.Optargs = make([]AssocPair, len(t.Optargs))
		for i, p := range t.Optargs {
			out.Optargs[i] = AssocPair{Key: p.Key, Val: p.Val.Clone()}
		}
	}
	return out
}

// Equal reports whether t and other are structurally equal.
// Optarg order is significant.
func (t *Term) Equal(other *Term) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Type != other.Type || !t.Datum.Equal(other.Datum) {
		return false
	}
	if len(t.Args) != len(other.Args) || len(t.Optargs) != len(other.Optargs) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	for i := range t.Optargs {
		if t.Optargs[i].Key != other.Optargs[i].Key || !t.Optargs[i].Val.Equal(other.Optargs[i].Val) {
			return false
		}
	}
	return true
}

// Size returns the number of nodes in the tree rooted at t.
func (t *Term) Size() int {
	if t == nil {
		return 0
	}
	n := 1
	for _, a := range t.Args {
		n += a.Size()
	}
	for _, p := range t.Optargs {
		n += p.Val.Size()
	}
	return n
}

// String returns a compact debug form, e.g. FUNC(MAKE_ARRAY(1), GT(VAR(1), 5)).
func (t *Term) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t *Term) writeTo(b *strings.Builder) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	if t.Type == TermDatum {
		b.WriteString(t.Datum.String())
		return
	}
	b.WriteString(t.Type.String())
	b.WriteByte('(')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.writeTo(b)
	}
	for i, p := range t.Optargs {
		if i > 0 || len(t.Args) > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		p.Val.writeTo(b)
	}
	b.WriteByte(')')
}

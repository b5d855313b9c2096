package celql

import (
	"fmt"
	"regexp"

	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"

	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/reql"
)

// binaryOps maps CEL binary operators onto term types.
var binaryOps = map[string]ql2.TermType{
	operators.Equals:        ql2.TermEq,
	operators.NotEquals:     ql2.TermNe,
	operators.Less:          ql2.TermLt,
	operators.LessEquals:    ql2.TermLe,
	operators.Greater:       ql2.TermGt,
	operators.GreaterEquals: ql2.TermGe,
	operators.Add:           ql2.TermAdd,
	operators.Subtract:      ql2.TermSub,
	operators.Multiply:      ql2.TermMul,
	operators.Divide:        ql2.TermDiv,
	operators.Modulo:        ql2.TermMod,
}

// translator walks one parsed expression. It is not safe for concurrent use.
type translator struct {
	info     *celast.SourceInfo
	gen      reql.SymbolGenerator
	scope    map[string]reql.Var
	maxDepth int
}

func (t *translator) errorAt(e celast.Expr, code ql2.ErrorCode, format string, args ...interface{}) error {
	pos := -1
	if t.info != nil {
		if r, ok := t.info.GetOffsetRange(e.ID()); ok {
			pos = int(r.Start)
		}
	}
	return ql2.NewError(code, fmt.Sprintf(format, args...), pos)
}

func (t *translator) expr(e celast.Expr, depth int) (*reql.Builder, error) {
	if t.maxDepth > 0 && depth > t.maxDepth {
		return nil, t.errorAt(e, ql2.ErrMaxDepthExceeded, "expression nested deeper than %d", t.maxDepth)
	}

	switch e.Kind() {
	case celast.LiteralKind:
		return t.literal(e)
	case celast.IdentKind:
		name := e.AsIdent()
		v, ok := t.scope[name]
		if !ok {
			return nil, t.errorAt(e, ql2.ErrUnknownIdentifier, "unknown identifier %q", name)
		}
		return v.T(), nil
	case celast.SelectKind:
		sel := e.AsSelect()
		operand, err := t.expr(sel.Operand(), depth+1)
		if err != nil {
			return nil, err
		}
		if sel.IsTestOnly() {
			return operand.HasFields(sel.FieldName()), nil
		}
		return operand.GetField(sel.FieldName()), nil
	case celast.ListKind:
		elems := e.AsList().Elements()
		items := make([]interface{}, 0, len(elems))
		for _, el := range elems {
			b, err := t.expr(el, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, b)
		}
		return reql.Array(items...), nil
	case celast.MapKind:
		return t.object(e, depth)
	case celast.CallKind:
		return t.call(e, depth)
	}
	return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "unsupported expression kind %d", e.Kind())
}

func (t *translator) literal(e celast.Expr) (*reql.Builder, error) {
	switch v := e.AsLiteral().(type) {
	case types.Bool:
		return reql.Bool(bool(v)), nil
	case types.Int:
		return reql.Num(float64(v)), nil
	case types.Uint:
		return reql.Num(float64(v)), nil
	case types.Double:
		return reql.Num(float64(v)), nil
	case types.String:
		return reql.Str(string(v)), nil
	case types.Null:
		return reql.Null(), nil
	}
	return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "unsupported literal of type %s", e.AsLiteral().Type())
}

func (t *translator) object(e celast.Expr, depth int) (*reql.Builder, error) {
	entries := e.AsMap().Entries()
	fields := make([]reql.KeyValue, 0, len(entries))
	for _, entry := range entries {
		me := entry.AsMapEntry()
		key, ok := stringLiteral(me.Key())
		if !ok {
			return nil, t.errorAt(me.Key(), ql2.ErrUnsupportedConstruct, "object keys must be string literals")
		}
		val, err := t.expr(me.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, reql.Optarg(key, val))
	}
	return reql.Object(fields...), nil
}

// args translates exprs in order.
func (t *translator) args(exprs []celast.Expr, depth int) ([]interface{}, error) {
	out := make([]interface{}, 0, len(exprs))
	for _, a := range exprs {
		b, err := t.expr(a, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *translator) call(e celast.Expr, depth int) (*reql.Builder, error) {
	call := e.AsCall()
	fn := call.FunctionName()

	if call.IsMemberFunction() {
		return t.member(e, call, depth)
	}

	if kind, ok := binaryOps[fn]; ok {
		args, err := t.args(call.Args(), depth)
		if err != nil {
			return nil, err
		}
		return reql.Call(kind, args...), nil
	}

	switch fn {
	case operators.LogicalAnd, operators.LogicalOr:
		kind := ql2.TermAll
		if fn == operators.LogicalOr {
			kind = ql2.TermAny
		}
		args, err := t.args(flatten(e, fn, nil), depth)
		if err != nil {
			return nil, err
		}
		return reql.Call(kind, args...), nil

	case operators.LogicalNot:
		arg, err := t.expr(call.Args()[0], depth+1)
		if err != nil {
			return nil, err
		}
		return arg.Not(), nil

	case operators.Negate:
		arg, err := t.expr(call.Args()[0], depth+1)
		if err != nil {
			return nil, err
		}
		return reql.Num(0).Sub(arg), nil

	case operators.Conditional:
		args, err := t.args(call.Args(), depth)
		if err != nil {
			return nil, err
		}
		return reql.Branch(args[0], args[1], args[2]), nil

	case operators.Index:
		container, err := t.expr(call.Args()[0], depth+1)
		if err != nil {
			return nil, err
		}
		if key, ok := stringLiteral(call.Args()[1]); ok {
			return container.GetField(key), nil
		}
		index, err := t.expr(call.Args()[1], depth+1)
		if err != nil {
			return nil, err
		}
		return container.Nth(index), nil

	case operators.In:
		elem, err := t.expr(call.Args()[0], depth+1)
		if err != nil {
			return nil, err
		}
		seq, err := t.expr(call.Args()[1], depth+1)
		if err != nil {
			return nil, err
		}
		return seq.Contains(elem), nil

	case "has":
		if len(call.Args()) != 1 || call.Args()[0].Kind() != celast.SelectKind {
			return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "has() requires a field selection")
		}
		sel := call.Args()[0].AsSelect()
		operand, err := t.expr(sel.Operand(), depth+1)
		if err != nil {
			return nil, err
		}
		return operand.HasFields(sel.FieldName()), nil

	case "size":
		if len(call.Args()) != 1 {
			return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "size() takes one argument")
		}
		arg, err := t.expr(call.Args()[0], depth+1)
		if err != nil {
			return nil, err
		}
		return arg.Count(), nil

	case "matches":
		if len(call.Args()) != 2 {
			return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "matches() takes two arguments")
		}
		args, err := t.args(call.Args(), depth)
		if err != nil {
			return nil, err
		}
		return matched(args[0].(*reql.Builder), args[1]), nil
	}

	return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "unsupported function %q", fn)
}

// member translates receiver-style calls: target.fn(args...).
func (t *translator) member(e celast.Expr, call celast.CallExpr, depth int) (*reql.Builder, error) {
	fn := call.FunctionName()
	args := call.Args()

	switch fn {
	case "map", "filter", "exists", "all":
		if len(args) != 2 || args[0].Kind() != celast.IdentKind {
			return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "%s() takes a variable name and an expression", fn)
		}
		target, err := t.expr(call.Target(), depth+1)
		if err != nil {
			return nil, err
		}
		fun, err := t.lambda(args[0].AsIdent(), args[1], depth, fn == "all")
		if err != nil {
			return nil, err
		}
		switch fn {
		case "map":
			return target.Map(fun), nil
		case "filter":
			return target.Filter(fun), nil
		case "exists":
			return target.Contains(fun), nil
		default:
			// every element satisfies p when none satisfies NOT(p)
			return target.Filter(fun).IsEmpty(), nil
		}

	case "size":
		if len(args) != 0 {
			return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "size() takes no arguments")
		}
		target, err := t.expr(call.Target(), depth+1)
		if err != nil {
			return nil, err
		}
		return target.Count(), nil

	case "matches", "startsWith", "endsWith", "contains":
		if len(args) != 1 {
			return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "%s() takes one argument", fn)
		}
		target, err := t.expr(call.Target(), depth+1)
		if err != nil {
			return nil, err
		}
		if fn == "matches" {
			pattern, err := t.expr(args[0], depth+1)
			if err != nil {
				return nil, err
			}
			return matched(target, pattern), nil
		}
		lit, ok := stringLiteral(args[0])
		if !ok {
			return nil, t.errorAt(args[0], ql2.ErrUnsupportedConstruct, "%s() requires a string literal", fn)
		}
		pattern := regexp.QuoteMeta(lit)
		switch fn {
		case "startsWith":
			pattern = "^" + pattern
		case "endsWith":
			pattern += "$"
		}
		return matched(target, pattern), nil
	}

	return nil, t.errorAt(e, ql2.ErrUnsupportedConstruct, "unsupported method %q", fn)
}

// lambda binds name to a fresh variable while translating body and returns
// the resulting one-parameter function. An outer binding of the same name is
// shadowed and restored afterwards.
func (t *translator) lambda(name string, body celast.Expr, depth int, negate bool) (*reql.Builder, error) {
	v := reql.NewVar(t.gen)
	prev, shadowed := t.scope[name]
	t.scope[name] = v
	defer func() {
		if shadowed {
			t.scope[name] = prev
		} else {
			delete(t.scope, name)
		}
	}()

	b, err := t.expr(body, depth+1)
	if err != nil {
		return nil, err
	}
	if negate {
		b = b.Not()
	}
	return reql.Fun1(v, b), nil
}

// matched is a boolean regular expression test: NE(MATCH(s, pattern), null).
func matched(s *reql.Builder, pattern interface{}) *reql.Builder {
	return s.Match(pattern).Ne(nil)
}

// flatten collects the operands of a chain of the same logical operator, so
// a && b && c becomes a single ALL(a, b, c).
func flatten(e celast.Expr, fn string, out []celast.Expr) []celast.Expr {
	if e.Kind() == celast.CallKind {
		call := e.AsCall()
		if call.FunctionName() == fn && !call.IsMemberFunction() {
			for _, a := range call.Args() {
				out = flatten(a, fn, out)
			}
			return out
		}
	}
	return append(out, e)
}

func stringLiteral(e celast.Expr) (string, bool) {
	if e.Kind() != celast.LiteralKind {
		return "", false
	}
	s, ok := e.AsLiteral().(types.String)
	return string(s), ok
}

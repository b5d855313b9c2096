package reql

import "github.com/sandrolain/goreql/pkg/ql2"

// Named operations. Each method is Call with a fixed term type: the receiver
// becomes the first argument and is spent afterwards.

func (b *Builder) Add(args ...interface{}) *Builder { return b.Call(ql2.TermAdd, args...) }
func (b *Builder) Sub(args ...interface{}) *Builder { return b.Call(ql2.TermSub, args...) }
func (b *Builder) Mul(args ...interface{}) *Builder { return b.Call(ql2.TermMul, args...) }
func (b *Builder) Div(args ...interface{}) *Builder { return b.Call(ql2.TermDiv, args...) }
func (b *Builder) Mod(args ...interface{}) *Builder { return b.Call(ql2.TermMod, args...) }

func (b *Builder) Eq(args ...interface{}) *Builder { return b.Call(ql2.TermEq, args...) }
func (b *Builder) Ne(args ...interface{}) *Builder { return b.Call(ql2.TermNe, args...) }
func (b *Builder) Gt(args ...interface{}) *Builder { return b.Call(ql2.TermGt, args...) }
func (b *Builder) Lt(args ...interface{}) *Builder { return b.Call(ql2.TermLt, args...) }
func (b *Builder) Ge(args ...interface{}) *Builder { return b.Call(ql2.TermGe, args...) }
func (b *Builder) Le(args ...interface{}) *Builder { return b.Call(ql2.TermLe, args...) }

// Not negates a boolean term.
func (b *Builder) Not() *Builder { return b.Call(ql2.TermNot) }

// All is logical conjunction.
func (b *Builder) All(args ...interface{}) *Builder { return b.Call(ql2.TermAll, args...) }

// Any is logical disjunction.
func (b *Builder) Any(args ...interface{}) *Builder { return b.Call(ql2.TermAny, args...) }

// Funcall applies the receiver, a function, to args.
func (b *Builder) Funcall(args ...interface{}) *Builder { return b.Call(ql2.TermFuncall, args...) }

// GetField is field access: b[field].
func (b *Builder) GetField(field interface{}) *Builder { return b.Call(ql2.TermGetField, field) }

// Nth is positional access on a sequence.
func (b *Builder) Nth(index interface{}) *Builder { return b.Call(ql2.TermNth, index) }

func (b *Builder) HasFields(fields ...interface{}) *Builder {
	return b.Call(ql2.TermHasFields, fields...)
}
func (b *Builder) Pluck(fields ...interface{}) *Builder { return b.Call(ql2.TermPluck, fields...) }
func (b *Builder) Without(fields ...interface{}) *Builder {
	return b.Call(ql2.TermWithout, fields...)
}
func (b *Builder) Merge(args ...interface{}) *Builder { return b.Call(ql2.TermMerge, args...) }
func (b *Builder) Keys() *Builder                     { return b.Call(ql2.TermKeys) }

func (b *Builder) Count(args ...interface{}) *Builder     { return b.Call(ql2.TermCount, args...) }
func (b *Builder) Map(args ...interface{}) *Builder       { return b.Call(ql2.TermMap, args...) }
func (b *Builder) Filter(args ...interface{}) *Builder    { return b.Call(ql2.TermFilter, args...) }
func (b *Builder) ConcatMap(args ...interface{}) *Builder { return b.Call(ql2.TermConcatMap, args...) }
func (b *Builder) Reduce(args ...interface{}) *Builder    { return b.Call(ql2.TermReduce, args...) }
func (b *Builder) Contains(args ...interface{}) *Builder  { return b.Call(ql2.TermContains, args...) }
func (b *Builder) OrderBy(args ...interface{}) *Builder   { return b.Call(ql2.TermOrderBy, args...) }
func (b *Builder) Union(args ...interface{}) *Builder     { return b.Call(ql2.TermUnion, args...) }
func (b *Builder) Append(v interface{}) *Builder          { return b.Call(ql2.TermAppend, v) }
func (b *Builder) Slice(args ...interface{}) *Builder     { return b.Call(ql2.TermSlice, args...) }
func (b *Builder) Limit(n interface{}) *Builder           { return b.Call(ql2.TermLimit, n) }
func (b *Builder) Skip(n interface{}) *Builder            { return b.Call(ql2.TermSkip, n) }
func (b *Builder) Distinct() *Builder                     { return b.Call(ql2.TermDistinct) }
func (b *Builder) IsEmpty() *Builder                      { return b.Call(ql2.TermIsEmpty) }
func (b *Builder) Match(pattern interface{}) *Builder     { return b.Call(ql2.TermMatch, pattern) }

// Default substitutes v when the receiver evaluates to null or a missing field.
func (b *Builder) Default(v interface{}) *Builder { return b.Call(ql2.TermDefault, v) }

// Branch uses the receiver as the condition: BRANCH(b, then, otherwise).
func (b *Builder) Branch(then, otherwise interface{}) *Builder {
	return b.Call(ql2.TermBranch, then, otherwise)
}

// Table selects a table of the receiver database.
func (b *Builder) Table(name interface{}, opts ...interface{}) *Builder {
	return b.Call(ql2.TermTable, append([]interface{}{name}, opts...)...)
}

// GetByKey fetches one document of the receiver table by primary key.
func (b *Builder) GetByKey(key interface{}) *Builder { return b.Call(ql2.TermGet, key) }

func (b *Builder) GetAll(args ...interface{}) *Builder { return b.Call(ql2.TermGetAll, args...) }

// Starters: operations that open a chain.

// DB selects a database by name.
func DB(name interface{}) *Builder { return Call(ql2.TermDB, name) }

// Branch builds BRANCH(cond, then, otherwise).
func Branch(cond, then, otherwise interface{}) *Builder {
	return Call(ql2.TermBranch, cond, then, otherwise)
}

// Error builds a term that raises a query error carrying msg.
func Error(msg interface{}) *Builder { return Call(ql2.TermError, msg) }

// Funcall applies fn to args: FUNCALL(fn, args...).
func Funcall(fn interface{}, args ...interface{}) *Builder {
	return Call(ql2.TermFuncall, append([]interface{}{fn}, args...)...)
}

// Asc and Desc are ordering markers for OrderBy.
func Asc(field interface{}) *Builder  { return Call(ql2.TermAsc, field) }
func Desc(field interface{}) *Builder { return Call(ql2.TermDesc, field) }

// Object builds a MAKE_OBJ term from named arguments.
func Object(fields ...KeyValue) *Builder {
	args := make([]interface{}, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return Call(ql2.TermMakeObj, args...)
}

// ImplicitVar references the implicit row variable.
func ImplicitVar() *Builder { return Call(ql2.TermImplicitVar) }

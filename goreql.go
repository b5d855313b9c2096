// Package goreql builds query terms for a ReQL-style document query language.
//
// Terms are assembled with the ownership-transferring builder in package reql
// and handed off as *ql2.Term values, or translated from CEL predicates by
// package celql. This package offers shortcuts for the common cases.
//
// # Quick Start
//
//	// Build directly
//	gen := &reql.Counter{}
//	row := reql.NewVar(gen)
//	term := reql.DB("app").Table("users").
//	    Filter(reql.Fun1(row, row.T().GetField("age").Gt(25))).
//	    Release()
//
//	// Translate a CEL predicate
//	term, err := goreql.Filter(`row.age > 25`, "app", "users")
//
//	// Encode for the wire
//	data, err := goreql.Encode(term)
//
// # More Information
//
// For detailed documentation, see:
//   - Builder: github.com/sandrolain/goreql/pkg/reql
//   - Terms and datums: github.com/sandrolain/goreql/pkg/ql2
//   - CEL frontend: github.com/sandrolain/goreql/pkg/celql
//   - Wire format: github.com/sandrolain/goreql/pkg/wire
package goreql

import (
	"fmt"

	"github.com/sandrolain/goreql/pkg/celql"
	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/wire"
)

// Version returns the current version of goreql.
func Version() string {
	return "v0.1.0-dev"
}

// Predicate translates a CEL predicate into a FUNC term.
//
// Example:
//
//	fn, err := goreql.Predicate(`row.status == "active"`)
func Predicate(src string, opts ...celql.Option) (*ql2.Term, error) {
	return celql.New(opts...).Compile(src)
}

// Filter translates a CEL predicate and wraps it as a filter over db.table.
// db may be empty; when table is empty the bare function is returned.
func Filter(src, db, table string, opts ...celql.Option) (*ql2.Term, error) {
	return celql.New(opts...).CompileFilter(src, db, table)
}

// MustFilter is like Filter but panics if the predicate cannot be translated.
// It simplifies safe initialization of global variables.
func MustFilter(src, db, table string) *ql2.Term {
	term, err := Filter(src, db, table)
	if err != nil {
		panic(fmt.Sprintf("goreql: Filter(%q): %v", src, err))
	}
	return term
}

// Encode returns the compact JSON wire encoding of t.
func Encode(t *ql2.Term) ([]byte, error) {
	return wire.Encode(t, false)
}

// Decode validates and decodes a JSON wire term.
func Decode(data []byte) (*ql2.Term, error) {
	return wire.Decode(data)
}

package ql2

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Counted is a reference-counted owner of a finished Term.
//
// It is the hand-off object passed from the builder to a consumer such as a
// query compiler. A Counted starts with one reference. Retain and Drop are
// safe for concurrent use; the Term itself must be treated as read-only once
// it is shared.
type Counted struct {
	id   uuid.UUID
	term atomic.Pointer[Term]
	refs atomic.Int32
}

// NewCounted adopts term into a new Counted holding one reference.
func NewCounted(term *Term) *Counted {
	c := &Counted{id: uuid.New()}
	c.term.Store(term)
	c.refs.Store(1)
	return c
}

// ID returns the hand-off identifier, used to correlate log lines between the
// producer and the consumer of the term.
func (c *Counted) ID() uuid.UUID {
	return c.id
}

// Term returns the shared term. It panics once the last reference has been
// dropped.
func (c *Counted) Term() *Term {
	t := c.term.Load()
	if t == nil {
		panic(NewError(ErrCountedReleased, "counted term "+c.id.String()+" used after final drop", -1))
	}
	return t
}

// Refs returns the current number of references.
func (c *Counted) Refs() int {
	return int(c.refs.Load())
}

// Retain adds a reference and returns c.
// It panics once the last reference has been dropped; a failed Retain
// leaves the count untouched.
func (c *Counted) Retain() *Counted {
	for {
		n := c.refs.Load()
		if n <= 0 {
			panic(NewError(ErrCountedReleased, "retain of released counted term "+c.id.String(), -1))
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return c
		}
	}
}

// Drop removes a reference. It reports true when this was the last reference,
// at which point the term is released.
func (c *Counted) Drop() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			panic(NewError(ErrNegativeRefCount, "drop of released counted term "+c.id.String(), -1))
		}
		if !c.refs.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			c.term.Store(nil)
			return true
		}
		return false
	}
}

// String returns the debug form of the shared term.
func (c *Counted) String() string {
	t := c.term.Load()
	if t == nil {
		return "<released>"
	}
	return t.String()
}

package ecs

import (
	"fmt"

	"github.com/kamstrup/intmap"
)

// QueryPart requests access to one component kind.
type QueryPart struct {
	Id       ComponentId
	Mutable  bool
	Optional bool
}

// Read requests shared access to id.
func Read(id ComponentId) QueryPart {
	return QueryPart{Id: id}
}

// Write requests exclusive access to id.
func Write(id ComponentId) QueryPart {
	return QueryPart{Id: id, Mutable: true}
}

// Maybe marks the part optional: entities without the kind still match and
// get a nil pointer in its position.
func (p QueryPart) Maybe() QueryPart {
	p.Optional = true
	return p
}

func (p QueryPart) String() string {
	s := fmt.Sprintf("#%d", p.Id)
	if p.Mutable {
		s = "mut " + s
	}
	if p.Optional {
		s += "?"
	}
	return s
}

// BorrowConflict reports a component kind that cannot be borrowed the way a
// query asks for it.
type BorrowConflict struct {
	Component ComponentId
	// Name is the display name of the kind, when the world knows it.
	Name string
}

func (e *BorrowConflict) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("ecs: borrow conflict on component %d (%s)", e.Component, e.Name)
	}
	return fmt.Sprintf("ecs: borrow conflict on component %d", e.Component)
}

// Query is a validated access plan. Within one query a kind is either read
// any number of times or written exactly once.
type Query struct {
	parts []QueryPart
}

// NewQuery validates parts and returns the plan. It fails with a
// *BorrowConflict if a kind is written more than once, or both read and
// written.
func NewQuery(parts ...QueryPart) (*Query, error) {
	mutable := intmap.New[ComponentId, struct{}](len(parts))
	for _, part := range parts {
		if !part.Mutable {
			continue
		}
		if _, ok := mutable.Get(part.Id); ok {
			return nil, &BorrowConflict{Component: part.Id}
		}
		mutable.Put(part.Id, struct{}{})
	}
	for _, part := range parts {
		if part.Mutable {
			continue
		}
		if _, ok := mutable.Get(part.Id); ok {
			return nil, &BorrowConflict{Component: part.Id}
		}
	}

	q := &Query{parts: make([]QueryPart, len(parts))}
	copy(q.parts, parts)
	return q, nil
}

// MustQuery is NewQuery for plans known to be valid. It panics on conflict.
func MustQuery(parts ...QueryPart) *Query {
	q, err := NewQuery(parts...)
	if err != nil {
		panic(err)
	}
	return q
}

// Parts returns a copy of the parts in request order.
func (q *Query) Parts() []QueryPart {
	parts := make([]QueryPart, len(q.parts))
	copy(parts, q.parts)
	return parts
}

// Len returns the number of parts.
func (q *Query) Len() int {
	return len(q.parts)
}

package ecs

import (
	"fmt"
	"iter"
	"unsafe"
)

// QueryResponse is a live borrow of the storages a Query names. While it is
// held, kinds it writes cannot be touched by anything else and kinds it reads
// cannot be written. Release returns the borrows; it is usually deferred.
//
// Pointers handed out for parts that are not Mutable must only be read.
type QueryResponse struct {
	world    *World
	query    *Query
	storages []*Storage
	released bool
}

// TryQuery borrows the storages of q. It fails with a *BorrowConflict if an
// outstanding response holds a conflicting borrow, in which case nothing is
// borrowed.
func (w *World) TryQuery(q *Query) (*QueryResponse, error) {
	storages := make([]*Storage, len(q.parts))
	for i, part := range q.parts {
		entry := w.registry.Entry(part.Id)
		if !w.registry.tryBorrow(part.Id, part.Mutable) {
			for _, taken := range q.parts[:i] {
				w.registry.release(taken.Id, taken.Mutable)
			}
			return nil, &BorrowConflict{Component: part.Id, Name: entry.Info.name}
		}
		storages[i] = entry.Storage
	}
	w.outstanding++
	return &QueryResponse{
		world:    w,
		query:    q,
		storages: storages,
	}, nil
}

// Query is TryQuery for callers that know no conflicting response is live.
func (w *World) Query(q *Query) *QueryResponse {
	resp, err := w.TryQuery(q)
	if err != nil {
		panic(err)
	}
	return resp
}

// Release returns the borrows. Calling it again does nothing.
func (r *QueryResponse) Release() {
	if r.released {
		return
	}
	r.released = true
	for _, part := range r.query.parts {
		r.world.registry.release(part.Id, part.Mutable)
	}
	r.world.outstanding--
}

func (r *QueryResponse) assertLive() {
	if r.released {
		panic("ecs: use of a released query response")
	}
}

// fetch resolves the parts for slot. It returns false if a required part is
// missing.
func (r *QueryResponse) fetch(slot uint32) ([]unsafe.Pointer, bool) {
	ptrs := make([]unsafe.Pointer, len(r.storages))
	for i, storage := range r.storages {
		ptr := storage.Get(int(slot))
		if ptr == nil && !r.query.parts[i].Optional {
			return nil, false
		}
		ptrs[i] = ptr
	}
	return ptrs, true
}

func (r *QueryResponse) matches(slot uint32) bool {
	for i, storage := range r.storages {
		if !r.query.parts[i].Optional && !storage.Has(int(slot)) {
			return false
		}
	}
	return true
}

// TryGet returns one pointer per part for e, in part order. Optional parts
// the entity lacks are nil. It returns false if e is dead or misses a
// required part.
func (r *QueryResponse) TryGet(e Entity) ([]unsafe.Pointer, bool) {
	r.assertLive()
	if !r.world.entities.Exists(e) {
		return nil, false
	}
	return r.fetch(e.id)
}

// Get is TryGet for entities known to match. It panics on a miss.
func (r *QueryResponse) Get(e Entity) []unsafe.Pointer {
	ptrs, ok := r.TryGet(e)
	if !ok {
		panic(fmt.Sprintf("ecs: entity %s does not match the query", e))
	}
	return ptrs
}

// Iter yields every matching live entity in ascending id order.
func (r *QueryResponse) Iter() iter.Seq2[Entity, []unsafe.Pointer] {
	r.assertLive()
	entities := r.world.entities.Iter()
	return func(yield func(Entity, []unsafe.Pointer) bool) {
		for e := range entities {
			r.assertLive()
			ptrs, ok := r.fetch(e.id)
			if !ok {
				continue
			}
			if !yield(e, ptrs) {
				return
			}
		}
	}
}

// Match is one side of a pair yielded by IterPairs.
type Match struct {
	Entity     Entity
	Components []unsafe.Pointer
}

// IterPairs yields every unordered pair of distinct entities that both match.
func (r *QueryResponse) IterPairs() iter.Seq2[Match, Match] {
	r.assertLive()
	var matched []Match
	for e := range r.world.entities.Iter() {
		if ptrs, ok := r.fetch(e.id); ok {
			matched = append(matched, Match{Entity: e, Components: ptrs})
		}
	}
	return func(yield func(Match, Match) bool) {
		r.assertLive()
		for i := 0; i < len(matched); i++ {
			for j := i + 1; j < len(matched); j++ {
				if !yield(matched[i], matched[j]) {
					return
				}
			}
		}
	}
}

// Count returns the number of matching entities.
func (r *QueryResponse) Count() int {
	r.assertLive()
	n := 0
	for e := range r.world.entities.Iter() {
		if r.matches(e.id) {
			n++
		}
	}
	return n
}

// Cast converts a pointer yielded by a response to its component type.
func Cast[T any](ptr unsafe.Pointer) *T {
	return (*T)(ptr)
}

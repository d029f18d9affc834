package ecs

import (
	"iter"
	"reflect"
	"strings"
	"unsafe"
)

var entityType = reflect.TypeFor[Entity]()

// View is a typed query. T must be a struct whose fields are pointers to
// components, plus at most one Entity field that receives the matched entity.
//
// Component fields are read-only and required by default. The `ecs` struct
// tag changes that: `ecs:"mut"` requests write access, `ecs:"optional"` lets
// entities without the component match with a nil field, and the two can be
// combined as `ecs:"mut,optional"`.
//
//	type movers struct {
//		Entity   ecs.Entity
//		Position *Position `ecs:"mut"`
//		Velocity *Velocity
//		Sprite   *Sprite `ecs:"optional"`
//	}
type View[T any] struct {
	world        *World
	query        *Query
	fieldOffset  []uintptr
	entityOffset uintptr
	hasEntity    bool
}

// NewView builds the query for T against w. Component kinds T names are
// registered on w if they are new. It panics if T is malformed or asks for
// conflicting access.
func NewView[T any](w *World) *View[T] {
	v := &View[T]{}
	v.Init(w)
	return v
}

// Init binds the view to w. The Scheduler calls it for View fields of
// registered systems.
func (v *View[T]) Init(w *World) {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	parts := make([]QueryPart, 0, structType.NumField())
	fieldOffset := make([]uintptr, 0, structType.NumField())
	hasEntity := false
	var entityOffset uintptr

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == entityType {
			if hasEntity {
				panic("View struct has more than one Entity field")
			}
			hasEntity = true
			entityOffset = field.Offset
			continue
		}

		if field.Type.Kind() != reflect.Pointer {
			panic("View struct fields must be pointer types or Entity, got " + field.Type.String())
		}

		part := QueryPart{Id: w.idOfType(field.Type.Elem())}
		if tag, ok := field.Tag.Lookup("ecs"); ok {
			for _, opt := range strings.Split(tag, ",") {
				switch strings.TrimSpace(opt) {
				case "mut":
					part.Mutable = true
				case "optional":
					part.Optional = true
				default:
					panic("invalid ecs tag value: \"" + tag + "\" (supported: \"mut\", \"optional\")")
				}
			}
		}
		parts = append(parts, part)
		fieldOffset = append(fieldOffset, field.Offset)
	}

	query, err := NewQuery(parts...)
	if err != nil {
		panic(err)
	}

	v.world = w
	v.query = query
	v.fieldOffset = fieldOffset
	v.entityOffset = entityOffset
	v.hasEntity = hasEntity
}

// Query returns the underlying plan, for use with World.TryQuery.
func (v *View[T]) Query() *Query {
	return v.query
}

// fill writes e and ptrs into the struct at dst.
func (v *View[T]) fill(dst *T, e Entity, ptrs []unsafe.Pointer) {
	base := unsafe.Pointer(dst)
	if v.hasEntity {
		*(*Entity)(unsafe.Add(base, v.entityOffset)) = e
	}
	for i, offset := range v.fieldOffset {
		*(*unsafe.Pointer)(unsafe.Add(base, offset)) = ptrs[i]
	}
}

// Iter yields every matching entity with its populated view struct. The
// query is held from the first step until the loop ends, so the loop body
// must not take a conflicting borrow. Structural changes go through Commands.
func (v *View[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		resp := v.world.Query(v.query)
		defer resp.Release()

		var result T
		for e, ptrs := range resp.Iter() {
			v.fill(&result, e, ptrs)
			if !yield(e, result) {
				return
			}
		}
	}
}

// Values yields the view structs without their entities.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Pairs yields every unordered pair of distinct matching entities.
func (v *View[T]) Pairs() iter.Seq2[T, T] {
	return func(yield func(T, T) bool) {
		resp := v.world.Query(v.query)
		defer resp.Release()

		var a, b T
		for left, right := range resp.IterPairs() {
			v.fill(&a, left.Entity, left.Components)
			v.fill(&b, right.Entity, right.Components)
			if !yield(a, b) {
				return
			}
		}
	}
}

// Get returns the view struct for e. The pointers it holds are only
// guaranteed until the next structural change of the world.
func (v *View[T]) Get(e Entity) (T, bool) {
	var result T
	resp := v.world.Query(v.query)
	defer resp.Release()

	ptrs, ok := resp.TryGet(e)
	if !ok {
		return result, false
	}
	v.fill(&result, e, ptrs)
	return result, true
}

// Spawn creates an entity holding a copy of every component data points to.
// Required fields must be non-nil; nil optional fields are skipped. The
// Entity field of data is ignored.
func (v *View[T]) Spawn(data T) Entity {
	base := unsafe.Pointer(&data)
	for i, offset := range v.fieldOffset {
		part := v.query.parts[i]
		if *(*unsafe.Pointer)(unsafe.Add(base, offset)) == nil && !part.Optional {
			panic("required component is nil in View.Spawn")
		}
		v.world.registry.assertFree(part.Id)
	}

	e := v.world.Spawn()
	for i, offset := range v.fieldOffset {
		ptr := *(*unsafe.Pointer)(unsafe.Add(base, offset))
		if ptr == nil {
			continue
		}
		v.world.registry.entries[v.query.parts[i].Id].Storage.Set(int(e.id), ptr)
	}
	return e
}

// Count returns the number of matching entities.
func (v *View[T]) Count() int {
	resp := v.world.Query(v.query)
	defer resp.Release()
	return resp.Count()
}

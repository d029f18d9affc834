package ecs

import (
	"iter"
	"math/bits"
	"reflect"
	"unsafe"
)

// DropFunc is a type-erased destructor. It receives a pointer to a value of
// the component type and must release whatever the value owns.
type DropFunc func(ptr unsafe.Pointer)

// Dropper is implemented by components that need to run code when the store
// destroys them.
type Dropper interface {
	Drop()
}

var dropperType = reflect.TypeFor[Dropper]()

// dropFuncFor returns the destructor of T, or nil if *T is not a Dropper.
func dropFuncFor[T any]() DropFunc {
	if _, ok := any((*T)(nil)).(Dropper); !ok {
		return nil
	}
	return func(ptr unsafe.Pointer) {
		any((*T)(ptr)).(Dropper).Drop()
	}
}

// dropFuncOf is dropFuncFor for callers that only have a reflect.Type.
func dropFuncOf(t reflect.Type) DropFunc {
	if !reflect.PointerTo(t).Implements(dropperType) {
		return nil
	}
	return func(ptr unsafe.Pointer) {
		reflect.NewAt(t, ptr).Interface().(Dropper).Drop()
	}
}

// Layout describes the memory of one component value.
type Layout struct {
	typ reflect.Type
}

// LayoutOf returns the layout of T.
func LayoutOf[T any]() Layout {
	return Layout{typ: reflect.TypeFor[T]()}
}

// LayoutFor returns the layout of values of type t.
func LayoutFor(t reflect.Type) Layout {
	if t == nil {
		panic("ecs: layout of a nil type")
	}
	return Layout{typ: t}
}

func (l Layout) Size() uintptr      { return l.typ.Size() }
func (l Layout) Align() uintptr     { return uintptr(l.typ.Align()) }
func (l Layout) Type() reflect.Type { return l.typ }
func (l Layout) String() string     { return l.typ.String() }
func (l Layout) valid() bool        { return l.typ != nil }

// Storage is the backing array of one component kind. Slot i holds the
// component of the entity with id i. The array is allocated through reflect
// with the component's element type, so the garbage collector sees any
// pointers the components hold.
//
// Storage is not safe for concurrent use.
type Storage struct {
	layout   Layout
	drop     DropFunc
	occupied bitset
	count    int

	items    reflect.Value
	base     unsafe.Pointer
	capacity int
}

// NewStorage creates an empty storage with zero capacity.
func NewStorage(layout Layout, drop DropFunc) *Storage {
	if !layout.valid() {
		panic("ecs: storage needs a layout")
	}
	return &Storage{
		layout: layout,
		drop:   drop,
	}
}

// Layout returns the layout of the stored values.
func (s *Storage) Layout() Layout { return s.layout }

// Len returns the number of occupied slots.
func (s *Storage) Len() int { return s.count }

// Cap returns the number of slots that can be set without growing.
func (s *Storage) Cap() int { return s.capacity }

// Has reports whether slot index is occupied.
func (s *Storage) Has(index int) bool {
	return s.occupied.has(index)
}

func (s *Storage) slot(index int) unsafe.Pointer {
	return unsafe.Add(s.base, uintptr(index)*s.layout.Size())
}

// Set copies the value src points to into slot index. It returns false and
// leaves the stored value untouched if the slot is already occupied, since
// overwriting a live value would skip its destructor.
func (s *Storage) Set(index int, src unsafe.Pointer) bool {
	if index < 0 {
		panic("ecs: negative storage index")
	}
	if s.occupied.has(index) {
		return false
	}

	s.ensureCapacity(index + 1)
	s.items.Index(index).Set(reflect.NewAt(s.layout.typ, src).Elem())
	s.occupied.set(index)
	s.count++
	return true
}

// Get returns a pointer to the value in slot index, or nil if the slot is
// empty. The pointer is invalidated by the next call that grows the storage.
func (s *Storage) Get(index int) unsafe.Pointer {
	if !s.occupied.has(index) {
		return nil
	}
	return s.slot(index)
}

// Remove moves the value out of slot index into dst and marks the slot empty.
// The destructor is not run: ownership passes to the caller. A nil dst
// discards the value, again without running the destructor.
func (s *Storage) Remove(index int, dst unsafe.Pointer) bool {
	if !s.occupied.has(index) {
		return false
	}
	s.occupied.unset(index)
	s.count--

	item := s.items.Index(index)
	if dst != nil {
		reflect.NewAt(s.layout.typ, dst).Elem().Set(item)
	}
	item.SetZero()
	return true
}

// Unset runs the destructor of the value in slot index and marks the slot
// empty. It returns false if the slot was already empty.
func (s *Storage) Unset(index int) bool {
	if !s.occupied.has(index) {
		return false
	}
	s.occupied.unset(index)
	s.count--

	if s.drop != nil {
		s.drop(s.slot(index))
	}
	s.items.Index(index).SetZero()
	return true
}

// Indices yields the occupied slots in ascending order.
func (s *Storage) Indices() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := s.occupied.next(0); i >= 0; i = s.occupied.next(i + 1) {
			if !yield(i) {
				return
			}
		}
	}
}

// Release destroys every stored value and frees the backing array. The
// storage is empty and usable afterwards.
func (s *Storage) Release() {
	for i := s.occupied.next(0); i >= 0; i = s.occupied.next(i + 1) {
		s.Unset(i)
	}
	s.items = reflect.Value{}
	s.base = nil
	s.capacity = 0
	s.occupied = nil
}

// ensureCapacity grows the array to the next power of two that fits n slots.
// It always runs before a slot is written.
func (s *Storage) ensureCapacity(n int) {
	if s.capacity >= n {
		return
	}
	capacity := nextPowerOfTwo(n)

	items := reflect.MakeSlice(reflect.SliceOf(s.layout.typ), capacity, capacity)
	if s.capacity > 0 {
		reflect.Copy(items, s.items)
	}
	s.items = items
	s.base = items.UnsafePointer()
	s.capacity = capacity
	s.occupied = s.occupied.grow(capacity)
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

package ecs

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// ComponentId identifies a registered component kind. Ids are handed out
// densely starting at 0 and are never reused.
type ComponentId uint16

const maxComponentKinds = 1 << 16

// ComponentInfo is the static description of a component kind.
type ComponentInfo struct {
	name   string
	typ    reflect.Type
	id     ComponentId
	layout Layout
	drop   DropFunc
}

func (i ComponentInfo) Name() string       { return i.name }
func (i ComponentInfo) Type() reflect.Type { return i.typ }
func (i ComponentInfo) Id() ComponentId    { return i.id }
func (i ComponentInfo) Layout() Layout     { return i.layout }

// HasDrop reports whether values of this kind carry a destructor.
func (i ComponentInfo) HasDrop() bool { return i.drop != nil }

// ComponentEntry pairs a kind with the storage holding its values.
type ComponentEntry struct {
	Info    ComponentInfo
	Storage *Storage
}

// borrowStatus counts the live borrows of one kind: 0 is free, a positive
// value is the number of readers and -1 is a single writer.
type borrowStatus int16

const (
	borrowedMut borrowStatus = -1
	maxReaders  borrowStatus = 1<<15 - 1
)

// ComponentRegistry maps Go types to component ids and owns one Storage per
// registered kind. It also tracks which kinds are currently borrowed by
// outstanding query responses.
type ComponentRegistry struct {
	entries []*ComponentEntry
	types   *intmap.Map[int, ComponentId]
	borrows []borrowStatus
	logger  *zap.Logger
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		entries: make([]*ComponentEntry, 0, 16),
		types:   intmap.New[int, ComponentId](16),
		logger:  zap.NewNop(),
	}
}

// RegisterComponent registers T and returns its id. Registering the same type
// twice panics.
func RegisterComponent[T any](r *ComponentRegistry) ComponentId {
	t := reflect.TypeFor[T]()
	return r.register(t, t.String(), LayoutOf[T](), dropFuncFor[T]())
}

// RegisterRaw registers a kind without a type parameter. It is the path taken
// by values that reach the world through a command buffer. The name is only
// used for display.
func (r *ComponentRegistry) RegisterRaw(typ reflect.Type, name string, layout Layout, drop DropFunc) ComponentId {
	if typ == nil {
		typ = layout.Type()
	}
	id := r.register(typ, name, layout, drop)
	r.logger.Debug("registered component kind",
		zap.String("name", name),
		zap.Uint16("id", uint16(id)),
		zap.Uintptr("size", layout.Size()),
	)
	return id
}

func (r *ComponentRegistry) register(typ reflect.Type, name string, layout Layout, drop DropFunc) ComponentId {
	if _, ok := r.types.Get(typeId(typ)); ok {
		panic("ecs: component " + typ.String() + " is already registered")
	}
	if len(r.entries) >= maxComponentKinds {
		panic(fmt.Sprintf("ecs: max component kind count (%d) exceeded", maxComponentKinds))
	}
	r.assertExclusive("register " + typ.String())

	if name == "" {
		name = typ.String()
	}
	id := ComponentId(len(r.entries))
	r.entries = append(r.entries, &ComponentEntry{
		Info: ComponentInfo{
			name:   name,
			typ:    typ,
			id:     id,
			layout: layout,
			drop:   drop,
		},
		Storage: NewStorage(layout, drop),
	})
	r.borrows = append(r.borrows, 0)
	r.types.Put(typeId(typ), id)
	return id
}

// ComponentIdOf returns the id of T, if T is registered.
func ComponentIdOf[T any](r *ComponentRegistry) (ComponentId, bool) {
	return r.IdOf(reflect.TypeFor[T]())
}

// IdOf returns the id registered for t.
func (r *ComponentRegistry) IdOf(t reflect.Type) (ComponentId, bool) {
	if t == nil {
		return 0, false
	}
	return r.types.Get(typeId(t))
}

// Entry returns the entry of id. It panics if id was never handed out.
func (r *ComponentRegistry) Entry(id ComponentId) *ComponentEntry {
	if int(id) >= len(r.entries) {
		panic(fmt.Sprintf("ecs: unknown component id %d", id))
	}
	return r.entries[id]
}

// Info returns the description of id.
func (r *ComponentRegistry) Info(id ComponentId) ComponentInfo {
	return r.Entry(id).Info
}

// Len returns the number of registered kinds.
func (r *ComponentRegistry) Len() int {
	return len(r.entries)
}

// Entries yields every entry in id order.
func (r *ComponentRegistry) Entries() iter.Seq2[ComponentId, *ComponentEntry] {
	return func(yield func(ComponentId, *ComponentEntry) bool) {
		for i, entry := range r.entries {
			if !yield(ComponentId(i), entry) {
				return
			}
		}
	}
}

func (r *ComponentRegistry) tryBorrow(id ComponentId, mutable bool) bool {
	status := r.borrows[id]
	if mutable {
		if status != 0 {
			return false
		}
		r.borrows[id] = borrowedMut
		return true
	}
	if status == borrowedMut || status == maxReaders {
		return false
	}
	r.borrows[id]++
	return true
}

func (r *ComponentRegistry) release(id ComponentId, mutable bool) {
	status := r.borrows[id]
	switch {
	case mutable && status == borrowedMut:
		r.borrows[id] = 0
	case !mutable && status > 0:
		r.borrows[id]--
	default:
		panic(fmt.Sprintf("ecs: unbalanced release of %s", r.entries[id].Info.name))
	}
}

// borrowed reports readers and whether a writer holds id.
func (r *ComponentRegistry) borrowed(id ComponentId) (readers int, writer bool) {
	status := r.borrows[id]
	if status == borrowedMut {
		return 0, true
	}
	return int(status), false
}

func (r *ComponentRegistry) assertReadable(id ComponentId) {
	if r.borrows[id] == borrowedMut {
		panic("ecs: " + r.entries[id].Info.name + " is mutably borrowed")
	}
}

func (r *ComponentRegistry) assertFree(id ComponentId) {
	if r.borrows[id] != 0 {
		panic("ecs: " + r.entries[id].Info.name + " is borrowed")
	}
}

func (r *ComponentRegistry) assertExclusive(op string) {
	for id, status := range r.borrows {
		if status != 0 {
			panic("ecs: cannot " + op + " while " + r.entries[id].Info.name + " is borrowed")
		}
	}
}

package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"go.uber.org/zap"
)

// World is the main ECS container. It owns the entity allocator, the
// component registry and every command buffer handed out by Commands.
//
// A World is not safe for concurrent use.
type World struct {
	entities *Entities
	registry *ComponentRegistry
	buffers  []*CommandBuffer
	logger   *zap.Logger

	// outstanding counts query responses that have not been released.
	outstanding int
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger used for registration and maintenance events.
func WithLogger(logger *zap.Logger) Option {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorld creates an empty world.
func NewWorld(opts ...Option) *World {
	w := &World{
		entities: NewEntities(),
		registry: NewComponentRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.registry.logger = w.logger
	return w
}

// Registry returns the component registry of the world.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// Logger returns the logger the world was created with.
func (w *World) Logger() *zap.Logger {
	return w.logger
}

// Spawn creates an entity without components.
func (w *World) Spawn() Entity {
	return w.entities.Spawn()
}

// Despawn destroys e and every component attached to it. It returns false if
// e was already dead. No kind may be borrowed while despawning.
func (w *World) Despawn(e Entity) bool {
	if e.id == resourceSlot {
		panic("ecs: the resource entity cannot be despawned")
	}
	w.registry.assertExclusive("despawn " + e.String())
	if !w.entities.Exists(e) {
		return false
	}
	w.entities.assertGenerationHeadroom(e.id)
	w.unsetAll(e.id)
	return w.entities.Despawn(e)
}

func (w *World) unsetAll(slot uint32) {
	for _, entry := range w.registry.entries {
		entry.Storage.Unset(int(slot))
	}
}

// Exists reports whether e is alive.
func (w *World) Exists(e Entity) bool {
	return w.entities.Exists(e)
}

// Entities yields the live entities in ascending id order.
func (w *World) Entities() iter.Seq[Entity] {
	return w.entities.Iter()
}

// EntityPairs yields every unordered pair of distinct live entities.
func (w *World) EntityPairs() iter.Seq2[Entity, Entity] {
	return w.entities.IterPairs()
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.Len()
}

// idFor returns the id of T, registering T on first use.
func idFor[T any](w *World) ComponentId {
	if id, ok := ComponentIdOf[T](w.registry); ok {
		return id
	}
	return RegisterComponent[T](w.registry)
}

// idOfType is idFor for callers holding a reflect.Type.
func (w *World) idOfType(t reflect.Type) ComponentId {
	if id, ok := w.registry.IdOf(t); ok {
		return id
	}
	return w.registry.register(t, t.String(), LayoutFor(t), dropFuncOf(t))
}

// Add attaches value to e. It returns false if e is dead or already has a T;
// in that case the existing component is kept and value still belongs to the
// caller.
func Add[T any](w *World, e Entity, value T) bool {
	id := idFor[T](w)
	w.registry.assertFree(id)
	if !w.entities.Exists(e) {
		return false
	}
	return w.registry.entries[id].Storage.Set(int(e.id), unsafe.Pointer(&value))
}

// Get returns the T attached to e, or nil. The pointer must not be kept past
// the next structural change of the world.
func Get[T any](w *World, e Entity) *T {
	if !w.entities.Exists(e) {
		return nil
	}
	return getAt[T](w, e.id, false)
}

// GetMut is Get for callers that intend to write through the pointer. It
// panics if any query response holds T.
func GetMut[T any](w *World, e Entity) *T {
	if !w.entities.Exists(e) {
		return nil
	}
	return getAt[T](w, e.id, true)
}

func getAt[T any](w *World, slot uint32, mutable bool) *T {
	id, ok := ComponentIdOf[T](w.registry)
	if !ok {
		return nil
	}
	if mutable {
		w.registry.assertFree(id)
	} else {
		w.registry.assertReadable(id)
	}
	return (*T)(w.registry.entries[id].Storage.Get(int(slot)))
}

// Remove detaches the T of e and hands it back. Its destructor is not run.
func Remove[T any](w *World, e Entity) (T, bool) {
	if !w.entities.Exists(e) {
		var zero T
		return zero, false
	}
	return removeAt[T](w, e.id)
}

func removeAt[T any](w *World, slot uint32) (T, bool) {
	var out T
	id, ok := ComponentIdOf[T](w.registry)
	if !ok {
		return out, false
	}
	w.registry.assertFree(id)
	removed := w.registry.entries[id].Storage.Remove(int(slot), unsafe.Pointer(&out))
	return out, removed
}

// Has reports whether e is alive and has a T.
func Has[T any](w *World, e Entity) bool {
	id, ok := ComponentIdOf[T](w.registry)
	if !ok || !w.entities.Exists(e) {
		return false
	}
	return w.registry.entries[id].Storage.Has(int(e.id))
}

// AddResource stores value as the world's T resource. It returns false and
// keeps the old value if a T resource already exists. Resources live on a
// hidden entity that queries never visit.
func AddResource[T any](w *World, value T) bool {
	id := idFor[T](w)
	w.registry.assertFree(id)
	return w.registry.entries[id].Storage.Set(int(resourceSlot), unsafe.Pointer(&value))
}

// Resource returns the T resource, or nil.
func Resource[T any](w *World) *T {
	return getAt[T](w, resourceSlot, false)
}

// ResourceMut returns the T resource for writing, or nil.
func ResourceMut[T any](w *World) *T {
	return getAt[T](w, resourceSlot, true)
}

// RemoveResource takes the T resource out of the world. Its destructor is not
// run.
func RemoveResource[T any](w *World) (T, bool) {
	return removeAt[T](w, resourceSlot)
}

// Resources yields the kinds currently stored as resources.
func (w *World) Resources() iter.Seq[ComponentInfo] {
	return func(yield func(ComponentInfo) bool) {
		for _, entry := range w.registry.entries {
			if !entry.Storage.Has(int(resourceSlot)) {
				continue
			}
			if !yield(entry.Info) {
				return
			}
		}
	}
}

// ComponentsOf lists the kinds attached to e.
func (w *World) ComponentsOf(e Entity) []ComponentInfo {
	if !w.entities.Exists(e) {
		return nil
	}
	var infos []ComponentInfo
	for _, entry := range w.registry.entries {
		if entry.Storage.Has(int(e.id)) {
			infos = append(infos, entry.Info)
		}
	}
	return infos
}

// ComponentValue returns a pointer value to the id component of e, for
// tooling that only knows kinds at runtime. The value is writable, so it
// panics if any query response holds the kind.
func (w *World) ComponentValue(e Entity, id ComponentId) (reflect.Value, bool) {
	if int(id) >= len(w.registry.entries) || !w.entities.Exists(e) {
		return reflect.Value{}, false
	}
	w.registry.assertFree(id)
	entry := w.registry.entries[id]
	ptr := entry.Storage.Get(int(e.id))
	if ptr == nil {
		return reflect.Value{}, false
	}
	return reflect.NewAt(entry.Info.layout.Type(), ptr), true
}

// Close destroys every component and resource and discards commands that
// were never applied, running destructors for all of them. The world must
// not be used afterwards.
func (w *World) Close() {
	if w.outstanding > 0 {
		panic("ecs: world closed while query responses are outstanding")
	}
	for _, buffer := range w.buffers {
		buffer.discard()
	}
	w.buffers = nil
	for _, entry := range w.registry.entries {
		entry.Storage.Release()
	}
}

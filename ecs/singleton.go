package ecs

// Singleton is a typed handle on the T resource of a world. Use it for global
// state such as configuration, clocks or input.
type Singleton[T any] struct {
	world *World
}

// NewSingleton returns a handle on the T resource of w. If w has no T
// resource yet, one is added holding initializer, or the zero value. The
// resource is guaranteed to exist after the call.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	if Resource[T](w) == nil {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		AddResource(w, value)
	}
	return &Singleton[T]{world: w}
}

// Init binds the handle to w. This is called automatically by the Scheduler
// during system registration.
func (s *Singleton[T]) Init(w *World) {
	s.world = w
}

// Get returns a pointer to the resource, or nil if it has not been added.
// The pointer is looked up on every call because storage growth may move it.
func (s *Singleton[T]) Get() *T {
	if s.world == nil {
		return nil
	}
	return ResourceMut[T](s.world)
}

// Exists returns true if the resource has been added to the world.
func (s *Singleton[T]) Exists() bool {
	return s.world != nil && Resource[T](s.world) != nil
}

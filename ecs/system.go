package ecs

// System represents a behavior that operates on entities with specific components.
// User-defined systems should implement this interface and can include View and
// Singleton fields, which the Scheduler binds on registration, as well as custom
// state fields that persist between frames.
type System interface {
	Execute(frame *Frame)
}

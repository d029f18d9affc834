package ecs

import (
	"reflect"
	"unsafe"

	"go.uber.org/zap"
)

// command is one deferred mutation.
type command interface {
	apply(w *World, report *MaintainReport)
	// discard releases whatever the command owns without applying it.
	discard()
}

// CommandBuffer is the queue behind a Commands handle. It is open until the
// world drains it in Maintain; pushing afterwards panics.
type CommandBuffer struct {
	commands []command
	drained  bool
}

func (b *CommandBuffer) push(cmd command) {
	if b.drained {
		panic("ecs: command pushed to a buffer that was already drained")
	}
	b.commands = append(b.commands, cmd)
}

// Len returns the number of queued commands.
func (b *CommandBuffer) Len() int {
	return len(b.commands)
}

// Drained reports whether the buffer was taken by Maintain.
func (b *CommandBuffer) Drained() bool {
	return b.drained
}

func (b *CommandBuffer) discard() {
	for _, cmd := range b.commands {
		cmd.discard()
	}
	b.commands = nil
	b.drained = true
}

// Commands records structural changes to apply at the next Maintain. It does
// not touch any storage, so it can be used while query responses are live.
type Commands struct {
	world  *World
	buffer *CommandBuffer
}

// Commands opens a new buffer. Buffers are applied in the order they were
// opened.
func (w *World) Commands() *Commands {
	buffer := &CommandBuffer{}
	w.buffers = append(w.buffers, buffer)
	return &Commands{world: w, buffer: buffer}
}

// Buffer returns the queue behind c.
func (c *Commands) Buffer() *CommandBuffer {
	return c.buffer
}

// Spawn hands out an entity that comes alive at the next Maintain.
func (c *Commands) Spawn() Entity {
	if c.buffer.drained {
		panic("ecs: command pushed to a buffer that was already drained")
	}
	e := c.world.entities.Reserve()
	c.buffer.push(spawnCommand{entity: e})
	return e
}

// Despawn queues the destruction of e.
func (c *Commands) Despawn(e Entity) {
	c.buffer.push(despawnCommand{entity: e})
}

// Defer queues fn to run with exclusive access to the world.
func (c *Commands) Defer(fn func(w *World)) {
	c.buffer.push(deferCommand{fn: fn})
}

// AddComponent queues attaching value to e. Kinds the world has never seen
// are registered when the command is applied. If e is dead by then, or
// already has a T, value is destroyed instead.
func AddComponent[T any](c *Commands, e Entity, value T) {
	ptr := new(T)
	*ptr = value
	c.buffer.push(addComponentCommand{
		entity: e,
		value:  unsafe.Pointer(ptr),
		typ:    reflect.TypeFor[T](),
		layout: LayoutOf[T](),
		drop:   dropFuncFor[T](),
	})
}

// RemoveComponent queues destroying the T of e.
func RemoveComponent[T any](c *Commands, e Entity) {
	c.buffer.push(removeComponentCommand{
		entity: e,
		typ:    reflect.TypeFor[T](),
	})
}

type spawnCommand struct {
	entity Entity
}

func (cmd spawnCommand) apply(w *World, report *MaintainReport) {
	if w.entities.Materialize(cmd.entity) {
		report.Spawned++
	}
}

func (cmd spawnCommand) discard() {}

type despawnCommand struct {
	entity Entity
}

func (cmd despawnCommand) apply(w *World, report *MaintainReport) {
	if w.Despawn(cmd.entity) {
		report.Despawned++
		return
	}
	// A handle from Commands.Spawn that was never materialized is released
	// straight away.
	if w.entities.Despawn(cmd.entity) {
		report.Despawned++
	}
}

func (cmd despawnCommand) discard() {}

type addComponentCommand struct {
	entity Entity
	value  unsafe.Pointer
	typ    reflect.Type
	layout Layout
	drop   DropFunc
}

func (cmd addComponentCommand) apply(w *World, report *MaintainReport) {
	id, ok := w.registry.IdOf(cmd.typ)
	if !ok {
		id = w.registry.RegisterRaw(cmd.typ, cmd.typ.String(), cmd.layout, cmd.drop)
	}
	w.registry.assertFree(id)

	if w.entities.Exists(cmd.entity) && w.registry.entries[id].Storage.Set(int(cmd.entity.id), cmd.value) {
		report.Added++
		return
	}

	w.logger.Debug("rejected deferred component",
		zap.Stringer("entity", cmd.entity),
		zap.String("component", w.registry.entries[id].Info.name),
	)
	cmd.discard()
	report.Rejected++
}

func (cmd addComponentCommand) discard() {
	if cmd.drop != nil {
		cmd.drop(cmd.value)
	}
}

type removeComponentCommand struct {
	entity Entity
	typ    reflect.Type
}

func (cmd removeComponentCommand) apply(w *World, report *MaintainReport) {
	id, ok := w.registry.IdOf(cmd.typ)
	if !ok || !w.entities.Exists(cmd.entity) {
		return
	}
	w.registry.assertFree(id)
	if w.registry.entries[id].Storage.Unset(int(cmd.entity.id)) {
		report.Removed++
	}
}

func (cmd removeComponentCommand) discard() {}

type deferCommand struct {
	fn func(w *World)
}

func (cmd deferCommand) apply(w *World, report *MaintainReport) {
	cmd.fn(w)
	report.Deferred++
}

func (cmd deferCommand) discard() {}

// MaintainReport counts what a Maintain call applied.
type MaintainReport struct {
	Buffers   int
	Spawned   int
	Despawned int
	Added     int
	Removed   int
	// Rejected counts deferred components that could not be attached and
	// were destroyed instead.
	Rejected int
	Deferred int
}

// Maintain drains every open command buffer and applies the commands with
// exclusive access, buffers in the order they were opened and commands in the
// order they were pushed. Buffers opened while applying are left for the next
// call. It panics if any query response is outstanding.
func (w *World) Maintain() MaintainReport {
	if w.outstanding > 0 {
		panic("ecs: maintain called while query responses are outstanding")
	}

	buffers := w.buffers
	w.buffers = nil
	for _, buffer := range buffers {
		buffer.drained = true
	}

	report := MaintainReport{Buffers: len(buffers)}
	for _, buffer := range buffers {
		for _, cmd := range buffer.commands {
			cmd.apply(w, &report)
		}
		buffer.commands = nil
	}

	if len(buffers) > 0 {
		w.logger.Debug("world maintained",
			zap.Int("buffers", report.Buffers),
			zap.Int("spawned", report.Spawned),
			zap.Int("despawned", report.Despawned),
			zap.Int("added", report.Added),
			zap.Int("removed", report.Removed),
			zap.Int("rejected", report.Rejected),
			zap.Int("deferred", report.Deferred),
		)
	}
	return report
}

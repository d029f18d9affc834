package main

import (
	"math"
	"math/rand"

	"github.com/plus3/ecstore/ecs"
)

type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func (v Vec3) Add(o Vec3) Vec3        { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3        { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float32) Vec3   { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float32     { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LengthSquared() float32 { return v.Dot(v) }

type Position struct{ Value Vec3 }

type Velocity struct{ Value Vec3 }

// Collider is a sphere centred on the entity's position.
type Collider struct{ Radius float32 }

type Body struct {
	Mass   float32
	Static bool
}

// Lifetime counts down in seconds. Expired entities are replaced by a fresh
// member of their group.
type Lifetime struct{ Remaining float32 }

// Group records which scene group spawned the entity.
type Group struct{ Index int }

// Gravity is a resource.
type Gravity struct{ Value Vec3 }

// Contacts is a resource updated by the CollisionSystem.
type Contacts struct {
	LastFrame int
	Total     int64
}

func inverseMass(b *Body) float32 {
	if b.Static || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

type GravitySystem struct {
	Gravity ecs.Singleton[Gravity]
	Bodies  ecs.View[struct {
		Velocity *Velocity `ecs:"mut"`
		Body     *Body
	}]
}

func (s *GravitySystem) Execute(frame *ecs.Frame) {
	gravity := s.Gravity.Get()
	if gravity == nil {
		return
	}
	step := gravity.Value.Scale(float32(frame.DeltaTime))

	for item := range s.Bodies.Values() {
		if item.Body.Static {
			continue
		}
		item.Velocity.Value = item.Velocity.Value.Add(step)
	}
}

// IntegrateSystem moves entities along their velocity and bounces them off
// the ground plane at y = 0.
type IntegrateSystem struct {
	Restitution float32
	Entities    ecs.View[struct {
		Position *Position `ecs:"mut"`
		Velocity *Velocity `ecs:"mut"`
		Body     *Body     `ecs:"optional"`
	}]
}

func (s *IntegrateSystem) Execute(frame *ecs.Frame) {
	dt := float32(frame.DeltaTime)

	for item := range s.Entities.Values() {
		if item.Body != nil && item.Body.Static {
			continue
		}
		pos, vel := &item.Position.Value, &item.Velocity.Value
		*pos = pos.Add(vel.Scale(dt))
		if pos.Y < 0 {
			pos.Y = 0
			if vel.Y < 0 {
				vel.Y = -vel.Y * s.Restitution
			}
		}
	}
}

type collisionBody = struct {
	Position *Position `ecs:"mut"`
	Velocity *Velocity `ecs:"mut"`
	Collider *Collider
	Body     *Body
}

// CollisionSystem resolves overlapping spheres pairwise. It is quadratic in
// the number of colliders.
type CollisionSystem struct {
	Restitution float32
	Contacts    ecs.Singleton[Contacts]
	Bodies      ecs.View[collisionBody]
}

func (s *CollisionSystem) Execute(frame *ecs.Frame) {
	contacts := 0
	for a, b := range s.Bodies.Pairs() {
		if a.Body.Static && b.Body.Static {
			continue
		}
		if resolveContact(a, b, s.Restitution) {
			contacts++
		}
	}

	if c := s.Contacts.Get(); c != nil {
		c.LastFrame = contacts
		c.Total += int64(contacts)
	}
}

// resolveContact separates a and b if their spheres overlap and applies an
// impulse along the contact normal. It reports whether they touched.
func resolveContact(a, b collisionBody, restitution float32) bool {
	delta := b.Position.Value.Sub(a.Position.Value)
	reach := a.Collider.Radius + b.Collider.Radius
	distSq := delta.LengthSquared()
	if distSq >= reach*reach {
		return false
	}

	ia, ib := inverseMass(a.Body), inverseMass(b.Body)
	if ia+ib == 0 {
		return true
	}

	normal := Vec3{Y: 1}
	dist := float32(math.Sqrt(float64(distSq)))
	if dist > 0 {
		normal = delta.Scale(1 / dist)
	}

	share := (reach - dist) / (ia + ib)
	a.Position.Value = a.Position.Value.Sub(normal.Scale(share * ia))
	b.Position.Value = b.Position.Value.Add(normal.Scale(share * ib))

	closing := b.Velocity.Value.Sub(a.Velocity.Value).Dot(normal)
	if closing < 0 {
		impulse := -(1 + restitution) * closing / (ia + ib)
		a.Velocity.Value = a.Velocity.Value.Sub(normal.Scale(impulse * ia))
		b.Velocity.Value = b.Velocity.Value.Add(normal.Scale(impulse * ib))
	}
	return true
}

// ChurnSystem despawns entities whose lifetime ran out and queues a
// replacement from the same group, so storage slots keep getting recycled.
type ChurnSystem struct {
	Scene    *Scene
	Rand     *rand.Rand
	Expiring ecs.View[struct {
		Entity   ecs.Entity
		Lifetime *Lifetime `ecs:"mut"`
		Group    *Group
	}]
}

func (s *ChurnSystem) Execute(frame *ecs.Frame) {
	dt := float32(frame.DeltaTime)

	for e, item := range s.Expiring.Iter() {
		item.Lifetime.Remaining -= dt
		if item.Lifetime.Remaining > 0 {
			continue
		}
		frame.Commands.Despawn(e)
		s.Scene.spawnDeferred(frame.Commands, item.Group.Index, s.Rand)
	}
}

func registerSystems(scheduler *ecs.Scheduler, scene *Scene, rng *rand.Rand) {
	scheduler.Register(&GravitySystem{})
	scheduler.Register(&IntegrateSystem{Restitution: scene.Restitution})
	scheduler.Register(&CollisionSystem{Restitution: scene.Restitution})
	scheduler.Register(&ChurnSystem{Scene: scene, Rand: rng})
}

package ecs_test

import (
	"fmt"

	"github.com/plus3/ecstore/ecs"
)

type Connection struct {
	Addr string
}

func (c *Connection) Drop() {
	fmt.Println("closing", c.Addr)
}

// ExampleWorld covers the entity lifecycle: handles are generation tagged, so
// a handle kept across a despawn never resolves to the entity that reuses
// its slot.
func ExampleWorld() {
	world := ecs.NewWorld()

	first := world.Spawn()
	ecs.Add(world, first, Position{X: 1})
	world.Despawn(first)

	second := world.Spawn()
	ecs.Add(world, second, Position{X: 2})

	fmt.Println(first, "alive:", world.Exists(first))
	fmt.Println(second, "alive:", world.Exists(second))
	fmt.Println("stale lookup:", ecs.Get[Position](world, first))

	// Output:
	// 1v0 alive: false
	// 1v1 alive: true
	// stale lookup: <nil>
}

// ExampleDropper shows destructors. A component whose pointer type has a
// Drop method is destroyed exactly once, whether by Despawn, by a command,
// or when the world is closed. Remove hands ownership back instead.
func ExampleDropper() {
	world := ecs.NewWorld()

	a := world.Spawn()
	ecs.Add(world, a, Connection{Addr: "a"})
	b := world.Spawn()
	ecs.Add(world, b, Connection{Addr: "b"})
	c := world.Spawn()
	ecs.Add(world, c, Connection{Addr: "c"})

	world.Despawn(a)
	conn, _ := ecs.Remove[Connection](world, b)
	fmt.Println("removed", conn.Addr)
	world.Close()

	// Output:
	// closing a
	// removed b
	// closing c
}

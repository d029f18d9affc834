package ecs_test

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type PlayerController struct{}

type AI struct {
	State int
}

// Custom primitive types for testing non-struct components
type Score int32
type Tag string

type Inventory struct {
	Items []string
}

type Link struct {
	Next *Position
}

// dropCounter counts how often each tracked value was destroyed.
type dropCounter struct {
	drops map[string]int
}

func newDropCounter() *dropCounter {
	return &dropCounter{drops: make(map[string]int)}
}

func (c *dropCounter) count(label string) int {
	return c.drops[label]
}

func (c *dropCounter) total() int {
	n := 0
	for _, v := range c.drops {
		n += v
	}
	return n
}

// Tracked is a component that reports its destruction to a dropCounter.
type Tracked struct {
	Label   string
	counter *dropCounter
}

func (t *Tracked) Drop() {
	t.counter.drops[t.Label]++
}

func (c *dropCounter) value(label string) Tracked {
	return Tracked{Label: label, counter: c}
}

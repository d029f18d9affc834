package ecs_test

import (
	"errors"
	"testing"

	"github.com/plus3/ecstore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView(t *testing.T) {
	w := ecs.NewWorld()
	e := w.Spawn()
	ecs.Add(w, e, Position{X: 1, Y: 2})
	ecs.Add(w, e, Score(32))

	view := ecs.NewView[struct {
		*Position
		*Score
	}](w)

	item, ok := view.Get(e)
	require.True(t, ok)
	assert.Equal(t, Score(32), *item.Score)
	assert.Equal(t, float32(1), item.Position.X)
	assert.Equal(t, float32(2), item.Position.Y)
}

func TestViewMissingComponent(t *testing.T) {
	w := ecs.NewWorld()
	e := w.Spawn()
	ecs.Add(w, e, Position{X: 5, Y: 10})

	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](w)

	_, ok := view.Get(e)
	assert.False(t, ok)
}

func TestViewRegistersKinds(t *testing.T) {
	w := ecs.NewWorld()

	ecs.NewView[struct {
		*Position
		*Velocity `ecs:"optional"`
	}](w)

	_, ok := ecs.ComponentIdOf[Position](w.Registry())
	assert.True(t, ok)
	_, ok = ecs.ComponentIdOf[Velocity](w.Registry())
	assert.True(t, ok)
}

func TestViewIterMutation(t *testing.T) {
	w := ecs.NewWorld()
	var entities []ecs.Entity
	for i := 0; i < 3; i++ {
		e := w.Spawn()
		ecs.Add(w, e, Position{X: float32(i)})
		ecs.Add(w, e, Velocity{DX: 1, DY: 2})
		entities = append(entities, e)
	}
	ecs.Add(w, w.Spawn(), Velocity{DX: 100})

	view := ecs.NewView[struct {
		Entity   ecs.Entity
		Position *Position `ecs:"mut"`
		Velocity *Velocity
	}](w)

	var visited []ecs.Entity
	for e, item := range view.Iter() {
		assert.Equal(t, e, item.Entity)
		item.Position.X += item.Velocity.DX
		item.Position.Y += item.Velocity.DY
		visited = append(visited, e)
	}

	assert.Equal(t, entities, visited, "ascending id order")
	for i, e := range entities {
		assert.Equal(t, Position{X: float32(i) + 1, Y: 2}, *ecs.Get[Position](w, e))
	}
	assert.Equal(t, 0, w.CollectStats().OutstandingQueries, "the borrow ends with the loop")
}

func TestViewIterEarlyBreakReleases(t *testing.T) {
	w := ecs.NewWorld()
	for i := 0; i < 5; i++ {
		ecs.Add(w, w.Spawn(), Position{})
	}
	view := ecs.NewView[struct {
		*Position `ecs:"mut"`
	}](w)

	count := 0
	for range view.Iter() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
	assert.NotPanics(t, func() { w.Maintain() })
}

func TestViewOptionalComponent(t *testing.T) {
	w := ecs.NewWorld()
	named := w.Spawn()
	ecs.Add(w, named, Position{X: 1})
	ecs.Add(w, named, Name{Value: "a"})
	anonymous := w.Spawn()
	ecs.Add(w, anonymous, Position{X: 2})

	view := ecs.NewView[struct {
		Position *Position
		Name     *Name `ecs:"optional"`
	}](w)

	names := make(map[ecs.Entity]string)
	for e, item := range view.Iter() {
		if item.Name != nil {
			names[e] = item.Name.Value
		} else {
			names[e] = ""
		}
	}
	assert.Equal(t, map[ecs.Entity]string{named: "a", anonymous: ""}, names)
	assert.Equal(t, 2, view.Count())
}

func TestViewMutOptional(t *testing.T) {
	w := ecs.NewWorld()
	e := w.Spawn()
	ecs.Add(w, e, Position{})
	ecs.Add(w, e, Health{Current: 1, Max: 10})
	bare := w.Spawn()
	ecs.Add(w, bare, Position{})

	view := ecs.NewView[struct {
		*Position
		Health *Health `ecs:"mut,optional"`
	}](w)

	for _, item := range view.Iter() {
		if item.Health != nil {
			item.Health.Current = item.Health.Max
		}
	}
	assert.Equal(t, 10, ecs.Get[Health](w, e).Current)

	parts := view.Query().Parts()
	require.Len(t, parts, 2)
	assert.True(t, parts[1].Mutable)
	assert.True(t, parts[1].Optional)
	assert.False(t, parts[0].Mutable)
}

func TestViewPairs(t *testing.T) {
	w := ecs.NewWorld()
	for i := 0; i < 4; i++ {
		ecs.Add(w, w.Spawn(), Position{X: float32(i)})
	}
	ecs.Add(w, w.Spawn(), Velocity{})

	view := ecs.NewView[struct {
		Entity ecs.Entity
		*Position
	}](w)

	count := 0
	for a, b := range view.Pairs() {
		assert.NotEqual(t, a.Entity, b.Entity)
		assert.Less(t, a.Position.X, b.Position.X)
		count++
	}
	assert.Equal(t, 6, count)
}

func TestViewConflictingTagsPanic(t *testing.T) {
	w := ecs.NewWorld()

	assert.Panics(t, func() {
		ecs.NewView[struct {
			A *Position `ecs:"mut"`
			B *Position
		}](w)
	})
	assert.NotPanics(t, func() {
		ecs.NewView[struct {
			A *Position
			B *Position
		}](w)
	})
}

func TestViewInvalidStructs(t *testing.T) {
	w := ecs.NewWorld()

	assert.Panics(t, func() { ecs.NewView[int](w) })
	assert.Panics(t, func() {
		ecs.NewView[struct{ Position Position }](w)
	})
	assert.Panics(t, func() {
		ecs.NewView[struct {
			*Position `ecs:"sometimes"`
		}](w)
	})
	assert.Panics(t, func() {
		ecs.NewView[struct {
			A ecs.Entity
			B ecs.Entity
		}](w)
	})
}

func TestViewNestedIterationConflict(t *testing.T) {
	w := ecs.NewWorld()
	ecs.Add(w, w.Spawn(), Position{})

	writer := ecs.NewView[struct {
		*Position `ecs:"mut"`
	}](w)
	reader := ecs.NewView[struct{ *Position }](w)

	assert.Panics(t, func() {
		for range writer.Iter() {
			for range reader.Iter() {
			}
		}
	})
	assert.Equal(t, 0, w.CollectStats().OutstandingQueries, "deferred release runs on panic")

	resp := w.Query(writer.Query())
	_, err := w.TryQuery(reader.Query())
	var conflict *ecs.BorrowConflict
	assert.True(t, errors.As(err, &conflict))
	resp.Release()
}

func TestViewSpawn(t *testing.T) {
	w := ecs.NewWorld()
	view := ecs.NewView[struct {
		*Position
		*Velocity
		Name *Name `ecs:"optional"`
	}](w)

	e := view.Spawn(struct {
		*Position
		*Velocity
		Name *Name `ecs:"optional"`
	}{
		Position: &Position{X: 1},
		Velocity: &Velocity{DX: 2},
	})

	assert.True(t, w.Exists(e))
	assert.Equal(t, float32(1), ecs.Get[Position](w, e).X)
	assert.Equal(t, float32(2), ecs.Get[Velocity](w, e).DX)
	assert.False(t, ecs.Has[Name](w, e))

	assert.Panics(t, func() {
		view.Spawn(struct {
			*Position
			*Velocity
			Name *Name `ecs:"optional"`
		}{Position: &Position{}})
	})
	assert.Equal(t, 1, w.EntityCount(), "a rejected spawn creates nothing")
}

func TestViewSkipsDespawned(t *testing.T) {
	w := ecs.NewWorld()
	keep := w.Spawn()
	drop := w.Spawn()
	ecs.Add(w, keep, Inventory{Items: []string{"a"}})
	ecs.Add(w, drop, Inventory{Items: []string{"b"}})
	w.Despawn(drop)

	view := ecs.NewView[struct{ *Inventory }](w)
	var items []string
	for inv := range view.Values() {
		items = append(items, inv.Items...)
	}
	assert.Equal(t, []string{"a"}, items)

	_, ok := view.Get(drop)
	assert.False(t, ok)
}

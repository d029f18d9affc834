package ecs_test

import (
	"errors"
	"testing"

	"github.com/plus3/ecstore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryRejectionMatrix(t *testing.T) {
	const pos ecs.ComponentId = 0
	const vel ecs.ComponentId = 1

	tests := []struct {
		name     string
		parts    []ecs.QueryPart
		conflict bool
	}{
		{"read and write", []ecs.QueryPart{ecs.Read(pos), ecs.Write(pos)}, true},
		{"write and read", []ecs.QueryPart{ecs.Write(pos), ecs.Read(pos)}, true},
		{"write twice", []ecs.QueryPart{ecs.Write(pos), ecs.Write(pos)}, true},
		{"optional write and read", []ecs.QueryPart{ecs.Write(pos).Maybe(), ecs.Read(pos)}, true},
		{"read twice", []ecs.QueryPart{ecs.Read(pos), ecs.Read(pos)}, false},
		{"different kinds", []ecs.QueryPart{ecs.Write(pos), ecs.Write(vel)}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ecs.NewQuery(tt.parts...)
			if !tt.conflict {
				require.NoError(t, err)
				assert.Equal(t, len(tt.parts), q.Len())
				return
			}

			require.Error(t, err)
			assert.Nil(t, q)
			var conflict *ecs.BorrowConflict
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, pos, conflict.Component)
		})
	}
}

func TestMustQueryPanics(t *testing.T) {
	assert.Panics(t, func() { ecs.MustQuery(ecs.Write(3), ecs.Read(3)) })
	assert.NotPanics(t, func() { ecs.MustQuery(ecs.Read(3), ecs.Read(3)) })
}

func TestQueryPartString(t *testing.T) {
	assert.Equal(t, "mut #2?", ecs.Write(2).Maybe().String())
	assert.Equal(t, "#1", ecs.Read(1).String())
}

func newPositionWorld(t *testing.T) (*ecs.World, ecs.ComponentId, ecs.ComponentId) {
	t.Helper()
	w := ecs.NewWorld()
	pos := ecs.RegisterComponent[Position](w.Registry())
	vel := ecs.RegisterComponent[Velocity](w.Registry())
	return w, pos, vel
}

func TestQueryEndToEndPosition(t *testing.T) {
	w, pos, _ := newPositionWorld(t)

	e0 := w.Spawn()
	e1 := w.Spawn()
	e2 := w.Spawn()
	require.True(t, ecs.Add(w, e1, Position{X: 1}))
	require.True(t, ecs.Add(w, e2, Position{X: 2}))

	q := ecs.MustQuery(ecs.Write(pos))
	resp := w.Query(q)

	var got []ecs.Entity
	for e, ptrs := range resp.Iter() {
		got = append(got, e)
		ecs.Cast[Position](ptrs[0]).X += 10
	}
	resp.Release()

	assert.Equal(t, []ecs.Entity{e1, e2}, got)
	assert.NotContains(t, got, e0)
	assert.Equal(t, float32(11), ecs.Get[Position](w, e1).X)
	assert.Equal(t, float32(12), ecs.Get[Position](w, e2).X)
}

func TestQueryOptionalParts(t *testing.T) {
	w, pos, vel := newPositionWorld(t)

	moving := w.Spawn()
	ecs.Add(w, moving, Position{X: 1})
	ecs.Add(w, moving, Velocity{DX: 2})
	still := w.Spawn()
	ecs.Add(w, still, Position{X: 3})
	onlyVel := w.Spawn()
	ecs.Add(w, onlyVel, Velocity{DX: 4})

	resp := w.Query(ecs.MustQuery(ecs.Read(pos), ecs.Read(vel).Maybe()))
	defer resp.Release()

	results := make(map[ecs.Entity]bool)
	for e, ptrs := range resp.Iter() {
		results[e] = ptrs[1] != nil
	}
	assert.Equal(t, map[ecs.Entity]bool{moving: true, still: false}, results)
	assert.Equal(t, 2, resp.Count())
}

func TestQueryTryGet(t *testing.T) {
	w, pos, vel := newPositionWorld(t)

	full := w.Spawn()
	ecs.Add(w, full, Position{X: 1})
	ecs.Add(w, full, Velocity{DX: 1})
	partial := w.Spawn()
	ecs.Add(w, partial, Position{X: 2})
	dead := w.Spawn()
	ecs.Add(w, dead, Position{X: 3})
	ecs.Add(w, dead, Velocity{DX: 3})
	w.Despawn(dead)

	resp := w.Query(ecs.MustQuery(ecs.Read(pos), ecs.Write(vel)))
	defer resp.Release()

	ptrs, ok := resp.TryGet(full)
	require.True(t, ok)
	assert.Equal(t, float32(1), ecs.Cast[Position](ptrs[0]).X)
	assert.Equal(t, float32(1), ecs.Cast[Velocity](ptrs[1]).DX)

	_, ok = resp.TryGet(partial)
	assert.False(t, ok, "missing required part")
	_, ok = resp.TryGet(dead)
	assert.False(t, ok, "dead entity")

	assert.Panics(t, func() { resp.Get(partial) })
	assert.NotPanics(t, func() { resp.Get(full) })
}

func TestQueryConcurrentResponses(t *testing.T) {
	w, pos, vel := newPositionWorld(t)

	readPos := ecs.MustQuery(ecs.Read(pos))
	writePos := ecs.MustQuery(ecs.Write(pos))
	writeVel := ecs.MustQuery(ecs.Write(vel))

	first, err := w.TryQuery(readPos)
	require.NoError(t, err)
	second, err := w.TryQuery(readPos)
	require.NoError(t, err, "shared borrows coexist")

	_, err = w.TryQuery(writePos)
	var conflict *ecs.BorrowConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, pos, conflict.Component)
	assert.Contains(t, err.Error(), "Position")

	other, err := w.TryQuery(writeVel)
	require.NoError(t, err, "a different kind can be written concurrently")
	other.Release()

	first.Release()
	_, err = w.TryQuery(writePos)
	assert.Error(t, err, "one reader is still live")

	second.Release()
	exclusive, err := w.TryQuery(writePos)
	require.NoError(t, err)

	_, err = w.TryQuery(readPos)
	assert.Error(t, err, "readers wait for the writer")
	exclusive.Release()
}

func TestQueryFailedAcquisitionRollsBack(t *testing.T) {
	w, pos, vel := newPositionWorld(t)

	holder := w.Query(ecs.MustQuery(ecs.Write(vel)))

	_, err := w.TryQuery(ecs.MustQuery(ecs.Write(pos), ecs.Read(vel)))
	require.Error(t, err)

	holder.Release()
	resp, err := w.TryQuery(ecs.MustQuery(ecs.Write(pos)))
	require.NoError(t, err, "the position borrow taken before the failure was returned")
	resp.Release()
}

func TestQueryReleaseIsIdempotent(t *testing.T) {
	w, pos, _ := newPositionWorld(t)
	resp := w.Query(ecs.MustQuery(ecs.Write(pos)))

	resp.Release()
	resp.Release()

	assert.Panics(t, func() { resp.Iter() })
	assert.Panics(t, func() { resp.TryGet(ecs.Entity{}) })

	again := w.Query(ecs.MustQuery(ecs.Write(pos)))
	again.Release()
	assert.Equal(t, 0, w.CollectStats().OutstandingQueries)
}

func TestQueryIterPairs(t *testing.T) {
	w, pos, _ := newPositionWorld(t)

	var matching []ecs.Entity
	for i := 0; i < 4; i++ {
		e := w.Spawn()
		ecs.Add(w, e, Position{X: float32(i)})
		matching = append(matching, e)
	}
	w.Spawn()

	resp := w.Query(ecs.MustQuery(ecs.Read(pos)))
	defer resp.Release()

	type pair struct{ a, b ecs.Entity }
	seen := make(map[pair]bool)
	for a, b := range resp.IterPairs() {
		assert.NotEqual(t, a.Entity, b.Entity)
		assert.Contains(t, matching, a.Entity)
		assert.Contains(t, matching, b.Entity)
		assert.Less(t, a.Entity.Id(), b.Entity.Id())
		assert.False(t, seen[pair{a.Entity, b.Entity}])
		seen[pair{a.Entity, b.Entity}] = true
		assert.Equal(t, float32(a.Entity.Id()-1), ecs.Cast[Position](a.Components[0]).X)
	}
	assert.Len(t, seen, 6)
}

func TestQuerySkipsResources(t *testing.T) {
	w, pos, _ := newPositionWorld(t)
	ecs.AddResource(w, Position{X: 99})
	e := w.Spawn()
	ecs.Add(w, e, Position{X: 1})

	resp := w.Query(ecs.MustQuery(ecs.Read(pos)))
	defer resp.Release()

	count := 0
	for got := range resp.Iter() {
		assert.Equal(t, e, got)
		count++
	}
	assert.Equal(t, 1, count)
}

func TestEmptyQueryMatchesEveryEntity(t *testing.T) {
	w := ecs.NewWorld()
	w.Spawn()
	w.Spawn()

	resp := w.Query(ecs.MustQuery())
	defer resp.Release()
	assert.Equal(t, 2, resp.Count())
}

package ecs

import (
	"math"
	"testing"
)

type overflowTag struct{ N int }

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	fn()
}

func TestEntitiesGenerationOverflowPanics(t *testing.T) {
	s := NewEntities()
	e := s.Spawn()
	s.generations[e.id] = math.MaxUint32
	e.generation = math.MaxUint32

	expectPanic(t, func() { s.Despawn(e) })

	if !s.Exists(e) {
		t.Error("entity must stay alive after the overflow panic")
	}
	for _, id := range s.free {
		if id == e.id {
			t.Errorf("slot %d must not be recycled", e.id)
		}
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 live entity, got %d", s.Len())
	}
}

func TestWorldDespawnOverflowKeepsComponents(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	Add(w, e, overflowTag{N: 7})
	w.entities.generations[e.id] = math.MaxUint32
	e.generation = math.MaxUint32

	expectPanic(t, func() { w.Despawn(e) })

	if !w.Exists(e) {
		t.Fatal("entity must stay alive after the overflow panic")
	}
	tag := Get[overflowTag](w, e)
	if tag == nil || tag.N != 7 {
		t.Errorf("components must survive a failed despawn, got %v", tag)
	}
}

package ecs

import (
	"fmt"
	"iter"
	"math"

	"github.com/kamstrup/intmap"
)

// resourceSlot is the entity id that hosts resources. It is allocated when the
// allocator is created, is never recycled and is skipped by iteration.
const resourceSlot uint32 = 0

// Entity is a generation tagged handle. The id indexes a slot and the
// generation tells apart successive owners of the same slot.
type Entity struct {
	id         uint32
	generation uint32
}

// Id returns the slot index of the entity.
func (e Entity) Id() uint32 { return e.id }

// Generation returns the generation the handle was minted with.
func (e Entity) Generation() uint32 { return e.generation }

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.id, e.generation)
}

// Entities allocates entity handles and recycles their slots.
//
// There can be at most 2^32 slots and every slot can be reused 2^32 times.
// Exceeding either limit panics instead of handing out colliding handles.
type Entities struct {
	generations []uint32
	free        []uint32
	// reserved holds ids handed out by Reserve that have not been
	// materialized yet. They are neither alive nor iterated.
	reserved *intmap.Map[uint32, uint32]
	live     int
}

// NewEntities creates an allocator with the resource slot already taken.
func NewEntities() *Entities {
	return &Entities{
		generations: make([]uint32, 1, 64),
		free:        make([]uint32, 0, 16),
		reserved:    intmap.New[uint32, uint32](16),
	}
}

// Resource returns the handle of the hidden entity that stores resources.
func (s *Entities) Resource() Entity {
	return Entity{id: resourceSlot, generation: s.generations[resourceSlot]}
}

// Spawn creates a new entity. Amortized O(1).
func (s *Entities) Spawn() Entity {
	e := s.allocate()
	s.live++
	return e
}

// Reserve allocates a handle that only becomes alive once Materialize is
// called for it. It lets deferred spawns hand out handles early.
func (s *Entities) Reserve() Entity {
	e := s.allocate()
	s.reserved.Put(e.id, e.generation)
	return e
}

// Materialize turns a reserved handle into a live entity. It returns false if
// the handle was not reserved.
func (s *Entities) Materialize(e Entity) bool {
	gen, ok := s.reserved.Get(e.id)
	if !ok || gen != e.generation {
		return false
	}
	s.reserved.Del(e.id)
	s.live++
	return true
}

func (s *Entities) allocate() Entity {
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		return Entity{id: id, generation: s.generations[id]}
	}

	if uint64(len(s.generations)) > math.MaxUint32 {
		panic("ecs: max entity count (4 294 967 296) exceeded")
	}
	id := uint32(len(s.generations))
	s.generations = append(s.generations, 0)
	return Entity{id: id}
}

// Despawn kills the entity. It returns false if the entity had already been
// despawned. The slot's generation is bumped so stale handles stop matching.
func (s *Entities) Despawn(e Entity) bool {
	if e.id == resourceSlot {
		panic("ecs: the resource entity cannot be despawned")
	}
	if int(e.id) >= len(s.generations) || s.generations[e.id] != e.generation {
		return false
	}

	s.assertGenerationHeadroom(e.id)

	if gen, ok := s.reserved.Get(e.id); ok && gen == e.generation {
		s.reserved.Del(e.id)
	} else {
		s.live--
	}
	s.generations[e.id]++
	s.free = append(s.free, e.id)
	return true
}

// assertGenerationHeadroom panics if despawning slot would wrap its
// generation counter.
func (s *Entities) assertGenerationHeadroom(slot uint32) {
	if s.generations[slot] == math.MaxUint32 {
		panic(fmt.Sprintf("ecs: generation counter for entity id %d overflowed", slot))
	}
}

// Exists reports whether the entity is still alive. The resource entity is
// never reported alive, so the zero Entity does not resolve. O(1).
func (s *Entities) Exists(e Entity) bool {
	if e.id == resourceSlot || int(e.id) >= len(s.generations) || s.generations[e.id] != e.generation {
		return false
	}
	if gen, ok := s.reserved.Get(e.id); ok && gen == e.generation {
		return false
	}
	return true
}

// IdOf returns the slot id of the entity if it is alive.
func (s *Entities) IdOf(e Entity) (uint32, bool) {
	if !s.Exists(e) {
		return 0, false
	}
	return e.id, true
}

// Len returns the number of live entities, not counting the resource entity.
func (s *Entities) Len() int {
	return s.live
}

// Iter returns the live entities in ascending id order, without the resource
// entity. The slot range and the free ids are captured when Iter is called, so
// entities spawned or despawned afterwards do not show up.
func (s *Entities) Iter() iter.Seq[Entity] {
	slots := len(s.generations)
	unused := intmap.New[uint32, struct{}](len(s.free))
	for _, id := range s.free {
		unused.Put(id, struct{}{})
	}

	return func(yield func(Entity) bool) {
		for i := 1; i < slots; i++ {
			id := uint32(i)
			if _, ok := unused.Get(id); ok {
				continue
			}
			if gen, ok := s.reserved.Get(id); ok && gen == s.generations[id] {
				continue
			}
			if !yield(Entity{id: id, generation: s.generations[id]}) {
				return
			}
		}
	}
}

// IterPairs yields every unordered pair of distinct live entities once. If
// (a, b) is yielded, (b, a) is not.
func (s *Entities) IterPairs() iter.Seq2[Entity, Entity] {
	live := make([]Entity, 0, s.live)
	for e := range s.Iter() {
		live = append(live, e)
	}

	return func(yield func(Entity, Entity) bool) {
		for i := 0; i < len(live); i++ {
			for j := i + 1; j < len(live); j++ {
				if !yield(live[i], live[j]) {
					return
				}
			}
		}
	}
}

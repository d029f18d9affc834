package ecs_test

import (
	"runtime"
	"slices"
	"testing"
	"unsafe"

	"github.com/plus3/ecstore/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrackedStorage() *ecs.Storage {
	return ecs.NewStorage(ecs.LayoutOf[Tracked](), func(ptr unsafe.Pointer) {
		(*Tracked)(ptr).Drop()
	})
}

func TestStorageStartsEmpty(t *testing.T) {
	s := ecs.NewStorage(ecs.LayoutOf[Position](), nil)

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Cap())
	assert.Nil(t, s.Get(0))
	assert.Nil(t, s.Get(1000))
	assert.False(t, s.Has(3))
}

func TestStorageSetGrowsToPowerOfTwo(t *testing.T) {
	s := ecs.NewStorage(ecs.LayoutOf[Position](), nil)

	pos := Position{X: 1, Y: 2}
	require.True(t, s.Set(5, unsafe.Pointer(&pos)))
	assert.Equal(t, 8, s.Cap())
	assert.Equal(t, 1, s.Len())

	pos = Position{X: 3, Y: 4}
	require.True(t, s.Set(8, unsafe.Pointer(&pos)))
	assert.Equal(t, 16, s.Cap())

	got := (*Position)(s.Get(5))
	require.NotNil(t, got)
	assert.Equal(t, Position{X: 1, Y: 2}, *got, "values survive growth")
	assert.Equal(t, Position{X: 3, Y: 4}, *(*Position)(s.Get(8)))
}

func TestStorageSetRejectsOccupiedSlot(t *testing.T) {
	counter := newDropCounter()
	s := newTrackedStorage()

	first := counter.value("first")
	second := counter.value("second")
	require.True(t, s.Set(1, unsafe.Pointer(&first)))
	assert.False(t, s.Set(1, unsafe.Pointer(&second)))

	assert.Equal(t, "first", (*Tracked)(s.Get(1)).Label)
	assert.Equal(t, 0, counter.total(), "rejection destroys nothing")
}

func TestStorageUnsetDropsExactlyOnce(t *testing.T) {
	counter := newDropCounter()
	s := newTrackedStorage()

	v := counter.value("a")
	require.True(t, s.Set(2, unsafe.Pointer(&v)))

	assert.True(t, s.Unset(2))
	assert.False(t, s.Unset(2))
	assert.Equal(t, 1, counter.count("a"))
	assert.Nil(t, s.Get(2))
	assert.Equal(t, 0, s.Len())
}

func TestStorageRemoveTransfersOwnership(t *testing.T) {
	counter := newDropCounter()
	s := newTrackedStorage()

	v := counter.value("moved")
	require.True(t, s.Set(3, unsafe.Pointer(&v)))

	var out Tracked
	require.True(t, s.Remove(3, unsafe.Pointer(&out)))
	assert.Equal(t, "moved", out.Label)
	assert.Equal(t, 0, counter.count("moved"), "remove must not run the destructor")
	assert.False(t, s.Has(3))
	assert.False(t, s.Remove(3, unsafe.Pointer(&out)))

	out.Drop()
	assert.Equal(t, 1, counter.count("moved"))
}

func TestStorageReleaseDropsEveryValue(t *testing.T) {
	counter := newDropCounter()
	s := newTrackedStorage()

	for _, i := range []int{1, 4, 9, 63, 64, 200} {
		v := counter.value("x")
		require.True(t, s.Set(i, unsafe.Pointer(&v)))
	}
	gone := counter.value("gone")
	require.True(t, s.Set(10, unsafe.Pointer(&gone)))
	require.True(t, s.Unset(10))

	s.Release()
	assert.Equal(t, 6, counter.count("x"))
	assert.Equal(t, 1, counter.count("gone"))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Cap())

	v := counter.value("again")
	assert.True(t, s.Set(1, unsafe.Pointer(&v)), "storage is reusable after release")
}

func TestStorageIndices(t *testing.T) {
	s := ecs.NewStorage(ecs.LayoutOf[int](), nil)
	for _, i := range []int{70, 3, 0, 128, 64} {
		v := i * 10
		require.True(t, s.Set(i, unsafe.Pointer(&v)))
	}
	s.Unset(64)

	assert.Equal(t, []int{0, 3, 70, 128}, slices.Collect(s.Indices()))
}

func TestStorageZeroSizedComponent(t *testing.T) {
	s := ecs.NewStorage(ecs.LayoutOf[PlayerController](), nil)

	var marker PlayerController
	require.True(t, s.Set(4, unsafe.Pointer(&marker)))
	assert.NotNil(t, s.Get(4))
	assert.Nil(t, s.Get(3))
	assert.True(t, s.Unset(4))
	assert.Nil(t, s.Get(4))
}

func TestStorageKeepsPointersVisibleToGC(t *testing.T) {
	s := ecs.NewStorage(ecs.LayoutOf[Link](), nil)

	link := Link{Next: &Position{X: 7, Y: 9}}
	require.True(t, s.Set(1, unsafe.Pointer(&link)))
	link = Link{}

	runtime.GC()
	runtime.GC()

	got := (*Link)(s.Get(1))
	require.NotNil(t, got.Next)
	assert.Equal(t, Position{X: 7, Y: 9}, *got.Next)
}

func TestStorageNegativeIndexPanics(t *testing.T) {
	s := ecs.NewStorage(ecs.LayoutOf[int](), nil)
	v := 1
	assert.Panics(t, func() { s.Set(-1, unsafe.Pointer(&v)) })
}

func TestLayout(t *testing.T) {
	l := ecs.LayoutOf[Position]()
	assert.Equal(t, uintptr(8), l.Size())
	assert.Equal(t, uintptr(4), l.Align())
	assert.Equal(t, "ecs_test.Position", l.String())
	assert.Panics(t, func() { ecs.LayoutFor(nil) })
}

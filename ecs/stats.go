package ecs

import "sort"

// WorldStats is a snapshot of a world's size and borrow state.
type WorldStats struct {
	EntityCount        int
	ComponentKinds     int
	ResourceCount      int
	ResourceTypes      []string
	OutstandingQueries int
	PendingCommands    int
	Storages           []StorageStats
}

// StorageStats describes the storage of one component kind.
type StorageStats struct {
	Id       ComponentId
	Name     string
	Count    int
	Capacity int
	// Bytes is the size of the backing array.
	Bytes   uintptr
	Readers int
	Writer  bool
}

// CollectStats walks the registry and the command buffers. Resources are
// not counted in the storage occupancy.
func (w *World) CollectStats() WorldStats {
	stats := WorldStats{
		EntityCount:        w.entities.Len(),
		ComponentKinds:     w.registry.Len(),
		OutstandingQueries: w.outstanding,
		Storages:           make([]StorageStats, 0, w.registry.Len()),
	}

	for _, buffer := range w.buffers {
		stats.PendingCommands += buffer.Len()
	}

	for id, entry := range w.registry.Entries() {
		count := entry.Storage.Len()
		if entry.Storage.Has(int(resourceSlot)) {
			stats.ResourceCount++
			stats.ResourceTypes = append(stats.ResourceTypes, entry.Info.name)
			count--
		}
		readers, writer := w.registry.borrowed(id)
		stats.Storages = append(stats.Storages, StorageStats{
			Id:       id,
			Name:     entry.Info.name,
			Count:    count,
			Capacity: entry.Storage.Cap(),
			Bytes:    uintptr(entry.Storage.Cap()) * entry.Info.layout.Size(),
			Readers:  readers,
			Writer:   writer,
		})
	}

	sort.Strings(stats.ResourceTypes)
	return stats
}

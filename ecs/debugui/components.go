package debugui

import (
	"github.com/plus3/ecstore/ecs"
)

type EntityBrowserComponent struct {
	cache              *EntityBrowserCache
	selected           ecs.Entity
	hasSelection       bool
	filterText         string
	filterComponent    *ecs.ComponentId
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspectorComponent struct {
	selected     ecs.Entity
	hasSelection bool
}

type StorageViewerComponent struct {
	cache         *StorageViewerCache
	selectedId    *ecs.ComponentId
	sortColumn    int
	sortAscending bool
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
	timer         *FrameTimer
}

type QueryDebuggerComponent struct {
	cache     *QueryDebuggerCache
	selected  map[ecs.ComponentId]bool
	mutable   map[ecs.ComponentId]bool
	optional  map[ecs.ComponentId]bool
	lastError string
}

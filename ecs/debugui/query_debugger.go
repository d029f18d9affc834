package debugui

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecstore/ecs"
)

type QueryDebuggerCache struct {
	components []ecs.ComponentInfo
	lastKinds  int
}

func NewQueryDebuggerComponent() QueryDebuggerComponent {
	return QueryDebuggerComponent{
		selected: make(map[ecs.ComponentId]bool),
		mutable:  make(map[ecs.ComponentId]bool),
		optional: make(map[ecs.ComponentId]bool),
		cache: &QueryDebuggerCache{
			lastKinds: -1,
		},
	}
}

// Render lets the user assemble a query from registered kinds and shows how
// many entities it matches. The query is taken for real, so a kind still
// borrowed elsewhere is reported as a conflict.
func (qd *QueryDebuggerComponent) Render(w *ecs.World) {
	if !imgui.BeginV("Query Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	qd.rebuildCacheIfNeeded(w)

	imgui.Text("Select Component Types:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		clear(qd.selected)
		clear(qd.mutable)
		clear(qd.optional)
	}

	for _, info := range qd.cache.components {
		id := info.Id()
		selected := qd.selected[id]
		if imgui.Checkbox(info.Name(), &selected) {
			qd.selected[id] = selected
		}
		if !selected {
			continue
		}
		imgui.SameLine()
		mutable := qd.mutable[id]
		if imgui.Checkbox(fmt.Sprintf("mut##%d", id), &mutable) {
			qd.mutable[id] = mutable
		}
		imgui.SameLine()
		optional := qd.optional[id]
		if imgui.Checkbox(fmt.Sprintf("optional##%d", id), &optional) {
			qd.optional[id] = optional
		}
	}

	imgui.Separator()

	parts := qd.parts()
	if len(parts) == 0 {
		imgui.Text("No component types selected")
		imgui.End()
		return
	}

	query, err := ecs.NewQuery(parts...)
	if err == nil {
		var resp *ecs.QueryResponse
		resp, err = w.TryQuery(query)
		if err == nil {
			imgui.Text(fmt.Sprintf("Query: %v", query.Parts()))
			imgui.Text(fmt.Sprintf("Matching Entities: %d", resp.Count()))
			resp.Release()
		}
	}

	if err != nil {
		var conflict *ecs.BorrowConflict
		if errors.As(err, &conflict) {
			qd.lastError = fmt.Sprintf("Conflict on %s", w.Registry().Info(conflict.Component).Name())
		} else {
			qd.lastError = err.Error()
		}
		imgui.TextColored(imgui.NewVec4(1, 0.4, 0.4, 1), qd.lastError)
	}

	imgui.End()
}

func (qd *QueryDebuggerComponent) parts() []ecs.QueryPart {
	var parts []ecs.QueryPart
	for _, info := range qd.cache.components {
		id := info.Id()
		if !qd.selected[id] {
			continue
		}
		part := ecs.Read(id)
		if qd.mutable[id] {
			part = ecs.Write(id)
		}
		if qd.optional[id] {
			part = part.Maybe()
		}
		parts = append(parts, part)
	}
	return parts
}

func (qd *QueryDebuggerComponent) rebuildCacheIfNeeded(w *ecs.World) {
	if kinds := w.Registry().Len(); qd.cache.lastKinds != kinds {
		qd.cache.components = nil
		qd.cache.lastKinds = kinds
	}

	if qd.cache.components == nil {
		qd.rebuildCache(w)
	}
}

func (qd *QueryDebuggerComponent) rebuildCache(w *ecs.World) {
	qd.cache.components = make([]ecs.ComponentInfo, 0, w.Registry().Len())
	for _, entry := range w.Registry().Entries() {
		qd.cache.components = append(qd.cache.components, entry.Info)
	}

	sort.Slice(qd.cache.components, func(i, j int) bool {
		return qd.cache.components[i].Name() < qd.cache.components[j].Name()
	})
}

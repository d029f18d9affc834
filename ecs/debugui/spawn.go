package debugui

import "github.com/plus3/ecstore/ecs"

// SpawnDebugUI spawns one entity carrying every debug tool window plus the
// ImguiItem that draws them. Selecting a row in the storage viewer filters the
// entity browser, and the browser's selection feeds the inspector.
func SpawnDebugUI(w *ecs.World) ecs.Entity {
	e := w.Spawn()
	ecs.Add(w, e, NewEntityBrowserComponent(100))
	ecs.Add(w, e, NewComponentInspectorComponent())
	ecs.Add(w, e, NewStorageViewerComponent())
	ecs.Add(w, e, NewPerformanceStatsComponent(120))
	ecs.Add(w, e, NewQueryDebuggerComponent())
	ecs.Add(w, e, ImguiItem{Render: func(w *ecs.World) { renderDebugUI(w, e) }})
	return e
}

func renderDebugUI(w *ecs.World, e ecs.Entity) {
	browser := ecs.GetMut[EntityBrowserComponent](w, e)
	inspector := ecs.GetMut[ComponentInspectorComponent](w, e)
	viewer := ecs.GetMut[StorageViewerComponent](w, e)
	perf := ecs.GetMut[PerformanceStatsComponent](w, e)
	queries := ecs.GetMut[QueryDebuggerComponent](w, e)
	if browser == nil || inspector == nil || viewer == nil || perf == nil || queries == nil {
		return
	}

	perf.Render(w)
	if id := viewer.Render(w); id != nil {
		browser.FilterByComponent(id)
	}
	browser.Render(w)
	selected, ok := browser.Selected()
	inspector.Render(w, selected, ok)
	queries.Render(w)
}

// RegisterDebugUIComponents registers the debug kinds up front. Like any
// registration it panics on kinds the registry already knows, so call it
// before SpawnDebugUI.
func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[ImguiItem](registry)
	ecs.RegisterComponent[ImguiInputState](registry)
	ecs.RegisterComponent[EntityBrowserComponent](registry)
	ecs.RegisterComponent[ComponentInspectorComponent](registry)
	ecs.RegisterComponent[StorageViewerComponent](registry)
	ecs.RegisterComponent[PerformanceStatsComponent](registry)
	ecs.RegisterComponent[QueryDebuggerComponent](registry)
}

package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecstore/ecs"
)

type EntityInfo struct {
	Entity         ecs.Entity
	ComponentIds   []ecs.ComponentId
	ComponentTypes []string
}

type EntityBrowserCache struct {
	entities      []EntityInfo
	lastEntities  int
	lastKinds     int
	sortColumn    int
	sortAscending bool
}

func NewEntityBrowserComponent(maxEntitiesPerPage int) EntityBrowserComponent {
	return EntityBrowserComponent{
		cache: &EntityBrowserCache{
			lastEntities:  -1,
			sortColumn:    0,
			sortAscending: true,
		},
		maxEntitiesPerPage: maxEntitiesPerPage,
	}
}

func (eb *EntityBrowserComponent) Render(w *ecs.World) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.rebuildCacheIfNeeded(w)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
		eb.filterComponent = nil
	}
	imgui.SameLine()
	if imgui.Button("Refresh") {
		eb.cache.entities = nil
	}
	if eb.filterComponent != nil {
		imgui.Text(fmt.Sprintf("Showing entities with %s", w.Registry().Info(*eb.filterComponent).Name()))
	}

	filteredEntities := eb.getFilteredEntities()
	if eb.currentPage*eb.maxEntitiesPerPage >= len(filteredEntities) {
		eb.currentPage = 0
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Generation")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.cache.sortColumn = int(spec.ColumnIndex())
			eb.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			eb.sortEntities()
			sortSpecs.SetSpecsDirty(false)
		}

		startIdx := eb.currentPage * eb.maxEntitiesPerPage
		endIdx := min(startIdx+eb.maxEntitiesPerPage, len(filteredEntities))

		for i := startIdx; i < endIdx; i++ {
			entity := filteredEntities[i]
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := eb.hasSelection && eb.selected == entity.Entity
			if imgui.SelectableBoolV(fmt.Sprintf("%d", entity.Entity.Id()), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.selected = entity.Entity
				eb.hasSelection = true
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entity.Entity.Generation()))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", len(entity.ComponentIds)))
		}

		imgui.EndTable()
	}

	if len(filteredEntities) > eb.maxEntitiesPerPage {
		totalPages := (len(filteredEntities) + eb.maxEntitiesPerPage - 1) / eb.maxEntitiesPerPage
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, totalPages, len(filteredEntities)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < totalPages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filteredEntities)))
	}

	imgui.End()
}

// rebuildCacheIfNeeded refreshes the listing when the number of entities or
// component kinds changed. Component additions to existing entities only show
// up after a Refresh.
func (eb *EntityBrowserComponent) rebuildCacheIfNeeded(w *ecs.World) {
	entities, kinds := w.EntityCount(), w.Registry().Len()
	if eb.cache.lastEntities != entities || eb.cache.lastKinds != kinds {
		eb.cache.entities = nil
		eb.cache.lastEntities = entities
		eb.cache.lastKinds = kinds
	}

	if eb.cache.entities == nil {
		eb.rebuildCache(w)
	}

	if eb.hasSelection && !w.Exists(eb.selected) {
		eb.hasSelection = false
	}
}

func (eb *EntityBrowserComponent) rebuildCache(w *ecs.World) {
	eb.cache.entities = make([]EntityInfo, 0, w.EntityCount())

	for e := range w.Entities() {
		infos := w.ComponentsOf(e)
		info := EntityInfo{
			Entity:         e,
			ComponentIds:   make([]ecs.ComponentId, len(infos)),
			ComponentTypes: make([]string, len(infos)),
		}
		for i, ci := range infos {
			info.ComponentIds[i] = ci.Id()
			info.ComponentTypes[i] = ci.Name()
		}
		eb.cache.entities = append(eb.cache.entities, info)
	}

	eb.sortEntities()
}

func (eb *EntityBrowserComponent) sortEntities() {
	sort.Slice(eb.cache.entities, func(i, j int) bool {
		a, b := eb.cache.entities[i], eb.cache.entities[j]
		if !eb.cache.sortAscending {
			a, b = b, a
		}
		var less bool

		switch eb.cache.sortColumn {
		case 0:
			less = a.Entity.Id() < b.Entity.Id()
		case 1:
			less = a.Entity.Generation() < b.Entity.Generation()
		case 2:
			less = strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case 3:
			less = len(a.ComponentIds) < len(b.ComponentIds)
		default:
			less = a.Entity.Id() < b.Entity.Id()
		}

		return less
	})
}

func (eb *EntityBrowserComponent) getFilteredEntities() []EntityInfo {
	if eb.filterText == "" && eb.filterComponent == nil {
		return eb.cache.entities
	}

	filtered := make([]EntityInfo, 0, len(eb.cache.entities))
	filterLower := strings.ToLower(eb.filterText)

	for _, entity := range eb.cache.entities {
		if eb.filterComponent != nil && !hasComponentId(entity.ComponentIds, *eb.filterComponent) {
			continue
		}

		if eb.filterText != "" {
			idStr := entity.Entity.String()
			componentsStr := strings.ToLower(strings.Join(entity.ComponentTypes, " "))

			if !strings.Contains(idStr, filterLower) && !strings.Contains(componentsStr, filterLower) {
				continue
			}
		}

		filtered = append(filtered, entity)
	}

	return filtered
}

func hasComponentId(ids []ecs.ComponentId, id ecs.ComponentId) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// FilterByComponent limits the listing to entities holding id. A nil id
// clears the filter.
func (eb *EntityBrowserComponent) FilterByComponent(id *ecs.ComponentId) {
	eb.filterComponent = id
	eb.currentPage = 0
}

// Selected returns the entity picked in the table, if any.
func (eb *EntityBrowserComponent) Selected() (ecs.Entity, bool) {
	return eb.selected, eb.hasSelection
}

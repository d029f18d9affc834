package debugui

import (
	"fmt"
	"sort"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecstore/ecs"
)

type StorageViewerCache struct {
	storages      []ecs.StorageStats
	sortColumn    int
	sortAscending bool
}

func NewStorageViewerComponent() StorageViewerComponent {
	return StorageViewerComponent{
		cache: &StorageViewerCache{
			sortColumn:    2,
			sortAscending: false,
		},
		sortColumn:    2,
		sortAscending: false,
	}
}

// Render lists one row per component kind. It returns the kind that was
// clicked this frame, or nil.
func (sv *StorageViewerComponent) Render(w *ecs.World) *ecs.ComponentId {
	if !imgui.BeginV("Storage Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return nil
	}

	sv.cache.storages = w.CollectStats().Storages
	sv.sortStorages()

	maxCount := 0
	for _, storage := range sv.cache.storages {
		maxCount = max(maxCount, storage.Count)
	}

	var clickedId *ecs.ComponentId

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("StorageTable", 6, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Id")
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Count")
		imgui.TableSetupColumn("Capacity")
		imgui.TableSetupColumn("Bytes")
		imgui.TableSetupColumn("Borrow")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			sv.cache.sortColumn = int(spec.ColumnIndex())
			sv.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sv.sortColumn = sv.cache.sortColumn
			sv.sortAscending = sv.cache.sortAscending
			sv.sortStorages()
			sortSpecs.SetSpecsDirty(false)
		}

		for _, storage := range sv.cache.storages {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := sv.selectedId != nil && *sv.selectedId == storage.Id
			if imgui.SelectableBoolV(fmt.Sprintf("%d", storage.Id), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				id := storage.Id
				clickedId = &id
				sv.selectedId = &id
			}

			imgui.TableNextColumn()
			imgui.Text(storage.Name)

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", storage.Count))
			if maxCount > 0 {
				barWidth := float32(storage.Count) / float32(maxCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", storage.Capacity))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", storage.Bytes))

			imgui.TableNextColumn()
			imgui.Text(borrowLabel(storage))
		}

		imgui.EndTable()
	}

	imgui.End()
	return clickedId
}

func borrowLabel(storage ecs.StorageStats) string {
	switch {
	case storage.Writer:
		return "mut"
	case storage.Readers > 0:
		return fmt.Sprintf("%d readers", storage.Readers)
	default:
		return "free"
	}
}

func (sv *StorageViewerComponent) sortStorages() {
	sort.SliceStable(sv.cache.storages, func(i, j int) bool {
		a, b := sv.cache.storages[i], sv.cache.storages[j]
		if !sv.cache.sortAscending {
			a, b = b, a
		}
		var less bool

		switch sv.cache.sortColumn {
		case 0:
			less = a.Id < b.Id
		case 1:
			less = a.Name < b.Name
		case 2:
			less = a.Count < b.Count
		case 3:
			less = a.Capacity < b.Capacity
		case 4:
			less = a.Bytes < b.Bytes
		default:
			less = a.Count < b.Count
		}

		return less
	})
}

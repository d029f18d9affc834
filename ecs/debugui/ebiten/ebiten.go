// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// Store it as a world resource and drive BeginFrame and EndFrame around
// Scheduler.Once so that deferred ImguiItem renders land inside the frame.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

package ecs

// Frame is what a System sees during one Scheduler step.
type Frame struct {
	DeltaTime float64
	// Commands is opened for the frame and applied when every system ran.
	Commands *Commands
	World    *World
}

func newFrame(dt float64, w *World) *Frame {
	return &Frame{
		DeltaTime: dt,
		Commands:  w.Commands(),
		World:     w,
	}
}

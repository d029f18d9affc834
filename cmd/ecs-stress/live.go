package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/plus3/ecstore/ecs"
)

const dashboardInterval = 250 * time.Millisecond

// dashboard draws world statistics into the terminal while a run is in
// progress. Esc, q or Ctrl-C ends the run early.
type dashboard struct {
	screen   tcell.Screen
	cancel   context.CancelFunc
	lastDraw time.Time
	closed   sync.Once
}

func newDashboard(cancel context.CancelFunc) (*dashboard, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	d := &dashboard{screen: screen, cancel: cancel}
	go d.poll()
	return d, nil
}

func (d *dashboard) poll() {
	for {
		switch ev := d.screen.PollEvent().(type) {
		case nil:
			// Fini was called.
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				d.cancel()
			}
		case *tcell.EventResize:
			d.screen.Sync()
		}
	}
}

// drawIfDue redraws at most every dashboardInterval.
func (d *dashboard) drawIfDue(elapsed time.Duration, report *Report, world *ecs.World) {
	if time.Since(d.lastDraw) < dashboardInterval {
		return
	}
	d.lastDraw = time.Now()
	if contacts := ecs.Resource[Contacts](world); contacts != nil {
		report.Contacts = *contacts
	}
	d.draw(elapsed, report, world.CollectStats())
}

func (d *dashboard) draw(elapsed time.Duration, report *Report, stats ecs.WorldStats) {
	title := tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	label := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	plain := tcell.StyleDefault
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)

	d.screen.Clear()
	width, height := d.screen.Size()

	y := 0
	line := func(style tcell.Style, format string, args ...any) {
		if y < height {
			d.drawText(0, y, width, style, fmt.Sprintf(format, args...))
		}
		y++
	}

	line(title, "ecs-stress  %s / %s", elapsed.Truncate(time.Second), report.Duration)
	line(dim, "esc or q to stop")
	y++
	line(label, "frames")
	line(plain, "  updates     %d", report.TotalUpdates)
	if n := len(report.UpdateTime.Samples); n > 0 {
		line(plain, "  last frame  %s", report.UpdateTime.Samples[n-1])
	}
	line(plain, "  contacts    %d (last frame %d)", report.Contacts.Total, report.Contacts.LastFrame)
	y++
	line(label, "world")
	line(plain, "  entities    %d", stats.EntityCount)
	line(plain, "  kinds       %d", stats.ComponentKinds)
	line(plain, "  resources   %d", stats.ResourceCount)
	line(plain, "  spawned     %d  despawned %d", report.Maintain.Spawned, report.Maintain.Despawned)
	y++
	line(label, "storages")
	for _, storage := range stats.Storages {
		line(plain, "  %-24s %8d / %-8d %s", storage.Name, storage.Count, storage.Capacity, occupancyBar(storage, 20))
	}

	d.screen.Show()
}

func (d *dashboard) drawText(x, y, maxWidth int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= maxWidth {
			return
		}
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func occupancyBar(storage ecs.StorageStats, width int) string {
	filled := 0
	if storage.Capacity > 0 {
		filled = storage.Count * width / storage.Capacity
	}
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '·'
		}
	}
	return string(bar)
}

func (d *dashboard) close() {
	d.closed.Do(d.screen.Fini)
}

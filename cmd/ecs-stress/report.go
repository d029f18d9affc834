package main

import (
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/ecstore/ecs"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Report struct {
	// Configuration
	Duration    time.Duration
	Entities    int
	SceneGroups int
	TickRate    time.Duration
	Profile     string

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	Maintain       ecs.MaintainReport
	Contacts       Contacts
	World          ecs.WorldStats
	Systems        *ecs.SchedulerStats
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

// accumulate adds one Maintain call to the running totals.
func (r *Report) accumulate(m ecs.MaintainReport) {
	r.Maintain.Buffers += m.Buffers
	r.Maintain.Spawned += m.Spawned
	r.Maintain.Despawned += m.Despawned
	r.Maintain.Added += m.Added
	r.Maintain.Removed += m.Removed
	r.Maintain.Rejected += m.Rejected
	r.Maintain.Deferred += m.Deferred
}

const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{num .Entities}}
- **Scene Groups:** {{.SceneGroups}}
- **Tick Rate:** {{if .TickRate}}{{.TickRate}}{{else}}unbounded{{end}}
{{- if .Profile}}
- **Profile:** {{.Profile}}
{{- end}}

## Performance Results
- **Total Updates:** {{num .TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}
{{- if .Systems}}
- **Systems:**
{{- range .Systems.Systems}}
  - **{{.Name}}:** avg {{.AvgDuration}}, max {{.MaxDuration}}
{{- end}}
{{- end}}

## World
- **Live Entities:** {{num .World.EntityCount}}
- **Component Kinds:** {{.World.ComponentKinds}}
- **Resources:** {{.World.ResourceCount}}
{{- range .World.Storages}}
  - {{.Name}}: {{num .Count}} / {{num .Capacity}} slots, {{num .Bytes}} bytes
{{- end}}
- **Deferred Spawns:** {{num .Maintain.Spawned}}
- **Deferred Despawns:** {{num .Maintain.Despawned}}
- **Deferred Components:** {{num .Maintain.Added}} added, {{num .Maintain.Rejected}} rejected
- **Contacts:** {{num .Contacts.Total}} total, {{.Contacts.LastFrame}} in the last frame

## Memory Usage (Raw Bytes)
- Heap Alloc:     {{num .MemStatsStart.HeapAlloc}} (start) -> {{num .MemStatsEnd.HeapAlloc}} (end) -> delta: {{num (bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc)}}
- Total Alloc:    {{num .MemStatsStart.TotalAlloc}} (start) -> {{num .MemStatsEnd.TotalAlloc}} (end) -> delta: {{num (bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc)}}
- Sys Memory:     {{num .MemStatsStart.Sys}} (start) -> {{num .MemStatsEnd.Sys}} (end) -> delta: {{num (bsub .MemStatsEnd.Sys .MemStatsStart.Sys)}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}

{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}
`

func (r *Report) Generate(w io.Writer) error {
	printer := message.NewPrinter(language.English)

	fm := template.FuncMap{
		"num": func(v any) string {
			return printer.Sprintf("%d", v)
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}

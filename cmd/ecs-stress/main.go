package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/ecstore/ecs"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func startProfile(cfg ProfileConfig) interface{ Stop() } {
	switch cfg.Mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Path), profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfileAllocs, profile.ProfilePath(cfg.Path), profile.NoShutdownHook)
	default:
		return nil
	}
}

func run(args []string) error {
	// 1. Config and logger
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 2. Scene
	scene := DefaultScene(cfg.Run.Entities)
	if cfg.Run.Scene != "" {
		if scene, err = LoadScene(cfg.Run.Scene); err != nil {
			return err
		}
	}

	// 3. World and scheduler
	rng := rand.New(rand.NewSource(cfg.Run.Seed))
	world := ecs.NewWorld(ecs.WithLogger(log.Named("ecs")))
	defer world.Close()

	log.Info("populating world", zap.Int("entities", scene.Entities()), zap.Int("groups", len(scene.Groups)))
	spawned := scene.Populate(world, rng)

	scheduler := ecs.NewScheduler(world)
	registerSystems(scheduler, scene, rng)

	report := &Report{
		Duration:       cfg.Run.Duration,
		Entities:       spawned,
		SceneGroups:    len(scene.Groups),
		TickRate:       cfg.Run.TickRate,
		Profile:        cfg.Profile.Mode,
		GCPauseMetrics: cfg.Run.GCPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Run.Duration)
	defer cancel()

	var dash *dashboard
	if cfg.Run.Live {
		if dash, err = newDashboard(cancel); err != nil {
			return fmt.Errorf("live dashboard: %w", err)
		}
		defer dash.close()
	}

	// 4. Simulation loop
	if p := startProfile(cfg.Profile); p != nil {
		log.Info("profiling", zap.String("mode", cfg.Profile.Mode), zap.String("path", cfg.Profile.Path))
		defer p.Stop()
	}

	runtime.ReadMemStats(&report.MemStatsStart)
	log.Info("running simulation", zap.Duration("duration", cfg.Run.Duration), zap.Duration("tick", cfg.Run.TickRate))
	simulate(ctx, cfg.Run.TickRate, world, scheduler, report, dash)
	runtime.ReadMemStats(&report.MemStatsEnd)

	report.UpdateTime.Finalize()
	report.World = world.CollectStats()
	report.Systems = scheduler.GetStats()
	if contacts := ecs.Resource[Contacts](world); contacts != nil {
		report.Contacts = *contacts
	}

	log.Info("simulation finished",
		zap.Int64("updates", report.TotalUpdates),
		zap.Duration("avg_frame", report.UpdateTime.Avg),
		zap.Int("entities", report.World.EntityCount),
	)

	// The report goes to the normal terminal.
	if dash != nil {
		dash.close()
	}

	// 5. Report
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Println("--- End of Report ---")
	return nil
}

// simulate runs frames until ctx is done. A zero tick runs them back to back.
func simulate(ctx context.Context, tick time.Duration, world *ecs.World, scheduler *ecs.Scheduler, report *Report, dash *dashboard) {
	var ticks <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	startTime := time.Now()
	lastFrameTime := startTime

	for {
		if ticks != nil {
			select {
			case <-ctx.Done():
				report.TotalTime = time.Since(startTime)
				return
			case <-ticks:
			}
		} else {
			select {
			case <-ctx.Done():
				report.TotalTime = time.Since(startTime)
				return
			default:
			}
		}

		deltaTime := time.Since(lastFrameTime)
		lastFrameTime = time.Now()

		updateStart := time.Now()
		maintained := scheduler.Once(deltaTime.Seconds())
		updateDuration := time.Since(updateStart)

		report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
		report.TotalUpdates++
		report.accumulate(maintained)

		if dash != nil {
			dash.drawIfDue(time.Since(startTime), report, world)
		}
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Run     RunConfig     `toml:"run"`
	Logging LoggingConfig `toml:"logging"`
	Profile ProfileConfig `toml:"profile"`
}

type RunConfig struct {
	Duration       time.Duration `toml:"duration"`
	Entities       int           `toml:"entities"`
	TickRate       time.Duration `toml:"tick_rate"` // 0 runs frames back to back
	Seed           int64         `toml:"seed"`
	Scene          string        `toml:"scene"` // YAML scene file, empty for the built-in scene
	Live           bool          `toml:"live"`
	GCPauseMetrics bool          `toml:"gc_pause_metrics"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	File   string `toml:"file"`   // empty logs to stderr
}

type ProfileConfig struct {
	Mode string `toml:"mode"` // "", "cpu" or "mem"
	Path string `toml:"path"`
}

func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Run: RunConfig{
			Duration: 10 * time.Second,
			Entities: 10000,
			Seed:     1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Profile: ProfileConfig{
			Path: ".",
		},
	}
}

func (c *Config) validate() error {
	if c.Run.Duration <= 0 {
		return fmt.Errorf("run duration must be positive, got %s", c.Run.Duration)
	}
	if c.Run.Entities < 0 {
		return fmt.Errorf("entity count must not be negative, got %d", c.Run.Entities)
	}
	if c.Run.TickRate < 0 {
		return fmt.Errorf("tick rate must not be negative, got %s", c.Run.TickRate)
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		return fmt.Errorf("unknown profile mode %q (supported: cpu, mem)", c.Profile.Mode)
	}
	return nil
}

// parseArgs loads the config file named by -config and applies every flag
// that was set explicitly on top of it.
func parseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("ecs-stress", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file.")
	duration := fs.Duration("duration", 0, "The total duration the test should run for.")
	entityCount := fs.Int("entities", 0, "The initial number of entities to create.")
	tickRate := fs.Duration("tick", 0, "Fixed frame interval, 0 runs frames back to back.")
	seed := fs.Int64("seed", 0, "Random seed for the built-in scene.")
	scene := fs.String("scene", "", "Path to a YAML scene file.")
	live := fs.Bool("live", false, "Show a live terminal dashboard while running.")
	gcPauseMetrics := fs.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error).")
	logFormat := fs.String("log-format", "", "Log format (console or json).")
	logFile := fs.String("log-file", "", "Write logs to this file instead of stderr.")
	profileMode := fs.String("profile", "", "Profile the run (cpu or mem).")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Run.Duration = *duration
		case "entities":
			cfg.Run.Entities = *entityCount
		case "tick":
			cfg.Run.TickRate = *tickRate
		case "seed":
			cfg.Run.Seed = *seed
		case "scene":
			cfg.Run.Scene = *scene
		case "live":
			cfg.Run.Live = *live
		case "gc-pause-metrics":
			cfg.Run.GCPauseMetrics = *gcPauseMetrics
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		case "log-file":
			cfg.Logging.File = *logFile
		case "profile":
			cfg.Profile.Mode = *profileMode
		}
	})

	if cfg.Run.Live && cfg.Logging.File == "" {
		cfg.Logging.File = "ecs-stress.log"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

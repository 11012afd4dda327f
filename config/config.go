// Package config provides configuration loading, validation and access for
// the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("invalid configuration")
	// ErrTooManyCreatures means the requested population does not fit the grid.
	ErrTooManyCreatures = errors.New("too many creatures for the grid")
)

// Limits enforced by Validate.
const (
	MaxTicks         = 999999
	MinSaveInterval  = 5
	MaxSaveInterval  = 200
	DefaultSharkFrac = 10 // sharks default to cells/10
	DefaultFishFrac  = 4  // fish default to cells/4
)

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Shark      SharkConfig      `yaml:"shark"`
	Fish       FishConfig       `yaml:"fish"`
	Search     SearchConfig     `yaml:"search"`
	Rules      RulesConfig      `yaml:"rules"`
	Run        RunConfig        `yaml:"run"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Bookmarks  BookmarksConfig  `yaml:"bookmarks"`
	Index      IndexConfig      `yaml:"index"`
	Viewer     ViewerConfig     `yaml:"viewer"`
}

// WorldConfig holds the grid dimensions in cells.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PopulationConfig holds the initial creature counts. Zero means "derive
// from the grid size".
type PopulationConfig struct {
	Sharks int `yaml:"sharks"`
	Fishes int `yaml:"fishes"`
}

type SharkConfig struct {
	SpawnAge  int `yaml:"spawn_age"`
	StarveAge int `yaml:"starve_age"`
}

type FishConfig struct {
	SpawnAge int `yaml:"spawn_age"`
}

// SearchConfig selects the neighbourhood: "extended" (8) or "traditional" (4).
type SearchConfig struct {
	Mode string `yaml:"mode"`
}

type RulesConfig struct {
	SpawnFailChance float64 `yaml:"spawn_fail_chance"`
	ScentHunting    bool    `yaml:"scent_hunting"`
}

// RunConfig bounds the run. Seed 0 draws a seed from the OS.
type RunConfig struct {
	MaxTicks int    `yaml:"max_ticks"`
	Seed     uint64 `yaml:"seed"`
}

type CheckpointConfig struct {
	Path     string `yaml:"path"`
	Interval int    `yaml:"interval"`
	Save     bool   `yaml:"save"`
	Restore  bool   `yaml:"restore"`
}

// TelemetryConfig controls population statistics output. An empty OutputDir
// keeps statistics in the log only.
type TelemetryConfig struct {
	WindowTicks         int    `yaml:"window_ticks"`
	LogStats            bool   `yaml:"log_stats"`
	OutputDir           string `yaml:"output_dir"`
	BookmarkHistorySize int    `yaml:"bookmark_history_size"`
	PerfCollectorWindow int    `yaml:"perf_collector_window"`
}

type BookmarksConfig struct {
	FishCrash       FishCrashConfig       `yaml:"fish_crash"`
	SharkRecovery   SharkRecoveryConfig   `yaml:"shark_recovery"`
	StableEcosystem StableEcosystemConfig `yaml:"stable_ecosystem"`
}

type FishCrashConfig struct {
	DropPercent float64 `yaml:"drop_percent"`
	MinDrop     int     `yaml:"min_drop"`
}

type SharkRecoveryConfig struct {
	MinPopulation      int `yaml:"min_population"`
	RecoveryMultiplier int `yaml:"recovery_multiplier"`
	MinFinal           int `yaml:"min_final"`
}

type StableEcosystemConfig struct {
	MinFish       int     `yaml:"min_fish"`
	MinSharks     int     `yaml:"min_sharks"`
	CVThreshold   float64 `yaml:"cv_threshold"`
	StableWindows int     `yaml:"stable_windows"`
}

// IndexConfig points at the SQLite run index. Empty disables it.
type IndexConfig struct {
	DBPath string `yaml:"db_path"`
}

type ViewerConfig struct {
	CellSize  int  `yaml:"cell_size"`
	TargetFPS int  `yaml:"target_fps"`
	Headless  bool `yaml:"headless"`
}

var global *Config

// Init loads configuration from the given path (or defaults if empty)
// and stores it for Cfg.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Set replaces the global configuration, e.g. after CLI overrides.
func Set(cfg *Config) { global = cfg }

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load reads the embedded defaults and merges the file at path over them.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// Cells returns the number of grid cells.
func (c *Config) Cells() int { return c.World.Width * c.World.Height }

// ApplyDefaults fills derived population counts. Call after all overrides.
func (c *Config) ApplyDefaults() {
	if c.Population.Sharks == 0 {
		c.Population.Sharks = c.Cells() / DefaultSharkFrac
	}
	if c.Population.Fishes == 0 {
		c.Population.Fishes = c.Cells() / DefaultFishFrac
	}
}

// Validate rejects configurations the simulation cannot start from. It
// must run before any simulation state exists.
func (c *Config) Validate() error {
	if c.World.Width < 1 || c.World.Height < 1 {
		return fmt.Errorf("%w: world size %dx%d must be at least 1x1", ErrInvalid, c.World.Width, c.World.Height)
	}
	if c.Population.Sharks < 0 || c.Population.Fishes < 0 {
		return fmt.Errorf("%w: population counts must not be negative", ErrInvalid)
	}
	if c.Shark.SpawnAge < 1 {
		return fmt.Errorf("%w: shark.spawn_age %d must be at least 1", ErrInvalid, c.Shark.SpawnAge)
	}
	if c.Shark.StarveAge < 1 {
		return fmt.Errorf("%w: shark.starve_age %d must be at least 1", ErrInvalid, c.Shark.StarveAge)
	}
	if c.Fish.SpawnAge < 1 {
		return fmt.Errorf("%w: fish.spawn_age %d must be at least 1", ErrInvalid, c.Fish.SpawnAge)
	}
	if c.Search.Mode != "" && c.Search.Mode != "extended" && c.Search.Mode != "traditional" {
		return fmt.Errorf("%w: search.mode %q", ErrInvalid, c.Search.Mode)
	}
	if c.Rules.SpawnFailChance < 0 || c.Rules.SpawnFailChance >= 1 {
		return fmt.Errorf("%w: rules.spawn_fail_chance %g must be in [0, 1)", ErrInvalid, c.Rules.SpawnFailChance)
	}
	if c.Run.MaxTicks < 1 || c.Run.MaxTicks > MaxTicks {
		return fmt.Errorf("%w: run.max_ticks %d must be in 1..%d", ErrInvalid, c.Run.MaxTicks, MaxTicks)
	}
	if c.Checkpoint.Save && c.Checkpoint.Restore {
		return fmt.Errorf("%w: checkpoint save and restore are mutually exclusive", ErrInvalid)
	}
	if c.Checkpoint.Save {
		if c.Checkpoint.Interval < MinSaveInterval || c.Checkpoint.Interval > MaxSaveInterval {
			return fmt.Errorf("%w: checkpoint.interval %d must be in %d..%d", ErrInvalid,
				c.Checkpoint.Interval, MinSaveInterval, MaxSaveInterval)
		}
	}
	if (c.Checkpoint.Save || c.Checkpoint.Restore) && c.Checkpoint.Path == "" {
		return fmt.Errorf("%w: checkpoint.path is empty", ErrInvalid)
	}
	if c.Telemetry.WindowTicks < 1 {
		return fmt.Errorf("%w: telemetry.window_ticks %d must be at least 1", ErrInvalid, c.Telemetry.WindowTicks)
	}
	if total := c.Population.Sharks + c.Population.Fishes; total > c.Cells() {
		return fmt.Errorf("%w: %d sharks + %d fish > %d cells", ErrTooManyCreatures,
			c.Population.Sharks, c.Population.Fishes, c.Cells())
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

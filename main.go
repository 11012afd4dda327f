package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/wator/checkpoint"
	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/game"
	"github.com/pthm-cable/wator/indexdb"
	"github.com/pthm-cable/wator/telemetry"
	"github.com/pthm-cable/wator/viewer"
)

// Process exit codes.
const (
	exitOK         = 0
	exitRuntime    = 1
	exitConfig     = 2
	exitCheckpoint = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		width, height            int
		sharks, fishes           int
		chronons, commit         int
		file                     string
		restore, save, tradition bool
		sharkSpawn, sharkStarve  int
		fishSpawn                int
		seed                     uint64
	)

	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.IntVar(&width, "x", 0, "number of horizontal cells (default 200)")
	flag.IntVar(&height, "y", 0, "number of vertical cells (default 200)")
	intFlag(&sharks, 0, "initial number of sharks (0 = cells/10)", "s", "sharks")
	intFlag(&fishes, 0, "initial number of fishes (0 = cells/4)", "f", "fishes")
	intFlag(&chronons, 0, "maximum number of chronons, 1 - 999999", "c", "chronons")
	intFlag(&commit, 0, "chronons between checkpoint saves, 5 - 200", "C", "commit")
	flag.StringVar(&file, "F", "", "checkpoint file")
	flag.StringVar(&file, "file", "", "checkpoint file")
	boolFlag(&restore, "restore from the checkpoint file", "R", "restore")
	boolFlag(&save, "save checkpoints to the checkpoint file", "S", "save")
	boolFlag(&tradition, "traditional search pattern (N, W, E, S)", "t", "traditional")
	flag.IntVar(&sharkSpawn, "sharkspawn", 0, "age at which a shark spawns (default 5)")
	flag.IntVar(&sharkStarve, "sharkstarve", 0, "chronons a shark survives without eating (default 3)")
	flag.IntVar(&fishSpawn, "fishspawn", 0, "age at which a fish spawns (default 2)")
	flag.Uint64Var(&seed, "seed", 0, "RNG seed (0 = from the OS entropy pool)")
	headless := flag.Bool("headless", false, "Run without graphics")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite run index path")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	verbose := flag.Bool("v", false, "Log every chronon")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		return exitConfig
	}
	cfg := config.Cfg()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	isSet := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	if isSet("x") {
		cfg.World.Width = width
	}
	if isSet("y") {
		cfg.World.Height = height
	}
	if isSet("s", "sharks") {
		cfg.Population.Sharks = sharks
	}
	if isSet("f", "fishes") {
		cfg.Population.Fishes = fishes
	}
	if isSet("c", "chronons") {
		cfg.Run.MaxTicks = chronons
	}
	if isSet("C", "commit") {
		cfg.Checkpoint.Interval = commit
	}
	if isSet("F", "file") {
		cfg.Checkpoint.Path = file
	}
	if isSet("R", "restore") {
		cfg.Checkpoint.Restore = restore
	}
	if isSet("S", "save") {
		cfg.Checkpoint.Save = save
	}
	if isSet("t", "traditional") && tradition {
		cfg.Search.Mode = "traditional"
	}
	if isSet("sharkspawn") {
		cfg.Shark.SpawnAge = sharkSpawn
	}
	if isSet("sharkstarve") {
		cfg.Shark.StarveAge = sharkStarve
	}
	if isSet("fishspawn") {
		cfg.Fish.SpawnAge = fishSpawn
	}
	if isSet("seed") {
		cfg.Run.Seed = seed
	}
	if *headless {
		cfg.Viewer.Headless = true
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *dbPath != "" {
		cfg.Index.DBPath = *dbPath
	}
	if *logStats {
		cfg.Telemetry.LogStats = true
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return exitConfig
	}

	output, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		return exitRuntime
	}
	defer output.Close()

	var index *indexdb.SQLiteIndex
	if cfg.Index.DBPath != "" {
		index, err = indexdb.OpenSQLite(cfg.Index.DBPath)
		if err != nil {
			slog.Error("failed to open run index", "path", cfg.Index.DBPath, "error", err)
			return exitRuntime
		}
		defer index.Close()
	}

	g, err := game.New(cfg, game.Options{Output: output, Index: index})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		return exitCode(err)
	}

	if !cfg.Viewer.Headless {
		win := viewer.Open(g.Sea().Width(), g.Sea().Height(), cfg.Viewer)
		defer win.Close()
		g.SetViewer(win)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := g.Run(ctx)
	if err != nil {
		slog.Error("simulation failed", "tick", res.Ticks, "error", err)
		return exitCheckpoint
	}
	slog.Info("simulation_terminated",
		"reason", res.Reason.String(),
		"ticks", res.Ticks,
		"sharks", res.Sharks,
		"fishes", res.Fishes,
	)
	return exitOK
}

// exitCode maps startup errors onto the process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid), errors.Is(err, config.ErrTooManyCreatures):
		return exitConfig
	case errors.Is(err, checkpoint.ErrNotFound), errors.Is(err, checkpoint.ErrCorruptHeader):
		return exitCheckpoint
	}
	return exitRuntime
}

func intFlag(p *int, value int, usage string, names ...string) {
	for _, n := range names {
		flag.IntVar(p, n, value, usage)
	}
}

func boolFlag(p *bool, usage string, names ...string) {
	for _, n := range names {
		flag.BoolVar(p, n, false, usage)
	}
}

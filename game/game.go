// Package game drives the simulation clock. It builds the sea from
// configuration, runs ticks until a stop condition holds, and wires
// checkpoints, telemetry and the viewer around the core.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/indexdb"
	"github.com/pthm-cable/wator/sea"
	"github.com/pthm-cable/wator/telemetry"
)

// Status is the clock's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusTerminated:
		return "terminated"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Reason explains why a run terminated.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonExtinction
	ReasonStepLimit
	ReasonStopped
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonExtinction:
		return "extinction"
	case ReasonStepLimit:
		return "step_limit"
	case ReasonStopped:
		return "stopped"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Options carries the collaborators that are not part of the config.
// Every field is optional.
type Options struct {
	// Rand replaces the generator seeded from the config.
	Rand   sea.Rand
	Viewer Viewer
	Output *telemetry.OutputManager
	Index  *indexdb.SQLiteIndex

	// OnWindow is called with every flushed telemetry window.
	OnWindow func(telemetry.WindowStats)
}

// Result summarises a finished run.
type Result struct {
	Ticks   int
	Sharks  int
	Fishes  int
	Reason  Reason
	Elapsed time.Duration
}

// Game holds the sea and everything that observes it.
type Game struct {
	cfg  *config.Config
	sea  *sea.Sea
	seed uint64

	sharkTraits sea.Traits
	fishTraits  sea.Traits

	tick          int
	frame         int
	status        Status
	reason        Reason
	stopRequested bool
	started       time.Time
	elapsed       time.Duration

	viewer Viewer
	cells  []components.Kind

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
	index     *indexdb.SQLiteIndex
	onWindow  func(telemetry.WindowStats)
}

// New validates cfg and builds a game from it: either a fresh random
// population or, when cfg.Checkpoint.Restore is set, the saved one.
// Population counts are used as given; call cfg.ApplyDefaults first to
// derive them from the grid size.
func New(cfg *config.Config, opts Options) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := components.ParseSearchMode(cfg.Search.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	seed := cfg.Run.Seed
	if seed == 0 {
		seed = sea.EntropySeed()
	}
	rng := opts.Rand
	if rng == nil {
		rng = sea.NewRand(seed)
	}

	g := &Game{
		cfg:         cfg,
		seed:        seed,
		sharkTraits: sea.Traits{Mode: mode, SpawnAge: cfg.Shark.SpawnAge, StarveAge: cfg.Shark.StarveAge},
		fishTraits:  sea.Traits{Mode: mode, SpawnAge: cfg.Fish.SpawnAge},
		viewer:      opts.Viewer,
		collector:   telemetry.NewCollector(cfg.Telemetry.WindowTicks),
		perf:        telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks:   telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Bookmarks),
		output:      opts.Output,
		index:       opts.Index,
		onWindow:    opts.OnWindow,
	}

	rules := sea.Rules{
		SpawnFailChance: cfg.Rules.SpawnFailChance,
		ScentHunting:    cfg.Rules.ScentHunting,
	}
	if cfg.Checkpoint.Restore {
		if err := g.restore(rng, rules); err != nil {
			return nil, err
		}
	} else {
		g.sea = sea.New(cfg.World.Width, cfg.World.Height, rng, rules)
		if err := g.populate(cfg.Population.Sharks, cfg.Population.Fishes); err != nil {
			return nil, err
		}
	}

	g.collector.Resume(g.tick)
	g.collector.Track(g.sea)
	g.sea.SetObserver(g.collector)

	if err := g.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}
	g.recordRunMeta()
	return g, nil
}

// Sea exposes the simulated world. Callers must not mutate it.
func (g *Game) Sea() *sea.Sea { return g.sea }

// Tick returns the number of completed ticks.
func (g *Game) Tick() int { return g.tick }

// Frame returns the viewer frame counter.
func (g *Game) Frame() int { return g.frame }

// Seed returns the seed the generator was built from.
func (g *Game) Seed() uint64 { return g.seed }

// Status returns the clock state.
func (g *Game) Status() Status { return g.status }

// Reason returns why the run terminated, or ReasonNone while it runs.
func (g *Game) Reason() Reason { return g.reason }

// SetViewer installs the rendering collaborator. The grid size is only
// known after New, for example when restoring a checkpoint.
func (g *Game) SetViewer(v Viewer) { g.viewer = v }

// Stop asks the clock to terminate before the next tick. The tick in
// progress, if any, always completes.
func (g *Game) Stop() { g.stopRequested = true }

// Step runs one tick. It reports false once the run has terminated,
// including when termination is detected before any tick runs. An error
// means a checkpoint could not be written; the run is then terminated.
func (g *Game) Step() (bool, error) {
	switch g.status {
	case StatusTerminated:
		return false, nil
	case StatusIdle:
		g.begin()
		if r := g.stopReason(); r != ReasonNone {
			return false, g.terminate(r)
		}
		g.status = StatusRunning
	}

	if err := g.runTick(); err != nil {
		g.status = StatusTerminated
		g.reason = ReasonStopped
		g.elapsed = time.Since(g.started)
		return false, err
	}
	if r := g.stopReason(); r != ReasonNone {
		return false, g.terminate(r)
	}
	return true, nil
}

// Run steps until the run terminates or ctx is cancelled. Cancellation is
// observed between ticks and ends the run like any other external stop.
func (g *Game) Run(ctx context.Context) (Result, error) {
	for {
		if ctx.Err() != nil {
			g.Stop()
		}
		more, err := g.Step()
		if err != nil {
			return g.Result(), err
		}
		if !more {
			return g.Result(), nil
		}
	}
}

// Result reports the current outcome.
func (g *Game) Result() Result {
	elapsed := g.elapsed
	if g.status == StatusRunning {
		elapsed = time.Since(g.started)
	}
	return Result{
		Ticks:   g.tick,
		Sharks:  g.sea.Sharks(),
		Fishes:  g.sea.Fishes(),
		Reason:  g.reason,
		Elapsed: elapsed,
	}
}

// runTick is one chronon: snapshot, turns, purge, recount, then the
// collaborators.
func (g *Game) runTick() error {
	next := g.tick + 1
	g.collector.SetTick(next)

	g.perf.StartTick()
	g.perf.StartPhase(telemetry.PhaseTurns)
	for _, e := range g.sea.Living() {
		g.sea.Turn(e)
	}

	g.perf.StartPhase(telemetry.PhaseCleanup)
	g.sea.Purge()
	g.sea.Recount()
	g.tick = next

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perf.StartPhase(telemetry.PhaseDisplay)
	g.display()

	g.perf.StartPhase(telemetry.PhaseCheckpoint)
	var err error
	if g.cfg.Checkpoint.Save && g.tick%g.cfg.Checkpoint.Interval == 0 {
		err = g.saveCheckpoint()
	}
	g.perf.EndTick()

	g.logTick()
	return err
}

// stopReason evaluates the termination conditions in priority order.
func (g *Game) stopReason() Reason {
	switch {
	case g.sea.Sharks() == 0 || g.sea.Fishes() == 0:
		return ReasonExtinction
	case g.tick >= g.cfg.Run.MaxTicks:
		return ReasonStepLimit
	case g.stopRequested:
		return ReasonStopped
	}
	return ReasonNone
}

// terminate ends the run, writing the final checkpoint and flushing the
// open telemetry window.
func (g *Game) terminate(reason Reason) error {
	g.status = StatusTerminated
	g.reason = reason
	g.elapsed = time.Since(g.started)

	if g.collector.Pending(g.tick) {
		g.flushWindow()
	}
	var err error
	if g.cfg.Checkpoint.Save {
		err = g.saveCheckpoint()
	}
	g.logEnd()
	return err
}

// display hands the viewer this tick's occupancy. A false return from the
// viewer is the external stop signal.
func (g *Game) display() {
	if g.viewer == nil {
		return
	}
	g.cells = g.sea.Grid().Kinds(g.cells)
	g.frame++
	g.perf.RecordFrame()
	if !g.viewer.Show(Frame{
		Tick:    g.tick,
		Number:  g.frame,
		Width:   g.sea.Width(),
		Height:  g.sea.Height(),
		Cells:   g.cells,
		Sharks:  g.sea.Sharks(),
		Fishes:  g.sea.Fishes(),
		Inspect: g.inspect,
	}) {
		g.Stop()
	}
}

// inspect returns the creature living in cell (x, y).
func (g *Game) inspect(x, y int) (sea.State, bool) {
	_, c := g.sea.Grid().Occupant(x, y)
	if c == nil {
		return sea.State{}, false
	}
	return g.sea.Lookup(c.ID)
}

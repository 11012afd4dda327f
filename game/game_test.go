package game

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pthm-cable/wator/checkpoint"
	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/indexdb"
	"github.com/pthm-cable/wator/telemetry"
)

// testConfig returns a small seeded world. Sharks effectively never starve
// so short runs cannot end in extinction.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.World.Width, cfg.World.Height = 20, 20
	cfg.Population.Sharks, cfg.Population.Fishes = 6, 100
	cfg.Shark.StarveAge = 1000
	cfg.Run.MaxTicks = 50
	cfg.Run.Seed = 7
	cfg.Telemetry.WindowTicks = 10
	cfg.Telemetry.LogStats = false
	cfg.Checkpoint.Path = filepath.Join(t.TempDir(), "save.ckpt")
	return cfg
}

func mustNew(t *testing.T, cfg *config.Config, opts Options) *Game {
	t.Helper()
	g, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNewPlacesInitialPopulation(t *testing.T) {
	g := mustNew(t, testConfig(t), Options{})

	if g.Sea().Sharks() != 6 || g.Sea().Fishes() != 100 {
		t.Errorf("population = %d sharks, %d fish; want 6, 100", g.Sea().Sharks(), g.Sea().Fishes())
	}
	if g.Status() != StatusIdle || g.Tick() != 0 {
		t.Errorf("fresh game status=%s tick=%d", g.Status(), g.Tick())
	}
	checkOccupancy(t, g)
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   error
	}{
		{"too many creatures", func(c *config.Config) { c.Population.Fishes = 395 }, config.ErrTooManyCreatures},
		{"zero spawn age", func(c *config.Config) { c.Fish.SpawnAge = 0 }, config.ErrInvalid},
		{"tick limit", func(c *config.Config) { c.Run.MaxTicks = 0 }, config.ErrInvalid},
		{"missing checkpoint", func(c *config.Config) { c.Checkpoint.Restore = true }, checkpoint.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)
			g, err := New(cfg, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Error("game created despite error")
			}
		})
	}
}

func TestNoSharksTerminatesImmediately(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Sharks = 0

	g := mustNew(t, cfg, Options{})
	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Ticks != 0 || res.Sharks != 0 || res.Reason != ReasonExtinction {
		t.Errorf("result = %+v, want 0 ticks, 0 sharks, extinction", res)
	}
	if g.Status() != StatusTerminated {
		t.Errorf("status = %s", g.Status())
	}
	if more, err := g.Step(); more || err != nil {
		t.Errorf("Step after termination = %v, %v", more, err)
	}
}

func TestStepLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.MaxTicks = 5

	res, err := mustNew(t, cfg, Options{}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Ticks != 5 || res.Reason != ReasonStepLimit {
		t.Errorf("result = %+v, want 5 ticks, step limit", res)
	}
}

func TestOccupancyHoldsEveryTick(t *testing.T) {
	cfg := testConfig(t)
	cfg.Shark.StarveAge = 3
	g := mustNew(t, cfg, Options{})

	for i := 0; i < 30; i++ {
		more, err := g.Step()
		if err != nil {
			t.Fatal(err)
		}
		checkOccupancy(t, g)
		if !more {
			break
		}
	}
}

func TestSeededRunsAreIdentical(t *testing.T) {
	run := func() checkpoint.State {
		cfg := testConfig(t)
		cfg.Shark.StarveAge = 3
		cfg.Run.MaxTicks = 25
		g := mustNew(t, cfg, Options{})
		if _, err := g.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		return checkpoint.Capture(g.Sea(), g.Tick(), g.Frame(), g.Seed())
	}

	a, b := run(), run()
	if a.Header != b.Header {
		t.Errorf("headers differ:\n%+v\n%+v", a.Header, b.Header)
	}
	if !reflect.DeepEqual(a.Records, b.Records) {
		t.Error("record streams differ between identically seeded runs")
	}
}

func TestViewerStopsRun(t *testing.T) {
	var frames []Frame
	inspected := 0
	viewer := ViewerFunc(func(f Frame) bool {
		frames = append(frames, f)
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				kind := f.At(x, y)
				st, ok := f.Inspect(x, y)
				if ok != (kind != components.KindNone) {
					t.Fatalf("Inspect(%d, %d) ok=%v for kind %s", x, y, ok, kind)
				}
				if ok && (st.Kind != kind || st.Pos != (components.Position{X: x, Y: y})) {
					t.Fatalf("Inspect(%d, %d) = %s", x, y, st)
				}
				if ok {
					inspected++
				}
			}
		}
		return f.Number < 3
	})

	g := mustNew(t, testConfig(t), Options{Viewer: viewer})
	res, err := g.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != ReasonStopped || res.Ticks != 3 {
		t.Errorf("result = %+v, want stopped after 3 ticks", res)
	}
	if len(frames) != 3 {
		t.Fatalf("viewer saw %d frames, want 3", len(frames))
	}
	if inspected == 0 {
		t.Error("no creature was inspected")
	}

	last := frames[2]
	if last.Tick != 3 || g.Frame() != 3 {
		t.Errorf("last frame tick=%d, game frame=%d", last.Tick, g.Frame())
	}
	var sharks, fishes int
	for y := 0; y < last.Height; y++ {
		for x := 0; x < last.Width; x++ {
			switch last.At(x, y) {
			case components.KindShark:
				sharks++
			case components.KindFish:
				fishes++
			}
		}
	}
	if sharks != last.Sharks || fishes != last.Fishes {
		t.Errorf("cells show %d/%d, frame says %d/%d", sharks, fishes, last.Sharks, last.Fishes)
	}
}

func TestCancelledContextStopsBeforeFirstTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := mustNew(t, testConfig(t), Options{}).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ticks != 0 || res.Reason != ReasonStopped {
		t.Errorf("result = %+v, want 0 ticks, stopped", res)
	}
}

func TestCheckpointSaveAndResume(t *testing.T) {
	cfg := testConfig(t)
	cfg.Checkpoint.Save = true
	cfg.Checkpoint.Interval = 5
	cfg.Run.MaxTicks = 12

	first := mustNew(t, cfg, Options{})
	res, err := first.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	st, err := checkpoint.Load(cfg.Checkpoint.Path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Header.Tick != 12 {
		t.Errorf("final checkpoint tick = %d, want 12", st.Header.Tick)
	}
	if st.Header.Sharks != res.Sharks || st.Header.Fishes != res.Fishes {
		t.Errorf("checkpoint counts %d/%d, run ended with %d/%d",
			st.Header.Sharks, st.Header.Fishes, res.Sharks, res.Fishes)
	}

	resumeCfg := *cfg
	resumeCfg.Checkpoint.Save = false
	resumeCfg.Checkpoint.Restore = true
	resumeCfg.Run.MaxTicks = 20

	second := mustNew(t, &resumeCfg, Options{})
	if second.Tick() != 12 {
		t.Errorf("resumed tick = %d, want 12", second.Tick())
	}
	want := checkpoint.Capture(first.Sea(), first.Tick(), first.Frame(), first.Seed())
	got := checkpoint.Capture(second.Sea(), second.Tick(), second.Frame(), second.Seed())
	if !reflect.DeepEqual(want.Records, got.Records) {
		t.Error("restored population differs from the saved one")
	}

	res, err = second.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Ticks != 20 {
		t.Errorf("resumed run ended at tick %d, want 20", res.Ticks)
	}
}

func TestTelemetryOutputAndIndex(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "run.sqlite")
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.Run.MaxTicks = 20
	cfg.Checkpoint.Save = true
	cfg.Checkpoint.Interval = 10

	g := mustNew(t, cfg, Options{Output: out, Index: idx})
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "population.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("population.csv has %d lines, want header + 2 windows", len(lines))
	}

	idx, err = indexdb.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	row, ok, err := idx.LatestCheckpoint(context.Background())
	if err != nil || !ok {
		t.Fatalf("latest checkpoint: ok=%v err=%v", ok, err)
	}
	if row.Tick != 20 || row.Path != cfg.Checkpoint.Path {
		t.Errorf("indexed checkpoint = %+v", row)
	}
	if v, ok, _ := idx.Meta("grid"); !ok || v != "20x20" {
		t.Errorf("meta grid = %q", v)
	}
}

// checkOccupancy verifies every living creature occupies exactly its own
// cell and the aggregate counts match the registry.
func TestNewbornsWaitForNextTick(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.MaxTicks = 20
	g := mustNew(t, cfg, Options{})

	births := 0
	for {
		firstChild := g.Sea().Population().PeekIdentity()
		more, err := g.Step()
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		for _, st := range g.Sea().States() {
			if st.ID < firstChild {
				continue
			}
			births++
			if st.TotalAge != 0 || st.Age != 0 {
				t.Fatalf("tick %d: creature %d born this tick already acted (age %d, total %d)",
					g.Tick(), st.ID, st.Age, st.TotalAge)
			}
		}
		if !more {
			break
		}
	}
	if births == 0 {
		t.Fatal("no births in 20 ticks")
	}
}

func checkOccupancy(t *testing.T, g *Game) {
	t.Helper()
	grid := g.Sea().Grid()
	var sharks, fishes int
	for _, st := range g.Sea().States() {
		if !st.Alive {
			continue
		}
		_, c := grid.Occupant(st.Pos.X, st.Pos.Y)
		if c == nil || c.ID != st.ID {
			t.Fatalf("creature %d not found at %s", st.ID, st.Pos)
		}
		if st.Kind == components.KindShark {
			sharks++
		} else {
			fishes++
		}
	}
	if sharks != g.Sea().Sharks() || fishes != g.Sea().Fishes() {
		t.Fatalf("registry %d/%d, counters %d/%d", sharks, fishes, g.Sea().Sharks(), g.Sea().Fishes())
	}
}

package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/wator/telemetry"
)

// begin starts the wall clock and logs the run banner.
func (g *Game) begin() {
	g.started = time.Now()
	slog.Info("BEGIN",
		"max_x", g.sea.Width(),
		"max_y", g.sea.Height(),
		"positions", g.sea.Width()*g.sea.Height(),
		"sharks", g.sea.Sharks(),
		"fishes", g.sea.Fishes(),
		"seed", g.seed,
		"start_tick", g.tick,
	)
}

// logEnd logs the end-of-run summary.
func (g *Game) logEnd() {
	slog.Info("END",
		"chronons", g.tick,
		"reason", g.reason.String(),
		"sharks", g.sea.Sharks(),
		"fishes", g.sea.Fishes(),
		"ran_for", formatElapsed(g.elapsed),
	)
}

// logTick logs one line per chronon at debug level.
func (g *Game) logTick() {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	last := g.perf.Last()
	slog.Debug("chronon",
		"tick", g.tick,
		"turn_ms", ms(last.Phases[telemetry.PhaseTurns]),
		"display_ms", ms(last.Phases[telemetry.PhaseDisplay]),
		"sea", g.sea.String(),
	)
}

// recordRunMeta stores run attributes in the index, if there is one.
func (g *Game) recordRunMeta() {
	if g.index == nil {
		return
	}
	meta := map[string]string{
		"grid":   fmt.Sprintf("%dx%d", g.sea.Width(), g.sea.Height()),
		"seed":   fmt.Sprint(g.seed),
		"search": g.sharkTraits.Mode.String(),
	}
	for k, v := range meta {
		if err := g.index.SetMeta(k, v); err != nil {
			slog.Error("failed to record run meta", "key", k, "error", err)
		}
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// formatElapsed renders a duration as h:mm:ss.
func formatElapsed(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}

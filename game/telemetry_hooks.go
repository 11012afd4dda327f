package game

import (
	"log/slog"
)

// flushTelemetry closes the stats window when it is due.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}
	g.flushWindow()
}

// flushWindow flushes the open window, logs and stores it, and checks it
// for bookmarks.
func (g *Game) flushWindow() {
	stats := g.collector.Flush(g.tick, g.sea)
	perfStats := g.perf.Stats()

	if g.onWindow != nil {
		g.onWindow(stats)
	}

	if g.cfg.Telemetry.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
	g.index.RecordWindow(stats)

	for _, bm := range g.bookmarks.Check(stats) {
		if g.cfg.Telemetry.LogStats {
			bm.LogBookmark()
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		g.index.RecordBookmark(bm)
	}
}

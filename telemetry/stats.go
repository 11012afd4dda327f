// Package telemetry provides population statistics, performance timing,
// ecological bookmarks and CSV output for a running sea.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of ticks.
type WindowStats struct {
	WindowStartTick int `csv:"-"`
	WindowEndTick   int `csv:"window_end"`

	// Population at window end
	Fishes       int     `csv:"fish"`
	Sharks       int     `csv:"sharks"`
	Empty        int     `csv:"empty"`
	FishPerShark float64 `csv:"fish_per_shark"`

	// Events during window
	FishBirths    int `csv:"fish_births"`
	SharkBirths   int `csv:"shark_births"`
	FishEaten     int `csv:"fish_eaten"`
	SharksStarved int `csv:"sharks_starved"`

	// Total age of the living, sampled at window end
	FishAgeMean  float64 `csv:"fish_age_mean"`
	FishAgeStd   float64 `csv:"fish_age_std"`
	FishAgeP50   float64 `csv:"fish_age_p50"`
	FishAgeP90   float64 `csv:"fish_age_p90"`
	SharkAgeMean float64 `csv:"shark_age_mean"`
	SharkAgeStd  float64 `csv:"shark_age_std"`
	SharkAgeP50  float64 `csv:"shark_age_p50"`
	SharkAgeP90  float64 `csv:"shark_age_p90"`

	// Mean starve counter of living sharks
	SharkHungerMean float64 `csv:"shark_hunger_mean"`

	// Age at death of creatures that died during the window
	FishLifespanMean  float64 `csv:"fish_lifespan_mean"`
	SharkLifespanMean float64 `csv:"shark_lifespan_mean"`

	ActiveLineages int `csv:"active_lineages"`
}

// ComputeAgeStats returns mean, sample standard deviation, median and 90th
// percentile of values. Empty input yields zeros.
func ComputeAgeStats(values []float64) (mean, std, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	mean, std = stat.MeanStdDev(values, nil)
	if n < 2 || math.IsNaN(std) {
		std = 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, std, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartTick),
		slog.Int("window_end", s.WindowEndTick),
		slog.Int("fish", s.Fishes),
		slog.Int("sharks", s.Sharks),
		slog.Int("empty", s.Empty),
		slog.Float64("fish_per_shark", s.FishPerShark),
		slog.Int("fish_births", s.FishBirths),
		slog.Int("shark_births", s.SharkBirths),
		slog.Int("fish_eaten", s.FishEaten),
		slog.Int("sharks_starved", s.SharksStarved),
		slog.Float64("fish_age_mean", s.FishAgeMean),
		slog.Float64("fish_age_p90", s.FishAgeP90),
		slog.Float64("shark_age_mean", s.SharkAgeMean),
		slog.Float64("shark_age_p90", s.SharkAgeP90),
		slog.Float64("shark_hunger_mean", s.SharkHungerMean),
		slog.Float64("fish_lifespan_mean", s.FishLifespanMean),
		slog.Float64("shark_lifespan_mean", s.SharkLifespanMean),
		slog.Int("active_lineages", s.ActiveLineages),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"fish", s.Fishes,
		"sharks", s.Sharks,
		"fish_per_shark", s.FishPerShark,
		"fish_births", s.FishBirths,
		"shark_births", s.SharkBirths,
		"fish_eaten", s.FishEaten,
		"sharks_starved", s.SharksStarved,
		"fish_age_mean", s.FishAgeMean,
		"shark_age_mean", s.SharkAgeMean,
		"shark_hunger_mean", s.SharkHungerMean,
		"active_lineages", s.ActiveLineages,
	)
}

package telemetry

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/wator/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFishCrash       BookmarkType = "fish_crash"
	BookmarkSharkRecovery   BookmarkType = "shark_recovery"
	BookmarkStableEcosystem BookmarkType = "stable_ecosystem"
	BookmarkExtinction      BookmarkType = "extinction"
)

// Bookmark marks an ecologically interesting tick.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int          `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector watches successive windows for population events.
type BookmarkDetector struct {
	cfg config.BookmarksConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historyIdx  int
	historyFull bool

	recentSharkMin int // 0 until the first window
	recentFishPeak int
	stableWindows  int
	extinct        bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int, cfg config.BookmarksConfig) *BookmarkDetector {
	need := max(cfg.StableEcosystem.StableWindows, 5)
	if historySize < need {
		historySize = need
	}
	return &BookmarkDetector{
		cfg:     cfg,
		history: make([]WindowStats, historySize),
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		for _, check := range []func(WindowStats) *Bookmark{
			bd.checkFishCrash,
			bd.checkSharkRecovery,
			bd.checkStableEcosystem,
		} {
			if b := check(stats); b != nil {
				bookmarks = append(bookmarks, *b)
			}
		}
	}
	if b := bd.checkExtinction(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % len(bd.history)
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}

	if stats.Sharks < bd.recentSharkMin || bd.recentSharkMin == 0 {
		bd.recentSharkMin = stats.Sharks
	}
	bd.recentFishPeak = max(bd.recentFishPeak, stats.Fishes)

	return bookmarks
}

// recent returns up to n of the latest windows, oldest first.
func (bd *BookmarkDetector) recent(n int) []WindowStats {
	size := bd.historyIdx
	if bd.historyFull {
		size = len(bd.history)
	}
	n = min(n, size)
	out := make([]WindowStats, 0, n)
	for i := n; i > 0; i-- {
		idx := (bd.historyIdx - i + len(bd.history)) % len(bd.history)
		out = append(out, bd.history[idx])
	}
	return out
}

func (bd *BookmarkDetector) checkFishCrash(stats WindowStats) *Bookmark {
	cfg := bd.cfg.FishCrash
	if bd.recentFishPeak == 0 {
		return nil
	}
	drop := 1.0 - float64(stats.Fishes)/float64(bd.recentFishPeak)
	if drop <= cfg.DropPercent || stats.Fishes >= bd.recentFishPeak-cfg.MinDrop {
		return nil
	}
	peak := bd.recentFishPeak
	bd.recentFishPeak = stats.Fishes
	return &Bookmark{
		Type:        BookmarkFishCrash,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Fish crashed %.0f%% from peak %d to %d", drop*100, peak, stats.Fishes),
	}
}

func (bd *BookmarkDetector) checkSharkRecovery(stats WindowStats) *Bookmark {
	cfg := bd.cfg.SharkRecovery
	if bd.recentSharkMin == 0 || bd.recentSharkMin > cfg.MinPopulation {
		return nil
	}
	if stats.Sharks < bd.recentSharkMin*cfg.RecoveryMultiplier || stats.Sharks < cfg.MinFinal {
		return nil
	}
	low := bd.recentSharkMin
	bd.recentSharkMin = stats.Sharks
	return &Bookmark{
		Type:        BookmarkSharkRecovery,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Sharks recovered from %d to %d", low, stats.Sharks),
	}
}

// coefficientOfVariation returns std/mean, or +Inf for a zero mean.
func coefficientOfVariation(values []float64) float64 {
	mean, variance := stat.MeanVariance(values, nil)
	if mean == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(variance) / mean
}

func (bd *BookmarkDetector) checkStableEcosystem(stats WindowStats) *Bookmark {
	cfg := bd.cfg.StableEcosystem
	if stats.Fishes < cfg.MinFish || stats.Sharks < cfg.MinSharks {
		bd.stableWindows = 0
		return nil
	}

	window := append(bd.recent(3), stats)
	if len(window) < 4 {
		return nil
	}
	fish := make([]float64, len(window))
	sharks := make([]float64, len(window))
	for i, w := range window {
		fish[i] = float64(w.Fishes)
		sharks[i] = float64(w.Sharks)
	}

	if coefficientOfVariation(fish) < cfg.CVThreshold && coefficientOfVariation(sharks) < cfg.CVThreshold {
		bd.stableWindows++
	} else {
		bd.stableWindows = 0
	}

	// Fire once per stable stretch.
	if bd.stableWindows != cfg.StableWindows {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStableEcosystem,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Stable ecosystem with %d fish, %d sharks over %d windows", stats.Fishes, stats.Sharks, cfg.StableWindows),
	}
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	if bd.extinct || (stats.Sharks > 0 && stats.Fishes > 0) {
		return nil
	}
	bd.extinct = true
	who := "sharks"
	if stats.Fishes == 0 {
		who = "fish"
	}
	return &Bookmark{
		Type:        BookmarkExtinction,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("All %s died out", who),
	}
}

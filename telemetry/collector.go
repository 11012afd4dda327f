package telemetry

import (
	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/sea"
)

// Collector accumulates lifecycle events within windows of ticks and
// produces WindowStats. It is installed as the sea's observer.
type Collector struct {
	windowTicks     int
	windowStartTick int
	tick            int

	// Event counters for the current window
	fishBirths    int
	sharkBirths   int
	fishEaten     int
	sharksStarved int

	fishLifespans  []float64
	sharkLifespans []float64

	lineage *LineageTracker
}

var _ sea.Observer = (*Collector)(nil)

// NewCollector creates a collector that flushes every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: windowTicks,
		lineage:     NewLineageTracker(),
	}
}

// SetTick tells the collector which tick events belong to.
func (c *Collector) SetTick(tick int) { c.tick = tick }

// Resume starts a fresh window at tick, e.g. after a restore.
func (c *Collector) Resume(tick int) {
	c.tick = tick
	c.windowStartTick = tick
}

// Track registers every living creature the collector has not seen, such
// as the initial population or creatures restored from a checkpoint.
func (c *Collector) Track(s *sea.Sea) {
	for _, st := range s.States() {
		if st.Alive && c.lineage.Get(st.ID) == nil {
			c.lineage.Register(st.ID, st.ParentID, c.tick)
		}
	}
}

// Born records a birth.
func (c *Collector) Born(child, parent components.Creature) {
	if child.Kind == components.KindShark {
		c.sharkBirths++
	} else {
		c.fishBirths++
	}
	c.lineage.Register(child.ID, parent.ID, c.tick)
}

// Died records a death.
func (c *Collector) Died(cr components.Creature, cause sea.Cause) {
	switch cause {
	case sea.CauseEaten:
		c.fishEaten++
	case sea.CauseStarved:
		c.sharksStarved++
	}
	if cr.Kind == components.KindShark {
		c.sharkLifespans = append(c.sharkLifespans, float64(cr.TotalAge))
	} else {
		c.fishLifespans = append(c.fishLifespans, float64(cr.TotalAge))
	}
	c.lineage.Remove(cr.ID)
}

// Lineage exposes the lineage tracker.
func (c *Collector) Lineage() *LineageTracker { return c.lineage }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(tick int) bool {
	return tick-c.windowStartTick >= c.windowTicks
}

// Pending reports whether ticks have run since the last flush.
func (c *Collector) Pending(tick int) bool {
	return tick > c.windowStartTick
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int { return c.windowTicks }

// Flush samples the sea, produces the window's stats and resets the
// counters for the next window.
func (c *Collector) Flush(tick int, s *sea.Sea) WindowStats {
	var fishAges, sharkAges []float64
	var hunger float64
	for _, st := range s.States() {
		if !st.Alive {
			continue
		}
		if st.Kind == components.KindShark {
			sharkAges = append(sharkAges, float64(st.TotalAge))
			hunger += float64(st.Starvation.Counter)
		} else {
			fishAges = append(fishAges, float64(st.TotalAge))
		}
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   tick,
		Fishes:          s.Fishes(),
		Sharks:          s.Sharks(),
		Empty:           s.Width()*s.Height() - s.Fishes() - s.Sharks(),
		FishBirths:      c.fishBirths,
		SharkBirths:     c.sharkBirths,
		FishEaten:       c.fishEaten,
		SharksStarved:   c.sharksStarved,
		ActiveLineages:  c.lineage.ActiveLineages(),
	}
	if stats.Sharks > 0 {
		stats.FishPerShark = float64(stats.Fishes) / float64(stats.Sharks)
	}
	if len(sharkAges) > 0 {
		stats.SharkHungerMean = hunger / float64(len(sharkAges))
	}
	stats.FishAgeMean, stats.FishAgeStd, stats.FishAgeP50, stats.FishAgeP90 = ComputeAgeStats(fishAges)
	stats.SharkAgeMean, stats.SharkAgeStd, stats.SharkAgeP50, stats.SharkAgeP90 = ComputeAgeStats(sharkAges)
	stats.FishLifespanMean, _, _, _ = ComputeAgeStats(c.fishLifespans)
	stats.SharkLifespanMean, _, _, _ = ComputeAgeStats(c.sharkLifespans)

	c.windowStartTick = tick
	c.fishBirths = 0
	c.sharkBirths = 0
	c.fishEaten = 0
	c.sharksStarved = 0
	c.fishLifespans = c.fishLifespans[:0]
	c.sharkLifespans = c.sharkLifespans[:0]

	return stats
}

package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/wator/checkpoint"
	"github.com/pthm-cable/wator/components"
	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/sea"
)

// populate places the initial sharks, then the initial fish, each on a
// uniformly random empty cell.
func (g *Game) populate(sharks, fishes int) error {
	if sharks+fishes > g.sea.Width()*g.sea.Height() {
		return fmt.Errorf("%w: %d sharks + %d fish", config.ErrTooManyCreatures, sharks, fishes)
	}
	g.place(sharks, components.KindShark, g.sharkTraits)
	g.place(fishes, components.KindFish, g.fishTraits)
	return nil
}

// place draws random cells until n creatures of kind have landed. The
// capacity check in populate guarantees it terminates.
func (g *Game) place(n int, kind components.Kind, traits sea.Traits) {
	rng := g.sea.Rand()
	w, h := g.sea.Width(), g.sea.Height()
	for placed := 0; placed < n; {
		x, y := rng.Intn(w), rng.Intn(h)
		if _, ok := g.sea.Spawn(x, y, kind, traits); ok {
			placed++
		}
	}
}

// restore rebuilds the sea from the configured checkpoint and resumes the
// tick and frame counters.
func (g *Game) restore(rng sea.Rand, rules sea.Rules) error {
	path := g.cfg.Checkpoint.Path
	st, err := checkpoint.Load(path)
	if err != nil {
		return err
	}
	s, err := st.Rebuild(rng, rules)
	if err != nil {
		return fmt.Errorf("restoring %s: %w", path, err)
	}
	g.sea = s
	g.tick = st.Header.Tick
	g.frame = st.Header.Frame

	attrs := []any{
		"path", path,
		"tick", g.tick,
		"sharks", s.Sharks(),
		"fishes", s.Fishes(),
		"next_id", st.Header.NextID,
	}
	if st.Truncated {
		slog.Warn("checkpoint_truncated", append(attrs, "records", len(st.Records))...)
	} else {
		slog.Info("checkpoint_restored", attrs...)
	}
	return nil
}

// saveCheckpoint writes the current state to the configured path and
// indexes it.
func (g *Game) saveCheckpoint() error {
	path := g.cfg.Checkpoint.Path
	st := checkpoint.Capture(g.sea, g.tick, g.frame, g.seed)
	if err := checkpoint.Save(path, st); err != nil {
		return fmt.Errorf("saving checkpoint at tick %d: %w", g.tick, err)
	}
	g.index.RecordCheckpoint(path, st.Header)
	slog.Info("checkpoint_saved",
		"path", path,
		"tick", g.tick,
		"creatures", len(st.Records),
	)
	return nil
}

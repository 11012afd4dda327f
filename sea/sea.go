// Package sea implements the Wa-Tor ocean: a toroidal grid of cells, the
// registry of fish and sharks living in it, and the per-tick turn rules.
//
// The package is a pure state machine. It never logs, sleeps, or touches
// the filesystem; the game package drives it one tick at a time.
package sea

import (
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wator/components"
)

// Rules are the tunable behaviours shared by every creature.
type Rules struct {
	// SpawnFailChance is the probability that an eligible creature still
	// does not reproduce this turn. Damps synchronised population swings.
	SpawnFailChance float64
	// ScentHunting lets sharks without a fish neighbour prefer empty cells
	// that border a fish.
	ScentHunting bool
}

// DefaultRules returns the tuned defaults.
func DefaultRules() Rules {
	return Rules{SpawnFailChance: 0.3}
}

// Traits are the per-creature parameters fixed at birth.
type Traits struct {
	Mode      components.SearchMode
	SpawnAge  int
	StarveAge int // sharks only
}

// Cause records why a creature died.
type Cause uint8

const (
	CauseEaten Cause = iota
	CauseStarved
)

func (c Cause) String() string {
	if c == CauseStarved {
		return "starved"
	}
	return "eaten"
}

// Observer receives lifecycle events as they happen inside a tick.
type Observer interface {
	Born(child, parent components.Creature)
	Died(c components.Creature, cause Cause)
}

type nopObserver struct{}

func (nopObserver) Born(components.Creature, components.Creature) {}
func (nopObserver) Died(components.Creature, Cause)               {}

// Sea ties the grid, the population and the random source together.
type Sea struct {
	grid  *Grid
	pop   *Population
	rng   Rand
	rules Rules
	obs   Observer
}

// New creates an empty sea. rng is the only random source creatures use.
func New(width, height int, rng Rand, rules Rules) *Sea {
	pop := newPopulation()
	return &Sea{
		grid:  newGrid(width, height, pop),
		pop:   pop,
		rng:   rng,
		rules: rules,
		obs:   nopObserver{},
	}
}

// SetObserver installs a lifecycle observer. nil restores the no-op one.
func (s *Sea) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.obs = o
}

// SetRand swaps the random source, e.g. after a restore.
func (s *Sea) SetRand(rng Rand) { s.rng = rng }

// Rand returns the sea's random source. Anything that draws from it
// outside a turn, such as initial placement, shares the one sequence.
func (s *Sea) Rand() Rand { return s.rng }

// Grid exposes the cell array.
func (s *Sea) Grid() *Grid { return s.grid }

// Population exposes the creature registry.
func (s *Sea) Population() *Population { return s.pop }

// Rules returns the active rules.
func (s *Sea) Rules() Rules { return s.rules }

// Width returns the number of columns.
func (s *Sea) Width() int { return s.grid.width }

// Height returns the number of rows.
func (s *Sea) Height() int { return s.grid.height }

// Sharks returns the shark count.
func (s *Sea) Sharks() int { return s.grid.sharks }

// Fishes returns the fish count.
func (s *Sea) Fishes() int { return s.grid.fishes }

// Spawn creates a founder creature (no parent) at (x, y) if the cell is
// empty. Used by the initial population generator.
func (s *Sea) Spawn(x, y int, kind components.Kind, traits Traits) (ecs.Entity, bool) {
	return s.spawn(x, y, kind, traits, 0)
}

func (s *Sea) spawn(x, y int, kind components.Kind, traits Traits, parent uint64) (ecs.Entity, bool) {
	if !s.grid.IsEmpty(x, y) {
		return noEntity, false
	}
	c := components.Creature{
		ID:       s.pop.NextIdentity(),
		ParentID: parent,
		Kind:     kind,
		Pos:      components.Position{X: x, Y: y},
		Mode:     traits.Mode,
		SpawnAge: traits.SpawnAge,
		Alive:    true,
	}
	var hunger *components.Starvation
	if kind == components.KindShark {
		hunger = &components.Starvation{Threshold: traits.StarveAge}
	}
	e := s.pop.add(c, hunger)
	s.grid.Place(x, y, e)
	s.grid.increment(kind)
	return e, true
}

// Living returns the turn order at this instant. Creatures spawned later
// are not in it; creatures that die later stay in it and are skipped.
func (s *Sea) Living() []ecs.Entity {
	return s.pop.Snapshot()
}

// Purge removes dead creatures from the registry.
func (s *Sea) Purge() int {
	return s.pop.purge(s.grid)
}

// Recount recomputes the aggregate counters from the registry.
func (s *Sea) Recount() {
	s.grid.setCounts(s.pop.count(s.grid))
}

// State is a detached copy of one creature.
type State struct {
	components.Creature
	Starvation components.Starvation // zero for fish
}

// String mirrors the per-creature debug line: totals plus ticks remaining
// until the next spawn and until starvation.
func (st State) String() string {
	name := "Fish"
	starve := 0
	if st.Kind == components.KindShark {
		name = "Shark"
		starve = st.Starvation.Threshold - st.Starvation.Counter
	}
	return fmt.Sprintf("%s %s Alive: %t Age: %d Spawn: %d Starve: %d",
		name, st.Pos, st.Alive, st.TotalAge, st.SpawnAge-st.Age, starve)
}

// States returns a copy of every registered creature in turn order.
func (s *Sea) States() []State {
	out := make([]State, 0, s.pop.Len())
	for _, e := range s.pop.order {
		if st, ok := s.state(e); ok {
			out = append(out, st)
		}
	}
	return out
}

// Lookup finds a creature by identity.
func (s *Sea) Lookup(id uint64) (State, bool) {
	for _, e := range s.pop.order {
		if c := s.pop.Get(e); c != nil && c.ID == id {
			return s.state(e)
		}
	}
	return State{}, false
}

func (s *Sea) state(e ecs.Entity) (State, bool) {
	c := s.pop.Get(e)
	if c == nil {
		return State{}, false
	}
	st := State{Creature: *c}
	if h := s.pop.Starvation(e); h != nil {
		st.Starvation = *h
	}
	return st, true
}

// Restore re-creates a creature with its exact recorded attributes. Dead
// records are ignored. The identity counter is raised past the restored id.
func (s *Sea) Restore(st State) error {
	if !st.Alive {
		return nil
	}
	if st.Kind != components.KindFish && st.Kind != components.KindShark {
		return fmt.Errorf("creature %d: invalid kind %d", st.ID, st.Kind)
	}
	if !s.grid.InBounds(st.Pos.X, st.Pos.Y) {
		return fmt.Errorf("creature %d: position %s outside %dx%d sea", st.ID, st.Pos, s.grid.width, s.grid.height)
	}
	if !s.grid.IsEmpty(st.Pos.X, st.Pos.Y) {
		return fmt.Errorf("creature %d: cell %s already occupied", st.ID, st.Pos)
	}
	var hunger *components.Starvation
	if st.Kind == components.KindShark {
		h := st.Starvation
		hunger = &h
	}
	e := s.pop.add(st.Creature, hunger)
	s.grid.Place(st.Pos.X, st.Pos.Y, e)
	s.grid.increment(st.Kind)
	s.pop.resume(st.ID + 1)
	return nil
}

// ResumeIdentity raises the identity counter to at least next. Only the
// checkpoint restore path calls this.
func (s *Sea) ResumeIdentity(next uint64) {
	s.pop.resume(next)
}

// String summarises the populations.
func (s *Sea) String() string {
	sharks, fishes := s.Sharks(), s.Fishes()
	empty := s.grid.width*s.grid.height - sharks - fishes
	ratio := 0
	if sharks > 0 {
		ratio = int(math.Round(float64(fishes) / float64(sharks)))
	}
	return fmt.Sprintf("Sharks: %d Fishes: %d Fishes per Shark: %d Empty: %d", sharks, fishes, ratio, empty)
}

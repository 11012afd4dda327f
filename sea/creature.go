package sea

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wator/components"
)

// Turn resolves one creature's action for this tick. Dead or removed
// creatures are skipped.
//
// Pointers returned by the population are invalidated whenever a creature
// is added, so every helper that may spawn re-fetches state afterwards.
func (s *Sea) Turn(e ecs.Entity) {
	c := s.pop.Get(e)
	if c == nil || !c.Alive {
		return
	}
	switch c.Kind {
	case components.KindFish:
		s.fishTurn(e, c)
	case components.KindShark:
		s.sharkTurn(e, c, s.pop.Starvation(e))
	}
}

// fishTurn: age, then spawn into or move to a random empty neighbour.
// Fish never starve.
func (s *Sea) fishTurn(e ecs.Entity, c *components.Creature) {
	c.Age++
	c.TotalAge++

	empty, _ := s.grid.Adjacent(c.Pos, c.Mode)
	if len(empty) == 0 {
		return
	}
	if s.trySpawn(e, empty) {
		return
	}
	s.move(e, empty)
}

// sharkTurn: age and starve, then eat a neighbouring fish and try to
// spawn where the shark used to be; otherwise spawn or move like a fish.
func (s *Sea) sharkTurn(e ecs.Entity, c *components.Creature, hunger *components.Starvation) {
	c.Age++
	c.TotalAge++
	hunger.Counter++
	if hunger.Counter > hunger.Threshold {
		s.Die(e, CauseStarved)
		return
	}

	empty, occupied := s.grid.Adjacent(c.Pos, c.Mode)
	if prey := s.fishAmong(occupied); len(prey) > 0 {
		from := c.Pos
		s.eat(e, prey)
		s.trySpawn(e, []components.Position{from})
		return
	}
	if len(empty) == 0 {
		return
	}
	if s.trySpawn(e, empty) {
		return
	}
	s.hunt(e, empty)
}

// Die vacates the creature's cell and marks it dead. A second call on the
// same creature is a no-op.
func (s *Sea) Die(e ecs.Entity, cause Cause) {
	c := s.pop.Get(e)
	if c == nil || !c.Alive {
		return
	}
	if s.grid.At(c.Pos.X, c.Pos.Y) == e {
		s.grid.Vacate(c.Pos.X, c.Pos.Y)
	}
	c.Alive = false
	s.obs.Died(*c, cause)
}

// trySpawn places a child in one of cells when the creature is old enough
// and passes the damping draw. Only a successful spawn resets Age.
func (s *Sea) trySpawn(e ecs.Entity, cells []components.Position) bool {
	c := s.pop.Get(e)
	if c.Age < c.SpawnAge {
		return false
	}
	if s.rng.Float64() < s.rules.SpawnFailChance {
		return false
	}
	at := cells[s.rng.Intn(len(cells))]

	parent := *c
	traits := Traits{Mode: c.Mode, SpawnAge: c.SpawnAge}
	if h := s.pop.Starvation(e); h != nil {
		traits.StarveAge = h.Threshold
	}
	child, ok := s.spawn(at.X, at.Y, parent.Kind, traits, parent.ID)
	if !ok {
		return false
	}

	c = s.pop.Get(e)
	c.Age = 0
	s.obs.Born(*s.pop.Get(child), *c)
	return true
}

// move relocates the creature to a uniformly chosen cell of empty.
func (s *Sea) move(e ecs.Entity, empty []components.Position) {
	s.moveTo(e, empty[s.rng.Intn(len(empty))])
}

func (s *Sea) moveTo(e ecs.Entity, to components.Position) {
	c := s.pop.Get(e)
	if s.grid.Move(c.Pos, to) {
		c.Pos = to
	}
}

// fishAmong filters occupied cells down to those holding a fish.
func (s *Sea) fishAmong(occupied []components.Position) []components.Position {
	var prey []components.Position
	for _, p := range occupied {
		if _, c := s.grid.Occupant(p.X, p.Y); c != nil && c.Kind == components.KindFish {
			prey = append(prey, p)
		}
	}
	return prey
}

// eat kills a uniformly chosen neighbouring fish and takes its cell.
func (s *Sea) eat(e ecs.Entity, prey []components.Position) {
	at := prey[s.rng.Intn(len(prey))]
	victim, _ := s.grid.Occupant(at.X, at.Y)
	s.Die(victim, CauseEaten)

	s.moveTo(e, at)
	if hunger := s.pop.Starvation(e); hunger != nil {
		hunger.Counter = 0
	}
}

// hunt moves a shark that found nothing to eat. With scent hunting on, an
// empty neighbour that itself borders a fish is preferred.
func (s *Sea) hunt(e ecs.Entity, empty []components.Position) {
	if !s.rules.ScentHunting {
		s.move(e, empty)
		return
	}
	mode := s.pop.Get(e).Mode
	var scented []components.Position
	for _, p := range empty {
		_, around := s.grid.Adjacent(p, mode)
		if len(s.fishAmong(around)) > 0 {
			scented = append(scented, p)
		}
	}
	if len(scented) > 0 {
		s.move(e, scented)
		return
	}
	s.move(e, empty)
}

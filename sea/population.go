package sea

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wator/components"
)

// Population is the registry of creatures. It owns the ECS world that acts
// as the creature arena, the turn order, and the identity counter.
type Population struct {
	world *ecs.World

	creatureMap *ecs.Map1[components.Creature]
	sharkMapper *ecs.Map2[components.Creature, components.Starvation]
	hungerMap   *ecs.Map1[components.Starvation]
	filter      *ecs.Filter1[components.Creature]

	// order is the turn order. New creatures are appended; purges keep
	// the relative order of survivors.
	order []ecs.Entity

	nextID uint64
}

func newPopulation() *Population {
	world := ecs.NewWorld()
	return &Population{
		world:       world,
		creatureMap: ecs.NewMap1[components.Creature](world),
		sharkMapper: ecs.NewMap2[components.Creature, components.Starvation](world),
		hungerMap:   ecs.NewMap1[components.Starvation](world),
		filter:      ecs.NewFilter1[components.Creature](world),
		nextID:      1,
	}
}

// NextIdentity allocates a fresh creature identity.
func (p *Population) NextIdentity() uint64 {
	id := p.nextID
	p.nextID++
	return id
}

// PeekIdentity returns the identity the next spawn will receive.
func (p *Population) PeekIdentity() uint64 { return p.nextID }

// resume raises the identity counter so it never hands out next-1 or
// anything below it again. The counter is never lowered.
func (p *Population) resume(next uint64) {
	if next > p.nextID {
		p.nextID = next
	}
}

// Len returns the number of registered creatures, dead or alive.
func (p *Population) Len() int { return len(p.order) }

// Get returns the shared creature state, or nil for a removed handle.
// The pointer is only valid until the next creature is added or removed.
func (p *Population) Get(e ecs.Entity) *components.Creature {
	if e == noEntity || !p.world.Alive(e) {
		return nil
	}
	return p.creatureMap.Get(e)
}

// Starvation returns the shark payload, or nil for fish.
func (p *Population) Starvation(e ecs.Entity) *components.Starvation {
	if e == noEntity || !p.world.Alive(e) || !p.hungerMap.HasAll(e) {
		return nil
	}
	return p.hungerMap.Get(e)
}

// Snapshot returns a copy of the turn order.
func (p *Population) Snapshot() []ecs.Entity {
	out := make([]ecs.Entity, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Population) add(c components.Creature, st *components.Starvation) ecs.Entity {
	var e ecs.Entity
	if c.Kind == components.KindShark {
		hunger := components.Starvation{}
		if st != nil {
			hunger = *st
		}
		e = p.sharkMapper.NewEntity(&c, &hunger)
	} else {
		e = p.creatureMap.NewEntity(&c)
	}
	p.order = append(p.order, e)
	return e
}

// purge removes dead creatures from the arena, clearing any cell that
// still points at them, and returns how many were removed.
func (p *Population) purge(g *Grid) int {
	kept := p.order[:0]
	var dead []ecs.Entity
	for _, e := range p.order {
		c := p.Get(e)
		if c != nil && c.Alive {
			kept = append(kept, e)
			continue
		}
		if c != nil && g.At(c.Pos.X, c.Pos.Y) == e {
			g.clear(c.Pos.X, c.Pos.Y)
		}
		dead = append(dead, e)
	}
	for i := len(kept); i < len(p.order); i++ {
		p.order[i] = noEntity
	}
	p.order = kept
	for _, e := range dead {
		if p.world.Alive(e) {
			p.world.RemoveEntity(e)
		}
	}
	return len(dead)
}

// count walks the arena and tallies living creatures that the grid
// actually holds at their recorded position.
func (p *Population) count(g *Grid) (sharks, fishes int) {
	query := p.filter.Query()
	for query.Next() {
		c := query.Get()
		if !c.Alive || g.At(c.Pos.X, c.Pos.Y) != query.Entity() {
			continue
		}
		switch c.Kind {
		case components.KindShark:
			sharks++
		case components.KindFish:
			fishes++
		}
	}
	return sharks, fishes
}

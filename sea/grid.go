package sea

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wator/components"
)

// noEntity marks an empty cell.
var noEntity ecs.Entity

// Grid is the toroidal cell array. Cells hold entity handles into the
// population arena; a handle to a dead or removed creature reads as empty.
type Grid struct {
	width, height int
	cells         []ecs.Entity
	pop           *Population

	sharks int
	fishes int
}

func newGrid(width, height int, pop *Population) *Grid {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("sea: invalid grid size %dx%d", width, height))
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]ecs.Entity, width*height),
		pop:    pop,
	}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Sharks returns the aggregate shark count.
func (g *Grid) Sharks() int { return g.sharks }

// Fishes returns the aggregate fish count.
func (g *Grid) Fishes() int { return g.fishes }

// InBounds reports whether (x, y) addresses a cell without wrapping.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// index panics on out-of-range coordinates. Callers always wrap first, so
// reaching the panic is a bug, not bad input.
func (g *Grid) index(x, y int) int {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("sea: cell (%d, %d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return y*g.width + x
}

// At returns the raw handle stored in a cell, which may be stale.
func (g *Grid) At(x, y int) ecs.Entity {
	return g.cells[g.index(x, y)]
}

// Occupant returns the living creature in a cell, or nil.
func (g *Grid) Occupant(x, y int) (ecs.Entity, *components.Creature) {
	e := g.cells[g.index(x, y)]
	if e == noEntity {
		return noEntity, nil
	}
	c := g.pop.Get(e)
	if c == nil || !c.Alive {
		return noEntity, nil
	}
	return e, c
}

// IsEmpty reports whether no living creature occupies the cell.
func (g *Grid) IsEmpty(x, y int) bool {
	_, c := g.Occupant(x, y)
	return c == nil
}

// Place stores e in an empty cell. It never overwrites a living occupant.
func (g *Grid) Place(x, y int, e ecs.Entity) bool {
	if !g.IsEmpty(x, y) {
		return false
	}
	g.cells[g.index(x, y)] = e
	return true
}

// Vacate clears a cell and decrements the counter for the kind it held.
// Only used when a creature leaves the sea; moves go through Move.
func (g *Grid) Vacate(x, y int) {
	i := g.index(x, y)
	if e := g.cells[i]; e != noEntity {
		if c := g.pop.Get(e); c != nil {
			switch c.Kind {
			case components.KindShark:
				g.sharks--
			case components.KindFish:
				g.fishes--
			}
		}
	}
	g.cells[i] = noEntity
}

// Move relocates whatever is stored at from into the empty cell to.
// Counters are untouched: a move neither adds nor removes a creature.
func (g *Grid) Move(from, to components.Position) bool {
	if !g.IsEmpty(to.X, to.Y) {
		return false
	}
	src := g.index(from.X, from.Y)
	g.cells[g.index(to.X, to.Y)] = g.cells[src]
	g.cells[src] = noEntity
	return true
}

// clear drops a stale handle without touching counters.
func (g *Grid) clear(x, y int) {
	g.cells[g.index(x, y)] = noEntity
}

func (g *Grid) setCounts(sharks, fishes int) {
	g.sharks = sharks
	g.fishes = fishes
}

func (g *Grid) increment(kind components.Kind) {
	switch kind {
	case components.KindShark:
		g.sharks++
	case components.KindFish:
		g.fishes++
	}
}

// Kinds writes the occupant kind of every cell, row-major, into dst and
// returns it. dst is reallocated when too small.
func (g *Grid) Kinds(dst []components.Kind) []components.Kind {
	n := g.width * g.height
	if cap(dst) < n {
		dst = make([]components.Kind, n)
	}
	dst = dst[:n]
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			kind := components.KindNone
			if _, c := g.Occupant(x, y); c != nil {
				kind = c.Kind
			}
			dst[y*g.width+x] = kind
		}
	}
	return dst
}

package sea

import "github.com/pthm-cable/wator/components"

// offset is a neighbour delta. +Y is north.
type offset struct{ dx, dy int }

// Probe orders are fixed: the uniform draw over the resulting lists depends
// on them, so changing the order changes every seeded run.
var (
	traditionalOffsets = [...]offset{
		{0, +1}, // N
		{-1, 0}, // W
		{+1, 0}, // E
		{0, -1}, // S
	}
	extendedOffsets = [...]offset{
		{-1, +1}, // NW
		{0, +1},  // N
		{+1, +1}, // NE
		{-1, 0},  // W
		{+1, 0},  // E
		{-1, -1}, // SW
		{0, -1},  // S
		{+1, -1}, // SE
	}
)

func offsetsFor(mode components.SearchMode) []offset {
	if mode == components.SearchTraditional {
		return traditionalOffsets[:]
	}
	return extendedOffsets[:]
}

// Wrap maps any coordinate onto the torus.
func (g *Grid) Wrap(x, y int) components.Position {
	return components.Position{X: wrap(x, g.width), Y: wrap(y, g.height)}
}

func wrap(v, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// Neighbor returns the wrapped cell at the given delta from p.
func (g *Grid) Neighbor(p components.Position, dx, dy int) components.Position {
	return g.Wrap(p.X+dx, p.Y+dy)
}

// Adjacent probes the neighbourhood of p and splits it into empty and
// occupied cells, each in probe order.
func (g *Grid) Adjacent(p components.Position, mode components.SearchMode) (empty, occupied []components.Position) {
	offs := offsetsFor(mode)
	empty = make([]components.Position, 0, len(offs))
	occupied = make([]components.Position, 0, len(offs))
	for _, o := range offs {
		n := g.Neighbor(p, o.dx, o.dy)
		if g.IsEmpty(n.X, n.Y) {
			empty = append(empty, n)
		} else {
			occupied = append(occupied, n)
		}
	}
	return empty, occupied
}

package sea

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wator/components"
)

// scriptedRand replays fixed draws. Once a script runs out, Intn returns 0
// and Float64 returns 0.99 (so damping never blocks a spawn).
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func newTestSea(w, h int, rules Rules) *Sea {
	return New(w, h, &scriptedRand{}, rules)
}

func mustSpawn(t *testing.T, s *Sea, x, y int, kind components.Kind, traits Traits) ecs.Entity {
	t.Helper()
	e, ok := s.Spawn(x, y, kind, traits)
	if !ok {
		t.Fatalf("spawn %s at (%d, %d) failed", kind, x, y)
	}
	return e
}

func traditional(spawnAge, starveAge int) Traits {
	return Traits{Mode: components.SearchTraditional, SpawnAge: spawnAge, StarveAge: starveAge}
}

// checkOccupancy verifies every living creature sits in exactly the cell
// its position names, and that no cell holds a creature elsewhere.
func checkOccupancy(t *testing.T, s *Sea) {
	t.Helper()
	seen := 0
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			e, c := s.Grid().Occupant(x, y)
			if c == nil {
				continue
			}
			seen++
			if c.Pos.X != x || c.Pos.Y != y {
				t.Fatalf("cell (%d, %d) holds creature %d recorded at %s", x, y, c.ID, c.Pos)
			}
			if s.Grid().At(x, y) != e {
				t.Fatalf("cell (%d, %d) handle mismatch", x, y)
			}
		}
	}
	alive := 0
	for _, st := range s.States() {
		if st.Alive {
			alive++
		}
	}
	if seen != alive {
		t.Fatalf("grid holds %d creatures, registry has %d alive", seen, alive)
	}
}

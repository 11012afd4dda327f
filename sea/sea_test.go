package sea

import (
	"strings"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wator/components"
)

func TestPurgeKeepsTurnOrder(t *testing.T) {
	s := newTestSea(6, 6, DefaultRules())
	a := mustSpawn(t, s, 0, 0, components.KindFish, traditional(2, 0))
	b := mustSpawn(t, s, 1, 0, components.KindFish, traditional(2, 0))
	c := mustSpawn(t, s, 2, 0, components.KindShark, traditional(5, 3))
	d := mustSpawn(t, s, 3, 0, components.KindFish, traditional(2, 0))

	s.Die(b, CauseEaten)
	if removed := s.Purge(); removed != 1 {
		t.Fatalf("purged %d, want 1", removed)
	}
	s.Recount()

	got := s.Living()
	want := []ecs.Entity{a, c, d}
	if len(got) != len(want) {
		t.Fatalf("living = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("living[%d] out of order", i)
		}
	}
	if s.Population().Get(b) != nil {
		t.Error("purged handle still resolves")
	}
	if s.Fishes() != 2 || s.Sharks() != 1 {
		t.Errorf("counts = %d sharks, %d fish; want 1, 2", s.Sharks(), s.Fishes())
	}
}

func TestLivingIsASnapshot(t *testing.T) {
	s := newTestSea(6, 6, DefaultRules())
	mustSpawn(t, s, 0, 0, components.KindFish, traditional(2, 0))

	snap := s.Living()
	mustSpawn(t, s, 3, 3, components.KindFish, traditional(2, 0))

	if len(snap) != 1 {
		t.Errorf("snapshot grew to %d", len(snap))
	}
	if len(s.Living()) != 2 {
		t.Errorf("registry = %d, want 2", len(s.Living()))
	}
}

func TestStarvationOnlyOnSharks(t *testing.T) {
	s := newTestSea(6, 6, DefaultRules())
	fish := mustSpawn(t, s, 0, 0, components.KindFish, traditional(2, 0))
	shark := mustSpawn(t, s, 3, 3, components.KindShark, traditional(5, 4))

	if h := s.Population().Starvation(fish); h != nil {
		t.Errorf("fish has starvation payload %+v", *h)
	}
	h := s.Population().Starvation(shark)
	if h == nil || h.Threshold != 4 || h.Counter != 0 {
		t.Fatalf("shark starvation = %+v, want threshold 4", h)
	}

	s.Die(shark, CauseStarved)
	s.Purge()
	if s.Population().Starvation(shark) != nil {
		t.Error("purged shark still has a starvation payload")
	}
}

// runTick mirrors the clock: snapshot, turns, purge, recount.
func runTick(s *Sea) {
	for _, e := range s.Living() {
		s.Turn(e)
	}
	s.Purge()
	s.Recount()
}

func TestChildActsFromNextTick(t *testing.T) {
	s := newTestSea(5, 5, DefaultRules())
	parent := mustSpawn(t, s, 2, 2, components.KindFish, traditional(1, 0))

	// Intn 0 picks north, (2, 3); Float64 0.99 passes the damper.
	runTick(s)
	if s.Fishes() != 2 {
		t.Fatalf("fish = %d after spawn tick, want 2", s.Fishes())
	}
	_, child := s.Grid().Occupant(2, 3)
	if child == nil {
		t.Fatal("no child at (2, 3)")
	}
	if child.TotalAge != 0 || child.Age != 0 {
		t.Errorf("child acted in its birth tick: age %d, total %d", child.Age, child.TotalAge)
	}
	childID := child.ID
	if p := s.Population().Get(parent); p.TotalAge != 1 || p.Age != 0 {
		t.Errorf("parent age %d, total %d; want 0, 1", p.Age, p.TotalAge)
	}

	runTick(s)
	st, ok := s.Lookup(childID)
	if !ok || st.TotalAge != 1 {
		t.Errorf("child after next tick = %+v, want total age 1", st)
	}
}

func TestCountsConservedWithoutBirthsOrDeaths(t *testing.T) {
	s := newTestSea(8, 8, DefaultRules())
	// Nobody is old enough to spawn and the shark cannot reach a fish:
	// everyone moves north in its own column.
	mustSpawn(t, s, 0, 0, components.KindShark, traditional(100, 10))
	mustSpawn(t, s, 4, 2, components.KindFish, traditional(100, 0))
	mustSpawn(t, s, 4, 5, components.KindFish, traditional(100, 0))
	mustSpawn(t, s, 5, 1, components.KindFish, traditional(100, 0))

	for tick := 1; tick <= 6; tick++ {
		runTick(s)
		if s.Sharks() != 1 || s.Fishes() != 3 {
			t.Fatalf("tick %d: %d sharks, %d fish; want 1, 3", tick, s.Sharks(), s.Fishes())
		}
		checkOccupancy(t, s)
	}
	if st := s.States(); st[0].Pos.Y != 6 {
		t.Errorf("shark at %s after 6 ticks, want row 6", st[0].Pos)
	}
}

func TestRestoreExactAttributes(t *testing.T) {
	s := newTestSea(8, 8, DefaultRules())
	shark := State{
		Creature: components.Creature{
			ID: 41, ParentID: 7, Kind: components.KindShark,
			Pos: pos{X: 3, Y: 4}, Mode: components.SearchTraditional,
			Age: 2, TotalAge: 9, SpawnAge: 5, Alive: true,
		},
		Starvation: components.Starvation{Counter: 2, Threshold: 3},
	}
	fish := State{
		Creature: components.Creature{
			ID: 12, Kind: components.KindFish, Pos: pos{X: 7, Y: 7},
			Age: 1, TotalAge: 1, SpawnAge: 2, Alive: true,
		},
	}

	for _, st := range []State{shark, fish} {
		if err := s.Restore(st); err != nil {
			t.Fatalf("restore %d: %v", st.ID, err)
		}
	}

	got, ok := s.Lookup(41)
	if !ok {
		t.Fatal("shark missing after restore")
	}
	if got != shark {
		t.Errorf("restored shark = %+v, want %+v", got, shark)
	}
	if next := s.Population().PeekIdentity(); next != 42 {
		t.Errorf("next identity = %d, want 42", next)
	}
	if s.Sharks() != 1 || s.Fishes() != 1 {
		t.Errorf("counts = %d sharks, %d fish", s.Sharks(), s.Fishes())
	}

	e, _ := s.Spawn(0, 0, components.KindFish, traditional(2, 0))
	if id := s.Population().Get(e).ID; id != 42 {
		t.Errorf("new spawn id = %d, want 42", id)
	}
}

func TestRestoreRejectsBadRecords(t *testing.T) {
	tests := []struct {
		name string
		st   State
	}{
		{"out of bounds", State{Creature: components.Creature{ID: 1, Kind: components.KindFish, Pos: pos{X: 9, Y: 0}, Alive: true}}},
		{"no kind", State{Creature: components.Creature{ID: 2, Pos: pos{X: 1, Y: 1}, Alive: true}}},
		{"occupied", State{Creature: components.Creature{ID: 3, Kind: components.KindFish, Pos: pos{X: 0, Y: 0}, Alive: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSea(4, 4, DefaultRules())
			mustSpawn(t, s, 0, 0, components.KindFish, traditional(2, 0))
			if err := s.Restore(tt.st); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRestoreSkipsDead(t *testing.T) {
	s := newTestSea(4, 4, DefaultRules())
	err := s.Restore(State{Creature: components.Creature{ID: 5, Kind: components.KindFish, Pos: pos{X: 1, Y: 1}}})
	if err != nil {
		t.Fatal(err)
	}
	if s.Population().Len() != 0 {
		t.Error("dead record was registered")
	}
}

func TestResumeIdentityNeverLowers(t *testing.T) {
	s := newTestSea(4, 4, DefaultRules())
	s.ResumeIdentity(10)
	s.ResumeIdentity(3)
	if got := s.Population().PeekIdentity(); got != 10 {
		t.Errorf("next identity = %d, want 10", got)
	}
}

func TestStrings(t *testing.T) {
	s := newTestSea(4, 4, DefaultRules())
	if got := s.String(); got != "Sharks: 0 Fishes: 0 Fishes per Shark: 0 Empty: 16" {
		t.Errorf("empty sea = %q", got)
	}
	mustSpawn(t, s, 0, 0, components.KindShark, traditional(5, 3))
	mustSpawn(t, s, 1, 0, components.KindFish, traditional(2, 0))
	mustSpawn(t, s, 2, 0, components.KindFish, traditional(2, 0))
	if got := s.String(); got != "Sharks: 1 Fishes: 2 Fishes per Shark: 2 Empty: 13" {
		t.Errorf("sea = %q", got)
	}

	st, _ := s.Lookup(1)
	if got := st.String(); !strings.HasPrefix(got, "Shark (0, 0) Alive: true") || !strings.HasSuffix(got, "Spawn: 5 Starve: 3") {
		t.Errorf("shark = %q", got)
	}
}

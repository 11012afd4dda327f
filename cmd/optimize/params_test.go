package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/telemetry"
)

func TestNormalizeRoundtrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: got %g, want %g", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestClampBoundsAndRounds(t *testing.T) {
	pv := NewParamVector()
	got := pv.Clamp([]float64{-4, 7.6, 99, 1.5})
	want := []float64{1, 8, 20, 0.9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: got %g, want %g", pv.Specs[i].Name, got[i], want[i])
		}
	}
}

func TestApplyExtractConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pv := NewParamVector()

	if got, want := pv.ExtractFromConfig(cfg), pv.DefaultVector(); len(got) != len(want) {
		t.Fatalf("extracted %d values, want %d", len(got), len(want))
	}

	pv.ApplyToConfig(cfg, []float64{6.4, 2.5, 3, 0.25})
	if cfg.Shark.SpawnAge != 6 || cfg.Shark.StarveAge != 3 || cfg.Fish.SpawnAge != 3 {
		t.Errorf("ages = %d/%d/%d, want 6/3/3", cfg.Shark.SpawnAge, cfg.Shark.StarveAge, cfg.Fish.SpawnAge)
	}
	if cfg.Rules.SpawnFailChance != 0.25 {
		t.Errorf("spawn_fail_chance = %g, want 0.25", cfg.Rules.SpawnFailChance)
	}
}

func TestComputeQuality(t *testing.T) {
	steady := make([]telemetry.WindowStats, 10)
	for i := range steady {
		steady[i] = telemetry.WindowStats{Fishes: 400, Sharks: 100, FishPerShark: 4}
	}
	if q := computeQuality(steady); math.Abs(q-1) > 1e-9 {
		t.Errorf("steady ecosystem quality = %g, want 1", q)
	}

	if q := computeQuality(steady[:qualityWarmupWindows]); q != 0 {
		t.Errorf("warmup-only quality = %g, want 0", q)
	}

	collapsed := make([]telemetry.WindowStats, 10)
	for i := range collapsed {
		collapsed[i] = telemetry.WindowStats{Fishes: 400, Sharks: 1, FishPerShark: 400}
	}
	if q := computeQuality(collapsed); q != 0 {
		t.Errorf("collapsed ecosystem quality = %g, want 0", q)
	}
}

func TestEvaluateShortRun(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.World.Width, cfg.World.Height = 20, 20
	cfg.Population.Sharks, cfg.Population.Fishes = 0, 0
	cfg.Telemetry.WindowTicks = 10

	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 30, []uint64{1, 2}, cfg)
	fitness := fe.Evaluate(pv.DefaultVector())

	// Survival is capped at maxTicks and quality adds at most 20%.
	if fitness > 0 || fitness < -30*1.2 {
		t.Errorf("fitness = %g, want in [-36, 0]", fitness)
	}
	if q := fe.LastQuality(); q < 0 || q > 1 {
		t.Errorf("quality = %g, want in [0, 1]", q)
	}
}

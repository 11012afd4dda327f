package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/wator/config"
	"github.com/pthm-cable/wator/game"
	"github.com/pthm-cable/wator/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []uint64
	baseConfig *config.Config

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// A species below minViablePop for graceTicks consecutive ticks counts as
// functionally extinct.
const (
	minViablePop = 3
	graceTicks   = 50
	warmupTicks  = 20
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int                     // ticks before functional extinction, or maxTicks
	windowStats   []telemetry.WindowStats // collected via OnWindow
}

type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				quality: computeQuality(result.windowStats),
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}
	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run until functional extinction
// or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) *runResult {
	cfg := fe.runConfig(x, seed)
	result := &runResult{}

	g, err := game.New(cfg, game.Options{
		OnWindow: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		// Unplayable parameters score as an immediate extinction.
		return result
	}

	var fishBelow, sharksBelow int
	for {
		more, err := g.Step()
		if err != nil || !more {
			break
		}
		if g.Tick() < warmupTicks {
			continue
		}

		fishBelow = below(g.Sea().Fishes(), fishBelow)
		sharksBelow = below(g.Sea().Sharks(), sharksBelow)
		if fishBelow >= graceTicks || sharksBelow >= graceTicks {
			break
		}
	}

	result.survivalTicks = g.Tick()
	if g.Reason() == game.ReasonStepLimit {
		result.survivalTicks = fe.maxTicks
	}
	return result
}

// below advances a consecutive-ticks counter for a population under
// minViablePop.
func below(pop, streak int) int {
	if pop < minViablePop {
		return streak + 1
	}
	return 0
}

// runConfig copies the base config, applies x and strips everything a
// headless evaluation must not touch.
func (fe *FitnessEvaluator) runConfig(x []float64, seed uint64) *config.Config {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)

	cfg.Run.Seed = seed
	cfg.Run.MaxTicks = fe.maxTicks
	cfg.Checkpoint.Save = false
	cfg.Checkpoint.Restore = false
	cfg.Telemetry.OutputDir = ""
	cfg.Telemetry.LogStats = false
	cfg.Index.DBPath = ""
	cfg.Viewer.Headless = true
	cfg.ApplyDefaults()
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
// Survival dominates; quality separates configs that survive equally long.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	return -(survival * (1.0 + 0.2*computeQuality(r.windowStats)))
}

// Quality component weights.
const (
	qualityWeightRatio     = 0.4
	qualityWeightStability = 0.6

	qualityWarmupWindows = 3   // skip first N windows
	targetFishPerShark   = 4.0 // ratio the ratio score peaks at
	qualityMinPop        = minViablePop
)

// computeQuality scores an ecosystem in [0, 1] from its window stats:
// how close the fish/shark ratio sits to target, and how little both
// populations swing.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	var ratioSum float64
	fishCounts := make([]float64, 0, len(windows))
	sharkCounts := make([]float64, 0, len(windows))

	for _, w := range windows[qualityWarmupWindows:] {
		if w.Fishes < qualityMinPop || w.Sharks < qualityMinPop {
			continue
		}
		fishCounts = append(fishCounts, float64(w.Fishes))
		sharkCounts = append(sharkCounts, float64(w.Sharks))

		logErr := math.Log(w.FishPerShark / targetFishPerShark)
		ratioSum += math.Exp(-logErr * logErr)
	}
	if len(fishCounts) == 0 {
		return 0
	}

	ratioScore := ratioSum / float64(len(fishCounts))

	stabilityScore := 0.0
	if len(fishCounts) >= 2 {
		cvFish := cv(fishCounts)
		cvShark := cv(sharkCounts)
		stabilityScore = math.Exp(-(cvFish*cvFish + cvShark*cvShark))
	}

	return clamp01(qualityWeightRatio*ratioScore + qualityWeightStability*stabilityScore)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}

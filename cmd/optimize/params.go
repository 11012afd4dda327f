// Package main searches Wa-Tor breeding parameters with CMA-ES for runs in
// which sharks and fish coexist for as long as possible.
package main

import (
	"math"

	"github.com/pthm-cable/wator/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Integer bool    // rounded before use
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "shark_spawn_age", Path: "shark.spawn_age", Min: 1, Max: 20, Default: 5, Integer: true},
			{Name: "shark_starve_age", Path: "shark.starve_age", Min: 1, Max: 20, Default: 3, Integer: true},
			{Name: "fish_spawn_age", Path: "fish.spawn_age", Min: 1, Max: 20, Default: 2, Integer: true},
			{Name: "spawn_fail_chance", Path: "rules.spawn_fail_chance", Min: 0, Max: 0.9, Default: 0.3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp bounds every value and rounds the integer ones, giving the values
// a run actually uses.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := min(max(v[i], spec.Min), spec.Max)
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Shark.SpawnAge = int(clamped[0])
	cfg.Shark.StarveAge = int(clamped[1])
	cfg.Fish.SpawnAge = int(clamped[2])
	cfg.Rules.SpawnFailChance = clamped[3]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		float64(cfg.Shark.SpawnAge),
		float64(cfg.Shark.StarveAge),
		float64(cfg.Fish.SpawnAge),
		cfg.Rules.SpawnFailChance,
	}
}

package challenge

import (
	"time"

	"github.com/HendryAvila/bizcoach/internal/constraint"
)

// Weights are relative category weights. They need not sum to 1.
type Weights map[Category]float64

// BaselineWeights is the starting distribution before any adjustment.
// It sums to 1.0.
func BaselineWeights() Weights {
	return Weights{
		CategoryRevenue:    0.25,
		CategoryFramework:  0.20,
		CategoryHabit:      0.20,
		CategoryConstraint: 0.15,
		CategoryTeam:       0.10,
		CategoryLearning:   0.10,
	}
}

// tierAdjustments shift weight toward habits and learning for early tiers
// and toward team work for advanced ones.
var tierAdjustments = map[Tier]Weights{
	Tier0: {CategoryHabit: 0.10, CategoryLearning: 0.10, CategoryTeam: -0.05},
	Tier1: {CategoryHabit: 0.10, CategoryLearning: 0.10, CategoryTeam: -0.05},
	Tier3: {CategoryTeam: 0.15},
	Tier4: {CategoryTeam: 0.15},
}

// constraintAdjustments boost the categories that work the constraint and
// take a little from the ones that don't.
var constraintAdjustments = map[constraint.Value]Weights{
	constraint.Leads:    {CategoryConstraint: 0.10, CategoryLearning: 0.05, CategoryTeam: -0.05},
	constraint.Sales:    {CategoryRevenue: 0.15, CategoryFramework: 0.05, CategoryHabit: -0.05},
	constraint.Delivery: {CategoryFramework: 0.10, CategoryTeam: 0.10, CategoryRevenue: -0.05},
	constraint.Profit:   {CategoryRevenue: 0.10, CategoryFramework: 0.05, CategoryLearning: -0.05},
	constraint.Unknown:  {CategoryLearning: 0.05, CategoryConstraint: 0.05},
}

// CategoryWeights computes tier- and constraint-adjusted weights, then
// applies history decay. Negative results are floored at zero.
func CategoryWeights(ctx Context, cfg Config, now time.Time) Weights {
	w := BaselineWeights()
	w.add(tierAdjustments[ctx.Tier])
	w.add(constraintAdjustments[ctx.Constraint])
	for cat, v := range w {
		if v < 0 {
			w[cat] = 0
		}
	}
	w.decay(ctx.History, cfg, now)
	return w
}

// Total returns the sum of all weights.
func (w Weights) Total() float64 {
	total := 0.0
	for _, cat := range Categories {
		total += w[cat]
	}
	return total
}

func (w Weights) add(adj Weights) {
	for cat, delta := range adj {
		w[cat] += delta
	}
}

// decay multiplies a category's weight by cfg.DecayFactor for every
// completion inside the decay window, never going below cfg.DecayFloor of
// the pre-decay weight.
func (w Weights) decay(history []Completion, cfg Config, now time.Time) {
	if cfg.DecayWindow <= 0 || cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		return
	}
	since := now.Add(-cfg.DecayWindow)
	recent := make(map[Category]int)
	for _, h := range history {
		if h.CompletedAt.After(since) && !h.CompletedAt.After(now) {
			recent[h.Category]++
		}
	}
	for cat, n := range recent {
		base, ok := w[cat]
		if !ok {
			continue
		}
		v := base
		for i := 0; i < n; i++ {
			v *= cfg.DecayFactor
		}
		if floor := base * cfg.DecayFloor; v < floor {
			v = floor
		}
		w[cat] = v
	}
}

// Package environment defines LocalEnvironment, the short-lived value
// bundle the tumor scheduler builds fresh for every component
// advancement: how much growth capacity is locally available, the
// effective growth rate for this component, and the mutation
// generator to consult for newly arising mutations this step.
package environment

import (
	"tumorsim/internal/growth"
	"tumorsim/internal/mutationgen"
)

// LocalEnvironment is constructed per-advancement by the tumor
// scheduler from the component's intrinsic rate, the tumor's
// LocalGrowthModel (only INTRINSIC is specified by the model), and the
// tumor's MutationGenerator. It carries no reference back to the
// lattice or scheduler: a component's advance method sees only this.
type LocalEnvironment struct {
	// GrowthCapacity is the net number of additional cells the
	// component may add this step without driving any touched site
	// over capacity (see tumor.expansionFreeCapacity).
	GrowthCapacity int
	// Rate is the effective growth rate for this advancement.
	Rate growth.Rate
	// Mutations samples and mints new mutations for this advancement.
	Mutations mutationgen.Source
	// SamplingLimit is the population-size threshold L below which a
	// multi-cell component resolves its growth events with Rate.Sampled
	// instead of Rate.Computed (growth.Rate.Resolved). Zero means use
	// growth.ExplicitSamplingLimit.
	SamplingLimit int
	// Stats, if non-nil, accumulates birth/death event counts across
	// every component advanced this step, for growth-count reporting
	// (spec.md §6's growth-count.csv). Nil-safe: a component may call
	// Stats.AddBirths/AddDeaths unconditionally.
	Stats *StepStats
}

// StepStats accumulates birth/death event counts across all components
// advanced within a single scheduler step.
type StepStats struct {
	Births int
	Deaths int
}

// AddBirths adds n to the running birth count. No-op if s is nil or n<=0.
func (s *StepStats) AddBirths(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.Births += n
}

// AddDeaths adds n to the running death count. No-op if s is nil or n<=0.
func (s *StepStats) AddDeaths(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.Deaths += n
}

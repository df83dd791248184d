// Package mutationgen implements per-advancement emission of new mutation
// records: for each enabled mutation kind, a count is sampled at a
// configured per-cell-per-step rate and that many fresh Mutation values
// are minted through a genotype.Store. A decorator (Capped) wraps a
// Generator to cut off emission after a threshold step or a threshold
// total mutation count, keeping that cross-cutting concern out of the
// core sampling logic (spec.md design note: "model cutoffs as a
// decorator, not global static state").
package mutationgen

import (
	"fmt"
	"sync/atomic"

	"tumorsim/internal/genotype"
	"tumorsim/internal/rng"
)

// RateType selects how a kind's event count is sampled from its mean
// per-cell-per-step rate.
type RateType string

const (
	// RatePoisson samples the total event count as Poisson(meanRate * cellCount).
	RatePoisson RateType = "POISSON"
	// RateBernoulli samples one Bernoulli(meanRate) trial per cell and
	// sums them; for large cell counts this is approximated by the same
	// semi-stochastic discretization the growth model uses, since a
	// literal per-cell loop over millions of cells is not viable.
	RateBernoulli RateType = "BERNOULLI"
)

// exactBernoulliLimit is the cell count at or below which RateBernoulli
// runs a literal per-cell trial loop instead of the discretized
// approximation; mirrors growth.ExplicitSamplingLimit's rationale.
const exactBernoulliLimit = 10000

// Distribution samples a scalar-mutation selection coefficient.
type Distribution interface {
	Sample(s *rng.Source) float64
}

// Delta always returns the same value: a fixed-effect selection
// coefficient distribution.
type Delta struct{ Value float64 }

func (d Delta) Sample(*rng.Source) float64 { return d.Value }

// Exponential samples a selection coefficient from an exponential
// distribution with the given mean.
type Exponential struct{ Mean float64 }

func (e Exponential) Sample(s *rng.Source) float64 {
	if e.Mean <= 0 {
		return 0
	}
	return s.ExpFloat64() * e.Mean
}

// KindConfig configures emission of one mutation kind.
type KindConfig struct {
	Kind     genotype.Kind
	RateType RateType
	MeanRate float64 // per cell per step
	// SelectionCoeffDist is consulted only for genotype.KindScalar.
	SelectionCoeffDist Distribution
}

func (c KindConfig) validate() error {
	if c.MeanRate < 0 {
		return fmt.Errorf("mutationgen: mean rate for kind %s must be >= 0, got %v", c.Kind, c.MeanRate)
	}
	if c.Kind == genotype.KindScalar && c.SelectionCoeffDist == nil {
		return fmt.Errorf("mutationgen: scalar kind requires a selection coefficient distribution")
	}
	switch c.RateType {
	case RatePoisson, RateBernoulli:
	default:
		return fmt.Errorf("mutationgen: unsupported rate type %q", c.RateType)
	}
	return nil
}

// Source is anything that can be called once per component advancement
// to produce freshly minted mutations for that advancement.
type Source interface {
	Generate(s *rng.Source, cellCount int, timeStep int64) []genotype.Mutation
}

// Generator samples and mints mutations for every configured kind.
type Generator struct {
	store *genotype.Store
	kinds []KindConfig
}

// New validates kinds and builds a Generator backed by store.
func New(store *genotype.Store, kinds ...KindConfig) (*Generator, error) {
	for _, k := range kinds {
		if err := k.validate(); err != nil {
			return nil, err
		}
	}
	return &Generator{store: store, kinds: append([]KindConfig(nil), kinds...)}, nil
}

// Generate produces the mutations originating this step for a component
// advancing with cellCount cells.
func (g *Generator) Generate(s *rng.Source, cellCount int, timeStep int64) []genotype.Mutation {
	if cellCount <= 0 {
		return nil
	}
	var out []genotype.Mutation
	for _, kc := range g.kinds {
		k := g.sampleCount(s, kc, cellCount)
		for i := 0; i < k; i++ {
			coeff := 0.0
			if kc.Kind == genotype.KindScalar {
				coeff = kc.SelectionCoeffDist.Sample(s)
			}
			out = append(out, g.store.NewMutation(kc.Kind, timeStep, coeff))
		}
	}
	return out
}

func (g *Generator) sampleCount(s *rng.Source, kc KindConfig, cellCount int) int {
	if kc.MeanRate <= 0 {
		return 0
	}
	switch kc.RateType {
	case RatePoisson:
		return s.Poisson(kc.MeanRate * float64(cellCount))
	case RateBernoulli:
		if cellCount <= exactBernoulliLimit {
			count := 0
			for i := 0; i < cellCount; i++ {
				if s.Bernoulli(kc.MeanRate) {
					count++
				}
			}
			return count
		}
		return s.Discretize(kc.MeanRate * float64(cellCount))
	default:
		return 0
	}
}

// Capped wraps a Source and stops emitting once either a step threshold
// or a total-count threshold is reached. A threshold <= 0 means
// unlimited for that dimension.
type Capped struct {
	inner     Source
	maxStep   int64
	maxCount  int64
	generated atomic.Int64
}

// NewCapped builds a Capped decorator around inner.
func NewCapped(inner Source, maxStep, maxCount int64) *Capped {
	return &Capped{inner: inner, maxStep: maxStep, maxCount: maxCount}
}

func (c *Capped) Generate(s *rng.Source, cellCount int, timeStep int64) []genotype.Mutation {
	if c.maxStep > 0 && timeStep >= c.maxStep {
		return nil
	}
	if c.maxCount > 0 && c.generated.Load() >= c.maxCount {
		return nil
	}
	muts := c.inner.Generate(s, cellCount, timeStep)
	if len(muts) == 0 {
		return muts
	}
	if c.maxCount > 0 {
		remaining := c.maxCount - c.generated.Load()
		if remaining <= 0 {
			return nil
		}
		if int64(len(muts)) > remaining {
			muts = muts[:remaining]
		}
	}
	c.generated.Add(int64(len(muts)))
	return muts
}

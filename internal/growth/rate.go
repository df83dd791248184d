// Package growth implements the per-cell birth/death rate model (GrowthRate)
// and the sampled and semi-stochastic procedures for turning a population
// size and a net-growth cap into birth/death event counts.
package growth

import (
	"fmt"
	"math"

	"tumorsim/internal/rng"
)

// Rate is an immutable per-cell birth/death probability pair. b+d <= 1 is
// enforced at construction.
type Rate struct {
	b float64
	d float64
}

// New constructs a Rate, validating b+d <= 1 and both in [0, 1].
func New(b, d float64) (Rate, error) {
	if b < 0 || d < 0 {
		return Rate{}, fmt.Errorf("growth: birth and death rates must be >= 0, got b=%v d=%v", b, d)
	}
	if b+d > 1 {
		return Rate{}, fmt.Errorf("growth: birth+death rate must be <= 1, got b=%v d=%v sum=%v", b, d, b+d)
	}
	return Rate{b: b, d: d}, nil
}

// MustNew is New but panics on error, for test fixtures and constants.
func MustNew(b, d float64) Rate {
	r, err := New(b, d)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rate) Birth() float64 { return r.b }
func (r Rate) Death() float64 { return r.d }

// NetRate is b - d.
func (r Rate) NetRate() float64 { return r.b - r.d }

// GrowthFactor is 1 + b - d, the per-step population multiplier.
func (r Rate) GrowthFactor() float64 { return 1 + r.b - r.d }

// DoublingTime is ln(2) / ln(growthFactor). Returns +Inf when the growth
// factor is <= 1 (no net growth).
func (r Rate) DoublingTime() float64 {
	gf := r.GrowthFactor()
	if gf <= 1 {
		return math.Inf(1)
	}
	return math.Ln2 / math.Log(gf)
}

// Net constructs a symmetric Rate from a net growth rate r: b=(1+r)/2,
// d=(1-r)/2.
func Net(r float64) (Rate, error) {
	return New((1+r)/2, (1-r)/2)
}

// NoBirth constructs a Rate with zero birth probability and death rate d.
func NoBirth(d float64) (Rate, error) {
	return New(0, d)
}

// NoGrowth constructs a Rate with equal birth and death probability p/2,
// for a net-zero-growth population that still turns over.
func NoGrowth(p float64) (Rate, error) {
	return New(p/2, p/2)
}

// RescaleBirth returns a Rate with birth rate scaled by alpha and death
// rate unchanged. Fails if the rescaled birth rate falls outside [0, 1]
// or the new sum exceeds 1.
func (r Rate) RescaleBirth(alpha float64) (Rate, error) {
	return New(alpha*r.b, r.d)
}

// Counts is the outcome of resolving births and deaths against a
// population of N cells for one advancement.
type Counts struct {
	Births int
	Deaths int
}

// NetGrowth is Births - Deaths.
func (c Counts) NetGrowth() int { return c.Births - c.Deaths }

// Sampled draws one of {birth, death, none} per trial for each of n cells
// with probabilities (b, d, 1-b-d). A birth that would push net growth
// above cap is skipped (the cell neither divides nor dies that trial).
func (r Rate) Sampled(s *rng.Source, n int, cap int) Counts {
	var births, deaths int
	netGrowth := 0
	for i := 0; i < n; i++ {
		u := s.Float64()
		switch {
		case u < r.b:
			if netGrowth >= cap {
				continue
			}
			births++
			netGrowth++
		case u < r.b+r.d:
			deaths++
			netGrowth--
		}
	}
	return Counts{Births: births, Deaths: deaths}
}

// Computed resolves births and deaths semi-stochastically: the total
// event count and the death share of it are each discretized
// independently, and births are capped so that net growth never exceeds
// cap.
func (r Rate) Computed(s *rng.Source, n int, cap int) Counts {
	if n <= 0 || (r.b+r.d) <= 0 {
		return Counts{}
	}
	events := s.Discretize(float64(n) * (r.b + r.d))
	deathShare := r.d / (r.b + r.d)
	deaths := s.Discretize(float64(events) * deathShare)
	if deaths > events {
		deaths = events
	}
	births := events - deaths
	if births-deaths > cap {
		births = deaths + cap
	}
	return Counts{Births: births, Deaths: deaths}
}

// ExplicitSamplingLimit is the default population size L at or below
// which Resolved uses the fully-stochastic Sampled procedure.
const ExplicitSamplingLimit = 10

// Resolved dispatches to Sampled when n <= limit and Computed otherwise.
// limit <= 0 is treated as ExplicitSamplingLimit.
func (r Rate) Resolved(s *rng.Source, n int, cap int, limit int) Counts {
	if limit <= 0 {
		limit = ExplicitSamplingLimit
	}
	if n <= limit {
		return r.Sampled(s, n, cap)
	}
	return r.Computed(s, n, cap)
}

// Package component implements the three advanceable unit shapes the
// tumor scheduler drives each step: Cell (exactly one cell), Lineage
// (many cells sharing one genotype), and Deme (many cells, a
// heterogeneous internal population). All three satisfy Component and
// share the advance(env) contract: consume a LocalEnvironment, mutate
// their own cell count, and return any offspring produced this step.
//
// This mirrors the teacher's polymorphic-over-kind shapes in
// pkg/types/types.go (Particle/Voxel share a common coordinate
// contract but differ in payload); here the shared contract is
// advance/cellCount/genotype rather than position.
package component

import (
	"tumorsim/internal/environment"
	"tumorsim/internal/genotype"
	"tumorsim/internal/rng"
)

// Kind distinguishes the three component shapes for reconciliation logic
// in the scheduler, which must treat each differently.
type Kind int

const (
	KindCell Kind = iota
	KindLineage
	KindDeme
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "CELL"
	case KindLineage:
		return "LINEAGE"
	case KindDeme:
		return "DEME"
	default:
		return "UNKNOWN"
	}
}

// Component is an advanceable unit on the lattice.
type Component interface {
	Index() int64
	Kind() Kind
	CellCount() int
	IsDead() bool
	// Genotype returns the component's current genotype. For a Deme this
	// is the union over its members, approximated here by the genotype of
	// its largest member (see Deme.Genotype doc).
	Genotype() genotype.ID
	// Advance consumes one scheduler step's LocalEnvironment and returns
	// any offspring produced. store is the genotype arena backing this
	// trial, needed to mint daughter genotypes via forDaughter. The
	// component mutates its own cell count in place; offspring are not
	// yet placed on the lattice (the scheduler does that during
	// reconciliation).
	Advance(s *rng.Source, store *genotype.Store, env environment.LocalEnvironment, timeStep int64) []Component
}

var nextIndex int64

// NextIndex hands out a stable, strictly increasing component index. It
// is not safe for concurrent use across goroutines without external
// synchronization, matching the reference scheduler's single-threaded
// advancement loop.
func NextIndex() int64 {
	nextIndex++
	return nextIndex - 1
}

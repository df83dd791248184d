package tumor

import (
	"tumorsim/internal/component"
	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
)

// MigrationModel decides, for a live component currently at pCoord,
// whether it should move before advancement and where. Only PINNED
// (no migration at all) is specified by name in spec.md §6; the
// interface leaves room for others, per the spec's "others may exist"
// note on tumor.migrate.modelType.
type MigrationModel interface {
	// Target returns a candidate destination and true if the component
	// wants to move, or false to stay at pCoord. Per spec.md §9's
	// resolved open question, migration never targets a dead component
	// (callers must not invoke Target for one; Pinned never looks).
	Target(s *rng.Source, grid lattice.Grid, c component.Component, pCoord lattice.Coord) (lattice.Coord, bool)
}

// Pinned is the only MigrationModel spec.md names: components never
// migrate.
type Pinned struct{}

func (Pinned) Target(*rng.Source, lattice.Grid, component.Component, lattice.Coord) (lattice.Coord, bool) {
	return lattice.Coord{}, false
}

// IsAvailable reports whether target is a legal migration destination
// for c under grid's occupancy rules: for a single-occupancy grid,
// target must be empty; for multi-occupancy, any site is structurally
// available (capacity is enforced by the scheduler's reconciliation
// step, not by migration itself).
func IsAvailable(grid lattice.Grid, target lattice.Coord) bool {
	switch grid.(type) {
	case *lattice.Single:
		return grid.IsEmpty(target)
	default:
		return true
	}
}

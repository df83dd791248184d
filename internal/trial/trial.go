// Package trial implements the trial driver (C11): founder seeding, the
// step loop with its termination check, and the report-hook lifecycle. A
// driver runs exactly one trial; multi-trial sweeps are the concern of an
// outside launcher (spec.md §4.11).
package trial

import (
	"fmt"

	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
	"tumorsim/internal/tumor"
)

// Hook is the report observer contract: initializeSimulation fires once
// after founders are seeded and before initializeTrial, initializeTrial
// once per trial, processStep once per completed time step, and
// finalizeTrial/finalizeSimulation once each at the corresponding close.
type Hook interface {
	InitializeSimulation(tm *tumor.Tumor) error
	InitializeTrial(tm *tumor.Tumor, trialIndex int) error
	ProcessStep(tm *tumor.Tumor, trialIndex int) error
	FinalizeTrial(tm *tumor.Tumor, trialIndex int) error
	FinalizeSimulation(tm *tumor.Tumor) error
}

// Config bundles everything one trial run needs.
type Config struct {
	TrialIndex    int
	ComponentKind component.Kind
	InitialSize   int
	MaxStepCount  int64
	MaxTumorSize  int
	Tumor         *tumor.Tumor
	Store         *genotype.Store
	RNG           *rng.Source
	Hooks         []Hook
}

// Run seeds the founder(s), runs the hook lifecycle around a do-while
// step loop, and returns the first error encountered by any hook or by
// the scheduler itself. The step loop always executes at least one step
// before its termination predicate is consulted, matching the literal
// "Trivial trial" scenario (spec.md §8.1): one step always runs even
// when the termination predicate would already be false beforehand.
// reports.processStep is invoked with the *post-advance* state, so a
// sampled row's timeStep is the step that just completed, matching that
// same scenario's expected CSV row (`0,1,10,10`).
func Run(cfg Config) error {
	if err := SeedFounders(cfg.Tumor, cfg.RNG, cfg.ComponentKind, cfg.InitialSize, cfg.Store); err != nil {
		return fmt.Errorf("trial: seeding founders: %w", err)
	}
	for _, h := range cfg.Hooks {
		if err := h.InitializeSimulation(cfg.Tumor); err != nil {
			return fmt.Errorf("trial: initializeSimulation: %w", err)
		}
	}
	for _, h := range cfg.Hooks {
		if err := h.InitializeTrial(cfg.Tumor, cfg.TrialIndex); err != nil {
			return fmt.Errorf("trial: initializeTrial: %w", err)
		}
	}

	for {
		if err := cfg.Tumor.Advance(cfg.RNG); err != nil {
			return fmt.Errorf("trial: advancing step %d: %w", cfg.Tumor.TimeStep(), err)
		}
		for _, h := range cfg.Hooks {
			if err := h.ProcessStep(cfg.Tumor, cfg.TrialIndex); err != nil {
				return fmt.Errorf("trial: processStep at timeStep %d: %w", cfg.Tumor.TimeStep(), err)
			}
		}
		if !continues(cfg) {
			break
		}
	}

	for _, h := range cfg.Hooks {
		if err := h.FinalizeTrial(cfg.Tumor, cfg.TrialIndex); err != nil {
			return fmt.Errorf("trial: finalizeTrial: %w", err)
		}
	}
	for _, h := range cfg.Hooks {
		if err := h.FinalizeSimulation(cfg.Tumor); err != nil {
			return fmt.Errorf("trial: finalizeSimulation: %w", err)
		}
	}
	return nil
}

// continues implements spec.md §4.9/§5's termination predicate:
// timeStep < maxStepCount ∧ 0 < totalCellCount < maxTumorSize.
func continues(cfg Config) bool {
	t := cfg.Tumor
	return t.TimeStep() < cfg.MaxStepCount && t.TotalCellCount() > 0 && t.TotalCellCount() < cfg.MaxTumorSize
}

// SeedFounders places the trial's founder components per
// componentType×spatialType (spec.md §6's componentType config key and
// §4.11's "construct founder(s)"). A CELL trial on a single-site
// lattice (spatialType=POINT, or any deployment whose grid has no real
// neighbors) stacks every founder at the origin, since the Moore
// neighbor-chaining rule below only makes sense once a neighbor can
// differ from the site itself. Otherwise a CELL trial places
// initialSize single-cell founders one at a time: the first at the
// origin, every subsequent one at a uniformly random empty Moore
// neighbor of the previously placed founder (spec.md §9's stated
// edge-case policy), returning an error if no empty neighbor exists. A
// LINEAGE or DEME trial places exactly one founder component of
// cellCount=initialSize at the origin, since those kinds are already
// defined by an aggregate cell count rather than one cell per
// component.
func SeedFounders(tm *tumor.Tumor, s *rng.Source, kind component.Kind, initialSize int, store *genotype.Store) error {
	if initialSize <= 0 {
		return fmt.Errorf("trial: initialSize must be positive, got %d", initialSize)
	}
	origin := lattice.Coord{}
	switch kind {
	case component.KindCell:
		singleSite := tm.Grid().Side() <= 1
		prev := origin
		for i := 0; i < initialSize; i++ {
			coord := prev
			if i > 0 && !singleSite {
				var ok bool
				coord, ok = randomEmptyMooreNeighbor(tm, s, prev)
				if !ok {
					return fmt.Errorf("trial: no empty Moore neighbor available to place founder %d of %d", i+1, initialSize)
				}
			}
			root := store.Root()
			if err := tm.PlaceFounder(component.NewCell(root), coord); err != nil {
				return err
			}
			prev = coord
		}
	case component.KindLineage:
		root := store.Root()
		return tm.PlaceFounder(component.NewLineage(initialSize, root), origin)
	case component.KindDeme:
		root := store.Root()
		return tm.PlaceFounder(component.NewDeme(initialSize, root), origin)
	default:
		return fmt.Errorf("trial: unknown component kind %v", kind)
	}
	return nil
}

// randomEmptyMooreNeighbor returns a uniformly random empty Moore
// neighbor of coord, or false if every neighbor is occupied.
func randomEmptyMooreNeighbor(tm *tumor.Tumor, s *rng.Source, coord lattice.Coord) (lattice.Coord, bool) {
	grid := tm.Grid()
	neighbors := lattice.Moore(coord, grid.Side())
	s.Shuffle(len(neighbors), func(i, j int) { neighbors[i], neighbors[j] = neighbors[j], neighbors[i] })
	for _, n := range neighbors {
		if grid.IsEmpty(n) {
			return n, true
		}
	}
	return lattice.Coord{}, false
}

package trial

import (
	"testing"

	"tumorsim/internal/capacity"
	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/growth"
	"tumorsim/internal/lattice"
	"tumorsim/internal/mutationgen"
	"tumorsim/internal/rng"
	"tumorsim/internal/tumor"
)

func mustGen(store *genotype.Store) mutationgen.Source {
	gen, err := mutationgen.New(store)
	if err != nil {
		panic(err)
	}
	return gen
}

type recordingHook struct {
	steps            []int64
	initSimCalled    int
	initTrialCalled  int
	finalTrialCalled int
	finalSimCalled   int
}

func (h *recordingHook) InitializeSimulation(tm *tumor.Tumor) error {
	h.initSimCalled++
	return nil
}
func (h *recordingHook) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	h.initTrialCalled++
	return nil
}
func (h *recordingHook) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	h.steps = append(h.steps, tm.TimeStep())
	return nil
}
func (h *recordingHook) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error {
	h.finalTrialCalled++
	return nil
}
func (h *recordingHook) FinalizeSimulation(tm *tumor.Tumor) error {
	h.finalSimCalled++
	return nil
}

// TestTrivialTrialRunsExactlyOneStep reproduces spec.md §8 scenario 1:
// componentType=CELL, spatialType=POINT, initialSize=10, maxStepCount=1,
// maxTumorSize=10, b=d=0 — exactly one step runs, and the final state is
// cellCount=10, componentCount=10.
func TestTrivialTrialRunsExactlyOneStep(t *testing.T) {
	store := genotype.NewStore()
	grid := lattice.NewMulti(1)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 10},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	hook := &recordingHook{}
	cfg := Config{
		TrialIndex:    0,
		ComponentKind: component.KindCell,
		InitialSize:   10,
		MaxStepCount:  1,
		MaxTumorSize:  10,
		Tumor:         tm,
		Store:         store,
		RNG:           rng.New(0),
		Hooks:         []Hook{hook},
	}
	if err := Run(cfg); err != nil {
		t.Fatal(err)
	}
	if len(hook.steps) != 1 || hook.steps[0] != 1 {
		t.Fatalf("expected exactly one processStep call at timeStep 1, got %v", hook.steps)
	}
	if tm.TotalCellCount() != 10 || tm.ComponentCount() != 10 {
		t.Fatalf("expected cellCount=10 componentCount=10, got %d/%d", tm.TotalCellCount(), tm.ComponentCount())
	}
	if hook.initSimCalled != 1 || hook.initTrialCalled != 1 || hook.finalTrialCalled != 1 || hook.finalSimCalled != 1 {
		t.Fatalf("expected each lifecycle hook called exactly once, got %+v", hook)
	}
}

// TestSeedFoundersCellPlacesDistinctSites verifies that CELL founder
// seeding chains each subsequent founder onto an empty Moore neighbor of
// the previous one, producing initialSize distinct occupied sites.
func TestSeedFoundersCellPlacesDistinctSites(t *testing.T) {
	store := genotype.NewStore()
	side := 50
	grid := lattice.NewSingle(side)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 1},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	s := rng.New(7)
	if err := SeedFounders(tm, s, component.KindCell, 5, store); err != nil {
		t.Fatal(err)
	}
	if tm.ComponentCount() != 5 {
		t.Fatalf("expected 5 founder components, got %d", tm.ComponentCount())
	}
	if tm.TotalCellCount() != 5 {
		t.Fatalf("expected 5 founder cells, got %d", tm.TotalCellCount())
	}
}

// TestSeedFoundersLineageSingleComponent verifies a LINEAGE trial seeds
// exactly one founder component carrying all initialSize cells.
func TestSeedFoundersLineageSingleComponent(t *testing.T) {
	store := genotype.NewStore()
	grid := lattice.NewMulti(1)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 1 << 20},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	if err := SeedFounders(tm, rng.New(1), component.KindLineage, 100, store); err != nil {
		t.Fatal(err)
	}
	if tm.ComponentCount() != 1 {
		t.Fatalf("expected 1 founder component for LINEAGE, got %d", tm.ComponentCount())
	}
	if tm.TotalCellCount() != 100 {
		t.Fatalf("expected 100 founder cells, got %d", tm.TotalCellCount())
	}
}

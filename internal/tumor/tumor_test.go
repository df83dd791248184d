package tumor

import (
	"testing"

	"tumorsim/internal/capacity"
	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/growth"
	"tumorsim/internal/lattice"
	"tumorsim/internal/mutationgen"
	"tumorsim/internal/rng"
)

// TestTrivialTrial reproduces spec.md §8 scenario 1: 10 Cells at a
// single point (modeled as a multi-occupancy point lattice, since a
// POINT deployment must hold more than one Cell at once), b=d=0, one
// step, no change.
func TestTrivialTrial(t *testing.T) {
	store := genotype.NewStore()
	grid := lattice.NewMulti(1)
	tm := New(Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 10},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	root := store.Root()
	for i := 0; i < 10; i++ {
		if err := tm.PlaceFounder(component.NewCell(root), lattice.Coord{}); err != nil {
			t.Fatal(err)
		}
	}
	s := rng.New(0)
	if err := tm.Advance(s); err != nil {
		t.Fatal(err)
	}
	if tm.TotalCellCount() != 10 {
		t.Fatalf("expected cellCount 10 with b=d=0, got %d", tm.TotalCellCount())
	}
	if tm.ComponentCount() != 10 {
		t.Fatalf("expected componentCount 10, got %d", tm.ComponentCount())
	}
}

func mustGen(store *genotype.Store) mutationgen.Source {
	gen, err := mutationgen.New(store)
	if err != nil {
		panic(err)
	}
	return gen
}

// TestPointLineageGrowth exercises the LINEAGE/POINT scenario
// (spec.md §8 scenario 2 shape): a single Lineage growing on an
// effectively unbounded point lattice.
func TestPointLineageGrowth(t *testing.T) {
	store := genotype.NewStore()
	grid := lattice.NewMulti(1)
	rate := growth.MustNew(0.55, 0.45)
	tm := New(Config{
		Grid:          grid,
		Capacity:      capacity.Uniform{K: 1 << 30},
		Store:         store,
		Rate:          rate,
		Mutations:     mustGen(store),
		SamplingLimit: growth.ExplicitSamplingLimit,
	})
	root := store.Root()
	lin := component.NewLineage(1, root)
	if err := tm.PlaceFounder(lin, lattice.Coord{}); err != nil {
		t.Fatal(err)
	}
	s := rng.New(1)
	for i := 0; i < 50; i++ {
		if err := tm.Advance(s); err != nil {
			t.Fatal(err)
		}
		if tm.TotalCellCount() == 0 {
			break
		}
	}
	if tm.TotalCellCount() == 0 {
		t.Skip("extinct by chance with b>d is statistically rare but not impossible for a single seed")
	}
}

func TestSingleOccupancySiteNeverOverCapacity(t *testing.T) {
	store := genotype.NewStore()
	side := 20
	grid := lattice.NewSingle(side)
	tm := New(Config{
		Grid:          grid,
		Capacity:      capacity.Uniform{K: 1},
		Store:         store,
		Rate:          growth.MustNew(0.55, 0.45),
		Mutations:     mustGen(store),
		SamplingLimit: growth.ExplicitSamplingLimit,
	})
	root := store.Root()
	if err := tm.PlaceFounder(component.NewCell(root), lattice.Coord{X: side / 2, Y: side / 2, Z: side / 2}); err != nil {
		t.Fatal(err)
	}
	s := rng.New(2)
	for i := 0; i < 200; i++ {
		if err := tm.Advance(s); err != nil {
			t.Fatal(err)
		}
		if tm.TotalCellCount() == 0 || tm.TotalCellCount() > side*side*side/2 {
			break
		}
	}
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				if n := grid.CountOccupants(lattice.Coord{X: x, Y: y, Z: z}); n > 1 {
					t.Fatalf("single-occupancy site over capacity at (%d,%d,%d): %d occupants", x, y, z, n)
				}
			}
		}
	}
}

func TestDemeNeverExceedsSiteCapacityAfterReconciliation(t *testing.T) {
	store := genotype.NewStore()
	side := 20
	grid := lattice.NewSingle(side)
	tm := New(Config{
		Grid:          grid,
		Capacity:      capacity.Uniform{K: 1000},
		Store:         store,
		Rate:          growth.MustNew(1, 0),
		Mutations:     mustGen(store),
		SamplingLimit: growth.ExplicitSamplingLimit,
	})
	root := store.Root()
	origin := lattice.Coord{X: side / 2, Y: side / 2, Z: side / 2}
	deme := component.NewDeme(1000, root)
	if err := tm.PlaceFounder(deme, origin); err != nil {
		t.Fatal(err)
	}
	s := rng.New(3)
	if err := tm.Advance(s); err != nil {
		t.Fatal(err)
	}
	total := 0
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				c := lattice.Coord{X: x, Y: y, Z: z}
				occ := grid.Occupants(c)
				for range occ {
					total += tm.cellsAt(c)
				}
				if tm.cellsAt(c) > 1000 {
					t.Fatalf("site %v over capacity: %d", c, tm.cellsAt(c))
				}
			}
		}
	}
	if total < 2000 {
		t.Fatalf("expected deme split to roughly double population, got %d", total)
	}
}

package sampling

import (
	"testing"

	"tumorsim/internal/capacity"
	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/growth"
	"tumorsim/internal/lattice"
	"tumorsim/internal/mutationgen"
	"tumorsim/internal/tumor"
)

func mustGen(store *genotype.Store) mutationgen.Source {
	gen, err := mutationgen.New(store)
	if err != nil {
		panic(err)
	}
	return gen
}

// TestCollectAccumulatesAtLeastTargetSize builds a small block of
// single-cell Cells on a Single lattice and checks a bulk sample centered
// on it gathers at least the requested cell count.
func TestCollectAccumulatesAtLeastTargetSize(t *testing.T) {
	store := genotype.NewStore()
	side := 10
	grid := lattice.NewSingle(side)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 1},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	root := store.Root()
	center := lattice.Coord{X: 5, Y: 5, Z: 5}
	if err := tm.PlaceFounder(component.NewCell(root), center); err != nil {
		t.Fatal(err)
	}
	for _, n := range lattice.Moore(center, side) {
		if err := tm.PlaceFounder(component.NewCell(root), n); err != nil {
			t.Fatal(err)
		}
	}

	sample := Collect(tm, center, 5)
	if sample.TotalCells() < 5 {
		t.Fatalf("expected at least 5 accumulated cells, got %d", sample.TotalCells())
	}
}

// TestVAFFoundersAreClonal seeds every Cell from the same root genotype
// (no mutations) and checks the sample has no distinct mutations and
// therefore no clonal mutations either (VAF is only defined over
// observed mutations).
func TestVAFFoundersAreClonal(t *testing.T) {
	store := genotype.NewStore()
	side := 5
	grid := lattice.NewSingle(side)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 1},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	root := store.Root()
	center := lattice.Coord{X: 2, Y: 2, Z: 2}
	if err := tm.PlaceFounder(component.NewCell(root), center); err != nil {
		t.Fatal(err)
	}

	sample := Collect(tm, center, 1)
	if len(sample.DistinctMutations()) != 0 {
		t.Fatalf("expected no mutations on an unmutated founder, got %d", len(sample.DistinctMutations()))
	}
}

// TestVAFDetectsMutationPresentInSubsetOfSample seeds two genotypes at
// two neighboring sites: one carrying an extra mutation, one not. The
// mutation's frequency over the combined sample should be exactly 1/2.
func TestVAFDetectsMutationPresentInSubsetOfSample(t *testing.T) {
	store := genotype.NewStore()
	side := 5
	grid := lattice.NewSingle(side)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 1},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	root := store.Root()
	m := store.NewMutation(genotype.KindNeutral, 0, 0)
	mutated := store.ForDaughter(root, []genotype.Mutation{m})

	a := lattice.Coord{X: 2, Y: 2, Z: 2}
	b := lattice.Coord{X: 2, Y: 2, Z: 3}
	if err := tm.PlaceFounder(component.NewCell(root), a); err != nil {
		t.Fatal(err)
	}
	if err := tm.PlaceFounder(component.NewCell(mutated), b); err != nil {
		t.Fatal(err)
	}

	sample := Collect(tm, a, 2)
	if sample.TotalCells() != 2 {
		t.Fatalf("expected 2 cells in sample, got %d", sample.TotalCells())
	}
	vaf := sample.VAF()
	freq, ok := vaf[m]
	if !ok {
		t.Fatal("expected the mutation to appear in the sample's VAF map")
	}
	if freq != 0.5 {
		t.Fatalf("expected frequency 0.5, got %v", freq)
	}
	if len(sample.ClonalMutations()) != 0 {
		t.Fatalf("mutation present in only half the sample must not be clonal")
	}
}

func TestMutationalDistanceSymmetricAndZeroSelf(t *testing.T) {
	store := genotype.NewStore()
	m1 := store.NewMutation(genotype.KindNeutral, 0, 0)
	m2 := store.NewMutation(genotype.KindNeutral, 0, 0)
	m3 := store.NewMutation(genotype.KindNeutral, 0, 0)

	a := NewMutationSet([]genotype.Mutation{m1, m2})
	b := NewMutationSet([]genotype.Mutation{m2, m3})

	dAB := MutationalDistance(a, b)
	dBA := MutationalDistance(b, a)
	if dAB != dBA {
		t.Fatalf("MutationalDistance must be symmetric: %+v != %+v", dAB, dBA)
	}
	if dAB.Shared != 1 || dAB.IntDistance != 2 {
		t.Fatalf("unexpected distance: %+v", dAB)
	}

	dSelf := MutationalDistance(a, a)
	if dSelf.IntDistance != 0 {
		t.Fatalf("intDistance(A,A) must be 0, got %d", dSelf.IntDistance)
	}
}

func TestSummaryQuartilesOrdered(t *testing.T) {
	store := genotype.NewStore()
	side := 5
	grid := lattice.NewSingle(side)
	tm := tumor.New(tumor.Config{
		Grid:      grid,
		Capacity:  capacity.Uniform{K: 1},
		Store:     store,
		Rate:      growth.MustNew(0, 0),
		Mutations: mustGen(store),
	})
	root := store.Root()
	coords := []lattice.Coord{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 2}, {X: 1, Y: 1, Z: 3}, {X: 1, Y: 1, Z: 4}}
	genos := make([]genotype.ID, len(coords))
	var accumulated []genotype.Mutation
	for i, c := range coords {
		m := store.NewMutation(genotype.KindNeutral, int64(i), 0)
		accumulated = append(accumulated, m)
		g := store.ForDaughter(root, accumulated[:i+1])
		genos[i] = g
		if err := tm.PlaceFounder(component.NewCell(g), c); err != nil {
			t.Fatal(err)
		}
	}
	sample := Collect(tm, coords[0], 4)
	sum := sample.Summary()
	if !(sum.Min <= sum.Q1 && sum.Q1 <= sum.Median && sum.Median <= sum.Q3 && sum.Q3 <= sum.Max) {
		t.Fatalf("summary quartiles out of order: %+v", sum)
	}
}

package component

import (
	"testing"

	"tumorsim/internal/environment"
	"tumorsim/internal/genotype"
	"tumorsim/internal/growth"
	"tumorsim/internal/mutationgen"
	"tumorsim/internal/rng"
)

func noMutationEnv(rate growth.Rate, cap int) environment.LocalEnvironment {
	return environment.LocalEnvironment{
		GrowthCapacity: cap,
		Rate:           rate,
		Mutations:      noopSource{},
	}
}

type noopSource struct{}

func (noopSource) Generate(*rng.Source, int, int64) []genotype.Mutation { return nil }

func TestCellDeathRemovesCell(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	c := NewCell(root)
	s := rng.New(1)
	env := noMutationEnv(growth.MustNew(0, 1), 10)
	c.Advance(s, store, env, 0)
	if !c.IsDead() || c.CellCount() != 0 {
		t.Fatal("expected cell to die with death rate 1")
	}
}

func TestCellBirthProducesDaughter(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	c := NewCell(root)
	s := rng.New(2)
	env := noMutationEnv(growth.MustNew(1, 0), 10)
	offspring := c.Advance(s, store, env, 0)
	if len(offspring) != 1 {
		t.Fatalf("expected one daughter, got %d", len(offspring))
	}
	if offspring[0].CellCount() != 1 {
		t.Fatalf("cell daughter must have cell count 1")
	}
}

func TestCellBirthBlockedByZeroCapacity(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	c := NewCell(root)
	s := rng.New(3)
	env := noMutationEnv(growth.MustNew(1, 0), 0)
	offspring := c.Advance(s, store, env, 0)
	if offspring != nil {
		t.Fatalf("expected no offspring when growth capacity is zero, got %d", len(offspring))
	}
}

func TestLineageDaughtersAlwaysSizeOne(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	l := NewLineage(100, root)
	s := rng.New(4)
	gen, err := mutationgen.New(store, mutationgen.KindConfig{
		Kind: genotype.KindNeutral, RateType: mutationgen.RateBernoulli, MeanRate: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	env := environment.LocalEnvironment{
		GrowthCapacity: 1000,
		Rate:           growth.MustNew(0.1, 0.1),
		Mutations:      gen,
	}
	offspring := l.Advance(s, store, env, 0)
	for _, o := range offspring {
		if o.CellCount() != 1 {
			t.Fatalf("lineage daughter must have cell count 1, got %d", o.CellCount())
		}
	}
}

func TestLineageCellCountNeverNegative(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	l := NewLineage(3, root)
	s := rng.New(5)
	env := noMutationEnv(growth.MustNew(0, 1), 100)
	for i := 0; i < 10; i++ {
		l.Advance(s, store, env, int64(i))
		if l.CellCount() < 0 {
			t.Fatalf("lineage cell count went negative: %d", l.CellCount())
		}
	}
}

func TestDemeNeverEmitsOffspring(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	d := NewDeme(1000, root)
	s := rng.New(6)
	gen, _ := mutationgen.New(store, mutationgen.KindConfig{
		Kind: genotype.KindNeutral, RateType: mutationgen.RatePoisson, MeanRate: 0.05,
	})
	env := environment.LocalEnvironment{
		GrowthCapacity: 2000,
		Rate:           growth.MustNew(1, 0),
		Mutations:      gen,
	}
	for i := 0; i < 20; i++ {
		offspring := d.Advance(s, store, env, int64(i))
		if offspring != nil {
			t.Fatalf("deme must never emit offspring during advance, got %d", len(offspring))
		}
	}
	if d.CellCount() <= 1000 {
		t.Fatalf("expected deme to have grown, got %d", d.CellCount())
	}
}

func TestDemeSplitPreservesCellCount(t *testing.T) {
	store := genotype.NewStore()
	root := store.Root()
	d := NewDeme(1000, root)
	before := d.CellCount()
	s := rng.New(7)
	clone := d.Split(s, 0.5)
	after := d.CellCount() + clone.CellCount()
	if after != before {
		t.Fatalf("split must preserve total cell count: before=%d after=%d", before, after)
	}
}

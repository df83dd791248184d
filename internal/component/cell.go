package component

import (
	"tumorsim/internal/environment"
	"tumorsim/internal/genotype"
	"tumorsim/internal/rng"
)

// Cell is a component with exactly one cell. It divides by producing a
// fresh daughter Cell whose genotype is a child of its own genotype,
// augmented with any mutations generated this step; it dies outright
// (cellCount drops to 0) rather than shrinking.
type Cell struct {
	index int64
	dead  bool
	geno  genotype.ID
}

// NewCell creates a live Cell carrying genotype g.
func NewCell(g genotype.ID) *Cell {
	return &Cell{index: NextIndex(), geno: g}
}

func (c *Cell) Index() int64          { return c.index }
func (c *Cell) Kind() Kind            { return KindCell }
func (c *Cell) Genotype() genotype.ID { return c.geno }
func (c *Cell) IsDead() bool          { return c.dead }

func (c *Cell) CellCount() int {
	if c.dead {
		return 0
	}
	return 1
}

// Advance implements the Cell contract: death is sampled first (the
// single cell dies outright); otherwise birth is sampled, and if the
// local growth capacity allows at least one additional cell, a
// daughter Cell is produced carrying a child genotype augmented with
// any mutations the environment's generator mints this step.
func (c *Cell) Advance(s *rng.Source, store *genotype.Store, env environment.LocalEnvironment, timeStep int64) []Component {
	if c.dead {
		return nil
	}
	if s.Bernoulli(env.Rate.Death()) {
		c.dead = true
		env.Stats.AddDeaths(1)
		return nil
	}
	if env.GrowthCapacity <= 0 {
		return nil
	}
	if !s.Bernoulli(env.Rate.Birth()) {
		return nil
	}
	env.Stats.AddBirths(1)
	newMuts := env.Mutations.Generate(s, 1, timeStep)
	daughterGeno := store.ForDaughter(c.geno, newMuts)
	return []Component{NewCell(daughterGeno)}
}

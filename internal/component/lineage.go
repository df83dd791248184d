package component

import (
	"tumorsim/internal/environment"
	"tumorsim/internal/genotype"
	"tumorsim/internal/rng"
)

// Lineage is a component with a non-negative cell count sharing a
// single genotype. Advancement resolves a (births, deaths) pair from
// the environment's growth rate; for every mutation newly generated
// this step, one cell is detached into a daughter Lineage carrying the
// augmented genotype, so a Lineage's daughters always have cell count
// 1 (spec edge case: the new genotype attaches to the daughter, never
// to the parent).
type Lineage struct {
	index     int64
	cellCount int
	geno      genotype.ID
}

// NewLineage creates a live Lineage of cellCount cells carrying genotype g.
func NewLineage(cellCount int, g genotype.ID) *Lineage {
	return &Lineage{index: NextIndex(), cellCount: cellCount, geno: g}
}

// AdjustCellCount changes cellCount by delta, flooring at 0. Used by
// the scheduler's reconciliation step to transfer excess cells between
// two same-genotype Lineages (spec.md §4.9 reconciliation option A) or
// to split off a daughter clone (option B).
func (l *Lineage) AdjustCellCount(delta int) {
	l.cellCount += delta
	if l.cellCount < 0 {
		l.cellCount = 0
	}
}

func (l *Lineage) Index() int64          { return l.index }
func (l *Lineage) Kind() Kind            { return KindLineage }
func (l *Lineage) Genotype() genotype.ID { return l.geno }
func (l *Lineage) IsDead() bool          { return l.cellCount == 0 }
func (l *Lineage) CellCount() int        { return l.cellCount }

func (l *Lineage) Advance(s *rng.Source, store *genotype.Store, env environment.LocalEnvironment, timeStep int64) []Component {
	if l.cellCount <= 0 {
		return nil
	}
	counts := env.Rate.Resolved(s, l.cellCount, env.GrowthCapacity, env.SamplingLimit)
	env.Stats.AddBirths(counts.Births)
	env.Stats.AddDeaths(counts.Deaths)
	l.cellCount += counts.NetGrowth()
	if l.cellCount < 0 {
		l.cellCount = 0
	}
	if l.cellCount == 0 {
		return nil
	}
	newMuts := env.Mutations.Generate(s, l.cellCount, timeStep)
	if len(newMuts) == 0 {
		return nil
	}
	offspring := make([]Component, 0, len(newMuts))
	for _, m := range newMuts {
		if l.cellCount <= 0 {
			break
		}
		daughterGeno := store.ForDaughter(l.geno, []genotype.Mutation{m})
		l.cellCount--
		offspring = append(offspring, NewLineage(1, daughterGeno))
	}
	return offspring
}

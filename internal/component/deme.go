package component

import (
	"tumorsim/internal/environment"
	"tumorsim/internal/genotype"
	"tumorsim/internal/rng"
)

// demeMember is one internal, genotype-homogeneous sub-population of a
// Deme. The spec leaves Deme's internal bookkeeping
// implementation-free beyond "preserves cellCount and per-mutation
// frequencies after split"; a slice of (genotype, count) pairs is the
// simplest representation that satisfies that.
type demeMember struct {
	geno  genotype.ID
	count int
}

// Deme is a component with a non-negative cell count and a
// heterogeneous internal population of genotypes. It advances as a
// whole (resolving births/deaths against its total cell count) and
// never emits offspring during Advance; it instead *divides* by
// splitting its cell population between its site and a neighbor,
// which is scheduler-level reconciliation logic (see internal/tumor),
// not something Deme itself does.
type Deme struct {
	index   int64
	members []demeMember
}

// NewDeme creates a live Deme with a single founding member of
// cellCount cells carrying genotype g.
func NewDeme(cellCount int, g genotype.ID) *Deme {
	return &Deme{index: NextIndex(), members: []demeMember{{geno: g, count: cellCount}}}
}

func (d *Deme) Index() int64 { return d.index }
func (d *Deme) Kind() Kind   { return KindDeme }
func (d *Deme) IsDead() bool { return d.CellCount() == 0 }

func (d *Deme) CellCount() int {
	total := 0
	for _, m := range d.members {
		total += m.count
	}
	return total
}

// Genotype returns the genotype of the Deme's largest member, standing
// in for "the union over its members" where a single representative
// genotype is required (e.g. lattice-level genotype reporting).
func (d *Deme) Genotype() genotype.ID {
	best, bestCount := genotype.NilID, -1
	for _, m := range d.members {
		if m.count > bestCount {
			best, bestCount = m.geno, m.count
		}
	}
	return best
}

// Member is one internal genotype-homogeneous sub-population of a
// Deme, exposed read-only for VAF sampling and reports.
type Member struct {
	Genotype  genotype.ID
	CellCount int
}

// Members returns a snapshot of the Deme's internal composition.
func (d *Deme) Members() []Member {
	out := make([]Member, len(d.members))
	for i, m := range d.members {
		out[i] = Member{Genotype: m.geno, CellCount: m.count}
	}
	return out
}

// Advance resolves (births, deaths) for the Deme's total cell count,
// distributes them among internal members weighted by member size,
// seeds any newly generated mutations into a freshly split-off
// internal member, and always returns nil: Demes never emit offspring
// during advancement (spec invariant, asserted by the absence of a
// return value here rather than left to caller discipline).
func (d *Deme) Advance(s *rng.Source, store *genotype.Store, env environment.LocalEnvironment, timeStep int64) []Component {
	total := d.CellCount()
	if total <= 0 {
		return nil
	}
	counts := env.Rate.Resolved(s, total, env.GrowthCapacity, env.SamplingLimit)
	env.Stats.AddBirths(counts.Births)
	env.Stats.AddDeaths(counts.Deaths)
	d.applyDeaths(s, counts.Deaths)
	d.applyBirths(s, counts.Births)

	newMuts := env.Mutations.Generate(s, d.CellCount(), timeStep)
	for _, m := range newMuts {
		d.seedMutation(s, store, m)
	}
	return nil
}

func (d *Deme) applyDeaths(s *rng.Source, deaths int) {
	for i := 0; i < deaths; i++ {
		idx := d.weightedMemberIndex(s)
		if idx < 0 {
			break
		}
		d.members[idx].count--
	}
	d.compact()
}

func (d *Deme) applyBirths(s *rng.Source, births int) {
	for i := 0; i < births; i++ {
		idx := d.weightedMemberIndex(s)
		if idx < 0 {
			break
		}
		d.members[idx].count++
	}
}

// seedMutation splits one cell off a weighted-random member into a new
// member carrying the augmented genotype, modeling the mutation
// arising in one cell of that member's sub-population.
func (d *Deme) seedMutation(s *rng.Source, store *genotype.Store, m genotype.Mutation) {
	idx := d.weightedMemberIndex(s)
	if idx < 0 || d.members[idx].count <= 0 {
		return
	}
	d.members[idx].count--
	childGeno := store.ForDaughter(d.members[idx].geno, []genotype.Mutation{m})
	d.members = append(d.members, demeMember{geno: childGeno, count: 1})
	d.compact()
}

// weightedMemberIndex selects a member index with probability
// proportional to its current cell count, or -1 if the Deme is empty.
func (d *Deme) weightedMemberIndex(s *rng.Source) int {
	total := d.CellCount()
	if total <= 0 {
		return -1
	}
	cdf := make([]float64, len(d.members))
	cum := 0.0
	for i, m := range d.members {
		cum += float64(m.count) / float64(total)
		cdf[i] = cum
	}
	cdf[len(cdf)-1] = 1.0
	return s.SelectCDF(cdf)
}

func (d *Deme) compact() {
	out := d.members[:0]
	for _, m := range d.members {
		if m.count > 0 {
			out = append(out, m)
		}
	}
	d.members = out
}

// Split divides the Deme's internal population between a retained
// parent share and a clone, assigning each member's cells to one side
// or the other with probability p per cell (the scheduler's
// reconciliation step supplies p=0.5 per spec). Returns the clone; d
// is mutated in place to hold only the retained share.
func (d *Deme) Split(s *rng.Source, p float64) *Deme {
	clone := &Deme{index: NextIndex()}
	var kept []demeMember
	for _, m := range d.members {
		toClone := 0
		for i := 0; i < m.count; i++ {
			if s.Bernoulli(p) {
				toClone++
			}
		}
		if toClone > 0 {
			clone.members = append(clone.members, demeMember{geno: m.geno, count: toClone})
		}
		if remain := m.count - toClone; remain > 0 {
			kept = append(kept, demeMember{geno: m.geno, count: remain})
		}
	}
	d.members = kept
	return clone
}

// MoveCellsTo moves exactly n cells from d to dst, chosen one at a
// time via weighted-random member selection so larger sub-populations
// contribute proportionally more. Used to nudge a probabilistic Split
// result into a caller-required [min, max] clone size without
// discarding the random per-cell assignment the spec calls for. If d
// holds fewer than n cells, all of its cells are moved.
func (d *Deme) MoveCellsTo(s *rng.Source, dst *Deme, n int) {
	for i := 0; i < n; i++ {
		idx := d.weightedMemberIndex(s)
		if idx < 0 {
			return
		}
		g := d.members[idx].geno
		d.members[idx].count--
		dst.addCells(g, 1)
	}
	d.compact()
}

// addCells adds count cells of genotype g to an existing member
// carrying g, or creates a new member if none exists.
func (d *Deme) addCells(g genotype.ID, count int) {
	for i := range d.members {
		if d.members[i].geno == g {
			d.members[i].count += count
			return
		}
	}
	d.members = append(d.members, demeMember{geno: g, count: count})
}

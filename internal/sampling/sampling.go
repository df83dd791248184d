// Package sampling implements bulk/surface VAF sampling (C10): collecting
// a frozen BulkSample by breadth-first accumulation around a surface site,
// deriving per-mutation variant allele frequencies from it, and computing
// MutationalDistance between two mutation sets.
//
// Grounded on spec.md §4.10 directly; the frozen accumulation-multimap
// shape follows §9's "Sampling independence" design note (freeze
// component references and genotype composition at collection time so the
// sample stays valid while the tumor keeps advancing).
package sampling

import (
	"math"
	"sort"

	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/geometry"
	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
	"tumorsim/internal/tumor"
)

// BulkSample is a read-only, frozen snapshot of the components within a
// breadth-first-expanded region around a surface site. Genotype
// composition is captured at collection time, so a sample remains valid
// even as the tumor it was drawn from keeps advancing.
type BulkSample struct {
	Center       lattice.Coord
	Accumulation map[lattice.Coord][]int64 // site -> component indices accumulated from it

	store      *genotype.Store
	genoCounts map[genotype.ID]int // genotype -> frozen cell count in this sample
	totalCells int
}

// TotalCells is the frozen total cell count in the sample (at least
// targetSize, unless the reachable region held fewer cells).
func (b *BulkSample) TotalCells() int { return b.totalCells }

// GenotypeCounts returns a copy of the sample's frozen per-genotype
// cell-count breakdown, for reports that need clonal composition
// directly (e.g. a diversity index) rather than per-mutation VAF.
func (b *BulkSample) GenotypeCounts() map[genotype.ID]int {
	out := make(map[genotype.ID]int, len(b.genoCounts))
	for g, n := range b.genoCounts {
		out[g] = n
	}
	return out
}

// genotypeCounts returns the per-genotype cell-count breakdown of c,
// frozen at call time: a single entry for Cell/Lineage, one entry per
// internal member for a heterogeneous Deme.
func genotypeCounts(c component.Component) map[genotype.ID]int {
	if d, ok := c.(*component.Deme); ok {
		out := make(map[genotype.ID]int, len(d.Members()))
		for _, m := range d.Members() {
			out[m.Genotype] += m.CellCount
		}
		return out
	}
	return map[genotype.ID]int{c.Genotype(): c.CellCount()}
}

// Collect accumulates components breadth-first from center through
// occupied Moore-neighbor sites until at least targetSize cells have been
// gathered (or the reachable region is exhausted), then freezes the
// result into a BulkSample.
func Collect(tm *tumor.Tumor, center lattice.Coord, targetSize int) *BulkSample {
	grid := tm.Grid()
	side := grid.Side()

	visited := make(map[lattice.Coord]bool)
	queue := []lattice.Coord{center}
	accumulation := make(map[lattice.Coord][]int64)
	genoCounts := make(map[genotype.ID]int)
	total := 0

	for len(queue) > 0 && total < targetSize {
		coord := queue[0]
		queue = queue[1:]
		if visited[coord] {
			continue
		}
		visited[coord] = true

		occ := grid.Occupants(coord)
		if len(occ) > 0 {
			indices := make([]int64, 0, len(occ))
			for _, ref := range occ {
				c, ok := tm.ComponentByIndex(ref.Index())
				if !ok {
					continue
				}
				indices = append(indices, c.Index())
				for gid, n := range genotypeCounts(c) {
					genoCounts[gid] += n
					total += n
				}
			}
			accumulation[coord] = indices
		}

		for _, n := range lattice.Moore(coord, side) {
			if !visited[n] && len(grid.Occupants(n)) > 0 {
				queue = append(queue, n)
			}
		}
	}

	return &BulkSample{
		Center:       center,
		Accumulation: accumulation,
		store:        tm.Store(),
		genoCounts:   genoCounts,
		totalCells:   total,
	}
}

// weightedSites builds the occupied-site cloud geometry.Compute needs
// from the tumor's current per-site cell-count cache.
func weightedSites(tm *tumor.Tumor) []geometry.WeightedSite {
	counts := tm.SiteCounts()
	out := make([]geometry.WeightedSite, 0, len(counts))
	for c, n := range counts {
		out = append(out, geometry.WeightedSite{Coord: c, Cells: n})
	}
	return out
}

// CollectAlongDirection finds the surface site along direction v from the
// tumor's current center of mass and collects a BulkSample from it.
func CollectAlongDirection(tm *tumor.Tumor, v geometry.Vector3, targetSize, emptyShellDistance int) *BulkSample {
	grid := tm.Grid()
	occupied := func(c lattice.Coord) bool { return grid.CountOccupants(c) > 0 }
	moments := geometry.Compute(weightedSites(tm))
	center := geometry.SurfaceSite(moments.CenterOfMass, v, grid.Side(), emptyShellDistance, occupied)
	return Collect(tm, center, targetSize)
}

// CollectRandom samples a uniformly random direction on the unit sphere
// and collects a BulkSample along it.
func CollectRandom(s *rng.Source, tm *tumor.Tumor, targetSize, emptyShellDistance int) *BulkSample {
	grid := tm.Grid()
	occupied := func(c lattice.Coord) bool { return grid.CountOccupants(c) > 0 }
	moments := geometry.Compute(weightedSites(tm))
	center := geometry.SelectSurfaceSite(s, moments.CenterOfMass, grid.Side(), emptyShellDistance, occupied)
	return Collect(tm, center, targetSize)
}

// VAF returns the variant allele frequency of every mutation carried by
// any genotype present in the sample: the fraction of the sample's total
// cells whose genotype's accumulated mutation set contains it.
func (b *BulkSample) VAF() map[genotype.Mutation]float64 {
	if b.totalCells == 0 {
		return map[genotype.Mutation]float64{}
	}
	carriers := make(map[int64]int)
	muts := make(map[int64]genotype.Mutation)
	for gid, n := range b.genoCounts {
		for _, m := range b.store.AccumulatedMutations(gid) {
			carriers[m.Index] += n
			muts[m.Index] = m
		}
	}
	out := make(map[genotype.Mutation]float64, len(carriers))
	for idx, n := range carriers {
		out[muts[idx]] = float64(n) / float64(b.totalCells)
	}
	return out
}

// ClonalMutations returns the mutations present in every cell of the
// sample (frequency exactly 1).
func (b *BulkSample) ClonalMutations() map[genotype.Mutation]bool {
	out := make(map[genotype.Mutation]bool)
	for m, f := range b.VAF() {
		if f == 1 {
			out[m] = true
		}
	}
	return out
}

// DistinctMutations returns every mutation present in the sample at all,
// sorted by mutation index.
func (b *BulkSample) DistinctMutations() []genotype.Mutation {
	vaf := b.VAF()
	out := make([]genotype.Mutation, 0, len(vaf))
	for m := range vaf {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Summary bundles the distributional statistics of a sample's frequency
// vector.
type Summary struct {
	Min, Mean, Median, Max, Q1, Q3 float64
}

// Summary computes min, mean, median, max, and first/third quartiles of
// the sample's VAF frequency vector. Zero value if the sample carries no
// mutations.
func (b *BulkSample) Summary() Summary {
	vaf := b.VAF()
	if len(vaf) == 0 {
		return Summary{}
	}
	freqs := make([]float64, 0, len(vaf))
	sum := 0.0
	for _, f := range vaf {
		freqs = append(freqs, f)
		sum += f
	}
	sort.Float64s(freqs)
	return Summary{
		Min:    freqs[0],
		Max:    freqs[len(freqs)-1],
		Mean:   sum / float64(len(freqs)),
		Median: percentile(freqs, 0.5),
		Q1:     percentile(freqs, 0.25),
		Q3:     percentile(freqs, 0.75),
	}
}

// percentile linearly interpolates the p-quantile (0<=p<=1) of a
// pre-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// MutationSet is a mutation set keyed by index, for fast intersection in
// MutationalDistance.
type MutationSet map[int64]genotype.Mutation

// NewMutationSet builds a MutationSet from a slice of mutations.
func NewMutationSet(muts []genotype.Mutation) MutationSet {
	out := make(MutationSet, len(muts))
	for _, m := range muts {
		out[m.Index] = m
	}
	return out
}

// ClonalMutationSet returns the sample's clonal mutations as a
// MutationSet, for MRCA/distance comparisons against another sample.
func (b *BulkSample) ClonalMutationSet() MutationSet {
	out := make(MutationSet)
	for m := range b.ClonalMutations() {
		out[m.Index] = m
	}
	return out
}

// DistinctMutationSet returns every mutation in the sample as a
// MutationSet.
func (b *BulkSample) DistinctMutationSet() MutationSet {
	return NewMutationSet(b.DistinctMutations())
}

// Distance is the result of comparing two mutation sets.
type Distance struct {
	Shared       int
	IntDistance  int
	FracDistance float64
}

// MutationalDistance computes shared = |A∩B|, intDistance = |A|+|B|-2*shared,
// fracDistance = intDistance/(|A|+|B|) between two mutation sets. Symmetric
// in A and B; zero distance when A == B.
func MutationalDistance(a, b MutationSet) Distance {
	shared := 0
	for idx := range a {
		if _, ok := b[idx]; ok {
			shared++
		}
	}
	total := len(a) + len(b)
	intDist := total - 2*shared
	frac := 0.0
	if total > 0 {
		frac = float64(intDist) / float64(total)
	}
	return Distance{Shared: shared, IntDistance: intDist, FracDistance: frac}
}

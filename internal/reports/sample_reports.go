package reports

import (
	"math"

	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/geometry"
	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
	"tumorsim/internal/sampling"
	"tumorsim/internal/trial"
	"tumorsim/internal/tumor"
)

// sampleRNG is deliberately independent of the trial's own *rng.Source:
// Hook.ProcessStep is handed only the tumor and trial index, not the
// stream advancing its components (spec.md's concurrency note says a
// parallel driver must partition the random source into independent
// streams; drawing report samples from a second named stream is the
// single-threaded analogue of that, so a report's sampling choices
// never perturb — or depend on the call count of — the trial's own
// stochastic advancement).
func sampleRNG(seed int64) *rng.Source { return rng.New(seed) }

// BulkVAFSummaryReport writes bulk-vaf-summary.csv: one row per sampled
// step summarizing the VAF frequency distribution of a freshly-drawn
// bulk sample (spec.md §4.10's Summary: min, mean, median, quartiles,
// max).
type BulkVAFSummaryReport struct {
	noopHook
	Dir                string
	Policy             SamplingPolicy
	TargetSize         int
	EmptyShellDistance int
	Seed               int64

	rng *rng.Source
	w   *Writer
}

func (r *BulkVAFSummaryReport) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.Dir, "bulk-vaf-summary", false), ',',
		[]string{"trialIndex", "timeStep", "sampleCellCount", "min", "mean", "median", "q1", "q3", "max"})
	if err != nil {
		return err
	}
	r.w = w
	r.rng = sampleRNG(r.Seed)
	return nil
}

func (r *BulkVAFSummaryReport) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	if r.Policy != nil && !r.Policy.ShouldSample(tm.TimeStep(), tm.TotalCellCount()) {
		return nil
	}
	if tm.TotalCellCount() == 0 {
		return nil
	}
	sample := sampling.CollectRandom(r.rng, tm, r.TargetSize, r.EmptyShellDistance)
	sum := sample.Summary()
	row := []string{
		itoa(trialIndex), i64toa(tm.TimeStep()), itoa(sample.TotalCells()),
		ftoa(sum.Min), ftoa(sum.Mean), ftoa(sum.Median), ftoa(sum.Q1), ftoa(sum.Q3), ftoa(sum.Max),
	}
	if err := r.w.WriteRecord(row); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *BulkVAFSummaryReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error { return closeAll(r.w) }

var _ trial.Hook = (*BulkVAFSummaryReport)(nil)

// BulkSampleSiteReport writes bulk-sample-site.csv: the center site and
// frozen cell count of one bulk sample it draws per sampled step from
// its own random stream. Its samples are independent of those drawn by
// bulk-vaf-summary and bulk-mut-dist.
type BulkSampleSiteReport struct {
	noopHook
	Dir                string
	Policy             SamplingPolicy
	TargetSize         int
	EmptyShellDistance int
	Seed               int64

	rng *rng.Source
	w   *Writer
}

func (r *BulkSampleSiteReport) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.Dir, "bulk-sample-site", false), ',',
		[]string{"trialIndex", "timeStep", "centerX", "centerY", "centerZ", "sampleCellCount"})
	if err != nil {
		return err
	}
	r.w = w
	r.rng = sampleRNG(r.Seed)
	return nil
}

func (r *BulkSampleSiteReport) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	if r.Policy != nil && !r.Policy.ShouldSample(tm.TimeStep(), tm.TotalCellCount()) {
		return nil
	}
	if tm.TotalCellCount() == 0 {
		return nil
	}
	sample := sampling.CollectRandom(r.rng, tm, r.TargetSize, r.EmptyShellDistance)
	row := []string{
		itoa(trialIndex), i64toa(tm.TimeStep()),
		itoa(sample.Center.X), itoa(sample.Center.Y), itoa(sample.Center.Z),
		itoa(sample.TotalCells()),
	}
	if err := r.w.WriteRecord(row); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *BulkSampleSiteReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error { return closeAll(r.w) }

var _ trial.Hook = (*BulkSampleSiteReport)(nil)

// pairDistanceReport is the shared shape of bulk-mut-dist.csv and
// met-mut-dist.csv: draw two independent bulk samples each sampled
// step and record the MutationalDistance between their clonal mutation
// sets.
type pairDistanceReport struct {
	noopHook
	dir                string
	baseName           string
	policy             SamplingPolicy
	targetSize         int
	emptyShellDistance int
	seed               int64

	rng *rng.Source
	w   *Writer
}

func (r *pairDistanceReport) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.dir, r.baseName, false), ',',
		[]string{"trialIndex", "timeStep", "shared", "intDistance", "fracDistance"})
	if err != nil {
		return err
	}
	r.w = w
	r.rng = sampleRNG(r.seed)
	return nil
}

func (r *pairDistanceReport) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	if r.policy != nil && !r.policy.ShouldSample(tm.TimeStep(), tm.TotalCellCount()) {
		return nil
	}
	if tm.TotalCellCount() == 0 {
		return nil
	}
	a := sampling.CollectRandom(r.rng, tm, r.targetSize, r.emptyShellDistance)
	b := sampling.CollectRandom(r.rng, tm, r.targetSize, r.emptyShellDistance)
	d := sampling.MutationalDistance(a.ClonalMutationSet(), b.ClonalMutationSet())
	row := []string{itoa(trialIndex), i64toa(tm.TimeStep()), itoa(d.Shared), itoa(d.IntDistance), ftoa(d.FracDistance)}
	if err := r.w.WriteRecord(row); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *pairDistanceReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error { return closeAll(r.w) }

// NewBulkMutDistReport writes bulk-mut-dist.csv: the MutationalDistance
// between two independently-drawn bulk samples of the same tumor, per
// sampled step.
func NewBulkMutDistReport(dir string, policy SamplingPolicy, targetSize, emptyShellDistance int, seed int64) trial.Hook {
	return &pairDistanceReport{dir: dir, baseName: "bulk-mut-dist", policy: policy, targetSize: targetSize, emptyShellDistance: emptyShellDistance, seed: seed}
}

// NewMetMutDistReport writes met-mut-dist.csv. spec.md names this kind
// for comparing samples across distinct tumors (a metastasis), but the
// engine's Non-goals explicitly exclude multi-tumor/metastasis
// coupling (§9 Non-goals), so there is only ever one tumor to sample
// from. This report resolves that by comparing two independently-drawn
// bulk samples within the single tumor, exactly like bulk-mut-dist but
// written to its own file — the natural single-tumor degenerate case
// of the named comparison, kept distinct so a later metastasis model
// could redirect its second sample to a different tumor without
// touching this report's shape.
func NewMetMutDistReport(dir string, policy SamplingPolicy, targetSize, emptyShellDistance int, seed int64) trial.Hook {
	return &pairDistanceReport{dir: dir, baseName: "met-mut-dist", policy: policy, targetSize: targetSize, emptyShellDistance: emptyShellDistance, seed: seed + 1}
}

var _ trial.Hook = (*pairDistanceReport)(nil)

// VariegationReport writes variegation.csv: Simpson's diversity index
// (1 - sum(p_i^2) over each genotype's share of sample cells) of a
// freshly-drawn bulk sample's clonal composition, per sampled step.
// spec.md §4.13 names this kind without specifying its statistic;
// SPEC_FULL.md resolves it to Simpson's index over clonal-vs-subclonal
// genotype composition, reusing BulkSample's frozen genotype-count
// snapshot (C10).
type VariegationReport struct {
	noopHook
	Dir                string
	Policy             SamplingPolicy
	TargetSize         int
	EmptyShellDistance int
	Seed               int64

	rng *rng.Source
	w   *Writer
}

func (r *VariegationReport) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.Dir, "variegation", false), ',',
		[]string{"trialIndex", "timeStep", "sampleCellCount", "distinctGenotypes", "simpsonIndex"})
	if err != nil {
		return err
	}
	r.w = w
	r.rng = sampleRNG(r.Seed)
	return nil
}

func (r *VariegationReport) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	if r.Policy != nil && !r.Policy.ShouldSample(tm.TimeStep(), tm.TotalCellCount()) {
		return nil
	}
	if tm.TotalCellCount() == 0 {
		return nil
	}
	sample := sampling.CollectRandom(r.rng, tm, r.TargetSize, r.EmptyShellDistance)
	counts := sample.GenotypeCounts()
	total := sample.TotalCells()
	simpson := simpsonIndex(counts, total)
	row := []string{itoa(trialIndex), i64toa(tm.TimeStep()), itoa(total), itoa(len(counts)), ftoa(simpson)}
	if err := r.w.WriteRecord(row); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *VariegationReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error { return closeAll(r.w) }

var _ trial.Hook = (*VariegationReport)(nil)

// simpsonIndex computes 1 - sum((n_i/total)^2) over a genotype-count
// breakdown: 0 for a monoclonal sample, approaching 1 as composition
// diversifies across many equally-sized clones.
func simpsonIndex(counts map[genotype.ID]int, total int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		sum += p * p
	}
	return 1 - sum
}

// siteMutationTypeCountReport is the shared shape of
// bulk-cell-mutation-type-count.csv and
// surface-cell-mutation-type-count.csv: pick a handful of lattice
// sites each sampled step (interior-random for "bulk", surface-walked
// for "surface") and, for each, record the per-cell accumulated
// mutation counts of each kind present at that site plus its
// center-of-mass-normalized radial distance.
type siteMutationTypeCountReport struct {
	noopHook
	dir                string
	baseName           string
	policy             SamplingPolicy
	siteCount          int
	emptyShellDistance int
	surface            bool
	seed               int64

	rng *rng.Source
	w   *Writer
}

func (r *siteMutationTypeCountReport) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.dir, r.baseName, false), ',',
		[]string{"trialIndex", "timeStep", "tumorCellCount", "normRadialDist", "siteCoordX", "siteCoordY", "siteCoordZ", "NEOANTIGEN.count", "SCALAR.count"})
	if err != nil {
		return err
	}
	r.w = w
	r.rng = sampleRNG(r.seed)
	return nil
}

func (r *siteMutationTypeCountReport) pickSites(tm *tumor.Tumor) []lattice.Coord {
	grid := tm.Grid()
	moments := geometry.Compute(weightedSites(tm))
	if !r.surface {
		occ := occupiedCoords(tm)
		r.rng.Shuffle(len(occ), func(i, j int) { occ[i], occ[j] = occ[j], occ[i] })
		if len(occ) > r.siteCount {
			occ = occ[:r.siteCount]
		}
		return occ
	}
	occupied := func(c lattice.Coord) bool { return grid.CountOccupants(c) > 0 }
	out := make([]lattice.Coord, 0, r.siteCount)
	for i := 0; i < r.siteCount; i++ {
		out = append(out, geometry.SelectSurfaceSite(r.rng, moments.CenterOfMass, grid.Side(), r.emptyShellDistance, occupied))
	}
	return out
}

func (r *siteMutationTypeCountReport) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	if r.policy != nil && !r.policy.ShouldSample(tm.TimeStep(), tm.TotalCellCount()) {
		return nil
	}
	if tm.TotalCellCount() == 0 {
		return nil
	}
	moments := geometry.Compute(weightedSites(tm))
	maxRadius := float64(tm.Grid().Side()) / 2
	if maxRadius == 0 {
		maxRadius = 1
	}
	for _, coord := range r.pickSites(tm) {
		neo, scalar := mutationKindCounts(tm, coord)
		dist := siteDistance(moments.CenterOfMass, coord) / maxRadius
		row := []string{
			itoa(trialIndex), i64toa(tm.TimeStep()), itoa(tm.TotalCellCount()), ftoa(dist),
			itoa(coord.X), itoa(coord.Y), itoa(coord.Z), itoa(neo), itoa(scalar),
		}
		if err := r.w.WriteRecord(row); err != nil {
			return err
		}
	}
	return r.w.Flush()
}

func (r *siteMutationTypeCountReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error {
	return closeAll(r.w)
}

// NewBulkCellMutationTypeCountReport writes
// bulk-cell-mutation-type-count.csv, sampling siteCount sites uniformly
// at random from the occupied interior of the tumor.
func NewBulkCellMutationTypeCountReport(dir string, policy SamplingPolicy, siteCount int, seed int64) trial.Hook {
	return &siteMutationTypeCountReport{dir: dir, baseName: "bulk-cell-mutation-type-count", policy: policy, siteCount: siteCount, seed: seed}
}

// NewSurfaceCellMutationTypeCountReport writes
// surface-cell-mutation-type-count.csv, sampling siteCount sites via
// independent Marsaglia-directed surface walks.
func NewSurfaceCellMutationTypeCountReport(dir string, policy SamplingPolicy, siteCount, emptyShellDistance int, seed int64) trial.Hook {
	return &siteMutationTypeCountReport{dir: dir, baseName: "surface-cell-mutation-type-count", policy: policy, siteCount: siteCount, emptyShellDistance: emptyShellDistance, surface: true, seed: seed}
}

var _ trial.Hook = (*siteMutationTypeCountReport)(nil)

func siteDistance(cm geometry.Vector3, c lattice.Coord) float64 {
	dx := float64(c.X) - cm.X
	dy := float64(c.Y) - cm.Y
	dz := float64(c.Z) - cm.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// mutationKindCounts sums, over every occupant at coord, the per-cell
// accumulated mutation counts of each kind (a Deme's heterogeneous
// members are broken out individually, same as sampling.genotypeCounts).
func mutationKindCounts(tm *tumor.Tumor, coord lattice.Coord) (neo, scalar int) {
	store := tm.Store()
	for _, ref := range tm.Grid().Occupants(coord) {
		c, ok := tm.ComponentByIndex(ref.Index())
		if !ok {
			continue
		}
		if d, ok := c.(*component.Deme); ok {
			for _, m := range d.Members() {
				n, s := countKinds(store, m.Genotype)
				neo += n * m.CellCount
				scalar += s * m.CellCount
			}
			continue
		}
		n, s := countKinds(store, c.Genotype())
		neo += n * c.CellCount()
		scalar += s * c.CellCount()
	}
	return neo, scalar
}

func countKinds(store *genotype.Store, g genotype.ID) (neo, scalar int) {
	for _, m := range store.AccumulatedMutations(g) {
		switch m.Kind {
		case genotype.KindNeoantigen:
			neo++
		case genotype.KindScalar:
			scalar++
		}
	}
	return neo, scalar
}

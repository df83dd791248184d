// Package tumor implements the scheduler (C9): the per-step
// randomized scan of live components, the migration phase, and the
// advancement-then-reconciliation phase that keeps every touched site
// within capacity. This is "the heart" of the engine per spec.md §2.
//
// Grounded on spec.md §4.9's literal step sequence; the tagged-variant
// dispatch per component kind follows the design note in spec.md §9
// ("represent as a tagged variant with three arms; the scheduler
// dispatches per-arm; no deep inheritance hierarchy required").
package tumor

import (
	"fmt"

	"tumorsim/internal/capacity"
	"tumorsim/internal/component"
	"tumorsim/internal/environment"
	"tumorsim/internal/genotype"
	"tumorsim/internal/growth"
	"tumorsim/internal/lattice"
	"tumorsim/internal/mutationgen"
	"tumorsim/internal/rng"
)

// Config bundles everything Tumor needs at construction time.
type Config struct {
	Grid              lattice.Grid
	Capacity          capacity.Model
	Store             *genotype.Store
	Rate              growth.Rate
	Mutations         mutationgen.Source
	SamplingLimit     int
	Migration         MigrationModel
	ExpansionSelector ExpansionSelector
}

// Tumor owns the lattice, capacity model, growth/mutation rules, the
// live component set, and the per-site/total cell-count caches. It is
// mutated solely by Advance and AddComponent/RemoveComponent; reports
// must only read from it between steps.
type Tumor struct {
	grid              lattice.Grid
	capModel          capacity.Model
	store             *genotype.Store
	rate              growth.Rate
	mutations         mutationgen.Source
	samplingLimit     int
	migration         MigrationModel
	expansionSelector ExpansionSelector

	live       map[int64]component.Component
	siteCounts map[lattice.Coord]int
	// lastKnownCellCount tracks each live component's cell count as of
	// the last cache update, so removal and post-advance reconciliation
	// can compute the correct cache delta without re-summing a site's
	// occupants from scratch (spec.md §5's cache invalidation
	// requirement: update caches atomically with the mutation that
	// changed them).
	lastKnownCellCount map[int64]int
	total              int
	timeStep           int64

	// stepStats accumulates birth/death event counts for the step
	// currently being advanced; LastStepStats reads it after Advance
	// returns.
	stepStats environment.StepStats

	// parentOf records the component-level ancestry edge for every
	// component ever placed: -1 for a founder, otherwise the index of
	// the component it was produced from (a Cell/Lineage daughter, or a
	// Deme's split-off clone). Never pruned on removal, so
	// component-ancestry reporting survives a component's death.
	parentOf map[int64]int64
	// genotypeOf records the genotype each component carried at
	// placement time, kept alongside parentOf since the live component
	// object itself (the only other holder of its Genotype()) is
	// dropped on removal. For a Deme this is its founding genotype, not
	// its current largest-member genotype (Deme.Genotype() can change
	// as members grow/shrink; reports needing the live composition
	// should sample the Deme directly while it is still live).
	genotypeOf map[int64]genotype.ID
}

// NoParent is the sentinel parentOf value recorded for a founder
// component (one placed by SeedFounders rather than produced during
// advancement).
const NoParent int64 = -1

// New constructs an empty Tumor (no components placed yet).
func New(cfg Config) *Tumor {
	migration := cfg.Migration
	if migration == nil {
		migration = Pinned{}
	}
	selector := cfg.ExpansionSelector
	if selector == nil {
		selector = UniformMooreSelector
	}
	return &Tumor{
		grid:              cfg.Grid,
		capModel:          cfg.Capacity,
		store:             cfg.Store,
		rate:              cfg.Rate,
		mutations:         cfg.Mutations,
		samplingLimit:     cfg.SamplingLimit,
		migration:         migration,
		expansionSelector: selector,
		live:               make(map[int64]component.Component),
		siteCounts:         make(map[lattice.Coord]int),
		lastKnownCellCount: make(map[int64]int),
		parentOf:           make(map[int64]int64),
		genotypeOf:         make(map[int64]genotype.ID),
	}
}

func (t *Tumor) TimeStep() int64      { return t.timeStep }
func (t *Tumor) TotalCellCount() int  { return t.total }
func (t *Tumor) ComponentCount() int  { return len(t.live) }
func (t *Tumor) Grid() lattice.Grid   { return t.grid }
func (t *Tumor) Store() *genotype.Store { return t.store }

// LiveComponents returns a snapshot slice of every currently live
// component, for reports to walk between steps.
func (t *Tumor) LiveComponents() []component.Component {
	out := make([]component.Component, 0, len(t.live))
	for _, c := range t.live {
		out = append(out, c)
	}
	return out
}

// ComponentByIndex looks up a live component by its index, for callers
// (internal/sampling) that only hold a lattice.ComponentRef.
func (t *Tumor) ComponentByIndex(idx int64) (component.Component, bool) {
	c, ok := t.live[idx]
	return c, ok
}

// SiteCounts returns a copy of the per-site cell-count cache, for
// geometry/sampling consumers that need the occupied-site cloud
// without reaching into Tumor's internals.
func (t *Tumor) SiteCounts() map[lattice.Coord]int {
	out := make(map[lattice.Coord]int, len(t.siteCounts))
	for c, n := range t.siteCounts {
		out[c] = n
	}
	return out
}

func (t *Tumor) capacityAt(coord lattice.Coord) int {
	return t.capModel.Capacity(capacity.Coord{X: coord.X, Y: coord.Y, Z: coord.Z})
}

func (t *Tumor) cellsAt(coord lattice.Coord) int {
	return t.siteCounts[coord]
}

// effectiveRate folds c's accumulated scalar-selective mutations into
// the tumor-wide base rate: b' = b * Π(1+s) over every KindScalar
// mutation c's genotype carries (spec.md §3, §4.2). Neutral and
// neoantigen mutations never alter the birth rate.
func (t *Tumor) effectiveRate(c component.Component) (growth.Rate, error) {
	alpha := 1.0
	for _, m := range t.store.AccumulatedMutations(c.Genotype()) {
		if m.Kind == genotype.KindScalar {
			alpha *= 1 + m.SelectionCoeff
		}
	}
	if alpha == 1 {
		return t.rate, nil
	}
	return t.rate.RescaleBirth(alpha)
}

func (t *Tumor) adjustSiteCount(coord lattice.Coord, delta int) {
	t.siteCounts[coord] += delta
	if t.siteCounts[coord] <= 0 {
		delete(t.siteCounts, coord)
	}
	t.total += delta
}

// AddComponent places a freshly created component c at coord,
// registering it in the live set and updating both caches.
func (t *Tumor) AddComponent(c component.Component, coord lattice.Coord) error {
	if err := t.grid.Occupy(c, coord); err != nil {
		return fmt.Errorf("tumor: placing component %d: %w", c.Index(), err)
	}
	t.live[c.Index()] = c
	t.adjustSiteCount(coord, c.CellCount())
	t.lastKnownCellCount[c.Index()] = c.CellCount()
	if _, ok := t.parentOf[c.Index()]; !ok {
		t.parentOf[c.Index()] = NoParent
	}
	if _, ok := t.genotypeOf[c.Index()]; !ok {
		t.genotypeOf[c.Index()] = c.Genotype()
	}
	return nil
}

// GenotypeOf returns the genotype c carried when first placed (see
// genotypeOf's doc for the Deme caveat), and whether idx was ever
// placed on this tumor.
func (t *Tumor) GenotypeOf(idx int64) (genotype.ID, bool) {
	g, ok := t.genotypeOf[idx]
	return g, ok
}

// AddOffspring places a component produced during advancement (a
// Cell/Lineage daughter, a Deme split clone), recording parent as its
// component-ancestry parent index.
func (t *Tumor) AddOffspring(c component.Component, coord lattice.Coord, parent int64) error {
	if err := t.AddComponent(c, coord); err != nil {
		return err
	}
	t.parentOf[c.Index()] = parent
	return nil
}

// ParentIndex returns the recorded component-ancestry parent of idx (NoParent
// for a founder), and whether idx was ever placed on this tumor.
func (t *Tumor) ParentIndex(idx int64) (int64, bool) {
	p, ok := t.parentOf[idx]
	return p, ok
}

// Ancestry returns a copy of every recorded component-ancestry edge,
// keyed by component index, for reports to walk (including components
// that have since died and been removed from the live set).
func (t *Tumor) Ancestry() map[int64]int64 {
	out := make(map[int64]int64, len(t.parentOf))
	for k, v := range t.parentOf {
		out[k] = v
	}
	return out
}

// RemoveComponent removes c from the lattice and live set.
func (t *Tumor) RemoveComponent(c component.Component) {
	if coord, ok := t.grid.Locate(c); ok {
		t.adjustSiteCount(coord, -t.lastKnownCellCount[c.Index()])
	}
	t.grid.Vacate(c)
	delete(t.live, c.Index())
	delete(t.lastKnownCellCount, c.Index())
}

// syncCellCount updates the site and total caches for c's current
// cell count against its last known value, then records the new
// value. Must be called once after any in-place mutation of c's cell
// count (a Lineage or Deme advancing, a split changing either side).
func (t *Tumor) syncCellCount(c component.Component, coord lattice.Coord) {
	delta := c.CellCount() - t.lastKnownCellCount[c.Index()]
	if delta != 0 {
		t.adjustSiteCount(coord, delta)
	}
	t.lastKnownCellCount[c.Index()] = c.CellCount()
}

// Advance performs exactly one discrete time step: snapshot and
// shuffle the live set, run the migration phase, then the
// advancement-and-reconciliation phase, per spec.md §4.9.
func (t *Tumor) Advance(s *rng.Source) error {
	snapshot := t.LiveComponents()
	s.Shuffle(len(snapshot), func(i, j int) { snapshot[i], snapshot[j] = snapshot[j], snapshot[i] })

	t.stepStats = environment.StepStats{}
	t.migrationPhase(s, snapshot)
	if err := t.advancementPhase(s, snapshot); err != nil {
		return err
	}

	t.timeStep++
	return nil
}

// LastStepStats returns the accumulated birth/death counts from the most
// recently completed Advance call, for growth-count reporting.
func (t *Tumor) LastStepStats() environment.StepStats { return t.stepStats }

func (t *Tumor) migrationPhase(s *rng.Source, snapshot []component.Component) {
	for _, c := range snapshot {
		if c.IsDead() {
			continue
		}
		pCoord, ok := t.grid.Locate(c)
		if !ok {
			continue
		}
		target, wantsMove := t.migration.Target(s, t.grid, c, pCoord)
		if !wantsMove || !IsAvailable(t.grid, target) {
			continue
		}
		t.grid.Vacate(c)
		t.grid.Occupy(c, target)
		t.adjustSiteCount(pCoord, -c.CellCount())
		t.adjustSiteCount(target, c.CellCount())
	}
}

// PlaceFounder places c at coord, which must be the origin for the
// first founder or an empty Moore neighbor of the previously placed
// founder for subsequent ones (spec.md §4.9 edge case policy); the
// caller (internal/trial) is responsible for picking coord per that
// rule and reporting a configuration error if no empty neighbor
// exists.
func (t *Tumor) PlaceFounder(c component.Component, coord lattice.Coord) error {
	return t.AddComponent(c, coord)
}

func (t *Tumor) advancementPhase(s *rng.Source, snapshot []component.Component) error {
	for _, c := range snapshot {
		if c.IsDead() {
			continue
		}
		pCoord, ok := t.grid.Locate(c)
		if !ok {
			continue
		}
		eCoord := t.expansionSelector(s, t.grid, pCoord)
		growthCapacity := t.capacityAt(pCoord) - t.cellsAt(pCoord) + t.expansionFreeCapacity(eCoord)

		rate, err := t.effectiveRate(c)
		if err != nil {
			return fmt.Errorf("tumor: computing effective rate for component %d: %w", c.Index(), err)
		}

		env := environment.LocalEnvironment{
			GrowthCapacity: growthCapacity,
			Rate:           rate,
			Mutations:      t.mutations,
			SamplingLimit:  t.samplingLimit,
			Stats:          &t.stepStats,
		}
		offspring := c.Advance(s, t.store, env, t.timeStep)
		if err := t.reconcile(s, c, pCoord, eCoord, offspring); err != nil {
			return err
		}
	}
	return nil
}

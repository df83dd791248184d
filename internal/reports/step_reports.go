package reports

import (
	"tumorsim/internal/geometry"
	"tumorsim/internal/tumor"
	"tumorsim/internal/trial"
)

// tableReport is the shared scaffolding every sampled-step, one-file
// report kind is built from: open a Writer at InitializeTrial, ask a
// SamplingPolicy whether the just-completed step qualifies, build zero
// or more rows for it, and close at FinalizeTrial. Individual report
// kinds differ only in baseName/header/delimiter and their build
// function, so this single type stands in for what would otherwise be
// a dozen near-identical Hook implementations.
type tableReport struct {
	dir       string
	baseName  string
	gzip      bool
	delimiter rune
	header    []string
	policy    SamplingPolicy
	build     func(tm *tumor.Tumor, trialIndex int, timeStep int64) ([][]string, error)

	w *Writer
}

func newTableReport(dir, baseName string, gzip bool, delimiter rune, header []string, policy SamplingPolicy, build func(tm *tumor.Tumor, trialIndex int, timeStep int64) ([][]string, error)) *tableReport {
	if policy == nil {
		policy = Always{}
	}
	return &tableReport{dir: dir, baseName: baseName, gzip: gzip, delimiter: delimiter, header: header, policy: policy, build: build}
}

func (r *tableReport) InitializeSimulation(*tumor.Tumor) error { return nil }

func (r *tableReport) InitializeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.dir, r.baseName, r.gzip), r.delimiter, r.header)
	if err != nil {
		return err
	}
	r.w = w
	return nil
}

func (r *tableReport) ProcessStep(tm *tumor.Tumor, trialIndex int) error {
	if !r.policy.ShouldSample(tm.TimeStep(), tm.TotalCellCount()) {
		return nil
	}
	rows, err := r.build(tm, trialIndex, tm.TimeStep())
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := r.w.WriteRecord(row); err != nil {
			return err
		}
	}
	return r.w.Flush()
}

func (r *tableReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error { return closeAll(r.w) }

func (r *tableReport) FinalizeSimulation(*tumor.Tumor) error { return nil }

var _ trial.Hook = (*tableReport)(nil)

// NewCellCountTrajReport writes cell-count-traj.csv: one row per
// sampled step of (trialIndex, timeStep, cellCount, componentCount).
func NewCellCountTrajReport(dir string, policy SamplingPolicy) trial.Hook {
	header := []string{"trialIndex", "timeStep", "cellCount", "componentCount"}
	return newTableReport(dir, "cell-count-traj", false, ',', header, policy,
		func(tm *tumor.Tumor, trialIndex int, timeStep int64) ([][]string, error) {
			return [][]string{{itoa(trialIndex), i64toa(timeStep), itoa(tm.TotalCellCount()), itoa(tm.ComponentCount())}}, nil
		})
}

// NewTumorDimensionReport writes tumor-dimension.csv: one row per
// sampled step of cell/component counts plus the tumor's spatial
// moments (center of mass, radius of gyration, principal moments, and
// the three shape descriptors), per internal/geometry.
func NewTumorDimensionReport(dir string, policy SamplingPolicy) trial.Hook {
	header := []string{
		"trialIndex", "timeStep", "cellCount", "componentCount",
		"cmX", "cmY", "cmZ", "RG", "pmX", "pmY", "pmZ",
		"asphericity", "acylindricity", "anisotropy",
	}
	return newTableReport(dir, "tumor-dimension", false, ',', header, policy,
		func(tm *tumor.Tumor, trialIndex int, timeStep int64) ([][]string, error) {
			m := geometry.Compute(weightedSites(tm))
			row := []string{
				itoa(trialIndex), i64toa(timeStep), itoa(tm.TotalCellCount()), itoa(tm.ComponentCount()),
				ftoa(m.CenterOfMass.X), ftoa(m.CenterOfMass.Y), ftoa(m.CenterOfMass.Z), ftoa(m.RG),
				ftoa(m.PrincipalMoments[0]), ftoa(m.PrincipalMoments[1]), ftoa(m.PrincipalMoments[2]),
				ftoa(m.Asphericity), ftoa(m.Acylindricity), ftoa(m.Anisotropy),
			}
			return [][]string{row}, nil
		})
}

// NewGrowthCountReport writes growth-count.csv: one row per sampled
// step of (trialIndex, timeStep, cellCount, birthCount, deathCount),
// reading the scheduler's per-step StepStats accumulator.
func NewGrowthCountReport(dir string, policy SamplingPolicy) trial.Hook {
	header := []string{"trialIndex", "timeStep", "cellCount", "birthCount", "deathCount"}
	return newTableReport(dir, "growth-count", false, ',', header, policy,
		func(tm *tumor.Tumor, trialIndex int, timeStep int64) ([][]string, error) {
			stats := tm.LastStepStats()
			row := []string{itoa(trialIndex), i64toa(timeStep), itoa(tm.TotalCellCount()), itoa(stats.Births), itoa(stats.Deaths)}
			return [][]string{row}, nil
		})
}

// NewComponentCoordReport writes component-coord.csv: one row per live
// component per sampled step, giving its lattice position and cell
// count.
func NewComponentCoordReport(dir string, policy SamplingPolicy) trial.Hook {
	header := []string{"trialIndex", "timeStep", "componentIndex", "coordX", "coordY", "coordZ", "cellCount"}
	return newTableReport(dir, "component-coord", false, ',', header, policy,
		func(tm *tumor.Tumor, trialIndex int, timeStep int64) ([][]string, error) {
			live := tm.LiveComponents()
			rows := make([][]string, 0, len(live))
			grid := tm.Grid()
			for _, c := range live {
				coord, ok := grid.Locate(c)
				if !ok {
					continue
				}
				rows = append(rows, []string{
					itoa(trialIndex), i64toa(timeStep), i64toa(c.Index()),
					itoa(coord.X), itoa(coord.Y), itoa(coord.Z), itoa(c.CellCount()),
				})
			}
			return rows, nil
		})
}

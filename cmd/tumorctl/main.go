// Command tumorctl is the single-command driver (spec.md §6): one
// positional property-file path, a repeatable -D key=value overlay, and
// an optional --profile TOML preset. It wires config -> lattice/growth/
// mutation/capacity -> tumor -> trial, attaching every enabled report
// and, when configured, the monitor and checkpoint side channels.
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tumorsim/internal/capacity"
	"tumorsim/internal/checkpoint"
	"tumorsim/internal/component"
	"tumorsim/internal/config"
	"tumorsim/internal/errors"
	"tumorsim/internal/genotype"
	"tumorsim/internal/growth"
	"tumorsim/internal/lattice"
	"tumorsim/internal/monitorapi"
	"tumorsim/internal/mutationgen"
	"tumorsim/internal/reports"
	"tumorsim/internal/rng"
	"tumorsim/internal/trial"
	"tumorsim/internal/tumor"
)

func main() {
	var overlay []string
	var profilePath string

	cmd := &cobra.Command{
		Use:   "tumorctl PROPERTY_FILE",
		Short: "Run one spatial tumor growth trial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrial(args[0], profilePath, overlay)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringArrayVarP(&overlay, "D", "D", nil, "key=value configuration overlay, repeatable")
	cmd.Flags().StringVar(&profilePath, "profile", "", "optional TOML preset file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTrial(propertiesPath, profilePath string, overlay []string) error {
	cfg, err := config.Load(propertiesPath, profilePath, overlay)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrConfig, errors.SeverityError, fmt.Sprintf("creating report directory %s", cfg.ReportDir), err)
	}

	tm, store, rngSrc, err := buildTumor(cfg)
	if err != nil {
		return err
	}

	ckpt := checkpoint.New(cfg.CheckpointAddr)
	defer ckpt.Close()
	ckpt.LogResumeHint(cfg.TrialIndex)

	hooks, err := buildHooks(cfg)
	if err != nil {
		return err
	}

	var monitor *monitorapi.Server
	if cfg.MonitorEnabled {
		monitor = monitorapi.New(tm, cfg.ReportDir)
		if err := monitor.Start(); err != nil {
			return errors.Wrap(errors.ErrConfig, errors.SeverityError, "starting monitor server", err)
		}
		defer monitor.Stop()
		hooks = append(hooks, monitor.Hook())
	}

	trialCfg := trial.Config{
		TrialIndex:    cfg.TrialIndex,
		ComponentKind: componentKind(cfg.ComponentType),
		InitialSize:   cfg.InitialSize,
		MaxStepCount:  cfg.MaxStepCount,
		MaxTumorSize:  cfg.MaxTumorSize,
		Tumor:         tm,
		Store:         store,
		RNG:           rngSrc,
		Hooks:         hooks,
	}

	if ckpt.Enabled() {
		go ckpt.Watch(tm, cfg.TrialIndex)
	}

	if err := trial.Run(trialCfg); err != nil {
		return err
	}

	manifest := reports.NewManifest(cfg.TrialIndex, time.Now())
	return manifest.WriteTo(cfg.ReportDir)
}

func componentKind(s string) component.Kind {
	switch s {
	case "LINEAGE":
		return component.KindLineage
	case "DEME":
		return component.KindDeme
	default:
		return component.KindCell
	}
}

// buildTumor constructs the lattice, capacity model, growth rate,
// mutation generator, and genotype store a trial needs, per spec.md
// §6's configuration keys.
func buildTumor(cfg *config.Config) (*tumor.Tumor, *genotype.Store, *rng.Source, error) {
	store := genotype.NewStore()
	rngSrc := rng.New(cfg.Seed)

	rate, err := growth.New(cfg.BirthRate, cfg.DeathRate)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrConfig, errors.SeverityError, "constructing growth rate", err)
	}

	kinds := []mutationgen.KindConfig{
		{Kind: genotype.KindNeoantigen, RateType: mutationgen.RatePoisson, MeanRate: cfg.NeoantigenMeanRate},
		{Kind: genotype.KindScalar, RateType: mutationgen.RatePoisson, MeanRate: cfg.SelectiveMeanRate, SelectionCoeffDist: mutationgen.Delta{Value: cfg.SelectionCoeff}},
	}
	if cfg.NeutralMeanRate > 0 {
		kinds = append(kinds, mutationgen.KindConfig{Kind: genotype.KindNeutral, RateType: mutationgen.RatePoisson, MeanRate: cfg.NeutralMeanRate})
	}
	mutations, err := mutationgen.New(store, kinds...)
	if err != nil {
		return nil, nil, nil, errors.Wrap(errors.ErrConfig, errors.SeverityError, "constructing mutation generator", err)
	}

	grid, capModel := buildGrid(cfg)

	selector := tumor.UniformMooreSelector
	if cfg.ExpansionSelector == "SPHERICAL" {
		selector = tumor.WeightedSphericalSelector
	}

	tm := tumor.New(tumor.Config{
		Grid:              grid,
		Capacity:          capModel,
		Store:             store,
		Rate:              rate,
		Mutations:         mutations,
		SamplingLimit:     cfg.ExplicitSamplingLimit,
		Migration:         tumor.Pinned{},
		ExpansionSelector: selector,
	})

	return tm, store, rngSrc, nil
}

// buildGrid picks Multi (many components per site) when the
// componentType is CELL and siteCapacity allows more than one
// cell-sized component per site, or when spatialType is POINT (an
// effectively unbounded single site); Single (one component per site,
// that component free to hold many cells) otherwise — the same split
// internal/tumor's own tests use for LATTICE Cell vs. Lineage/Deme
// scenarios.
func buildGrid(cfg *config.Config) (lattice.Grid, capacity.Model) {
	if cfg.SpatialType == "POINT" {
		return lattice.NewMulti(1), capacity.Uniform{K: math.MaxInt32}
	}
	if cfg.ComponentType == "CELL" && cfg.SiteCapacity > 1 {
		return lattice.NewMulti(cfg.PeriodLength), capacity.Uniform{K: cfg.SiteCapacity}
	}
	return lattice.NewSingle(cfg.PeriodLength), capacity.Uniform{K: cfg.SiteCapacity}
}

// buildHooks attaches every report enabled in cfg.Reports, keyed
// "<group>.<name>" per spec.md §6's tumor.report.<group>.<name>.run
// keys.
func buildHooks(cfg *config.Config) ([]trial.Hook, error) {
	var hooks []trial.Hook
	dir := cfg.ReportDir
	seed := cfg.Seed

	add := func(key string, policy reports.SamplingPolicy, build func() trial.Hook) {
		s, ok := cfg.Reports[key]
		if !ok || !s.Run {
			return
		}
		hooks = append(hooks, build())
	}

	policyFor := func(key string) reports.SamplingPolicy {
		if s, ok := cfg.Reports[key]; ok && s.SampleInterval > 0 {
			return reports.IntervalPolicy{Interval: s.SampleInterval}
		}
		return reports.Always{}
	}

	add("traj.CellCountTraj", nil, func() trial.Hook { return reports.NewCellCountTrajReport(dir, policyFor("traj.CellCountTraj")) })
	add("traj.TumorDimension", nil, func() trial.Hook { return reports.NewTumorDimensionReport(dir, policyFor("traj.TumorDimension")) })
	add("traj.GrowthCount", nil, func() trial.Hook { return reports.NewGrowthCountReport(dir, policyFor("traj.GrowthCount")) })
	add("traj.ComponentCoord", nil, func() trial.Hook { return reports.NewComponentCoordReport(dir, policyFor("traj.ComponentCoord")) })
	add("mutation.MutationCount", nil, func() trial.Hook { return reports.NewMutationCountReport(dir, policyFor("mutation.MutationCount")) })

	add("history.ComponentAncestry", nil, func() trial.Hook { return &reports.ComponentAncestryReport{Dir: dir} })
	add("history.OriginalMutations", nil, func() trial.Hook { return reports.NewOriginalMutationsReport(dir, false) })
	add("history.AccumulatedMutations", nil, func() trial.Hook { return reports.NewAccumulatedMutationsReport(dir, false) })
	add("history.ScalarMutations", nil, func() trial.Hook { return &reports.ScalarMutationsReport{Dir: dir} })
	add("history.MutationHotspotSummary", nil, func() trial.Hook {
		return &reports.MutationHotspotReport{Dir: dir, WindowSteps: 50, MinMutations: 3}
	})

	add("sample.BulkVAFSummary", nil, func() trial.Hook {
		return &reports.BulkVAFSummaryReport{Dir: dir, Policy: policyFor("sample.BulkVAFSummary"), TargetSize: 100, EmptyShellDistance: 2, Seed: seed + 101}
	})
	add("sample.BulkSampleSite", nil, func() trial.Hook {
		return &reports.BulkSampleSiteReport{Dir: dir, Policy: policyFor("sample.BulkSampleSite"), TargetSize: 100, EmptyShellDistance: 2, Seed: seed + 102}
	})
	add("sample.Variegation", nil, func() trial.Hook {
		return &reports.VariegationReport{Dir: dir, Policy: policyFor("sample.Variegation"), TargetSize: 100, EmptyShellDistance: 2, Seed: seed + 103}
	})
	add("sample.BulkMutDist", nil, func() trial.Hook {
		return reports.NewBulkMutDistReport(dir, policyFor("sample.BulkMutDist"), 100, 2, seed+104)
	})
	add("sample.MetMutDist", nil, func() trial.Hook {
		return reports.NewMetMutDistReport(dir, policyFor("sample.MetMutDist"), 100, 2, seed+105)
	})
	add("sample.BulkCellMutationTypeCount", nil, func() trial.Hook {
		return reports.NewBulkCellMutationTypeCountReport(dir, policyFor("sample.BulkCellMutationTypeCount"), 10, seed+106)
	})
	add("sample.SurfaceCellMutationTypeCount", nil, func() trial.Hook {
		return reports.NewSurfaceCellMutationTypeCountReport(dir, policyFor("sample.SurfaceCellMutationTypeCount"), 10, 2, seed+107)
	})

	return hooks, nil
}

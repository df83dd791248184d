package reports

import (
	"math"
	"sort"

	"tumorsim/internal/genotype"
	"tumorsim/internal/trial"
	"tumorsim/internal/tumor"
)

// timeHotspot is a cluster of mutations whose origination time steps
// fall within one sliding window, ranked the same way
// internal/mutations' genomic-position hotspot detector ranks
// clusters of COSMIC mutations along a chromosome — here the
// clustering axis is simulated time rather than base-pair position.
type timeHotspot struct {
	StartTimeStep     int64
	EndTimeStep       int64
	MutationCount     int
	FunctionalCount   int
	SignificanceScore float64
	ClinicalScore     float64
}

// hotspotDetector finds windows of timeStep where mutations originated
// more densely than the trial's baseline rate would predict, the same
// sliding-window-plus-Poisson-significance approach the genomic hotspot
// detector uses, adapted from base-pair windows to time-step windows
// and from pathogenic-classification weight to functional-mutation
// (SCALAR/NEOANTIGEN) weight.
type hotspotDetector struct {
	windowSteps  int64
	minMutations int
	baselineRate float64 // mutations per time step
}

func newHotspotDetector(windowSteps int64, minMutations int) *hotspotDetector {
	return &hotspotDetector{windowSteps: windowSteps, minMutations: minMutations}
}

func (hd *hotspotDetector) detect(muts []genotype.Mutation) []timeHotspot {
	if len(muts) == 0 {
		return nil
	}
	sort.Slice(muts, func(i, j int) bool { return muts[i].OriginationTimeStep < muts[j].OriginationTimeStep })

	span := muts[len(muts)-1].OriginationTimeStep - muts[0].OriginationTimeStep + 1
	if span <= 0 {
		span = 1
	}
	hd.baselineRate = float64(len(muts)) / float64(span)

	var out []timeHotspot
	for i := 0; i < len(muts); i++ {
		windowStart := muts[i].OriginationTimeStep
		windowEnd := windowStart + hd.windowSteps

		window := make([]genotype.Mutation, 0, 8)
		for j := i; j < len(muts) && muts[j].OriginationTimeStep <= windowEnd; j++ {
			window = append(window, muts[j])
		}

		if len(window) >= hd.minMutations {
			hs := timeHotspot{
				StartTimeStep: windowStart,
				EndTimeStep:   windowEnd,
				MutationCount: len(window),
			}
			for _, m := range window {
				if m.Kind == genotype.KindScalar || m.Kind == genotype.KindNeoantigen {
					hs.FunctionalCount++
				}
			}
			hd.computeSignificance(&hs)
			hd.computeClinicalScore(&hs)
			out = append(out, hs)

			i += len(window) / 2
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ClinicalScore > out[j].ClinicalScore })
	return out
}

func (hd *hotspotDetector) computeSignificance(hs *timeHotspot) {
	windowLength := float64(hs.EndTimeStep - hs.StartTimeStep)
	expected := hd.baselineRate * windowLength
	if expected == 0 {
		hs.SignificanceScore = 0
		return
	}
	observed := float64(hs.MutationCount)
	zscore := (observed - expected) / math.Sqrt(expected)
	pvalue := 0.5 * math.Erfc(zscore/math.Sqrt(2.0))
	if pvalue > 0 {
		hs.SignificanceScore = -math.Log10(pvalue)
	} else {
		hs.SignificanceScore = 10.0
	}
}

func (hd *hotspotDetector) computeClinicalScore(hs *timeHotspot) {
	functionalScore := math.Min(float64(hs.FunctionalCount)/float64(hs.MutationCount), 1.0)
	sigScore := math.Min(hs.SignificanceScore/10.0, 1.0)
	hs.ClinicalScore = 0.5*functionalScore + 0.5*sigScore
}

// MutationHotspotReport writes mutation-hotspot-summary.csv: one row
// per detected time-step hotspot, ranked by clinical score, for every
// mutation ever minted in the trial. Dumped once at FinalizeTrial since
// it is a retrospective analysis over the whole trial's mutation
// history rather than a per-step sample.
type MutationHotspotReport struct {
	noopHook
	Dir          string
	WindowSteps  int64
	MinMutations int
}

// FinalizeTrial runs the sliding-window detector over every mutation
// minted during the trial and writes the ranked hotspot list.
func (r *MutationHotspotReport) FinalizeTrial(tm *tumor.Tumor, trialIndex int) error {
	w, err := NewWriter(path(r.Dir, "mutation-hotspot-summary", false), ',',
		[]string{"trialIndex", "startTimeStep", "endTimeStep", "mutationCount", "functionalCount", "significanceScore", "clinicalScore"})
	if err != nil {
		return err
	}
	det := newHotspotDetector(r.WindowSteps, r.MinMutations)
	hotspots := det.detect(tm.Store().AllOriginalMutations())
	for _, hs := range hotspots {
		row := []string{
			itoa(trialIndex), i64toa(hs.StartTimeStep), i64toa(hs.EndTimeStep),
			itoa(hs.MutationCount), itoa(hs.FunctionalCount),
			ftoa(hs.SignificanceScore), ftoa(hs.ClinicalScore),
		}
		if err := w.WriteRecord(row); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

var _ trial.Hook = (*MutationHotspotReport)(nil)

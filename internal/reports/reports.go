package reports

import (
	"fmt"
	"path/filepath"
	"strconv"

	"tumorsim/internal/geometry"
	"tumorsim/internal/lattice"
	"tumorsim/internal/tumor"
)

// RecordHeader is the (trialIndex, timeStep) prefix every sampled-step
// record carries (spec.md §9: "provide a single RecordHeader value and
// reuse it across report kinds rather than duplicating formatting").
type RecordHeader struct {
	TrialIndex int
	TimeStep   int64
}

// fields returns the header's two leading CSV fields.
func (h RecordHeader) fields() []string {
	return []string{strconv.Itoa(h.TrialIndex), strconv.FormatInt(h.TimeStep, 10)}
}

func itoa(n int) string      { return strconv.Itoa(n) }
func i64toa(n int64) string  { return strconv.FormatInt(n, 10) }
func ftoa(f float64) string  { return strconv.FormatFloat(f, 'g', -1, 64) }

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

// occupiedCoords returns every currently occupied site, for reports
// that need to pick a few at random (bulk-cell-mutation-type-count).
func occupiedCoords(tm *tumor.Tumor) []lattice.Coord {
	counts := tm.SiteCounts()
	out := make([]lattice.Coord, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	return out
}

// path builds dir/baseName.csv or dir/baseName.csv.gz.
func path(dir, baseName string, gzip bool) string {
	if gzip {
		return filepath.Join(dir, baseName+".csv.gz")
	}
	return filepath.Join(dir, baseName+".csv")
}

// closeAll closes every writer in order, returning the first error (if
// any) but still attempting every close.
func closeAll(writers ...*Writer) error {
	var first error
	for _, w := range writers {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("reports: closing writer: %w", err)
		}
	}
	return first
}

package reports

// SamplingPolicy decides, for a just-completed step, whether that
// step's state should be recorded by the sampled-step reports
// (cell-count-traj, tumor-dimension, growth-count, and the bulk/surface
// summary reports). Per spec.md §4.11 this is either a fixed step
// interval or the first step crossing one of a list of tumor-size
// thresholds.
type SamplingPolicy interface {
	ShouldSample(timeStep int64, totalCellCount int) bool
}

// IntervalPolicy samples every step that is a multiple of Interval
// (Interval<=0 never samples).
type IntervalPolicy struct {
	Interval int64
}

// ShouldSample reports whether timeStep is a sampling step under a
// fixed interval.
func (p IntervalPolicy) ShouldSample(timeStep int64, _ int) bool {
	if p.Interval <= 0 {
		return false
	}
	return timeStep%p.Interval == 0
}

// SizeThresholdPolicy samples the first step at which totalCellCount
// crosses each listed threshold (each threshold fires at most once,
// in whichever order the tumor happens to cross them).
type SizeThresholdPolicy struct {
	Thresholds []int
	crossed    map[int]bool
}

// NewSizeThresholdPolicy builds a policy over the given thresholds.
func NewSizeThresholdPolicy(thresholds []int) *SizeThresholdPolicy {
	return &SizeThresholdPolicy{Thresholds: thresholds, crossed: make(map[int]bool, len(thresholds))}
}

// ShouldSample reports whether totalCellCount has just crossed any
// not-yet-crossed threshold.
func (p *SizeThresholdPolicy) ShouldSample(_ int64, totalCellCount int) bool {
	if p.crossed == nil {
		p.crossed = make(map[int]bool, len(p.Thresholds))
	}
	sampled := false
	for _, th := range p.Thresholds {
		if !p.crossed[th] && totalCellCount >= th {
			p.crossed[th] = true
			sampled = true
		}
	}
	return sampled
}

// Always samples every step, for tests and for kinds the driver wants
// recorded unconditionally.
type Always struct{}

// ShouldSample always returns true.
func (Always) ShouldSample(int64, int) bool { return true }

package params

import "github.com/pkg/errors"

// BackgroundMode selects the per-pixel reduction statistic used by the
// background estimator.
type BackgroundMode string

// BackgroundMode constants.
const (
	BackgroundMedian     BackgroundMode = "Median"
	BackgroundMean       BackgroundMode = "Mean"
	BackgroundMin        BackgroundMode = "Min"
	BackgroundMax        BackgroundMode = "Max"
	BackgroundPercentile BackgroundMode = "Percentile"
)

// BackgroundSpec describes how a background reference image is estimated from
// sampled frames. It is mutated while picking sample frames interactively and
// consumed once by the estimator.
type BackgroundSpec struct {
	Mode BackgroundMode `json:"mode"`

	// Percentile in (0,100); only used when Mode is BackgroundPercentile.
	Percentile float64 `json:"percentile"`

	// PickedTimes are the sample timestamps in seconds, either user-selected
	// or auto-generated. An empty set makes the estimator a no-op.
	PickedTimes []float64 `json:"pickedTimes"`

	// FramesNum is the number of auto-generated sample timestamps.
	FramesNum int `json:"framesNum"`
}

// DefaultBackgroundSpec returns the stock spec: median over 10 evenly spaced
// frames.
func DefaultBackgroundSpec() BackgroundSpec {
	return BackgroundSpec{
		Mode:       BackgroundMedian,
		Percentile: 50,
		FramesNum:  10,
	}
}

// Validate rejects invalid specs at the boundary.
func (s BackgroundSpec) Validate() error {
	switch s.Mode {
	case BackgroundMedian, BackgroundMean, BackgroundMin, BackgroundMax, BackgroundPercentile:
	default:
		return errors.Errorf("params: unknown background mode %q", s.Mode)
	}
	if s.Mode == BackgroundPercentile && (s.Percentile <= 0 || s.Percentile >= 100) {
		return errors.Errorf("params: percentile %v outside (0,100)", s.Percentile)
	}
	if s.FramesNum <= 0 {
		return errors.Errorf("params: framesNum %d must be positive", s.FramesNum)
	}
	return nil
}

// AutoTimes fills PickedTimes with FramesNum evenly spaced timestamps spanning
// the clip duration. Already-picked timestamps are replaced.
func (s *BackgroundSpec) AutoTimes(duration float64) {
	if s.FramesNum <= 0 || duration <= 0 {
		return
	}
	times := make([]float64, s.FramesNum)
	if s.FramesNum == 1 {
		times[0] = duration / 2
	} else {
		step := duration / float64(s.FramesNum)
		for i := range times {
			// Sample mid-interval so the first and last frames stay clear of
			// decoder edge effects.
			times[i] = (float64(i) + 0.5) * step
		}
	}
	s.PickedTimes = times
}

package tracking

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
	"github.com/openethology/blobtrack/video"
)

// FrameRecord is the per-frame tracking output. Contour and Centroid carry
// NaN sentinels and Motion is NaN when the frame failed to track or has no
// valid predecessor.
type FrameRecord struct {
	Time     float64    `json:"time"`
	Contour  []Point2f  `json:"contour"`
	Centroid [2]float64 `json:"centroid"`
	Motion   float64    `json:"motion"`
}

// ProcessFrame runs the full single-frame pipeline and threads the previous
// silhouette through as an explicit accumulator. The returned mask is nil for
// a failed frame, which makes the next frame's motion measure NaN.
func ProcessFrame(f images.Frame, p *params.TrackingParameters, prev *images.Mask) (FrameRecord, *images.Mask) {
	rec := FrameRecord{
		Time:     f.Time,
		Contour:  NaNContour(),
		Centroid: [2]float64{nan64(), nan64()},
		Motion:   nan64(),
	}

	working := SelectChannel(f, p)
	mask, ok := ExtractSilhouette(working, p)
	if !ok {
		return rec, nil
	}

	rec.Contour = Contour(mask, p.Smoothing)
	rec.Centroid[0], rec.Centroid[1] = Centroid(mask)
	rec.Motion = MotionMeasure(&mask, prev)
	return rec, &mask
}

// SingleFrame is the boundary operation used by the interactive layer: it
// returns the silhouette, contour and centroid for one frame without touching
// any run state. ok is false when no object was found.
func SingleFrame(f images.Frame, p *params.TrackingParameters) (mask images.Mask, contour []Point2f, centroid [2]float64, ok bool) {
	rec, m := ProcessFrame(f, p, nil)
	if m == nil {
		return images.Mask{}, rec.Contour, rec.Centroid, false
	}
	return *m, rec.Contour, rec.Centroid, true
}

// Run tracks every frame of the source in order and returns the records.
// Frame order is a hard sequential dependency: each frame's motion measure
// references the previous frame's silhouette. Cancellation is cooperative,
// checked between frames.
func Run(ctx context.Context, src video.Source, p *params.TrackingParameters) ([]FrameRecord, error) {
	// Decoder frame counts are unreliable, so size the buffer generously and
	// let the append truncate to what was actually read.
	capacity := int(math.Ceil(1.1 * src.Duration() * src.FrameRate()))
	if capacity < 1 {
		capacity = 1
	}
	records := make([]FrameRecord, 0, capacity)

	var prev *images.Mask
	for src.HasNextFrame() {
		select {
		case <-ctx.Done():
			return records, errors.Wrap(ctx.Err(), "tracking: run cancelled")
		default:
		}

		frame, err := src.ReadNextFrame()
		if errors.Is(err, video.ErrEOF) {
			// Sources with an unknown frame count signal the real end here.
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "tracking: source read failed")
		}
		rec, mask := ProcessFrame(frame, p, prev)
		records = append(records, rec)
		prev = mask
	}
	return records, nil
}

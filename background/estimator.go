// Package background estimates the static reference image subtracted from
// frames during tracking. A set of sampled frames is reduced per pixel and
// per plane with a configurable statistic.
package background

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
	"github.com/openethology/blobtrack/video"
)

// Estimate samples the clip at the spec's picked timestamps and reduces the
// stack into one reference frame. An empty timestamp set is not an error: it
// returns (nil, nil), meaning "no background configured". Sampling runs in
// parallel, one source handle per worker, because sample reads are
// independent and order-insensitive.
func Estimate(spec params.BackgroundSpec, open video.Opener, path string) (*images.Frame, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(spec.PickedTimes) == 0 {
		return nil, nil
	}

	samples, err := sampleFrames(spec.PickedTimes, open, path)
	if err != nil {
		return nil, err
	}
	return reduce(spec, samples)
}

func sampleFrames(times []float64, open video.Opener, path string) ([]images.Frame, error) {
	workers := runtime.NumCPU()
	if workers > len(times) {
		workers = len(times)
	}

	samples := make([]images.Frame, len(times))
	errs := make([]error, workers)
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			src, err := open(path)
			if err != nil {
				errs[w] = errors.Wrap(err, "background: open source")
				for range jobs {
					// Drain so the feeder never blocks.
				}
				return
			}
			defer src.Close()
			for i := range jobs {
				if err := src.Seek(times[i]); err != nil {
					errs[w] = errors.Wrapf(err, "background: seek %.3fs", times[i])
					continue
				}
				frame, err := src.ReadNextFrame()
				if err != nil {
					errs[w] = errors.Wrapf(err, "background: sample %.3fs", times[i])
					continue
				}
				samples[i] = frame
			}
		}(w)
	}
	for i := range times {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return samples, nil
}

func reduce(spec params.BackgroundSpec, samples []images.Frame) (*images.Frame, error) {
	first := samples[0]
	for _, f := range samples[1:] {
		if len(f.Planes) != len(first.Planes) ||
			f.Planes[0].W != first.Planes[0].W || f.Planes[0].H != first.Planes[0].H {
			return nil, errors.New("background: sampled frames disagree on geometry")
		}
	}

	q := spec.Percentile / 100
	if spec.Mode == params.BackgroundMedian {
		q = 0.5
	}

	out := images.Frame{Planes: make([]images.Gray, len(first.Planes))}
	for pl := range first.Planes {
		plane := images.NewGray(first.Planes[pl].W, first.Planes[pl].H)
		// The reduction is a pure function of each pixel's stack, so it
		// parallelizes freely across pixels.
		images.Parallel(len(plane.Pix), func(start, end int) {
			stack := make([]float64, len(samples))
			for i := start; i < end; i++ {
				for s, f := range samples {
					stack[s] = float64(f.Planes[pl].Pix[i])
				}
				var v float64
				switch spec.Mode {
				case params.BackgroundMean:
					v = stat.Mean(stack, nil)
				case params.BackgroundMin:
					v = floats.Min(stack)
				case params.BackgroundMax:
					v = floats.Max(stack)
				default: // Median and Percentile.
					sort.Float64s(stack)
					v = stat.Quantile(q, stat.Empirical, stack, nil)
				}
				plane.Pix[i] = clampByte(v)
			}
		})
		out.Planes[pl] = plane
	}
	return &out, nil
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Package tracking implements the per-frame silhouette pipeline: polarity
// normalization and background removal, reflection-penalty masking,
// thresholding, morphological cleanup, largest-blob selection, contour and
// centroid extraction, and the frame-to-frame motion measure.
package tracking

import (
	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
)

// SelectChannel picks the working intensity plane for a frame according to
// the parameter snapshot. Single-plane frames pass through untouched.
func SelectChannel(f images.Frame, p *params.TrackingParameters) images.Gray {
	if len(f.Planes) == 1 || p.VideoMode == params.ModeThermal {
		return f.Planes[0]
	}
	switch p.Channel {
	case params.ChannelR:
		return f.Channel(images.PlaneR)
	case params.ChannelG:
		return f.Channel(images.PlaneG)
	case params.ChannelB:
		return f.Channel(images.PlaneB)
	default:
		return f.Grey()
	}
}

// ExtractSilhouette runs the fixed silhouette pipeline over one working plane
// and returns the object mask. ok is false when no object was found: nothing
// survives the pipeline, or the mask degenerates to the full frame.
func ExtractSilhouette(g images.Gray, p *params.TrackingParameters) (images.Mask, bool) {
	working := normalize(g, p)

	// Reflection penalty: pixels outside the inclusion region are divided by
	// the penalty so reflections cannot out-bright the object.
	penalized := p.ReflectionPenalty > 1 && p.Mask != nil
	if penalized {
		applyPenalty(&working, *p.Mask, p.ReflectionPenalty)
	}

	// Threshold.
	bin := images.NewMask(g.W, g.H)
	thr := p.Threshold
	images.Parallel(len(working.Pix), func(start, end int) {
		for i := start; i < end; i++ {
			bin.Pix[i] = int(working.Pix[i]) > thr
		}
	})

	// Pre-filter: fixed component floor, small fixed-radius opening, floor
	// again. The floor is always active; the opening follows the size-filter
	// toggle.
	bin = bin.RemoveSmall(params.MinBlobArea)
	if p.SizeFilterEnabled {
		bin = images.Open(bin, params.PreFilterRadius)
		bin = bin.RemoveSmall(params.MinBlobArea)
	}

	// Residual removal in the penalized zone: components that never touch the
	// inclusion region are reflections and are dropped. If that empties the
	// mask entirely the removal was too aggressive, so keep the pre-removal
	// mask instead.
	if penalized {
		kept, any := bin.KeepIntersecting(*p.Mask)
		if any {
			bin = kept
		}
	}

	// Fixed morphological sequence, each stage independently toggled.
	if p.Morphology.Close1.Enabled {
		bin = images.Close(bin, p.Morphology.Close1.Radius)
	}
	if p.SizeFilterEnabled {
		bin = bin.RemoveSmall(p.SizeFilterMinArea)
	}
	if p.Morphology.Close2.Enabled {
		bin = images.Close(bin, p.Morphology.Close2.Radius)
	}
	if p.Morphology.Open1.Enabled {
		bin = images.Open(bin, p.Morphology.Open1.Radius)
	}

	return bin.Largest()
}

// normalize applies the polarity-dependent background formula so the object
// is always bright in the working representation. All arithmetic widens to
// int and clips to [0,255] before truncating back to a byte; the 0/255
// boundary must clamp, never wrap.
func normalize(g images.Gray, p *params.TrackingParameters) images.Gray {
	out := images.NewGray(g.W, g.H)

	var bg *images.Gray
	if p.Background.Enabled && p.Background.Image != nil {
		plane := SelectChannel(*p.Background.Image, p)
		bg = &plane
	}

	low := p.Intensity == params.IntensityLow
	images.Parallel(len(g.Pix), func(start, end int) {
		for i := start; i < end; i++ {
			var v int
			switch {
			case low && bg != nil:
				// Inverted subtract: (255-frame)-(255-background).
				v = int(bg.Pix[i]) - int(g.Pix[i])
			case low:
				v = 255 - int(g.Pix[i])
			case bg != nil:
				v = int(g.Pix[i]) - int(bg.Pix[i])
			default:
				v = int(g.Pix[i])
			}
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.Pix[i] = uint8(v)
		}
	})
	return out
}

// applyPenalty divides the intensity of every pixel in the exclusion region by
// the penalty, truncating like integer division. The exclusion region is
// always the complement of the inclusion mask, so the two can never overlap.
func applyPenalty(g *images.Gray, incl images.Mask, penalty float64) {
	excl := incl.Complement()
	images.Parallel(len(g.Pix), func(start, end int) {
		for i := start; i < end; i++ {
			if excl.Pix[i] {
				g.Pix[i] = uint8(float64(g.Pix[i]) / penalty)
			}
		}
	})
}

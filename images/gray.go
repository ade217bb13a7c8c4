// Package images provides the plane, mask, morphology and connected-component
// primitives used by the silhouette pipeline. The per-pixel operations are
// implemented in pure Go so the unsigned 8-bit arithmetic of the pipeline is
// exact; decode and capture stay on gocv.
package images

// Gray is a single 8-bit intensity plane stored row-major.
type Gray struct {
	W, H int
	Pix  []uint8
}

// NewGray returns a zeroed w×h plane.
func NewGray(w, h int) Gray {
	return Gray{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At returns the intensity at (x,y). Callers are expected to stay in bounds.
func (g Gray) At(x, y int) uint8 { return g.Pix[y*g.W+x] }

// Set writes the intensity at (x,y).
func (g *Gray) Set(x, y int, v uint8) { g.Pix[y*g.W+x] = v }

// Clone returns a deep copy.
func (g Gray) Clone() Gray {
	c := Gray{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	copy(c.Pix, g.Pix)
	return c
}

// Frame is one decoded video frame: a timestamp plus one intensity plane for
// greyscale/thermal sources or three (R, G, B in that order) for RGB sources.
type Frame struct {
	Time   float64 `json:"time"`
	Planes []Gray  `json:"planes"`
}

// Clone returns a deep copy of the frame and all its planes.
func (f Frame) Clone() Frame {
	c := Frame{Time: f.Time, Planes: make([]Gray, len(f.Planes))}
	for i, p := range f.Planes {
		c.Planes[i] = p.Clone()
	}
	return c
}

// Plane indices for RGB frames.
const (
	PlaneR = 0
	PlaneG = 1
	PlaneB = 2
)

// Channel returns the requested plane of an RGB frame, or the sole plane of a
// single-plane frame regardless of the request.
func (f Frame) Channel(idx int) Gray {
	if len(f.Planes) == 1 {
		return f.Planes[0]
	}
	return f.Planes[idx]
}

// Grey returns the luma-weighted grey plane of an RGB frame, or the sole plane
// of a single-plane frame. Weights follow the usual BT.601 coefficients.
func (f Frame) Grey() Gray {
	if len(f.Planes) == 1 {
		return f.Planes[0]
	}
	r, g, b := f.Planes[PlaneR], f.Planes[PlaneG], f.Planes[PlaneB]
	out := NewGray(r.W, r.H)
	Parallel(len(out.Pix), func(start, end int) {
		for i := start; i < end; i++ {
			v := 299*int(r.Pix[i]) + 587*int(g.Pix[i]) + 114*int(b.Pix[i])
			out.Pix[i] = uint8((v + 500) / 1000)
		}
	})
	return out
}

package tracking

import (
	"github.com/chewxy/math32"

	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
)

// Point2f is one contour vertex in pixel coordinates.
type Point2f struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// NaNContour is the two-element sentinel recorded for frames where no object
// was found. Callers must never run geometric operations on it.
func NaNContour() []Point2f {
	nan := math32.NaN()
	return []Point2f{{X: nan, Y: nan}, {X: nan, Y: nan}}
}

// IsNaNContour reports whether c is the sentinel produced by NaNContour.
func IsNaNContour(c []Point2f) bool {
	return len(c) == 2 && math32.IsNaN(c[0].X) && math32.IsNaN(c[0].Y)
}

// Contour traces the boundary of the silhouette, applies optional smoothing,
// and closes the polygon by repeating the first vertex. When tracing yields
// several disjoint loops the longest one by vertex count wins.
func Contour(m images.Mask, smoothing params.Smoothing) []Point2f {
	loops := traceLoops(m)
	if len(loops) == 0 {
		return NaNContour()
	}
	longest := loops[0]
	for _, l := range loops[1:] {
		if len(l) > len(longest) {
			longest = l
		}
	}
	if smoothing.Enabled && smoothing.Window > 1 {
		longest = Smooth(longest, smoothing.Window)
	}
	return append(longest, longest[0])
}

// Smooth applies a centered circular moving average independently to the x
// and y coordinate sequences of an open loop. The average is always centered
// with window/2 taps on each side, so an even window behaves as the next odd
// one (window 4 and window 5 are both 5 taps). A window of 1 is the identity.
func Smooth(loop []Point2f, window int) []Point2f {
	half := window / 2
	if half == 0 || len(loop) < 2 {
		return loop
	}
	n := len(loop)
	out := make([]Point2f, n)
	for i := range loop {
		var sx, sy float32
		taps := 2*half + 1
		for d := -half; d <= half; d++ {
			j := ((i+d)%n + n) % n
			sx += loop[j].X
			sy += loop[j].Y
		}
		out[i] = Point2f{X: sx / float32(taps), Y: sy / float32(taps)}
	}
	return out
}

// Centroid is the mean pixel position of the silhouette (image-moment
// centroid of the component, not the polygon centroid). Returns NaNs for an
// empty mask.
func Centroid(m images.Mask) (float64, float64) {
	var sx, sy, n float64
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.Pix[y*m.W+x] {
				sx += float64(x)
				sy += float64(y)
				n++
			}
		}
	}
	if n == 0 {
		return nan64(), nan64()
	}
	return sx / n, sy / n
}

// Clockwise Moore neighbourhood in image coordinates (y grows downward),
// starting west.
var moore = [8][2]int{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// mooreIndex maps a (dx+1, dy+1) delta to its position in the moore ring.
var mooreIndex = func() [3][3]int {
	var idx [3][3]int
	for i, d := range moore {
		idx[d[0]+1][d[1]+1] = i
	}
	return idx
}()

// traceLoops traces the outer boundary of every connected component using
// Moore-neighbour tracing with Jacob's stopping criterion and returns one
// ordered open loop per component.
func traceLoops(m images.Mask) [][]Point2f {
	labels, count := m.Label()
	if count == 0 {
		return nil
	}
	// First raster-order pixel per component: its west and north neighbours
	// are guaranteed background, which seeds the backtrack direction.
	starts := make([]int, count+1)
	for i := range starts {
		starts[i] = -1
	}
	for i, l := range labels {
		if l > 0 && starts[l] == -1 {
			starts[l] = i
		}
	}

	loops := make([][]Point2f, 0, count)
	for l := int32(1); l <= int32(count); l++ {
		loops = append(loops, traceBoundary(m, labels, l, starts[l]))
	}
	return loops
}

func traceBoundary(m images.Mask, labels []int32, label int32, start int) []Point2f {
	sx, sy := start%m.W, start/m.W
	loop := []Point2f{{X: float32(sx), Y: float32(sy)}}

	cx, cy := sx, sy
	bdir := 0 // Backtrack direction: west of the start pixel is background.
	limit := 4 * len(m.Pix)

	for step := 0; step < limit; step++ {
		next := -1
		for i := 1; i <= 8; i++ {
			d := (bdir + i) % 8
			nx, ny := cx+moore[d][0], cy+moore[d][1]
			if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
				continue
			}
			if labels[ny*m.W+nx] == label {
				next = d
				break
			}
		}
		if next < 0 {
			// Isolated single-pixel component.
			break
		}

		// The backtrack of the new pixel is the neighbour scanned just before
		// it; consecutive ring positions are 8-adjacent so the delta is valid.
		prevd := (next + 7) % 8
		px, py := cx+moore[prevd][0], cy+moore[prevd][1]
		cx, cy = cx+moore[next][0], cy+moore[next][1]
		bdir = mooreIndex[px-cx+1][py-cy+1]

		if cx == sx && cy == sy && bdir == 0 {
			// Back at the start with the original backtrack: loop closed.
			break
		}
		loop = append(loop, Point2f{X: float32(cx), Y: float32(cy)})
	}
	return loop
}

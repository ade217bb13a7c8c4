package tracking

import (
	"math"

	"github.com/openethology/blobtrack/images"
)

func nan64() float64 { return math.NaN() }

// MotionMeasure compares consecutive silhouettes and returns the percentage
// of the previous object area that turned newly foreground:
//
//	100 * |cur ∧ ¬prev| / |prev|
//
// The measure is intentionally asymmetric — it counts newly covered area, not
// the symmetric difference — so results stay comparable with historical
// recordings. NaN when either mask is missing (failed frame or first frame).
func MotionMeasure(cur, prev *images.Mask) float64 {
	if cur == nil || prev == nil {
		return nan64()
	}
	prevCount := prev.Count()
	if prevCount == 0 {
		return nan64()
	}
	newly := 0
	for i, v := range cur.Pix {
		if v && !prev.Pix[i] {
			newly++
		}
	}
	return 100 * float64(newly) / float64(prevCount)
}

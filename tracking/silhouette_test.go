package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
)

// grayWithSquare builds a w×h plane of background intensity bg with a side×side
// square of intensity fg whose top-left corner sits at (x,y).
func grayWithSquare(w, h int, bg, fg uint8, x, y, side int) images.Gray {
	g := images.NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = bg
	}
	for dy := 0; dy < side; dy++ {
		for dx := 0; dx < side; dx++ {
			g.Set(x+dx, y+dy, fg)
		}
	}
	return g
}

// bareParams disables everything optional so individual stages can be tested
// in isolation.
func bareParams(intensity params.Intensity, threshold int) params.TrackingParameters {
	p := params.Defaults()
	p.Intensity = intensity
	p.Threshold = threshold
	p.Morphology.Close1.Enabled = false
	p.Morphology.Close2.Enabled = false
	p.Morphology.Open1.Enabled = false
	p.Smoothing.Enabled = false
	return p
}

func TestExtractSilhouetteBrightSquare(t *testing.T) {
	g := grayWithSquare(32, 32, 0, 255, 10, 10, 5)
	p := bareParams(params.IntensityHigh, 128)

	mask, ok := ExtractSilhouette(g, &p)
	require.True(t, ok)
	assert.Equal(t, 25, mask.Count())
	assert.True(t, mask.At(12, 12))
}

func TestExtractSilhouetteDarkSquareLowPolarity(t *testing.T) {
	g := grayWithSquare(32, 32, 255, 0, 10, 10, 5)
	p := bareParams(params.IntensityLow, 128)

	mask, ok := ExtractSilhouette(g, &p)
	require.True(t, ok)
	assert.Equal(t, 25, mask.Count(), "low polarity inverts so the dark object is bright internally")
}

func TestExtractSilhouetteUniformFrameNeverTracks(t *testing.T) {
	for _, v := range []uint8{0, 100, 255} {
		for _, thr := range []int{0, 64, 128, 200, 255} {
			g := images.NewGray(16, 16)
			for i := range g.Pix {
				g.Pix[i] = v
			}
			p := params.Defaults()
			p.Intensity = params.IntensityHigh
			p.Threshold = thr

			_, ok := ExtractSilhouette(g, &p)
			assert.Falsef(t, ok, "uniform intensity %d at threshold %d must yield no object", v, thr)
		}
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	// Row-wise intensity ramp: the mask at a lower threshold must be a
	// superset of the mask at a higher one.
	g := images.NewGray(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			g.Set(x, y, uint8(y*4))
		}
	}
	p1 := bareParams(params.IntensityHigh, 80)
	p2 := bareParams(params.IntensityHigh, 160)

	m1, ok1 := ExtractSilhouette(g, &p1)
	m2, ok2 := ExtractSilhouette(g, &p2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Greater(t, m1.Count(), m2.Count())
	for i, v := range m2.Pix {
		if v {
			assert.True(t, m1.Pix[i], "lower threshold mask must contain higher threshold mask")
		}
	}
}

func TestSmallComponentFloorAlwaysApplies(t *testing.T) {
	// A 9-pixel blob sits under the fixed 10-pixel floor even with the user
	// size filter off.
	g := grayWithSquare(32, 32, 0, 255, 5, 5, 3)
	p := bareParams(params.IntensityHigh, 128)
	p.SizeFilterEnabled = false

	_, ok := ExtractSilhouette(g, &p)
	assert.False(t, ok)
}

func TestUserSizeFilterRemovesMediumBlobs(t *testing.T) {
	g := grayWithSquare(64, 64, 0, 255, 5, 5, 6) // 36 px, above the fixed floor
	p := bareParams(params.IntensityHigh, 128)

	_, ok := ExtractSilhouette(g, &p)
	require.True(t, ok, "blob tracks with the size filter off")

	p.SizeFilterEnabled = true
	p.SizeFilterMinArea = 100
	_, ok = ExtractSilhouette(g, &p)
	assert.False(t, ok, "user minimum area applies at the morphology stage")
}

func TestBackgroundSubtractionHighPolarity(t *testing.T) {
	// Static bright clutter is part of the background image, so subtraction
	// must remove it and keep only the object.
	bg := grayWithSquare(32, 32, 0, 200, 2, 2, 6) // clutter blob
	frame := bg.Clone()
	for dy := 0; dy < 5; dy++ {
		for dx := 0; dx < 5; dx++ {
			frame.Set(20+dx, 20+dy, 255) // the object
		}
	}

	p := bareParams(params.IntensityHigh, 50)
	p.Background = params.Background{
		Enabled: true,
		Image:   &images.Frame{Planes: []images.Gray{bg}},
	}

	mask, ok := ExtractSilhouette(frame, &p)
	require.True(t, ok)
	assert.Equal(t, 25, mask.Count())
	assert.True(t, mask.At(22, 22))
	assert.False(t, mask.At(4, 4), "static clutter must cancel against the background image")
}

func TestReflectionPenaltySuppressesOutsideBlob(t *testing.T) {
	// Object inside the inclusion region, reflection outside. The penalty
	// halves the reflection below threshold.
	g := grayWithSquare(32, 32, 0, 200, 4, 4, 5) // inside inclusion
	for dy := 0; dy < 5; dy++ {
		for dx := 0; dx < 5; dx++ {
			g.Set(24+dx, 24+dy, 200) // reflection outside
		}
	}
	incl := images.NewMask(32, 32)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			incl.Set(x, y, true)
		}
	}
	p := bareParams(params.IntensityHigh, 128)
	p.ReflectionPenalty = 2
	p.Mask = &incl

	mask, ok := ExtractSilhouette(g, &p)
	require.True(t, ok)
	assert.True(t, mask.At(6, 6))
	assert.False(t, mask.At(26, 26), "penalized reflection falls below threshold")
}

func TestResidualRemovalDropsNonIntersectingBlob(t *testing.T) {
	// Both blobs survive thresholding, but only one touches the inclusion
	// region; the other is a reflection residue.
	g := grayWithSquare(32, 32, 0, 255, 4, 4, 5)
	for dy := 0; dy < 5; dy++ {
		for dx := 0; dx < 5; dx++ {
			g.Set(24+dx, 24+dy, 255)
		}
	}
	incl := images.NewMask(32, 32)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			incl.Set(x, y, true)
		}
	}
	p := bareParams(params.IntensityHigh, 100)
	p.ReflectionPenalty = 2
	p.Mask = &incl

	mask, ok := ExtractSilhouette(g, &p)
	require.True(t, ok)
	assert.True(t, mask.At(6, 6))
	assert.False(t, mask.At(26, 26))
}

func TestResidualRemovalRevertsWhenMaskWouldEmpty(t *testing.T) {
	// The only blob sits entirely outside the inclusion region. Removing it
	// would empty the mask, so the removal must revert and keep the blob.
	g := grayWithSquare(32, 32, 0, 255, 24, 24, 5)
	incl := images.NewMask(32, 32)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			incl.Set(x, y, true)
		}
	}
	p := bareParams(params.IntensityHigh, 100)
	p.ReflectionPenalty = 2
	p.Mask = &incl

	mask, ok := ExtractSilhouette(g, &p)
	require.True(t, ok, "revert fail-safe keeps the pre-removal mask")
	assert.True(t, mask.At(26, 26))
}

func TestSelectChannel(t *testing.T) {
	r := images.NewGray(2, 2)
	g := images.NewGray(2, 2)
	b := images.NewGray(2, 2)
	r.Pix[0], g.Pix[0], b.Pix[0] = 10, 20, 30
	f := images.Frame{Planes: []images.Gray{r, g, b}}

	p := params.Defaults()
	p.Channel = params.ChannelR
	assert.EqualValues(t, 10, SelectChannel(f, &p).Pix[0])
	p.Channel = params.ChannelB
	assert.EqualValues(t, 30, SelectChannel(f, &p).Pix[0])

	single := images.Frame{Planes: []images.Gray{g}}
	p.Channel = params.ChannelR
	assert.EqualValues(t, 20, SelectChannel(single, &p).Pix[0], "single-plane frames ignore the channel")
}

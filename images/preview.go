package images

import (
	"image"

	"github.com/nfnt/resize"
)

// Preview returns a standard-library greyscale image downscaled so that the
// longest side is at most maxDim pixels. The UI layer uses it for scrub-bar
// thumbnails; the pipeline never sees resized data.
func Preview(g Gray, maxDim int) image.Image {
	src := image.NewGray(image.Rect(0, 0, g.W, g.H))
	copy(src.Pix, g.Pix)
	if maxDim <= 0 || (g.W <= maxDim && g.H <= maxDim) {
		return src
	}
	w, h := uint(maxDim), uint(0)
	if g.H > g.W {
		w, h = 0, uint(maxDim)
	}
	return resize.Resize(w, h, src, resize.Bilinear)
}

package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// GrayFromMat copies a single-channel 8-bit Mat into a Gray plane.
func GrayFromMat(mat gocv.Mat) (Gray, error) {
	if mat.Empty() {
		return Gray{}, errors.New("images: empty mat")
	}
	if mat.Channels() != 1 || mat.Type() != gocv.MatTypeCV8U {
		return Gray{}, errors.Errorf("images: want single-channel 8-bit mat, got type %d with %d channels",
			mat.Type(), mat.Channels())
	}
	g := Gray{W: mat.Cols(), H: mat.Rows(), Pix: mat.ToBytes()}
	return g, nil
}

// FrameFromMat converts a decoded gocv frame into a Frame. Colour mats are
// split into R, G, B planes; single-channel mats become one plane.
func FrameFromMat(mat gocv.Mat, t float64) (Frame, error) {
	if mat.Empty() {
		return Frame{}, errors.New("images: empty mat")
	}
	if mat.Channels() == 1 {
		g, err := GrayFromMat(mat)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Time: t, Planes: []Gray{g}}, nil
	}
	if mat.Channels() != 3 {
		return Frame{}, errors.Errorf("images: unsupported channel count %d", mat.Channels())
	}

	// gocv decodes colour frames as BGR.
	chans := gocv.Split(mat)
	defer func() {
		for i := range chans {
			chans[i].Close()
		}
	}()
	b, err := GrayFromMat(chans[0])
	if err != nil {
		return Frame{}, errors.Wrap(err, "images: blue plane")
	}
	g, err := GrayFromMat(chans[1])
	if err != nil {
		return Frame{}, errors.Wrap(err, "images: green plane")
	}
	r, err := GrayFromMat(chans[2])
	if err != nil {
		return Frame{}, errors.Wrap(err, "images: red plane")
	}
	return Frame{Time: t, Planes: []Gray{r, g, b}}, nil
}

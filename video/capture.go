package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/openethology/blobtrack/images"
)

// Capture reads frames from a video file through gocv.
type Capture struct {
	path string
	cap  *gocv.VideoCapture
	mat  gocv.Mat

	fps    float64
	frames float64
	grey   bool
}

// OpenCapture opens a video file. When grey is true every frame is collapsed
// to a single intensity plane (thermal/greyscale recordings); otherwise frames
// carry R, G and B planes.
func OpenCapture(path string, grey bool) (*Capture, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "video: open %s", path)
	}
	c := &Capture{
		path:   path,
		cap:    cap,
		mat:    gocv.NewMat(),
		fps:    cap.Get(gocv.VideoCaptureFPS),
		frames: cap.Get(gocv.VideoCaptureFrameCount),
		grey:   grey,
	}
	if c.fps <= 0 {
		// Decoders occasionally report no FPS; assume a sane default so
		// duration-based maths stays usable.
		c.fps = 30
	}
	return c, nil
}

// HasNextFrame reports whether the decoder position is before the reported
// frame count. Containers sometimes report no count at all; a non-positive
// count is treated as unknown and the stream is read until ReadNextFrame
// returns ErrEOF.
func (c *Capture) HasNextFrame() bool {
	if c.frames <= 0 {
		return true
	}
	return c.cap.Get(gocv.VideoCapturePosFrames) < c.frames
}

// ReadNextFrame decodes the next frame. A stream that has run out returns
// ErrEOF; a frame that decoded but came back empty is a decode error.
func (c *Capture) ReadNextFrame() (images.Frame, error) {
	t := c.CurrentTime()
	if ok := c.cap.Read(&c.mat); !ok {
		return images.Frame{}, errors.Wrapf(ErrEOF, "video: %s at %.3fs", c.path, t)
	}
	if c.mat.Empty() {
		return images.Frame{}, errors.Errorf("video: empty frame at %.3fs of %s", t, c.path)
	}
	if c.grey && c.mat.Channels() == 3 {
		grey := gocv.NewMat()
		defer grey.Close()
		gocv.CvtColor(c.mat, &grey, gocv.ColorBGRToGray)
		return images.FrameFromMat(grey, t)
	}
	return images.FrameFromMat(c.mat, t)
}

// CurrentTime is the timestamp of the next frame, in seconds.
func (c *Capture) CurrentTime() float64 {
	return c.cap.Get(gocv.VideoCapturePosMsec) / 1000
}

// Duration is the clip length in seconds, derived from the reported frame
// count.
func (c *Capture) Duration() float64 {
	return c.frames / c.fps
}

// FrameRate is the decoder-reported FPS.
func (c *Capture) FrameRate() float64 { return c.fps }

// Seek positions the decoder at the given time.
func (c *Capture) Seek(t float64) error {
	c.cap.Set(gocv.VideoCapturePosMsec, t*1000)
	return nil
}

// Close releases the decoder and scratch Mat.
func (c *Capture) Close() error {
	if err := c.mat.Close(); err != nil {
		return err
	}
	return c.cap.Close()
}

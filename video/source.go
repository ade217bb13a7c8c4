// Package video abstracts frame decoding behind the Source interface. The
// tracking pipeline and the background estimator only ever see Sources; the
// gocv capture implementation and the numbered-image directory implementation
// live here.
package video

import (
	"github.com/pkg/errors"

	"github.com/openethology/blobtrack/images"
)

// ErrEOF is returned by ReadNextFrame when the stream ends. Sources whose
// container misreports the frame count may report HasNextFrame true past the
// real end; callers distinguish a clean end of stream from a decode failure
// with errors.Is(err, ErrEOF).
var ErrEOF = errors.New("video: end of stream")

// Source yields sequential frames with timestamps and supports random seeking
// for interactive scrubbing and background-frame sampling. A Source handle is
// exclusively owned by one consumer; concurrent consumers each open their own
// handle.
type Source interface {
	// HasNextFrame reports whether another frame can be read.
	HasNextFrame() bool
	// ReadNextFrame decodes and returns the next frame.
	ReadNextFrame() (images.Frame, error)
	// CurrentTime is the timestamp of the next frame to be read, in seconds.
	CurrentTime() float64
	// Duration is the clip length in seconds.
	Duration() float64
	// FrameRate is the nominal frames-per-second of the clip.
	FrameRate() float64
	// Seek positions the source at the given time in seconds.
	Seek(t float64) error
	// Close releases decoder resources.
	Close() error
}

// Opener opens a fresh Source handle for a path. The batch scheduler and the
// background estimator take an Opener rather than a Source so every worker
// gets its own read position.
type Opener func(path string) (Source, error)

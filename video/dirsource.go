package video

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/openethology/blobtrack/images"
)

// DirSource reads a directory of numbered frame images ("frame-<n>.<ext>")
// as if it were a clip with a fixed nominal frame rate. Useful for exported
// frame dumps and for fixtures.
type DirSource struct {
	paths []string
	fps   float64
	grey  bool
	idx   int
}

// OpenDir scans dir for numbered frame files. fps is the nominal rate used to
// synthesize timestamps.
func OpenDir(dir string, fps float64, grey bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "video: read dir %s", dir)
	}
	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		switch strings.ToLower(ext) {
		case ".jpg", ".jpeg", ".png", ".bmp":
		default:
			continue
		}
		base := strings.TrimSuffix(strings.TrimPrefix(e.Name(), "frame-"), ext)
		n, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	if len(found) == 0 {
		return nil, errors.Errorf("video: no numbered frame files in %s", dir)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	if fps <= 0 {
		fps = 30
	}
	s := &DirSource{fps: fps, grey: grey}
	for _, f := range found {
		s.paths = append(s.paths, f.path)
	}
	return s, nil
}

// HasNextFrame reports whether unread frame files remain.
func (s *DirSource) HasNextFrame() bool { return s.idx < len(s.paths) }

// ReadNextFrame decodes the next frame file.
func (s *DirSource) ReadNextFrame() (images.Frame, error) {
	if s.idx >= len(s.paths) {
		return images.Frame{}, errors.New("video: no more frames")
	}
	path := s.paths[s.idx]
	t := s.CurrentTime()
	s.idx++

	data, err := os.ReadFile(path)
	if err != nil {
		return images.Frame{}, errors.Wrapf(err, "video: read %s", path)
	}
	flag := gocv.IMReadColor
	if s.grey {
		flag = gocv.IMReadGrayScale
	}
	mat, err := gocv.IMDecode(data, flag)
	if err != nil {
		return images.Frame{}, errors.Wrapf(err, "video: decode %s", path)
	}
	defer mat.Close()
	return images.FrameFromMat(mat, t)
}

// CurrentTime is the timestamp of the next frame.
func (s *DirSource) CurrentTime() float64 { return float64(s.idx) / s.fps }

// Duration is the synthesized clip length.
func (s *DirSource) Duration() float64 { return float64(len(s.paths)) / s.fps }

// FrameRate is the nominal FPS.
func (s *DirSource) FrameRate() float64 { return s.fps }

// Seek positions the source at the frame nearest to t.
func (s *DirSource) Seek(t float64) error {
	idx := int(math.Round(t * s.fps))
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.paths) {
		idx = len(s.paths)
	}
	s.idx = idx
	return nil
}

// Close is a no-op; frame files are opened per read.
func (s *DirSource) Close() error { return nil }

package batch

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openethology/blobtrack/images"
	"github.com/openethology/blobtrack/params"
	"github.com/openethology/blobtrack/storage"
	"github.com/openethology/blobtrack/video"
)

// fakeSource replays synthetic frames for one batch entry.
type fakeSource struct {
	frames []images.Frame
	fps    float64
	idx    int
}

func (s *fakeSource) HasNextFrame() bool { return s.idx < len(s.frames) }

func (s *fakeSource) ReadNextFrame() (images.Frame, error) {
	f := s.frames[s.idx]
	s.idx++
	return f, nil
}

func (s *fakeSource) CurrentTime() float64 { return float64(s.idx) / s.fps }
func (s *fakeSource) Duration() float64    { return float64(len(s.frames)) / s.fps }
func (s *fakeSource) FrameRate() float64   { return s.fps }

func (s *fakeSource) Seek(t float64) error {
	s.idx = int(math.Round(t * s.fps))
	return nil
}

func (s *fakeSource) Close() error { return nil }

func squareFrames(n int) []images.Frame {
	frames := make([]images.Frame, n)
	for i := 0; i < n; i++ {
		g := images.NewGray(64, 64)
		for dy := 0; dy < 5; dy++ {
			for dx := 0; dx < 5; dx++ {
				g.Set(10+i+dx, 10+dy, 255)
			}
		}
		frames[i] = images.Frame{Time: float64(i) / 30, Planes: []images.Gray{g}}
	}
	return frames
}

func testParams() params.TrackingParameters {
	p := params.Defaults()
	p.Intensity = params.IntensityHigh
	p.Threshold = 128
	return p
}

// clipOpener serves fake sources by path and fails for paths it has no clip
// for.
func clipOpener(clips map[string][]images.Frame) video.Opener {
	return func(path string) (video.Source, error) {
		frames, ok := clips[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return &fakeSource{frames: frames, fps: 30}, nil
	}
}

func TestRunPersistsAllEntries(t *testing.T) {
	dir := t.TempDir()
	clips := map[string][]images.Frame{
		"a.avi": squareFrames(5),
		"b.avi": squareFrames(7),
	}
	entries := []Entry{
		NewEntry("a.avi", dir, params.ModeRGB, testParams()),
		NewEntry("b.avi", dir, params.ModeRGB, testParams()),
	}

	s := &Scheduler{Open: clipOpener(clips)}
	results := s.Run(context.Background(), entries)

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, StateDone, res.State)
		assert.NoError(t, res.Err)
	}
	assert.Equal(t, 5, results[0].Frames)
	assert.Equal(t, 7, results[1].Frames)

	for _, base := range []string{"a", "b"} {
		log, err := storage.Load(filepath.Join(dir, base+".track.json"))
		require.NoError(t, err)
		require.Contains(t, log, "RGB")
	}
	assert.Len(t, mustLoad(t, filepath.Join(dir, "a.track.json"))["RGB"].Contour, 5)
}

func TestRunIsolatesFailedEntry(t *testing.T) {
	dir := t.TempDir()
	clips := map[string][]images.Frame{
		"a.avi": squareFrames(4),
		"c.avi": squareFrames(4),
	}
	entries := []Entry{
		NewEntry("a.avi", dir, params.ModeRGB, testParams()),
		NewEntry("b.avi", dir, params.ModeRGB, testParams()), // unreadable
		NewEntry("c.avi", dir, params.ModeRGB, testParams()),
	}

	// The failed entry's previous log content must be preserved untouched.
	previous := []byte(`{"Thermal":{"Parameters":{},"Contour":[],"Center":[],"MotionMeasure":[],"MovieTimes":[]}}`)
	require.NoError(t, os.WriteFile(entries[1].LogPath, previous, 0o644))

	s := &Scheduler{Open: clipOpener(clips)}
	results := s.Run(context.Background(), entries)

	assert.Equal(t, StateDone, results[0].State)
	assert.Equal(t, StateFailed, results[1].State)
	assert.Error(t, results[1].Err)
	assert.Equal(t, StateDone, results[2].State)

	after, err := os.ReadFile(entries[1].LogPath)
	require.NoError(t, err)
	assert.Equal(t, previous, after, "failed entry leaves its log byte-for-byte intact")

	for _, i := range []int{0, 2} {
		log := mustLoad(t, entries[i].LogPath)
		require.Contains(t, log, "RGB")
		assert.Len(t, log["RGB"].Contour, 4)
	}
}

func TestRunSameBasenameDifferentModesMerge(t *testing.T) {
	dir := t.TempDir()
	clips := map[string][]images.Frame{"a.avi": squareFrames(3)}

	rgb := testParams()
	thermal := testParams()
	thermal.VideoMode = params.ModeThermal
	entries := []Entry{
		NewEntry("a.avi", dir, params.ModeRGB, rgb),
		NewEntry("a.avi", dir, params.ModeThermal, thermal),
	}
	require.Equal(t, entries[0].LogPath, entries[1].LogPath)

	s := &Scheduler{Open: clipOpener(clips)}
	results := s.Run(context.Background(), entries)
	for _, res := range results {
		require.Equal(t, StateDone, res.State)
	}

	log := mustLoad(t, entries[0].LogPath)
	assert.Contains(t, log, "RGB")
	assert.Contains(t, log, "Thermal")
}

func TestNewEntryTakesSnapshotCopy(t *testing.T) {
	p := testParams()
	mask := images.NewMask(4, 4)
	p.Mask = &mask

	e := NewEntry("/videos/run1.avi", "/logs", params.ModeRGB, p)
	assert.Equal(t, "run1", e.Basename)
	assert.Equal(t, filepath.Join("/logs", "run1.track.json"), e.LogPath)
	assert.NotEqual(t, uuid.Nil, e.ID)

	mask.Set(0, 0, true)
	assert.False(t, e.Params.Mask.At(0, 0), "entry owns a deep parameter copy")
}

func mustLoad(t *testing.T, path string) storage.TrackLog {
	t.Helper()
	log, err := storage.Load(path)
	require.NoError(t, err)
	return log
}

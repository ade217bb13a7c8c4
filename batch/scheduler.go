// Package batch applies a frozen parameter snapshot to many queued files,
// worker-per-entry, with per-file isolation: one entry's failure never blocks
// or corrupts another's output.
package batch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openethology/blobtrack/params"
	"github.com/openethology/blobtrack/storage"
	"github.com/openethology/blobtrack/tracking"
	"github.com/openethology/blobtrack/video"
)

// State is the lifecycle of one entry.
type State string

// Entry states. Done and Failed are terminal.
const (
	StatePending    State = "Pending"
	StateLoading    State = "Loading"
	StateTracking   State = "Tracking"
	StatePersisting State = "Persisting"
	StateDone       State = "Done"
	StateFailed     State = "Failed"
)

// Entry is one queued file with its frozen parameter snapshot.
type Entry struct {
	ID         uuid.UUID
	SourcePath string
	LogPath    string
	Mode       params.VideoMode
	Basename   string
	Params     params.TrackingParameters
}

// NewEntry builds an entry for a prepared source file. The parameter snapshot
// is deep-copied so concurrent entries never alias mutable state, and the log
// path is derived from the source basename.
func NewEntry(sourcePath, logDir string, mode params.VideoMode, p params.TrackingParameters) Entry {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return Entry{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		LogPath:    filepath.Join(logDir, base+".track.json"),
		Mode:       mode,
		Basename:   base,
		Params:     p.Clone(),
	}
}

// Result reports how one entry resolved.
type Result struct {
	Entry   Entry
	State   State
	Err     error
	Frames  int
	Elapsed time.Duration
}

// Scheduler runs batches. Open supplies a fresh source handle per entry; even
// two entries for the same file must not share a decoder read position.
type Scheduler struct {
	Open video.Opener
}

// Run processes every entry concurrently and blocks until all of them
// resolve. A per-entry failure (including a panic inside frame processing) is
// caught, logged and reported as Failed; the remaining entries keep running
// and are still persisted. Cancellation is best-effort: in-flight entries
// notice it between frames.
func (s *Scheduler) Run(ctx context.Context, entries []Entry) []Result {
	results := make([]Result, len(entries))

	var wg sync.WaitGroup
	wg.Add(len(entries))
	for i, e := range entries {
		go func(i int, e Entry) {
			defer wg.Done()
			results[i] = s.process(ctx, e)
		}(i, e)
	}
	wg.Wait()
	return results
}

func (s *Scheduler) process(ctx context.Context, e Entry) (res Result) {
	res = Result{Entry: e, State: StatePending}
	start := time.Now()

	// An entry failure must stay an entry failure: convert panics from deep
	// inside frame processing into a Failed result. The log file keeps its
	// previous content because persistence only happens after a clean run.
	defer func() {
		if r := recover(); r != nil {
			res.State = StateFailed
			res.Err = errors.Errorf("batch: entry %s panicked: %v", e.Basename, r)
		}
		res.Elapsed = time.Since(start)
		switch res.State {
		case StateDone:
			fps := float64(res.Frames) / res.Elapsed.Seconds()
			log.Printf("batch: %s done: %d frames in %s (%.1f fps)", e.Basename, res.Frames, res.Elapsed.Round(time.Millisecond), fps)
		case StateFailed:
			log.Printf("batch: %s failed: %v", e.Basename, res.Err)
		}
	}()

	log.Printf("batch: %s started (%s, mode %s)", e.Basename, e.SourcePath, e.Mode)

	res.State = StateLoading
	src, err := s.Open(e.SourcePath)
	if err != nil {
		res.State = StateFailed
		res.Err = errors.Wrapf(err, "batch: load %s", e.SourcePath)
		return res
	}
	defer src.Close()

	res.State = StateTracking
	records, err := tracking.Run(ctx, src, &e.Params)
	if err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}
	res.Frames = len(records)

	res.State = StatePersisting
	if err := storage.Update(e.LogPath, string(e.Mode), storage.NewModeRecord(e.Params, records)); err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}

	res.State = StateDone
	return res
}

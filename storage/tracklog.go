// Package storage persists per-source tracking results. Each tracked source
// file gets one JSON log named after its basename, keyed by video mode, so an
// RGB run and a thermal run against the same recording share a log without
// clobbering each other.
package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/openethology/blobtrack/params"
	"github.com/openethology/blobtrack/tracking"
)

// Float marshals NaN as JSON null; JSON itself has no NaN literal.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Center is one centroid; a failed frame serializes as null.
type Center [2]float64

// MarshalJSON implements json.Marshaler.
func (c Center) MarshalJSON() ([]byte, error) {
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return []byte("null"), nil
	}
	return json.Marshal([2]float64(c))
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Center) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = Center{math.NaN(), math.NaN()}
		return nil
	}
	var v [2]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Center(v)
	return nil
}

// Polygon is one closed per-frame contour; the NaN sentinel serializes as
// null.
type Polygon []tracking.Point2f

// MarshalJSON implements json.Marshaler.
func (p Polygon) MarshalJSON() ([]byte, error) {
	if tracking.IsNaNContour(p) {
		return []byte("null"), nil
	}
	pairs := make([][2]float32, len(p))
	for i, pt := range p {
		pairs[i] = [2]float32{pt.X, pt.Y}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = tracking.NaNContour()
		return nil
	}
	var pairs [][2]float32
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(Polygon, len(pairs))
	for i, pr := range pairs {
		out[i] = tracking.Point2f{X: pr[0], Y: pr[1]}
	}
	*p = out
	return nil
}

// IsNaN reports whether the polygon is the failed-frame sentinel.
func (p Polygon) IsNaN() bool {
	return len(p) == 2 && math32.IsNaN(p[0].X) && math32.IsNaN(p[0].Y)
}

// ModeRecord is the keyed record persisted per video mode: the frozen
// parameter snapshot that produced the results plus the per-frame series.
type ModeRecord struct {
	Parameters    params.TrackingParameters `json:"Parameters"`
	Contour       []Polygon                 `json:"Contour"`
	Center        []Center                  `json:"Center"`
	MotionMeasure []Float                   `json:"MotionMeasure"`
	MovieTimes    []Float                   `json:"MovieTimes"`
}

// NewModeRecord assembles a ModeRecord from a finished run.
func NewModeRecord(p params.TrackingParameters, recs []tracking.FrameRecord) ModeRecord {
	r := ModeRecord{
		Parameters:    p,
		Contour:       make([]Polygon, len(recs)),
		Center:        make([]Center, len(recs)),
		MotionMeasure: make([]Float, len(recs)),
		MovieTimes:    make([]Float, len(recs)),
	}
	for i, rec := range recs {
		r.Contour[i] = Polygon(rec.Contour)
		r.Center[i] = Center(rec.Centroid)
		r.MotionMeasure[i] = Float(rec.Motion)
		r.MovieTimes[i] = Float(rec.Time)
	}
	return r
}

// TrackLog is one persisted log file: mode name → record.
type TrackLog map[string]ModeRecord

// Load reads a track log. A missing file yields an empty log, not an error.
func Load(path string) (TrackLog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return TrackLog{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "storage: read %s", path)
	}
	log := TrackLog{}
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, errors.Wrapf(err, "storage: decode %s", path)
	}
	return log, nil
}

// pathLocks serializes same-path updates within this process. Two entries for
// the same basename but different video modes merge instead of clobbering.
var pathLocks sync.Map

// Update performs the read-merge-write cycle: re-read the latest log state
// immediately before writing, set the mode's record, and replace the file by
// atomic rename so a failed write can never corrupt previous results.
func Update(path, mode string, rec ModeRecord) error {
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()

	log, err := Load(path)
	if err != nil {
		return err
	}
	log[mode] = rec

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return errors.Wrap(err, "storage: encode log")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "storage: create temp log")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "storage: write temp log")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "storage: close temp log")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "storage: replace log")
	}
	return nil
}

// Package params defines the immutable parameter snapshots consumed by the
// tracking pipeline and the background estimator. A snapshot is validated once
// at the boundary and then deep-copied per run, so concurrent runs never alias
// mutable state.
package params

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/openethology/blobtrack/images"
)

// Channel selects which intensity plane of an RGB frame feeds the pipeline.
// Ignored for single-plane sources.
type Channel string

// Channel constants.
const (
	ChannelR    Channel = "R"
	ChannelG    Channel = "G"
	ChannelB    Channel = "B"
	ChannelGrey Channel = "Grey"
)

// VideoMode determines the channel-handling branch of the pipeline.
type VideoMode string

// VideoMode constants.
const (
	ModeRGB     VideoMode = "RGB"
	ModeThermal VideoMode = "Thermal"
)

// Intensity is the polarity of the tracked object relative to the background.
type Intensity string

// Intensity constants.
const (
	// IntensityLow means a dark object on a light background; the working
	// representation is inverted so the object is always bright internally.
	IntensityLow Intensity = "Low"
	// IntensityHigh means a bright object on a dark background.
	IntensityHigh Intensity = "High"
)

// MorphStage is one independently toggled stage of the fixed morphological
// sequence. The structuring element is a disk of the configured radius.
type MorphStage struct {
	Enabled bool `json:"enabled"`
	Radius  int  `json:"radius"`
}

// Morphology is the fixed close → size-filter → close → open sequence applied
// after thresholding.
type Morphology struct {
	Close1 MorphStage `json:"close1"`
	Close2 MorphStage `json:"close2"`
	Open1  MorphStage `json:"open1"`
}

// Smoothing configures the moving-average filter applied to contour
// coordinates.
type Smoothing struct {
	Enabled bool `json:"enabled"`
	Window  int  `json:"window"`
}

// Background holds the optional per-pixel reference image subtracted from each
// frame. SubtractMain only affects interactive display and is stored for
// round-tripping.
type Background struct {
	Enabled      bool          `json:"enabled"`
	Image        *images.Frame `json:"image,omitempty"`
	SubtractMain bool          `json:"subtractMain"`
}

// Calibration is a user-supplied linear px→unit scale. It is stored with the
// results but never applied to saved coordinates; persisted coordinates are
// always raw pixels.
type Calibration struct {
	PixelLength *float64   `json:"pixelLength,omitempty"`
	Reference   *[2][2]int `json:"reference,omitempty"`
}

// MinBlobArea is the fixed component-area floor applied before and after the
// pre-filter opening, regardless of the user size filter.
const MinBlobArea = 10

// PreFilterRadius is the fixed radius of the pre-filter opening.
const PreFilterRadius = 2

// TrackingParameters is the frozen per-run snapshot. All fields are value
// types except the mask and background image, which Clone copies deeply.
type TrackingParameters struct {
	Channel   Channel   `json:"channel"`
	VideoMode VideoMode `json:"videoMode"`
	Intensity Intensity `json:"intensity"`

	// Threshold in [0,255]; a pixel is foreground when its working intensity
	// strictly exceeds it.
	Threshold int `json:"threshold"`

	// ReflectionPenalty in [1,10] divides intensity outside Mask. A value of
	// 1 (or no mask) disables the penalty.
	ReflectionPenalty float64 `json:"reflectionPenalty"`

	// Mask is the inclusion region; the penalty and residual removal operate
	// on its complement. The complement is always derived from Mask, so the
	// two partitions cannot drift apart.
	Mask *images.Mask `json:"mask,omitempty"`

	Morphology Morphology `json:"morphology"`

	SizeFilterEnabled bool `json:"sizeFilterEnabled"`
	SizeFilterMinArea int  `json:"sizeFilterMinArea"`

	Smoothing   Smoothing   `json:"smoothing"`
	Background  Background  `json:"background"`
	Calibration Calibration `json:"calibration"`
}

// Defaults returns a TrackingParameters with the stock interactive defaults.
func Defaults() TrackingParameters {
	return TrackingParameters{
		Channel:           ChannelGrey,
		VideoMode:         ModeRGB,
		Intensity:         IntensityLow,
		Threshold:         128,
		ReflectionPenalty: 1,
		Morphology: Morphology{
			Close1: MorphStage{Enabled: true, Radius: 3},
			Close2: MorphStage{Enabled: false, Radius: 3},
			Open1:  MorphStage{Enabled: false, Radius: 2},
		},
		SizeFilterEnabled: false,
		SizeFilterMinArea: 100,
		Smoothing:         Smoothing{Enabled: true, Window: 5},
	}
}

// Validate rejects invalid values at the boundary, before a run starts.
// Invalid parameters never reach the pipeline.
func (p TrackingParameters) Validate() error {
	switch p.Channel {
	case ChannelR, ChannelG, ChannelB, ChannelGrey:
	default:
		return errors.Errorf("params: unknown channel %q", p.Channel)
	}
	switch p.VideoMode {
	case ModeRGB, ModeThermal:
	default:
		return errors.Errorf("params: unknown video mode %q", p.VideoMode)
	}
	switch p.Intensity {
	case IntensityLow, IntensityHigh:
	default:
		return errors.Errorf("params: unknown intensity %q", p.Intensity)
	}
	if p.Threshold < 0 || p.Threshold > 255 {
		return errors.Errorf("params: threshold %d outside [0,255]", p.Threshold)
	}
	if p.ReflectionPenalty < 1 || p.ReflectionPenalty > 10 {
		return errors.Errorf("params: reflection penalty %v outside [1,10]", p.ReflectionPenalty)
	}
	for _, s := range []struct {
		name  string
		stage MorphStage
	}{
		{"close1", p.Morphology.Close1},
		{"close2", p.Morphology.Close2},
		{"open1", p.Morphology.Open1},
	} {
		if s.stage.Radius <= 0 {
			return errors.Errorf("params: morphology %s radius %d must be positive", s.name, s.stage.Radius)
		}
	}
	if p.SizeFilterMinArea <= 0 {
		return errors.Errorf("params: size filter min area %d must be positive", p.SizeFilterMinArea)
	}
	if p.Smoothing.Window <= 0 {
		return errors.Errorf("params: smoothing window %d must be positive", p.Smoothing.Window)
	}
	if p.Background.Enabled && p.Background.Image == nil {
		return errors.New("params: background enabled but no background image set")
	}
	return nil
}

// Clone returns a deep copy. Each batch entry tracks against its own copy so
// no run can observe another's state.
func (p TrackingParameters) Clone() TrackingParameters {
	c := p
	if p.Mask != nil {
		m := p.Mask.Clone()
		c.Mask = &m
	}
	if p.Background.Image != nil {
		f := p.Background.Image.Clone()
		c.Background.Image = &f
	}
	if p.Calibration.PixelLength != nil {
		v := *p.Calibration.PixelLength
		c.Calibration.PixelLength = &v
	}
	if p.Calibration.Reference != nil {
		r := *p.Calibration.Reference
		c.Calibration.Reference = &r
	}
	return c
}

// Load reads a TrackingParameters snapshot from a JSON file and validates it.
func Load(path string) (TrackingParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrackingParameters{}, errors.Wrap(err, "params: read file")
	}
	p := Defaults()
	if err := json.Unmarshal(data, &p); err != nil {
		return TrackingParameters{}, errors.Wrap(err, "params: decode")
	}
	if err := p.Validate(); err != nil {
		return TrackingParameters{}, err
	}
	return p, nil
}

// Save writes the snapshot as indented JSON.
func (p TrackingParameters) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "params: encode")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "params: write file")
}

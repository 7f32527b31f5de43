// Package config holds the JSON run configuration of the STFT tools and the
// content-type presets.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-stft/algorithms/filters"
	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
	"github.com/RyanBlaney/sonido-stft/export"
	"github.com/RyanBlaney/sonido-stft/logging"
)

type ContentType string

const (
	ContentGeneral   ContentType = "general"
	ContentMusic     ContentType = "music"
	ContentSpeech    ContentType = "speech"
	ContentReference ContentType = "oracle" // 62/31 at 125 Hz, the scipy comparison setup
)

// ContentTypes lists every preset name
func ContentTypes() []ContentType {
	return []ContentType{ContentGeneral, ContentMusic, ContentSpeech, ContentReference}
}

// RunConfig configures one run of the CLI: STFT parameters, engine
// options, output and logging
type RunConfig struct {
	ContentType ContentType `json:"content_type"`

	// Spectral Analysis
	WindowSize   int              `json:"window_size"`
	HopSize      int              `json:"hop_size"`
	SampleRate   float64          `json:"sample_rate"` // 0 takes the rate of the input
	WindowType   windowing.Type   `json:"window_type"`
	Scaling      spectral.Scaling `json:"scaling"`
	DecibelFloor float64          `json:"decibel_floor"`

	// Engine
	Workers            int    `json:"workers"` // 0 picks from CPU count
	Backend            string `json:"backend"` // "godsp", "gonum"
	EmptyOnShortSignal bool   `json:"empty_on_short_signal"`
	MaxCells           int    `json:"max_cells,omitempty"`

	// Input
	MaxDurationSeconds float64 `json:"max_duration_seconds,omitempty"`
	Normalize          bool    `json:"normalize"`
	DCCutoffHz         float64 `json:"dc_cutoff_hz,omitempty"` // 0 disables the DC blocker
	PreEmphasis        float64 `json:"pre_emphasis,omitempty"` // 0 disables pre-emphasis

	// Output
	View        string `json:"view"`        // "db", "magnitude", "power", "phase"
	Orientation string `json:"orientation"` // "time", "frequency"
	Format      string `json:"format"`      // "csv", "f16", "sqlite"

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"` // "text", "json"
}

// Default returns the general-purpose configuration
func Default() *RunConfig {
	return &RunConfig{
		ContentType:  ContentGeneral,
		WindowSize:   1024,
		HopSize:      256,
		SampleRate:   0,
		WindowType:   windowing.Hann,
		Scaling:      spectral.ScalingNone,
		DecibelFloor: spectral.DefaultDecibelFloor,
		Backend:      spectral.BackendGoDSP.String(),
		MaxCells:     spectral.DefaultMaxCells,
		View:         spectral.ViewDecibels.String(),
		Orientation:  spectral.TimeMajor.String(),
		Format:       export.FormatCSV.String(),
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// ForContent returns the preset tuned for contentType
func ForContent(contentType ContentType) (*RunConfig, error) {
	config := Default()
	config.ContentType = contentType

	switch contentType {
	case ContentGeneral:
		// defaults

	case ContentMusic:
		config.WindowSize = 2048 // ~46 ms at 44.1 kHz, resolves close partials
		config.HopSize = 512

	case ContentSpeech:
		config.WindowSize = 400 // 25 ms at 16 kHz
		config.HopSize = 160    // 10 ms
		config.WindowType = windowing.Hamming
		config.PreEmphasis = filters.DefaultPreEmphasis

	case ContentReference:
		config.WindowSize = 62
		config.HopSize = 31
		config.SampleRate = 125

	default:
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}

	return config, nil
}

// Load reads a JSON configuration. Fields missing from the file keep their
// Default values; a "content_type" in the file selects the preset they
// start from.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var probe struct {
		ContentType ContentType `json:"content_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	config := Default()
	if probe.ContentType != "" {
		if config, err = ForContent(probe.ContentType); err != nil {
			return nil, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the configuration as indented JSON
func (c *RunConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ToSTFT builds the validated engine configuration. inputSampleRate is used
// when the configuration does not fix a rate.
func (c *RunConfig) ToSTFT(inputSampleRate float64) (spectral.Config, error) {
	sampleRate := c.SampleRate
	if sampleRate <= 0 {
		sampleRate = inputSampleRate
	}

	cfg := spectral.Config{
		WindowSize:   c.WindowSize,
		HopSize:      c.HopSize,
		SampleRate:   sampleRate,
		WindowType:   c.WindowType,
		Scaling:      c.Scaling,
		DecibelFloor: c.DecibelFloor,
	}
	if cfg.DecibelFloor == 0 {
		cfg.DecibelFloor = spectral.DefaultDecibelFloor
	}
	if err := cfg.Validate(); err != nil {
		return spectral.Config{}, err
	}
	return cfg, nil
}

// EngineOptions translates the engine section into spectral options
func (c *RunConfig) EngineOptions(logger logging.Logger) ([]spectral.Option, error) {
	backend, err := spectral.ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}

	policy := spectral.ShortSignalFail
	if c.EmptyOnShortSignal {
		policy = spectral.ShortSignalEmpty
	}

	opts := []spectral.Option{
		spectral.WithWorkers(c.Workers),
		spectral.WithBackend(backend),
		spectral.WithShortSignalPolicy(policy),
		spectral.WithMaxCells(c.MaxCells),
	}
	if logger != nil {
		opts = append(opts, spectral.WithLogger(logger))
	}
	return opts, nil
}

// Output holds the parsed output section
type Output struct {
	View        spectral.View
	Orientation spectral.Orientation
	Format      export.Format
}

// ParseOutput parses the output section
func (c *RunConfig) ParseOutput() (Output, error) {
	var out Output
	var errs []error
	var err error

	if out.View, err = spectral.ParseView(c.View); err != nil {
		errs = append(errs, err)
	}
	if out.Orientation, err = spectral.ParseOrientation(c.Orientation); err != nil {
		errs = append(errs, err)
	}
	if out.Format, err = export.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}

	return out, errors.Join(errs...)
}

// Filters returns the input conditioning chain
func (c *RunConfig) Filters() filters.Chain {
	return filters.Chain{
		DCCutoffHz:  c.DCCutoffHz,
		PreEmphasis: c.PreEmphasis,
	}
}

// MaxDuration returns the input truncation limit
func (c *RunConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSeconds * float64(time.Second))
}

// Validate checks everything that can be checked without an input file
func (c *RunConfig) Validate() error {
	var errs []error

	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample rate must not be negative, got %v", c.SampleRate))
	}
	probeRate := c.SampleRate
	if probeRate == 0 {
		probeRate = 1
	}
	if _, err := c.ToSTFT(probeRate); err != nil {
		errs = append(errs, err)
	}
	if _, err := spectral.ParseBackend(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ParseOutput(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxDurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("max duration must not be negative, got %v", c.MaxDurationSeconds))
	}
	if c.DCCutoffHz < 0 {
		errs = append(errs, fmt.Errorf("dc cutoff must not be negative, got %v", c.DCCutoffHz))
	}
	if c.PreEmphasis < 0 || c.PreEmphasis >= 1 {
		errs = append(errs, fmt.Errorf("pre-emphasis must be in [0, 1), got %v", c.PreEmphasis))
	}

	return errors.Join(errs...)
}

package main

import (
	"github.com/RyanBlaney/sonido-stft/algorithms/generators"
	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
	"github.com/RyanBlaney/sonido-stft/config"
	"github.com/spf13/cobra"
)

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "JSON run configuration")
	f.StringP("preset", "p", string(config.ContentGeneral), "Content preset (general, music, speech, oracle)")
	f.IntP("window", "w", 0, "Window size in samples")
	f.Int("hop", 0, "Hop size in samples")
	f.Float64("sample-rate", 0, "Override the input sample rate in Hz")
	f.String("window-type", "", "Window function (hann, hamming, blackman, rectangular)")
	f.String("scaling", "", "Amplitude scaling (none, spectrum, psd)")
	f.Float64("db-floor", 0, "Additive floor for the dB view")
	f.String("view", "", "Spectrogram view (magnitude, power, db, phase)")
	f.String("orientation", "", "Row layout (time, frequency)")
	f.StringP("format", "f", "", "Output format (csv, f16, sqlite)")
	f.Int("workers", 0, "Worker goroutines (0 picks from CPU count)")
	f.String("backend", "", "FFT backend (godsp, gonum)")
	f.Bool("empty-ok", false, "Return an empty spectrogram for signals shorter than one window")
	f.Float64("max-duration", 0, "Only analyze the first N seconds of input")
	f.Bool("normalize", false, "Scale input to unit peak before analysis")
	f.Float64("dc-cutoff", 0, "Remove DC with a high-pass at this cutoff in Hz (0 disables)")
	f.Float64("pre-emphasis", 0, "Pre-emphasis coefficient in [0, 1) (0 disables)")
}

// resolveConfig starts from --config or --preset and applies every flag the
// user set explicitly. demo pins the sample rate to the demo signal's.
func resolveConfig(cmd *cobra.Command, demo bool) (*config.RunConfig, error) {
	f := cmd.Flags()

	var cfg *config.RunConfig
	var err error
	if path, _ := f.GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		preset, _ := f.GetString("preset")
		cfg, err = config.ForContent(config.ContentType(preset))
	}
	if err != nil {
		return nil, err
	}

	if demo {
		cfg.SampleRate = generators.DemoSampleRate
	}

	if f.Changed("window") {
		cfg.WindowSize, _ = f.GetInt("window")
	}
	if f.Changed("hop") {
		cfg.HopSize, _ = f.GetInt("hop")
	}
	if f.Changed("sample-rate") {
		cfg.SampleRate, _ = f.GetFloat64("sample-rate")
	}
	if f.Changed("window-type") {
		name, _ := f.GetString("window-type")
		if cfg.WindowType, err = windowing.ParseType(name); err != nil {
			return nil, err
		}
	}
	if f.Changed("scaling") {
		name, _ := f.GetString("scaling")
		if cfg.Scaling, err = spectral.ParseScaling(name); err != nil {
			return nil, err
		}
	}
	if f.Changed("db-floor") {
		cfg.DecibelFloor, _ = f.GetFloat64("db-floor")
	}
	if f.Changed("view") {
		cfg.View, _ = f.GetString("view")
	}
	if f.Changed("orientation") {
		cfg.Orientation, _ = f.GetString("orientation")
	}
	if f.Changed("format") {
		cfg.Format, _ = f.GetString("format")
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("backend") {
		cfg.Backend, _ = f.GetString("backend")
	}
	if f.Changed("empty-ok") {
		cfg.EmptyOnShortSignal, _ = f.GetBool("empty-ok")
	}
	if f.Changed("max-duration") {
		cfg.MaxDurationSeconds, _ = f.GetFloat64("max-duration")
	}
	if f.Changed("normalize") {
		cfg.Normalize, _ = f.GetBool("normalize")
	}
	if f.Changed("dc-cutoff") {
		cfg.DCCutoffHz, _ = f.GetFloat64("dc-cutoff")
	}
	if f.Changed("pre-emphasis") {
		cfg.PreEmphasis, _ = f.GetFloat64("pre-emphasis")
	}

	if level, _ := f.GetString("log-level"); f.Changed("log-level") {
		cfg.LogLevel = level
	}
	if format, _ := f.GetString("log-format"); f.Changed("log-format") {
		cfg.LogFormat = format
	}

	return cfg, cfg.Validate()
}

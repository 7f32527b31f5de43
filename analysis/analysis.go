// Package analysis runs the STFT engine over decoded audio files and writes
// the requested view to disk.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-stft/algorithms/spectral"
	"github.com/RyanBlaney/sonido-stft/config"
	"github.com/RyanBlaney/sonido-stft/export"
	"github.com/RyanBlaney/sonido-stft/logging"
	"github.com/RyanBlaney/sonido-stft/transcode"
)

// Analysis is the STFT of one input plus its descriptive summary
type Analysis struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	ContentType config.ContentType `json:"content_type"`
	Timestamp   time.Time          `json:"timestamp"`
	Duration    time.Duration      `json:"duration"`
	SampleRate  int                `json:"sample_rate"`
	Channels    int                `json:"channels"`
	Result      *spectral.Result   `json:"result"`
	Summary     *spectral.Summary  `json:"summary"`
}

// Analyzer turns audio into analyses using one engine
type Analyzer struct {
	config  *config.RunConfig
	engine  *spectral.Engine
	decoder *transcode.Decoder
	output  config.Output
	logger  logging.Logger
}

// NewAnalyzer validates cfg and builds the engine it describes
func NewAnalyzer(cfg *config.RunConfig, logger logging.Logger) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}

	output, err := cfg.ParseOutput()
	if err != nil {
		return nil, err
	}

	opts, err := cfg.EngineOptions(logger.WithFields(logging.Fields{
		"component": "stft_engine",
	}))
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		config: cfg,
		engine: spectral.NewEngine(opts...),
		decoder: transcode.NewDecoder(&transcode.DecoderConfig{
			MaxDuration: cfg.MaxDuration(),
			Normalize:   cfg.Normalize,
		}),
		output: output,
		logger: logger.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// Output returns the parsed output settings
func (a *Analyzer) Output() config.Output {
	return a.output
}

// AnalyzeFile decodes a WAV or FLAC file and analyzes it
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Analysis, error) {
	audio, err := a.decoder.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeAudio(ctx, audio)
}

// AnalyzeAudio analyzes decoded audio
func (a *Analyzer) AnalyzeAudio(ctx context.Context, audio *transcode.AudioData) (*Analysis, error) {
	if audio == nil {
		return nil, fmt.Errorf("audio data cannot be nil")
	}

	analysis, err := a.AnalyzeSignal(ctx, audio.PCM, float64(audio.SampleRate), audio.Source)
	if err != nil {
		return nil, err
	}
	analysis.Channels = audio.Channels
	return analysis, nil
}

// AnalyzeSignal analyzes mono PCM sampled at sampleRate
func (a *Analyzer) AnalyzeSignal(ctx context.Context, pcm []float64, sampleRate float64, source string) (*Analysis, error) {
	logger := a.logger.WithFields(logging.Fields{
		"function":    "AnalyzeSignal",
		"source":      source,
		"sample_rate": sampleRate,
		"samples":     len(pcm),
	})

	cfg, err := a.config.ToSTFT(sampleRate)
	if err != nil {
		logger.Error(err, "Invalid STFT configuration")
		return nil, err
	}

	signal, err := a.config.Filters().Apply(pcm, cfg.SampleRate)
	if err != nil {
		logger.Error(err, "Input conditioning failed")
		return nil, err
	}

	result, err := a.engine.Compute(ctx, signal, cfg)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		ID:          generateID(pcm, cfg.SampleRate),
		Source:      source,
		ContentType: a.config.ContentType,
		Timestamp:   time.Now(),
		Duration:    time.Duration(float64(len(pcm)) / cfg.SampleRate * float64(time.Second)),
		SampleRate:  int(cfg.SampleRate),
		Channels:    1,
		Result:      result,
		Summary:     spectral.Summarize(result),
	}

	logger.Debug("Analysis completed", logging.Fields{
		"analysis_id": analysis.ID,
		"frames":      result.FrameCount,
		"dominant_hz": analysis.Summary.DominantHz,
	})

	return analysis, nil
}

// Write exports the configured view of analysis to path and returns the
// stored identifier (the SQLite row id, or the path itself)
func (a *Analyzer) Write(ctx context.Context, analysis *Analysis, path string) (string, error) {
	if a.output.Format == export.FormatSQLite {
		sink, err := export.OpenSQLite(path)
		if err != nil {
			return "", err
		}
		defer sink.Close()

		id, err := sink.Save(ctx, analysis.Name(), analysis.Result, a.output.View)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s#%d", path, id), nil
	}

	grid, err := analysis.Result.View(a.output.View)
	if err != nil {
		return "", err
	}
	if err := export.WriteFile(path, a.output.Format, grid, a.output.Orientation); err != nil {
		return "", err
	}
	return path, nil
}

// OutputPath derives the export path for an input file
func (a *Analyzer) OutputPath(input string) string {
	return export.ReplaceExtension(input, a.output.Format.Extension())
}

// Name is the label stored with exported spectrograms
func (an *Analysis) Name() string {
	if an.Source == "" {
		return an.ID
	}
	return strings.TrimSuffix(filepath.Base(an.Source), filepath.Ext(an.Source))
}

// generateID hashes the sample rate and samples, so identical input always
// gets the same id
func generateID(pcm []float64, sampleRate float64) string {
	hasher := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(sampleRate))
	hasher.Write(buf[:])
	for _, v := range pcm {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		hasher.Write(buf[:])
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

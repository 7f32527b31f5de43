package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-stft/logging"
	"github.com/faiface/beep/wav"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned for files that are neither WAV nor FLAC
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioData represents decoded audio, down-mixed to mono
type AudioData struct {
	PCM        []float64     `json:"-"` // mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channel count of the source
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"`
	Source     string        `json:"source,omitempty"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// MaxDuration truncates long inputs; zero means no limit
	MaxDuration time.Duration `json:"max_duration"`
	// Normalize scales the PCM so its peak magnitude is 1
	Normalize bool `json:"normalize"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		MaxDuration: 0,
		Normalize:   false,
	}
}

// Decoder turns WAV and FLAC files into mono float64 PCM
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// Decode decodes a file with the default configuration
func Decode(path string) (*AudioData, error) {
	return NewDecoder(nil).DecodeFile(path)
}

// DecodeFile picks the codec from the file extension
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	logger.Debug("Starting audio file decode")

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	var audio *AudioData
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".wav", ".wave":
		audio, err = d.DecodeWAV(f)
	case ".flac":
		audio, err = d.DecodeFLAC(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	audio.Source = filename
	logger.Debug("Audio decoded", logging.Fields{
		"sample_rate": audio.SampleRate,
		"channels":    audio.Channels,
		"samples":     len(audio.PCM),
		"duration":    audio.Duration.String(),
	})

	return audio, nil
}

// DecodeWAV decodes a RIFF/WAVE stream
func (d *Decoder) DecodeWAV(r io.Reader) (*AudioData, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer streamer.Close()

	limit := d.sampleLimit(int(format.SampleRate))
	scale := wavScale(format.Precision)
	pcm := make([]float64, 0, max(streamer.Len(), 0))
	buf := make([][2]float64, 4096)
	for limit < 0 || len(pcm) < limit {
		n, ok := streamer.Stream(buf)
		// beep duplicates mono input into both channels, so averaging is a
		// no-op for mono and a down-mix for stereo
		for _, frame := range buf[:n] {
			pcm = append(pcm, (frame[0]+frame[1])/2*scale)
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}

	return d.finish(pcm, int(format.SampleRate), format.NumChannels, "wav", limit), nil
}

// wavScale corrects beep's signed PCM decoding, which divides by 2^bits-1
// instead of 2^(bits-1) and so yields half-amplitude samples. 8-bit PCM is
// unsigned and decoded correctly.
func wavScale(precision int) float64 {
	if precision < 2 {
		return 1
	}
	bits := uint(8 * precision)
	return float64(uint64(1)<<bits-1) / float64(uint64(1)<<(bits-1))
}

// DecodeFLAC decodes a FLAC stream
func (d *Decoder) DecodeFLAC(r io.Reader) (*AudioData, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info.BitsPerSample == 0 || info.NChannels == 0 {
		return nil, fmt.Errorf("flac stream info is incomplete")
	}

	scale := 1 / float64(int64(1)<<(info.BitsPerSample-1))
	channels := int(info.NChannels)
	limit := d.sampleLimit(int(info.SampleRate))

	pcm := make([]float64, 0, info.NSamples)
	for limit < 0 || len(pcm) < limit {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse flac frame: %w", err)
		}

		for i := range frame.Subframes[0].NSamples {
			sum := 0.0
			for _, sub := range frame.Subframes {
				sum += float64(sub.Samples[i])
			}
			pcm = append(pcm, sum*scale/float64(channels))
		}
	}

	return d.finish(pcm, int(info.SampleRate), channels, "flac", limit), nil
}

// sampleLimit converts MaxDuration to a sample count, or -1 for no limit
func (d *Decoder) sampleLimit(sampleRate int) int {
	if d.config.MaxDuration <= 0 {
		return -1
	}
	return int(d.config.MaxDuration.Seconds() * float64(sampleRate))
}

func (d *Decoder) finish(pcm []float64, sampleRate, channels int, format string, limit int) *AudioData {
	if limit >= 0 && len(pcm) > limit {
		pcm = pcm[:limit]
	}
	if d.config.Normalize {
		normalizePeak(pcm)
	}

	var duration time.Duration
	if sampleRate > 0 {
		duration = time.Duration(float64(len(pcm)) / float64(sampleRate) * float64(time.Second))
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   duration,
		Format:     format,
	}
}

func normalizePeak(pcm []float64) {
	peak := 0.0
	for _, v := range pcm {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return
	}
	for i := range pcm {
		pcm[i] /= peak
	}
}

// GetSupportedFormats returns the file extensions DecodeFile accepts
func (d *Decoder) GetSupportedFormats() []string {
	return []string{"wav", "flac"}
}

// IsSupported reports whether path has an extension DecodeFile accepts
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave", ".flac":
		return true
	}
	return false
}

package spectral

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
)

// DefaultDecibelFloor is the additive epsilon in 20*log10(|X| + eps). It
// only exists to keep log10 finite; a zero-magnitude bin maps to -200 dB,
// so values near silence are approximate by construction.
const DefaultDecibelFloor = 1e-10

// Scaling selects the normalization applied to every FFT coefficient
type Scaling int

const (
	// ScalingNone keeps the raw sum-based DFT: X[k] = sum x[n]*w[n]*exp(-2*pi*i*k*n/N)
	ScalingNone Scaling = iota
	// ScalingSpectrum divides by the window sum (scipy scaling='spectrum')
	ScalingSpectrum
	// ScalingPSD multiplies by sqrt(1/(fs*sum(w^2))) (scipy scaling='psd')
	ScalingPSD
)

func (s Scaling) String() string {
	switch s {
	case ScalingNone:
		return "none"
	case ScalingSpectrum:
		return "spectrum"
	case ScalingPSD:
		return "psd"
	default:
		return fmt.Sprintf("scaling(%d)", int(s))
	}
}

// ParseScaling converts "none", "spectrum" or "psd" to a Scaling
func ParseScaling(name string) (Scaling, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return ScalingNone, nil
	case "spectrum":
		return ScalingSpectrum, nil
	case "psd":
		return ScalingPSD, nil
	default:
		return 0, fmt.Errorf("unknown scaling %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Scaling) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Scaling) UnmarshalText(text []byte) error {
	parsed, err := ParseScaling(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Config is the immutable parameter set of one STFT computation
type Config struct {
	WindowSize   int            `json:"window_size"`
	HopSize      int            `json:"hop_size"`
	SampleRate   float64        `json:"sample_rate"`
	WindowType   windowing.Type `json:"window_type"`
	Scaling      Scaling        `json:"scaling"`
	DecibelFloor float64        `json:"decibel_floor"`
}

// NewConfig builds and validates a Config with no scaling and the default
// decibel floor
func NewConfig(windowSize, hopSize int, sampleRate float64, windowType windowing.Type) (Config, error) {
	cfg := Config{
		WindowSize:   windowSize,
		HopSize:      hopSize,
		SampleRate:   sampleRate,
		WindowType:   windowType,
		Scaling:      ScalingNone,
		DecibelFloor: DefaultDecibelFloor,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithScaling returns a copy of cfg using s
func (c Config) WithScaling(s Scaling) Config {
	c.Scaling = s
	return c
}

// WithDecibelFloor returns a copy of cfg using eps as the dB floor
func (c Config) WithDecibelFloor(eps float64) Config {
	c.DecibelFloor = eps
	return c
}

// Validate checks every invariant. Failures are InvalidConfiguration errors.
func (c Config) Validate() error {
	switch {
	case c.WindowSize <= 0:
		return newError(KindInvalidConfiguration, nil, "window size must be greater than 0, got %d", c.WindowSize)
	case c.WindowSize > windowing.MaxSize:
		return newError(KindInvalidConfiguration, nil, "window size %d exceeds maximum %d", c.WindowSize, windowing.MaxSize)
	case c.HopSize <= 0:
		return newError(KindInvalidConfiguration, nil, "hop size must be greater than 0, got %d", c.HopSize)
	case c.HopSize > c.WindowSize:
		return newError(KindInvalidConfiguration, nil, "hop size %d must be less than or equal to window size %d", c.HopSize, c.WindowSize)
	case !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0):
		return newError(KindInvalidConfiguration, nil, "sample rate must be a finite value greater than 0, got %v", c.SampleRate)
	case !c.WindowType.Valid():
		return newError(KindInvalidConfiguration, windowing.ErrUnknownType, "window type code %d", int(c.WindowType))
	case c.Scaling < ScalingNone || c.Scaling > ScalingPSD:
		return newError(KindInvalidConfiguration, nil, "unknown scaling code %d", int(c.Scaling))
	case !(c.DecibelFloor > 0) || math.IsInf(c.DecibelFloor, 0):
		return newError(KindInvalidConfiguration, nil, "decibel floor must be a finite value greater than 0, got %v", c.DecibelFloor)
	}
	return nil
}

// FrequencyBinCount returns the number of non-redundant bins, W/2 + 1
func (c Config) FrequencyBinCount() int {
	return c.WindowSize/2 + 1
}

// FrameTimeStep returns the hop duration in seconds
func (c Config) FrameTimeStep() float64 {
	return float64(c.HopSize) / c.SampleRate
}

// FrequencyResolution returns the bin spacing in Hz
func (c Config) FrequencyResolution() float64 {
	return c.SampleRate / float64(c.WindowSize)
}

// OverlapPercent returns how much consecutive frames overlap, in percent
func (c Config) OverlapPercent() float64 {
	return 100 * float64(c.WindowSize-c.HopSize) / float64(c.WindowSize)
}

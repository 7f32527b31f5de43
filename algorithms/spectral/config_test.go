package spectral

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
	"github.com/matryer/is"
)

func TestNewConfigDerivedValues(t *testing.T) {
	is := is.New(t)

	cfg, err := NewConfig(62, 31, 125, windowing.Hann)
	is.NoErr(err)
	is.Equal(cfg.Scaling, ScalingNone)
	is.Equal(cfg.DecibelFloor, DefaultDecibelFloor)
	is.Equal(cfg.FrequencyBinCount(), 32)
	is.True(math.Abs(cfg.FrameTimeStep()-0.248) < 1e-12)
	is.True(math.Abs(cfg.FrequencyResolution()-2.0161290322580645) < 1e-12)
	is.Equal(cfg.OverlapPercent(), 50.0)

	odd, err := NewConfig(63, 21, 1000, windowing.Hamming)
	is.NoErr(err)
	is.Equal(odd.FrequencyBinCount(), 32)

	_, err = NewConfig(62, 0, 125, windowing.Hann)
	is.True(errors.Is(err, ErrInvalidConfiguration))
}

func TestWithOptionsCopy(t *testing.T) {
	is := is.New(t)

	cfg, err := NewConfig(64, 16, 8000, windowing.Hann)
	is.NoErr(err)

	psd := cfg.WithScaling(ScalingPSD).WithDecibelFloor(1e-6)
	is.Equal(cfg.Scaling, ScalingNone) // original untouched
	is.Equal(psd.Scaling, ScalingPSD)
	is.Equal(psd.DecibelFloor, 1e-6)
	is.NoErr(psd.Validate())
}

func TestParseScaling(t *testing.T) {
	tests := []struct {
		in      string
		want    Scaling
		wantErr bool
	}{
		{"", ScalingNone, false},
		{"none", ScalingNone, false},
		{"Spectrum", ScalingSpectrum, false},
		{" psd ", ScalingPSD, false},
		{"magnitude", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			is := is.New(t)

			got, err := ParseScaling(tt.in)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}

func TestConfigJSON(t *testing.T) {
	is := is.New(t)

	cfg, err := NewConfig(62, 31, 125, windowing.Blackman)
	is.NoErr(err)
	cfg = cfg.WithScaling(ScalingSpectrum)

	data, err := json.Marshal(cfg)
	is.NoErr(err)

	var raw map[string]any
	is.NoErr(json.Unmarshal(data, &raw))
	is.Equal(raw["window_type"], "blackman")
	is.Equal(raw["scaling"], "spectrum")

	var decoded Config
	is.NoErr(json.Unmarshal(data, &decoded))
	is.Equal(decoded, cfg)
}

func TestErrorFormattingAndMatching(t *testing.T) {
	is := is.New(t)

	cause := errors.New("boom")
	err := newError(KindTransformFailure, cause, "frame %d", 3)

	is.Equal(err.Error(), "TransformFailure: frame 3: boom")
	is.True(errors.Is(err, ErrTransformFailure))
	is.True(errors.Is(err, cause))
	is.True(!errors.Is(err, ErrCanceled))
	is.Equal(KindOf(err), KindTransformFailure)
	is.Equal(KindOf(cause), ErrorKind(0))
	is.Equal(KindOf(nil), ErrorKind(0))

	bare := newError(KindInvalidConfiguration, nil, "bad")
	is.Equal(bare.Error(), "InvalidConfiguration: bad")
	is.Equal(ErrorKind(42).String(), "Unknown")
}

package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
)

// FrameTransformer windows one frame and computes its non-redundant
// spectrum. It owns a scratch buffer and an FFT plan, so each goroutine
// needs its own transformer.
type FrameTransformer struct {
	window  *windowing.Window
	fft     FFT
	scale   float64
	scratch []float64
}

// NewFrameTransformer creates a transformer for frames of window.Size()
// samples. scale is the factor applied to every coefficient (1 for
// ScalingNone).
func NewFrameTransformer(window *windowing.Window, backend Backend, scale float64) (*FrameTransformer, error) {
	f, err := NewFFT(backend, window.Size())
	if err != nil {
		return nil, err
	}
	return &FrameTransformer{
		window:  window,
		fft:     f,
		scale:   scale,
		scratch: make([]float64, window.Size()),
	}, nil
}

// Bins returns the number of coefficients written per frame
func (t *FrameTransformer) Bins() int {
	return t.window.Size()/2 + 1
}

// Transform writes the spectrum of frame into dst, which must hold Bins()
// values. frame is read, never written. A non-finite coefficient is an
// error rather than a silently corrupted bin.
func (t *FrameTransformer) Transform(frame []float64, dst []complex128) error {
	if len(dst) != t.Bins() {
		return fmt.Errorf("destination holds %d bins, need %d", len(dst), t.Bins())
	}
	if err := t.window.ApplyInto(t.scratch, frame); err != nil {
		return err
	}

	t.fft.Forward(t.scratch, dst)

	for k, c := range dst {
		if t.scale != 1 {
			c *= complex(t.scale, 0)
			dst[k] = c
		}
		if cmplx.IsNaN(c) || cmplx.IsInf(c) {
			return fmt.Errorf("non-finite coefficient %v at bin %d", c, k)
		}
	}

	return nil
}

// scaleFactor returns the multiplier for cfg.Scaling given the window
func scaleFactor(cfg Config, window *windowing.Window) float64 {
	switch cfg.Scaling {
	case ScalingSpectrum:
		if window.Sum() == 0 {
			return 1
		}
		return 1 / window.Sum()
	case ScalingPSD:
		if window.Energy() == 0 {
			return 1
		}
		return math.Sqrt(1 / (cfg.SampleRate * window.Energy()))
	default:
		return 1
	}
}

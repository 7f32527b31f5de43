package spectral

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend selects the FFT implementation
type Backend int

const (
	// BackendGoDSP uses mjibson/go-dsp, which handles any size including
	// non-powers of two
	BackendGoDSP Backend = iota
	// BackendGonum uses gonum's real FFT plans
	BackendGonum
)

func (b Backend) String() string {
	switch b {
	case BackendGoDSP:
		return "godsp"
	case BackendGonum:
		return "gonum"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Valid reports whether b names a known implementation
func (b Backend) Valid() bool {
	return b == BackendGoDSP || b == BackendGonum
}

// ParseBackend converts "godsp" or "gonum" to a Backend
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "godsp", "go-dsp":
		return BackendGoDSP, nil
	case "gonum":
		return BackendGonum, nil
	default:
		return 0, fmt.Errorf("unknown FFT backend %q", name)
	}
}

// FFT computes the forward DFT of a real sequence and keeps the
// non-redundant half. No normalization is applied:
//
//	X[k] = sum_n x[n] * exp(-2*pi*i*k*n/N), k = 0..N/2
//
// Implementations are not required to be safe for concurrent use; the
// engine creates one per worker.
type FFT interface {
	// Forward writes len(x)/2+1 coefficients into dst
	Forward(x []float64, dst []complex128)
}

// NewFFT creates a transform for sequences of length size
func NewFFT(backend Backend, size int) (FFT, error) {
	if size <= 0 {
		return nil, fmt.Errorf("FFT size must be positive: %d", size)
	}

	switch backend {
	case BackendGoDSP:
		return &goDSPFFT{size: size}, nil
	case BackendGonum:
		return &gonumFFT{size: size, plan: fourier.NewFFT(size)}, nil
	default:
		return nil, fmt.Errorf("unknown FFT backend %d", int(backend))
	}
}

type goDSPFFT struct {
	size int
}

func (f *goDSPFFT) Forward(x []float64, dst []complex128) {
	full := fft.FFTReal(x)
	copy(dst, full[:len(dst)])
}

type gonumFFT struct {
	size int
	plan *fourier.FFT
}

func (f *gonumFFT) Forward(x []float64, dst []complex128) {
	f.plan.Coefficients(dst, x)
}

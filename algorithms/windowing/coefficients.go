package windowing

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/window"
)

// All shapes are the symmetric definitions (denominator N-1), e.g. Hann:
//
//	w[n] = 0.5 * (1 - cos(2*pi*n / (N-1)))
var shapes = map[Type]func([]float64) []float64{
	Hann:           window.Hann,
	Hamming:        window.Hamming,
	Blackman:       window.Blackman,
	BlackmanHarris: window.BlackmanHarris,
	Bartlett:       window.Triangular,
	Rectangular:    window.Rectangular,
}

// generateCoefficients shapes a run of ones with the gonum window function.
// A single-sample window is always [1.0]; the symmetric formulas would
// divide by N-1 = 0.
func generateCoefficients(t Type, size int) ([]float64, error) {
	shape, ok := shapes[t]
	if !ok {
		return nil, fmt.Errorf("%w: code %d", ErrUnknownType, int(t))
	}

	coefficients := make([]float64, size)
	for i := range coefficients {
		coefficients[i] = 1.0
	}
	if size == 1 {
		return coefficients, nil
	}

	coefficients = shape(coefficients)

	// Clamp rounding noise at the endpoints (e.g. Blackman's -1.4e-17)
	for i, c := range coefficients {
		if c < 0 {
			coefficients[i] = 0
		}
	}

	return coefficients, nil
}

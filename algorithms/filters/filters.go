// Package filters conditions a signal before spectral analysis
package filters

import (
	"fmt"
	"math"
)

// DefaultPreEmphasis is the usual speech pre-emphasis coefficient
const DefaultPreEmphasis = 0.97

// DCBlocker is the one-pole high-pass y[n] = x[n] - x[n-1] + R*y[n-1].
//
// See Julius O. Smith III, "Introduction to Digital Filters",
// https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCBlocker struct {
	pole float64
	x1   float64
	y1   float64
}

// NewDCBlocker creates a blocker with a -3 dB point near cutoffHz,
// R = 1 - 2*pi*fc/fs clamped to [0.001, 0.999]
func NewDCBlocker(sampleRate, cutoffHz float64) (*DCBlocker, error) {
	if sampleRate <= 0 || cutoffHz <= 0 {
		return nil, fmt.Errorf("dc blocker needs positive sample rate and cutoff, got %v and %v", sampleRate, cutoffHz)
	}

	pole := 1 - 2*math.Pi*cutoffHz/sampleRate
	pole = math.Max(0.001, math.Min(0.999, pole))

	return &DCBlocker{pole: pole}, nil
}

// Pole returns R
func (dc *DCBlocker) Pole() float64 {
	return dc.pole
}

// Process filters one sample
func (dc *DCBlocker) Process(x float64) float64 {
	y := x - dc.x1 + dc.pole*dc.y1
	dc.x1 = x
	dc.y1 = y
	return y
}

// Apply filters a whole signal into a new slice
func (dc *DCBlocker) Apply(signal []float64) []float64 {
	out := make([]float64, len(signal))
	for i, x := range signal {
		out[i] = dc.Process(x)
	}
	return out
}

// Reset clears the filter memory
func (dc *DCBlocker) Reset() {
	dc.x1, dc.y1 = 0, 0
}

// PreEmphasis applies y[n] = x[n] - a*x[n-1] into a new slice. The first
// sample passes through unchanged.
func PreEmphasis(signal []float64, coefficient float64) ([]float64, error) {
	if coefficient < 0 || coefficient >= 1 {
		return nil, fmt.Errorf("pre-emphasis coefficient must be in [0, 1), got %v", coefficient)
	}

	out := make([]float64, len(signal))
	prev := 0.0
	for i, x := range signal {
		out[i] = x - coefficient*prev
		prev = x
	}
	return out, nil
}

// Chain describes the optional conditioning applied before analysis
type Chain struct {
	// DCCutoffHz enables the DC blocker when positive
	DCCutoffHz float64
	// PreEmphasis enables pre-emphasis when positive
	PreEmphasis float64
}

// Enabled reports whether the chain changes the signal at all
func (c Chain) Enabled() bool {
	return c.DCCutoffHz > 0 || c.PreEmphasis > 0
}

// Apply runs the enabled stages, DC removal first. The input is never
// modified; with nothing enabled it is returned as is.
func (c Chain) Apply(signal []float64, sampleRate float64) ([]float64, error) {
	out := signal

	if c.DCCutoffHz > 0 {
		dc, err := NewDCBlocker(sampleRate, c.DCCutoffHz)
		if err != nil {
			return nil, err
		}
		out = dc.Apply(out)
	}

	if c.PreEmphasis > 0 {
		var err error
		if out, err = PreEmphasis(out, c.PreEmphasis); err != nil {
			return nil, err
		}
	}

	return out, nil
}

package windowing

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSize bounds generated windows (1M samples)
const MaxSize = 1 << 20

var (
	// ErrInvalidSize is returned for non-positive or oversized windows
	ErrInvalidSize = errors.New("invalid window size")

	// ErrUnknownType is returned for window types outside the closed set
	ErrUnknownType = errors.New("unknown window type")
)

// Type is the closed set of supported window functions. The zero value is
// Hann.
type Type int

const (
	Hann Type = iota
	Hamming
	Blackman
	BlackmanHarris
	Bartlett
	Rectangular
)

var typeNames = map[Type]string{
	Hann:           "hann",
	Hamming:        "hamming",
	Blackman:       "blackman",
	BlackmanHarris: "blackman_harris",
	Bartlett:       "bartlett",
	Rectangular:    "rectangular",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(t))
}

// Valid reports whether t is one of the supported window types
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Types returns all supported window types in code order
func Types() []Type {
	return []Type{Hann, Hamming, Blackman, BlackmanHarris, Bartlett, Rectangular}
}

// ParseType converts a name such as "hann" or "blackman-harris" to a Type
func ParseType(name string) (Type, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	switch normalized {
	case "hanning":
		return Hann, nil
	case "boxcar", "none":
		return Rectangular, nil
	case "triangular":
		return Bartlett, nil
	}
	for t, n := range typeNames {
		if n == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// TypeFromCode decodes the integer window code used across process
// boundaries (0 = Hann, then the order of the constants above).
func TypeFromCode(code int) (Type, error) {
	t := Type(code)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: code %d", ErrUnknownType, code)
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: code %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Window holds the coefficients of one window function. Windows handed out
// by a Generator are shared and must be treated as read-only.
type Window struct {
	typ          Type
	size         int
	coefficients []float64
	sum          float64
	energy       float64
}

// New generates an uncached window
func New(t Type, size int) (*Window, error) {
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	coefficients, err := generateCoefficients(t, size)
	if err != nil {
		return nil, err
	}

	w := &Window{
		typ:          t,
		size:         size,
		coefficients: coefficients,
	}
	for _, c := range coefficients {
		w.sum += c
		w.energy += c * c
	}

	return w, nil
}

// Type returns the window type
func (w *Window) Type() Type {
	return w.typ
}

// Size returns the window length in samples
func (w *Window) Size() int {
	return w.size
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// At returns coefficient i
func (w *Window) At(i int) float64 {
	return w.coefficients[i]
}

// Sum returns the sum of coefficients
func (w *Window) Sum() float64 {
	return w.sum
}

// Energy returns the sum of squared coefficients
func (w *Window) Energy() float64 {
	return w.energy
}

// CoherentGain returns the mean coefficient value
func (w *Window) CoherentGain() float64 {
	return w.sum / float64(w.size)
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) ([]float64, error) {
	windowed := make([]float64, w.size)
	if err := w.ApplyInto(windowed, signal); err != nil {
		return nil, err
	}
	return windowed, nil
}

// ApplyInto writes the elementwise product of src and the window into dst.
// src is not modified.
func (w *Window) ApplyInto(dst, src []float64) error {
	if len(src) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(src), w.size)
	}
	if len(dst) != w.size {
		return fmt.Errorf("destination length (%d) doesn't match window size (%d)", len(dst), w.size)
	}

	for i, c := range w.coefficients {
		dst[i] = src[i] * c
	}

	return nil
}

package spectral

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// View selects which real-valued projection of the spectrogram to derive
type View int

const (
	ViewMagnitude View = iota
	ViewPower
	ViewDecibels
	ViewPhase
)

func (v View) String() string {
	switch v {
	case ViewMagnitude:
		return "magnitude"
	case ViewPower:
		return "power"
	case ViewDecibels:
		return "db"
	case ViewPhase:
		return "phase"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// ParseView converts "magnitude", "power", "db" or "phase" to a View
func ParseView(name string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "magnitude", "mag", "abs":
		return ViewMagnitude, nil
	case "power", "pow":
		return ViewPower, nil
	case "", "db", "decibels", "decibel":
		return ViewDecibels, nil
	case "phase", "angle":
		return ViewPhase, nil
	default:
		return 0, fmt.Errorf("unknown view %q", name)
	}
}

// Decibel converts one magnitude to dB with an additive floor:
// 20*log10(mag + floor). Silent bins stay finite at 20*log10(floor).
func Decibel(magnitude, floor float64) float64 {
	return 20 * math.Log10(magnitude+floor)
}

// Magnitude returns |X[t,k]| for every cell
func (s *Spectrogram) Magnitude() *Grid {
	return s.mapCells(cmplx.Abs)
}

// Power returns |X[t,k]|^2 for every cell
func (s *Spectrogram) Power() *Grid {
	return s.mapCells(func(c complex128) float64 {
		re, im := real(c), imag(c)
		return re*re + im*im
	})
}

// Decibels returns 20*log10(|X[t,k]| + floor) for every cell
func (s *Spectrogram) Decibels(floor float64) *Grid {
	return s.mapCells(func(c complex128) float64 {
		return Decibel(cmplx.Abs(c), floor)
	})
}

// Phase returns atan2(Im, Re) in [-pi, pi] for every cell
func (s *Spectrogram) Phase() *Grid {
	return s.mapCells(cmplx.Phase)
}

// View derives the requested projection. floor is only used by ViewDecibels.
func (s *Spectrogram) View(v View, floor float64) (*Grid, error) {
	switch v {
	case ViewMagnitude:
		return s.Magnitude(), nil
	case ViewPower:
		return s.Power(), nil
	case ViewDecibels:
		return s.Decibels(floor), nil
	case ViewPhase:
		return s.Phase(), nil
	default:
		return nil, fmt.Errorf("unknown view %d", int(v))
	}
}

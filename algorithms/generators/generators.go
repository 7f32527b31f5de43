// Package generators synthesizes deterministic test signals.
package generators

import "math"

// DemoSampleRate and DemoDuration describe the reference composite signal
const (
	DemoSampleRate = 125.0
	DemoDuration   = 2.0
)

// Tone is one sinusoidal component
type Tone struct {
	Frequency float64 // Hz
	Amplitude float64
	Phase     float64 // radians
}

// Samples returns how many samples duration seconds take at sampleRate
func Samples(sampleRate, duration float64) int {
	return int(math.Round(sampleRate * duration))
}

// Sine returns n samples of amplitude*sin(2*pi*f*t)
func Sine(frequency, amplitude, sampleRate float64, n int) []float64 {
	return MultiTone(sampleRate, n, Tone{Frequency: frequency, Amplitude: amplitude})
}

// MultiTone returns n samples of the sum of tones
func MultiTone(sampleRate float64, n int, tones ...Tone) []float64 {
	out := make([]float64, max(n, 0))
	for i := range out {
		t := float64(i) / sampleRate
		for _, tone := range tones {
			out[i] += tone.Amplitude * math.Sin(2*math.Pi*tone.Frequency*t+tone.Phase)
		}
	}
	return out
}

// Chirp returns a linear sweep from f0 to f1 Hz over n samples
func Chirp(f0, f1, amplitude, sampleRate float64, n int) []float64 {
	out := make([]float64, max(n, 0))
	if n == 0 {
		return out
	}

	duration := float64(n) / sampleRate
	rate := (f1 - f0) / duration
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = amplitude * math.Sin(2*math.Pi*(f0*t+0.5*rate*t*t))
	}
	return out
}

// Stepped concatenates one sine segment per frequency, each segmentLength
// samples long. Useful for checking that the peak bin moves over time.
func Stepped(frequencies []float64, amplitude, sampleRate float64, segmentLength int) []float64 {
	out := make([]float64, 0, len(frequencies)*segmentLength)
	for _, f := range frequencies {
		out = append(out, Sine(f, amplitude, sampleRate, segmentLength)...)
	}
	return out
}

// Impulse returns n zeros with a single 1 at index at
func Impulse(n, at int) []float64 {
	out := make([]float64, max(n, 0))
	if at >= 0 && at < len(out) {
		out[at] = 1
	}
	return out
}

// Constant returns n copies of v
func Constant(n int, v float64) []float64 {
	out := make([]float64, max(n, 0))
	for i := range out {
		out[i] = v
	}
	return out
}

// Demo returns the reference composite signal: 2 s at 125 Hz of
// sin(2*pi*10*t) + 0.5*sin(2*pi*20*t)
func Demo() []float64 {
	return MultiTone(DemoSampleRate, Samples(DemoSampleRate, DemoDuration),
		Tone{Frequency: 10, Amplitude: 1},
		Tone{Frequency: 20, Amplitude: 0.5},
	)
}

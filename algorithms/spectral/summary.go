package spectral

import (
	"gonum.org/v1/gonum/floats"
)

// DefaultRolloffThreshold is the energy fraction used by Summarize
const DefaultRolloffThreshold = 0.85

// FrameSummary describes the magnitude spectrum of one frame
type FrameSummary struct {
	Time      float64 `json:"time"`
	PeakBin   int     `json:"peak_bin"`
	PeakHz    float64 `json:"peak_hz"`
	Centroid  float64 `json:"centroid_hz"`
	Rolloff   float64 `json:"rolloff_hz"`
	Magnitude float64 `json:"peak_magnitude"`
}

// Summary condenses a result into per-frame descriptors
type Summary struct {
	Frames []FrameSummary `json:"frames"`
	// DominantHz is the peak frequency that occurs in the most frames
	DominantHz float64 `json:"dominant_hz"`
}

// Summarize computes peak, centroid and rolloff for every frame of r
func Summarize(r *Result) *Summary {
	mag := r.Magnitude()
	freqs := r.Frequencies()
	times := r.FrameTimes()

	summary := &Summary{Frames: make([]FrameSummary, r.FrameCount)}
	votes := make(map[int]int)

	for t := range r.FrameCount {
		spectrum := mag.Row(t)
		peak := floats.MaxIdx(spectrum)
		votes[peak]++

		summary.Frames[t] = FrameSummary{
			Time:      times[t],
			PeakBin:   peak,
			PeakHz:    freqs[peak],
			Centroid:  Centroid(spectrum, freqs),
			Rolloff:   Rolloff(spectrum, freqs, DefaultRolloffThreshold),
			Magnitude: spectrum[peak],
		}
	}

	best, bestVotes := 0, -1
	for bin, n := range votes {
		if n > bestVotes || (n == bestVotes && bin < best) {
			best, bestVotes = bin, n
		}
	}
	if bestVotes > 0 {
		summary.DominantHz = freqs[best]
	}

	return summary
}

// Centroid returns the magnitude-weighted mean frequency of a spectrum
func Centroid(spectrum, freqs []float64) float64 {
	total := floats.Sum(spectrum)
	if total == 0 {
		return 0
	}
	return floats.Dot(spectrum, freqs) / total
}

// Rolloff returns the frequency below which threshold of the spectral
// energy lies
func Rolloff(spectrum, freqs []float64, threshold float64) float64 {
	totalEnergy := floats.Dot(spectrum, spectrum)
	if totalEnergy == 0 {
		return 0
	}

	target := threshold * totalEnergy
	cumulative := 0.0
	for i, mag := range spectrum {
		cumulative += mag * mag
		if cumulative >= target {
			return freqs[i]
		}
	}
	return freqs[len(freqs)-1]
}

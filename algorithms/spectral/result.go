package spectral

import "time"

// Result is the output of one successful computation. It owns its
// spectrogram; nothing in it aliases the input signal.
type Result struct {
	Spectrogram         *Spectrogram  `json:"-"`
	FrameCount          int           `json:"frame_count"`
	FrequencyBinCount   int           `json:"frequency_bin_count"`
	FrameTimeStep       float64       `json:"frame_time_step"`      // seconds between frame starts
	FrequencyResolution float64       `json:"frequency_resolution"` // Hz per bin
	OverlapPercent      float64       `json:"overlap_percent"`
	Elapsed             time.Duration `json:"elapsed"`
	Config              Config        `json:"config"`
}

func newResult(spec *Spectrogram, cfg Config, elapsed time.Duration) *Result {
	return &Result{
		Spectrogram:         spec,
		FrameCount:          spec.Frames(),
		FrequencyBinCount:   cfg.FrequencyBinCount(),
		FrameTimeStep:       cfg.FrameTimeStep(),
		FrequencyResolution: cfg.FrequencyResolution(),
		OverlapPercent:      cfg.OverlapPercent(),
		Elapsed:             elapsed,
		Config:              cfg,
	}
}

func (r *Result) Magnitude() *Grid { return r.Spectrogram.Magnitude() }
func (r *Result) Power() *Grid     { return r.Spectrogram.Power() }
func (r *Result) Phase() *Grid     { return r.Spectrogram.Phase() }

// Decibels uses the configured decibel floor
func (r *Result) Decibels() *Grid {
	return r.Spectrogram.Decibels(r.Config.DecibelFloor)
}

// View derives the requested projection with the configured decibel floor
func (r *Result) View(v View) (*Grid, error) {
	return r.Spectrogram.View(v, r.Config.DecibelFloor)
}

// FrameTimes returns the centre time of every frame in seconds,
// (k*H + W/2) / fs
func (r *Result) FrameTimes() []float64 {
	times := make([]float64, r.FrameCount)
	half := float64(r.Config.WindowSize / 2)
	for k := range times {
		times[k] = (float64(k*r.Config.HopSize) + half) / r.Config.SampleRate
	}
	return times
}

// Frequencies returns the centre frequency of every bin in Hz
func (r *Result) Frequencies() []float64 {
	freqs := make([]float64, r.FrequencyBinCount)
	for b := range freqs {
		freqs[b] = float64(b) * r.FrequencyResolution
	}
	return freqs
}

// Duration returns the span of signal covered by the frames in seconds
func (r *Result) Duration() float64 {
	if r.FrameCount == 0 {
		return 0
	}
	covered := (r.FrameCount-1)*r.Config.HopSize + r.Config.WindowSize
	return float64(covered) / r.Config.SampleRate
}

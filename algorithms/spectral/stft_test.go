package spectral

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/RyanBlaney/sonido-stft/algorithms/generators"
	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
	"github.com/RyanBlaney/sonido-stft/logging"
	"github.com/matryer/is"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func quietEngine(opts ...Option) *Engine {
	return NewEngine(append([]Option{WithLogger(&logging.NoOpLogger{})}, opts...)...)
}

func referenceConfig(t *testing.T) Config {
	t.Helper()

	cfg, err := NewConfig(62, 31, generators.DemoSampleRate, windowing.Hann)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestEndToEndScenario(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine().Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.NoErr(err)

	is.Equal(result.FrameCount, 7)
	is.Equal(result.FrequencyBinCount, 32)
	is.Equal(result.Spectrogram.Frames(), 7)
	is.Equal(result.Spectrogram.Bins(), 32)
	is.True(math.Abs(result.FrameTimeStep-0.248) < 1e-12)
	is.True(math.Abs(result.FrequencyResolution-125.0/62.0) < 1e-12)
	is.True(math.Abs(result.OverlapPercent-50) < 1e-12)

	db := result.Decibels()
	for frame := range result.FrameCount {
		is.Equal(db.PeakBin(frame), 5) // 10 Hz component
		row := db.Row(frame)
		is.True(row[10] > row[8])  // 20 Hz component stands out
		is.True(row[10] > row[12]) // on both sides
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	is := is.New(t)

	engine := quietEngine()
	signal := generators.Demo()
	cfg := referenceConfig(t)

	first, err := engine.Compute(context.Background(), signal, cfg)
	is.NoErr(err)
	second, err := engine.Compute(context.Background(), signal, cfg)
	is.NoErr(err)

	is.Equal(first.Spectrogram.Complex(), second.Spectrogram.Complex())
}

func TestComputeDoesNotMutateSignal(t *testing.T) {
	is := is.New(t)

	signal := generators.Demo()
	before := append([]float64(nil), signal...)

	_, err := quietEngine().Compute(context.Background(), signal, referenceConfig(t))
	is.NoErr(err)
	is.Equal(signal, before)
}

func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	is := is.New(t)

	signal := generators.Chirp(1, 60, 1, 125, 5000)
	cfg := referenceConfig(t)

	serial, err := quietEngine(WithWorkers(1)).Compute(context.Background(), signal, cfg)
	is.NoErr(err)
	parallel, err := quietEngine(WithWorkers(8)).Compute(context.Background(), signal, cfg)
	is.NoErr(err)

	is.Equal(serial.Spectrogram.Complex(), parallel.Spectrogram.Complex())
}

func TestConcurrentComputeSharesEngine(t *testing.T) {
	is := is.New(t)

	engine := quietEngine()
	signal := generators.Demo()
	cfg := referenceConfig(t)

	want, err := engine.Compute(context.Background(), signal, cfg)
	is.NoErr(err)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = engine.Compute(context.Background(), signal, cfg)
		}()
	}
	wg.Wait()

	for i := range results {
		is.NoErr(errs[i])
		is.Equal(results[i].Spectrogram.Complex(), want.Spectrogram.Complex())
	}
}

func TestGonumBackendMatchesDefault(t *testing.T) {
	is := is.New(t)

	signal := generators.Demo()
	cfg := referenceConfig(t)

	a, err := quietEngine().Compute(context.Background(), signal, cfg)
	is.NoErr(err)
	b, err := quietEngine(WithBackend(BackendGonum)).Compute(context.Background(), signal, cfg)
	is.NoErr(err)

	diff, err := a.Magnitude().MaxAbsDiff(b.Magnitude())
	is.NoErr(err)
	is.True(diff < 1e-9)
}

func TestViewsInvariants(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine().Compute(context.Background(), generators.Chirp(1, 60, 1, 125, 1000), referenceConfig(t))
	is.NoErr(err)

	mag := result.Magnitude()
	pow := result.Power()
	db := result.Decibels()
	phase := result.Phase()

	for f := range result.FrameCount {
		for b := range result.FrequencyBinCount {
			m := mag.At(f, b)
			is.True(m >= 0)
			is.True(math.Abs(pow.At(f, b)-m*m) <= 1e-9*math.Max(1, m*m))
			is.Equal(db.At(f, b), Decibel(m, DefaultDecibelFloor))
			is.True(phase.At(f, b) >= -math.Pi && phase.At(f, b) <= math.Pi)
		}
	}
	is.True(db.AllFinite())
}

func TestDecibelMonotonic(t *testing.T) {
	is := is.New(t)

	mags := []float64{0, 1e-12, 1e-6, 0.5, 1, 10, 1e6}
	for i := 1; i < len(mags); i++ {
		is.True(Decibel(mags[i], DefaultDecibelFloor) > Decibel(mags[i-1], DefaultDecibelFloor))
	}
	is.True(math.Abs(Decibel(1, 0)) < 1e-12)
	is.True(math.Abs(Decibel(10, 0)-20) < 1e-12)
}

func TestSilenceSitsAtTheFloor(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine().Compute(context.Background(), make([]float64, 250), referenceConfig(t))
	is.NoErr(err)

	db := result.Decibels()
	is.True(db.AllFinite())
	for f := range db.Rows() {
		for _, v := range db.Row(f) {
			is.True(math.Abs(v-(-200)) < 1e-9) // 20*log10(1e-10)
		}
	}
}

func TestDecibelFloorIsConfigurable(t *testing.T) {
	is := is.New(t)

	cfg := referenceConfig(t).WithDecibelFloor(1e-5)
	result, err := quietEngine().Compute(context.Background(), make([]float64, 62), cfg)
	is.NoErr(err)
	is.True(math.Abs(result.Decibels().At(0, 0)-(-100)) < 1e-9)
}

func TestSignalOfExactlyOneWindow(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine().Compute(context.Background(), generators.Sine(10, 1, 125, 62), referenceConfig(t))
	is.NoErr(err)
	is.Equal(result.FrameCount, 1)
}

func TestShortSignalPolicies(t *testing.T) {
	is := is.New(t)

	signal := generators.Sine(10, 1, 125, 61)
	cfg := referenceConfig(t)

	result, err := quietEngine().Compute(context.Background(), signal, cfg)
	is.True(errors.Is(err, ErrInsufficientSignalLength))
	is.Equal(KindOf(err), KindInsufficientSignalLength)
	is.True(result == nil)

	result, err = quietEngine(WithShortSignalPolicy(ShortSignalEmpty)).Compute(context.Background(), signal, cfg)
	is.NoErr(err)
	is.Equal(result.FrameCount, 0)
	is.Equal(result.Spectrogram.Frames(), 0)
	is.Equal(result.FrequencyBinCount, 32)
	is.Equal(len(result.FrameTimes()), 0)
	is.Equal(result.Decibels().Rows(), 0)

	_, err = quietEngine().Compute(context.Background(), nil, cfg)
	is.True(errors.Is(err, ErrInsufficientSignalLength))
}

func TestInvalidConfigurations(t *testing.T) {
	valid := Config{
		WindowSize:   62,
		HopSize:      31,
		SampleRate:   125,
		WindowType:   windowing.Hann,
		DecibelFloor: DefaultDecibelFloor,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.WindowSize = 0 }},
		{"negative window", func(c *Config) { c.WindowSize = -8 }},
		{"huge window", func(c *Config) { c.WindowSize = windowing.MaxSize + 1 }},
		{"zero hop", func(c *Config) { c.HopSize = 0 }},
		{"hop larger than window", func(c *Config) { c.HopSize = 63 }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative sample rate", func(c *Config) { c.SampleRate = -1 }},
		{"NaN sample rate", func(c *Config) { c.SampleRate = math.NaN() }},
		{"infinite sample rate", func(c *Config) { c.SampleRate = math.Inf(1) }},
		{"unknown window type", func(c *Config) { c.WindowType = windowing.Type(99) }},
		{"unknown scaling", func(c *Config) { c.Scaling = Scaling(7) }},
		{"zero decibel floor", func(c *Config) { c.DecibelFloor = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)

			cfg := valid
			tt.mutate(&cfg)

			result, err := quietEngine().Compute(context.Background(), generators.Demo(), cfg)
			is.True(result == nil)
			is.True(errors.Is(err, ErrInvalidConfiguration))
			is.Equal(KindOf(err), KindInvalidConfiguration)
		})
	}
}

func TestUnknownBackendIsInvalidConfiguration(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine(WithBackend(Backend(99))).Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.True(result == nil)
	is.True(errors.Is(err, ErrInvalidConfiguration))
	is.Equal(KindOf(err), KindInvalidConfiguration)
	is.True(!errors.Is(err, ErrTransformFailure))
}

func TestNonFiniteInputFailsTransform(t *testing.T) {
	is := is.New(t)

	signal := generators.Demo()
	signal[100] = math.NaN()

	result, err := quietEngine().Compute(context.Background(), signal, referenceConfig(t))
	is.True(result == nil) // no partial result
	is.True(errors.Is(err, ErrTransformFailure))

	signal[100] = math.Inf(1)
	_, err = quietEngine(WithBackend(BackendGonum)).Compute(context.Background(), signal, referenceConfig(t))
	is.True(errors.Is(err, ErrTransformFailure))
}

func TestCanceledContext(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := quietEngine().Compute(ctx, generators.Demo(), referenceConfig(t))
	is.True(result == nil)
	is.True(errors.Is(err, ErrCanceled))
	is.True(errors.Is(err, context.Canceled))
}

func TestMaxCells(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine(WithMaxCells(100)).Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.True(result == nil)
	is.True(errors.Is(err, ErrAllocationFailure))

	// 7 frames x 32 bins fits exactly
	_, err = quietEngine(WithMaxCells(7*32)).Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.NoErr(err)
}

func TestComputeFloat32(t *testing.T) {
	is := is.New(t)

	demo := generators.Demo()
	narrow := make([]float32, len(demo))
	for i, v := range demo {
		narrow[i] = float32(v)
	}

	engine := quietEngine()
	a, err := engine.Compute(context.Background(), demo, referenceConfig(t))
	is.NoErr(err)
	b, err := engine.ComputeFloat32(context.Background(), narrow, referenceConfig(t))
	is.NoErr(err)

	diff, err := a.Magnitude().MaxAbsDiff(b.Magnitude())
	is.NoErr(err)
	is.True(diff < 1e-4)
}

func TestPackageCompute(t *testing.T) {
	is := is.New(t)

	result, err := Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.NoErr(err)
	is.Equal(result.FrameCount, 7)
	is.True(result.Elapsed > 0)
}

func TestFrameTimesAndFrequencies(t *testing.T) {
	is := is.New(t)

	result, err := quietEngine().Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.NoErr(err)

	times := result.FrameTimes()
	is.Equal(len(times), 7)
	is.True(math.Abs(times[0]-0.248) < 1e-12) // centre of the first frame: 31/125
	for k := 1; k < len(times); k++ {
		is.True(math.Abs(times[k]-times[k-1]-result.FrameTimeStep) < 1e-12)
	}

	freqs := result.Frequencies()
	is.Equal(len(freqs), 32)
	is.Equal(freqs[0], 0.0)
	is.True(math.Abs(freqs[31]-31*125.0/62.0) < 1e-9)

	is.True(math.Abs(result.Duration()-(6*31+62)/125.0) < 1e-12)
}

func TestPeakFollowsSteppedTone(t *testing.T) {
	is := is.New(t)

	signal := generators.Stepped([]float64{10, 20, 40}, 1, 125, 250)
	result, err := quietEngine().Compute(context.Background(), signal, referenceConfig(t))
	is.NoErr(err)
	is.Equal(result.FrameCount, 23)

	mag := result.Magnitude()
	is.Equal(mag.PeakBin(0), 5)
	is.Equal(mag.PeakBin(22), 20) // 40 Hz / (125/62 Hz per bin)
}

func TestScalingSpectrumAmplitude(t *testing.T) {
	is := is.New(t)

	// a tone centred on bin 8 of a 64-point Hann window reads as amplitude/2
	cfg, err := NewConfig(64, 32, 64, windowing.Hann)
	is.NoErr(err)
	result, err := quietEngine().Compute(context.Background(), generators.Sine(8, 2, 64, 256), cfg.WithScaling(ScalingSpectrum))
	is.NoErr(err)

	mag := result.Magnitude()
	for f := range result.FrameCount {
		is.Equal(mag.PeakBin(f), 8)
		is.True(math.Abs(mag.At(f, 8)-1) < 0.02)
	}
}

func TestStateTransitionsAreLogged(t *testing.T) {
	is := is.New(t)

	base, hook := logrustest.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)

	engine := NewEngine(WithLogger(logging.NewLogrusLogger(base)))
	_, err := engine.Compute(context.Background(), generators.Demo(), referenceConfig(t))
	is.NoErr(err)

	var states []string
	for _, entry := range hook.AllEntries() {
		if entry.Message == "STFT state changed" {
			states = append(states, entry.Data["state"].(string))
			is.Equal(entry.Data["window_size"], 62)
		}
	}
	is.Equal(states, []string{"validating", "framing", "transforming", "assembling", "done"})

	hook.Reset()
	_, err = engine.Compute(context.Background(), generators.Demo(), Config{})
	is.True(err != nil)
	last := hook.LastEntry()
	is.Equal(last.Level, logrus.ErrorLevel)
	is.Equal(last.Data["kind"], "InvalidConfiguration")
}

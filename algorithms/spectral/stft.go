package spectral

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-stft/algorithms/windowing"
	"github.com/RyanBlaney/sonido-stft/logging"
)

// DefaultMaxCells bounds frames*bins of a single spectrogram (4 GiB of
// complex128)
const DefaultMaxCells = 1 << 28

// State is a stage of one computation
type State int

const (
	StateIdle State = iota
	StateValidating
	StateFraming
	StateTransforming
	StateAssembling
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateValidating:   "validating",
	StateFraming:      "framing",
	StateTransforming: "transforming",
	StateAssembling:   "assembling",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ShortSignalPolicy decides what a signal shorter than one window yields
type ShortSignalPolicy int

const (
	// ShortSignalFail returns an InsufficientSignalLength error
	ShortSignalFail ShortSignalPolicy = iota
	// ShortSignalEmpty returns a Result with zero frames
	ShortSignalEmpty
)

func (p ShortSignalPolicy) String() string {
	if p == ShortSignalEmpty {
		return "empty"
	}
	return "fail"
}

// Engine computes STFTs. It holds no per-computation state, so one Engine
// may serve concurrent Compute calls.
type Engine struct {
	logger      logging.Logger
	workers     int
	backend     Backend
	windows     *windowing.Generator
	shortSignal ShortSignalPolicy
	maxCells    int
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkers fixes the worker count. n <= 0 selects it from the CPU count
// and workload.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithBackend selects the FFT implementation
func WithBackend(b Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithWindowGenerator shares a window cache between engines
func WithWindowGenerator(g *windowing.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.windows = g
		}
	}
}

// WithShortSignalPolicy sets the behavior for signals shorter than a window
func WithShortSignalPolicy(p ShortSignalPolicy) Option {
	return func(e *Engine) {
		e.shortSignal = p
	}
}

// WithMaxCells bounds frames*bins; larger spectrograms fail with
// AllocationFailure before anything is allocated
func WithMaxCells(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCells = n
		}
	}
}

// NewEngine creates an engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.WithFields(logging.Fields{
			"component": "stft_engine",
		}),
		backend:     BackendGoDSP,
		windows:     windowing.Default(),
		shortSignal: ShortSignalFail,
		maxCells:    DefaultMaxCells,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Compute runs the default engine
func Compute(ctx context.Context, signal []float64, cfg Config) (*Result, error) {
	return defaultEngine.Compute(ctx, signal, cfg)
}

// ComputeFloat32 widens signal to float64 and computes its STFT
func (e *Engine) ComputeFloat32(ctx context.Context, signal []float32, cfg Config) (*Result, error) {
	wide := make([]float64, len(signal))
	for i, v := range signal {
		wide[i] = float64(v)
	}
	return e.Compute(ctx, wide, cfg)
}

// Compute returns the STFT of signal under cfg. The signal is read, never
// written. On any failure the Result is nil.
func (e *Engine) Compute(ctx context.Context, signal []float64, cfg Config) (*Result, error) {
	started := time.Now()

	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":      "Compute",
		"signal_length": len(signal),
		"window_size":   cfg.WindowSize,
		"hop_size":      cfg.HopSize,
		"window_type":   cfg.WindowType.String(),
	})

	result, err := e.compute(ctx, signal, cfg, logger)
	if err != nil {
		transition(logger, StateFailed)
		logger.Error(err, "STFT computation failed", logging.Fields{
			"kind": KindOf(err).String(),
		})
		return nil, err
	}

	result.Elapsed = time.Since(started)
	transition(logger, StateDone)
	logger.Debug("STFT computation finished", logging.Fields{
		"frames":     result.FrameCount,
		"bins":       result.FrequencyBinCount,
		"elapsed_ms": result.Elapsed.Milliseconds(),
	})

	return result, nil
}

func (e *Engine) compute(ctx context.Context, signal []float64, cfg Config, logger logging.Logger) (*Result, error) {
	transition(logger, StateValidating)
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCanceled, err, "canceled before validation")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !e.backend.Valid() {
		return nil, newError(KindInvalidConfiguration, nil, "unknown FFT backend %s", e.backend)
	}

	window, err := e.windows.Get(cfg.WindowType, cfg.WindowSize)
	if err != nil {
		return nil, newError(KindInvalidConfiguration, err, "cannot generate %s window of size %d", cfg.WindowType, cfg.WindowSize)
	}

	transition(logger, StateFraming)
	framer := NewFramer(signal, cfg.WindowSize, cfg.HopSize)
	bins := cfg.FrequencyBinCount()

	if framer.Count() == 0 {
		if e.shortSignal == ShortSignalEmpty {
			logger.Warn("Signal shorter than one window, returning empty result")
			return newResult(NewSpectrogram(0, bins), cfg, 0), nil
		}
		return nil, newError(KindInsufficientSignalLength, nil,
			"signal length %d is shorter than window size %d", len(signal), cfg.WindowSize)
	}

	if framer.Count() > e.maxCells/bins {
		return nil, newError(KindAllocationFailure, nil,
			"%d frames x %d bins exceeds the %d cell limit", framer.Count(), bins, e.maxCells)
	}

	transition(logger, StateTransforming)
	spec := NewSpectrogram(framer.Count(), bins)
	if err := e.transformFrames(ctx, framer, spec, window, scaleFactor(cfg, window), logger); err != nil {
		return nil, err
	}

	transition(logger, StateAssembling)
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCanceled, err, "canceled after transforming %d frames", framer.Count())
	}

	return newResult(spec, cfg, 0), nil
}

// transformFrames fans frame indices out to a worker pool. Each worker owns
// a transformer and writes only the spectrogram rows of the frames it
// receives. The first failure cancels the remaining work.
func (e *Engine) transformFrames(ctx context.Context, framer *Framer, spec *Spectrogram, window *windowing.Window, scale float64, logger logging.Logger) error {
	numFrames := framer.Count()
	numWorkers := e.workerCount(numFrames)

	logger.Debug("Starting frame workers", logging.Fields{
		"frames":  numFrames,
		"workers": numWorkers,
		"backend": e.backend.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	jobs := make(chan int, numWorkers*2)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			transformer, err := NewFrameTransformer(window, e.backend, scale)
			if err != nil {
				fail(newError(KindTransformFailure, err, "cannot create %s transformer", e.backend))
				return
			}

			for k := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := transformer.Transform(framer.Frame(k), spec.Row(k)); err != nil {
					fail(newError(KindTransformFailure, err, "frame %d", k))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for k := range numFrames {
			select {
			case <-ctx.Done():
				return
			case jobs <- k:
			}
		}
	}()

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return newError(KindCanceled, err, "canceled while transforming %d frames", numFrames)
	}
	return nil
}

// workerCount picks the pool size from the CPU count and the workload
func (e *Engine) workerCount(numFrames int) int {
	if e.workers > 0 {
		return max(1, min(e.workers, numFrames))
	}

	numCPU := runtime.NumCPU()

	// Small workloads don't benefit from many goroutines
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}

func transition(logger logging.Logger, s State) {
	logger.Debug("STFT state changed", logging.Fields{"state": s.String()})
}

package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-stft/logging"
	"github.com/RyanBlaney/sonido-stft/transcode"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must stay quiet before it is analyzed
const DefaultSettleDelay = 50 * time.Millisecond

// Processed reports the outcome for one input file
type Processed struct {
	Input    string
	Output   string
	Analysis *Analysis
	Err      error
}

// Watcher analyzes every WAV or FLAC file created or rewritten in a
// directory and writes the export next to it
type Watcher struct {
	analyzer *Analyzer
	dir      string
	settle   time.Duration
	results  chan Processed
	ready    chan struct{}
	logger   logging.Logger
}

// NewWatcher creates a watcher for dir
func NewWatcher(analyzer *Analyzer, dir string) *Watcher {
	return &Watcher{
		analyzer: analyzer,
		dir:      dir,
		settle:   DefaultSettleDelay,
		results:  make(chan Processed, 16),
		ready:    make(chan struct{}),
		logger: analyzer.logger.WithFields(logging.Fields{
			"component": "watcher",
			"dir":       dir,
		}),
	}
}

// SetSettleDelay changes the quiet period before a file is analyzed
func (w *Watcher) SetSettleDelay(d time.Duration) {
	if d > 0 {
		w.settle = d
	}
}

// Results delivers one Processed per analyzed file. Sends are dropped when
// nobody reads them.
func (w *Watcher) Results() <-chan Processed {
	return w.results
}

// Ready is closed once the directory is being watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. Results is closed when Run returns, so Run
// may only be called once.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.results)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			w.logger.Error(err, "Failed to close file watcher")
		}
	}()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.logger.Info("Watching directory for audio files")
	close(w.ready)

	settle := newDebouncer(w.settle)
	defer settle.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("file watcher closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !transcode.IsSupported(event.Name) {
				continue
			}
			settle.touch(ctx, event.Name)

		case name := <-settle.out:
			w.process(ctx, name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("file watcher closed")
			}
			w.logger.Error(err, "File watcher error")
		}
	}
}

func (w *Watcher) process(ctx context.Context, input string) {
	logger := w.logger.WithFields(logging.Fields{"input": input})
	result := Processed{Input: input}

	analysis, err := w.analyzer.AnalyzeFile(ctx, input)
	if err == nil {
		result.Analysis = analysis
		result.Output, err = w.analyzer.Write(ctx, analysis, w.analyzer.OutputPath(input))
	}
	result.Err = err

	if err != nil {
		logger.Error(err, "Failed to analyze file")
	} else {
		logger.Info("Analyzed file", logging.Fields{
			"output":      result.Output,
			"frames":      analysis.Result.FrameCount,
			"dominant_hz": analysis.Summary.DominantHz,
		})
	}

	select {
	case w.results <- result:
	default:
	}
}

// debouncer emits a name on out once it has seen no touch for delay. A
// timer drops its own pending entry when it fires, so a touch after that
// starts a new quiet period instead of re-arming the spent timer.
type debouncer struct {
	delay   time.Duration
	out     chan string
	done    chan struct{}
	mu      sync.Mutex
	pending map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		out:     make(chan string),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
}

func (d *debouncer) touch(ctx context.Context, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.pending[name]; ok && t.Stop() {
		t.Reset(d.delay)
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending[name] == t {
			delete(d.pending, name)
		}
		d.mu.Unlock()

		select {
		case d.out <- name:
		case <-ctx.Done():
		case <-d.done:
		}
	})
	d.pending[name] = t
}

func (d *debouncer) waiting() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// stop cancels pending timers and releases fired ones still waiting to
// send. It must be called once.
func (d *debouncer) stop() {
	close(d.done)

	d.mu.Lock()
	defer d.mu.Unlock()
	for name, t := range d.pending {
		t.Stop()
		delete(d.pending, name)
	}
}

package windowing

import (
	"sync"

	"github.com/RyanBlaney/sonido-stft/logging"
)

type cacheKey struct {
	typ  Type
	size int
}

// Generator generates windows and caches them by (type, size). Cached
// windows are immutable, so one Generator can be shared by any number of
// concurrent computations.
type Generator struct {
	mu     sync.RWMutex
	cache  map[cacheKey]*Window
	logger logging.Logger
}

// NewGenerator creates a new window generator
func NewGenerator() *Generator {
	return &Generator{
		cache: make(map[cacheKey]*Window),
		logger: logging.WithFields(logging.Fields{
			"component": "window_generator",
		}),
	}
}

var defaultGenerator = NewGenerator()

// Default returns the process-wide generator
func Default() *Generator {
	return defaultGenerator
}

// Get returns a window from the process-wide generator
func Get(t Type, size int) (*Window, error) {
	return defaultGenerator.Get(t, size)
}

// Get returns the cached window for (t, size), generating it on first use
func (g *Generator) Get(t Type, size int) (*Window, error) {
	key := cacheKey{typ: t, size: size}

	g.mu.RLock()
	cached, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return cached, nil
	}

	logger := g.logger.WithFields(logging.Fields{
		"function":    "Get",
		"window_type": t.String(),
		"window_size": size,
	})

	w, err := New(t, size)
	if err != nil {
		logger.Error(err, "Invalid window configuration")
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Another goroutine may have won the race; keep the first window
	if existing, ok := g.cache[key]; ok {
		return existing, nil
	}
	g.cache[key] = w

	logger.Debug("Window generated", logging.Fields{
		"sum":    w.Sum(),
		"energy": w.Energy(),
	})

	return w, nil
}

// Len returns the number of cached windows
func (g *Generator) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

// Reset drops every cached window
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[cacheKey]*Window)
}

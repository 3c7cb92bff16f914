// Package ratelimit enforces durable per-backend sliding-window quotas.
// Consumption is recorded in an embedded sqlite event log so quota state
// survives process restarts. Acquire never blocks and never calls the
// network; it is purely local bookkeeping.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Window is one rolling quota: at most Limit consumptions per Span.
type Window struct {
	Limit int           `mapstructure:"limit"`
	Span  time.Duration `mapstructure:"span"`
}

func (w Window) valid() bool {
	return w.Limit > 0 && w.Span > 0
}

// DefaultWindows is the quota applied to any backend without a valid
// override: 50 per minute and 1000 per hour, both enforced simultaneously.
func DefaultWindows() []Window {
	return []Window{
		{Limit: 50, Span: time.Minute},
		{Limit: 1000, Span: time.Hour},
	}
}

// Config configures a Limiter.
type Config struct {
	// Path locates the sqlite event log. Empty means in-memory (tests).
	Path string
	// Overrides replaces the default windows per backend. Invalid entries
	// are logged and ignored, never fatal.
	Overrides map[string][]Window
	// Aliases maps logical source names onto shared backend identifiers so
	// sources hitting the same upstream API share one quota bucket.
	Aliases map[string]string
	Logger  *zap.Logger
}

// Limiter tracks per-backend consumption against one or more simultaneous
// rolling windows. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	store   *Store
	windows map[string][]Window
	aliases map[string]string
	logger  *zap.Logger
	now     func() time.Time
}

// New opens (or resets, if corrupted) the durable store and builds a
// Limiter. Override validation failures degrade to defaults with a warning.
func New(cfg Config) (*Limiter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := OpenStore(cfg.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open rate limit store: %w", err)
	}

	windows := make(map[string][]Window, len(cfg.Overrides))
	for backend, override := range cfg.Overrides {
		if err := validateWindows(override); err != nil {
			logger.Warn("invalid rate limit override, using defaults",
				zap.String("backend", backend),
				zap.Error(err),
			)
			continue
		}
		windows[backend] = override
	}

	aliases := make(map[string]string, len(cfg.Aliases))
	for source, backend := range cfg.Aliases {
		aliases[source] = backend
	}

	return &Limiter{
		store:   store,
		windows: windows,
		aliases: aliases,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func validateWindows(windows []Window) error {
	if len(windows) == 0 {
		return fmt.Errorf("no windows configured")
	}
	for i, w := range windows {
		if !w.valid() {
			return fmt.Errorf("window %d: limit=%d span=%s must both be positive", i, w.Limit, w.Span)
		}
	}
	return nil
}

// Backend resolves a logical source name to its quota bucket.
func (l *Limiter) Backend(source string) string {
	if backend, ok := l.aliases[source]; ok {
		return backend
	}
	return source
}

func (l *Limiter) windowsFor(backend string) []Window {
	if w, ok := l.windows[backend]; ok {
		return w
	}
	return DefaultWindows()
}

// Acquire records one consumption for the backend if and only if every
// configured window still has capacity. On denial nothing is recorded.
func (l *Limiter) Acquire(ctx context.Context, source string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	backend := l.Backend(source)
	windows := l.windowsFor(backend)
	now := l.now()

	if err := l.store.Prune(ctx, backend, now.Add(-maxSpan(windows))); err != nil {
		return false, fmt.Errorf("prune %s: %w", backend, err)
	}

	for _, w := range windows {
		used, err := l.store.CountSince(ctx, backend, now.Add(-w.Span))
		if err != nil {
			return false, fmt.Errorf("count %s: %w", backend, err)
		}
		if used >= w.Limit {
			return false, nil
		}
	}

	if err := l.store.Record(ctx, backend, now); err != nil {
		return false, fmt.Errorf("record %s: %w", backend, err)
	}
	return true, nil
}

// Usage reports utilization of the backend's most restrictive window: the
// one with the highest used/limit ratio right now.
func (l *Limiter) Usage(ctx context.Context, source string) (used, limit int, window time.Duration, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	backend := l.Backend(source)
	now := l.now()

	var worst float64 = -1
	for _, w := range l.windowsFor(backend) {
		count, cerr := l.store.CountSince(ctx, backend, now.Add(-w.Span))
		if cerr != nil {
			return 0, 0, 0, fmt.Errorf("count %s: %w", backend, cerr)
		}
		ratio := float64(count) / float64(w.Limit)
		if ratio > worst {
			worst = ratio
			used, limit, window = count, w.Limit, w.Span
		}
	}
	return used, limit, window, nil
}

// Close releases the underlying store.
func (l *Limiter) Close() error {
	return l.store.Close()
}

func maxSpan(windows []Window) time.Duration {
	var out time.Duration
	for _, w := range windows {
		if w.Span > out {
			out = w.Span
		}
	}
	return out
}

package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"watchlist/internal/logging"
)

// Catalog budget defaults: 35 requests per rolling 10 seconds.
const (
	DefaultMaxRequests = 35
	DefaultWindowSize  = 10 * time.Second
)

// Limiter gates calls to a rate-limited downstream service.
type Limiter interface {
	// Acquire blocks until one request may be issued and records it. The only
	// error is the context's, returned when the caller gives up waiting.
	Acquire(ctx context.Context) error
}

// Window is an in-process sliding-window limiter safe for concurrent use.
type Window struct {
	max  int
	size time.Duration

	// gate admits one caller at a time into the check/wait/record sequence.
	// A channel instead of a mutex keeps queued callers cancellable.
	gate chan struct{}

	mu     sync.Mutex
	stamps []time.Time

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	logger *slog.Logger
}

var _ Limiter = (*Window)(nil)

// Option configures a Window.
type Option func(*Window)

// WithClock replaces the wall clock and sleep function, letting tests drive
// time deterministically.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// WithLogger attaches a logger used to report throttled waits.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Window) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWindow creates a limiter allowing max requests per size. Non-positive
// arguments fall back to the catalog defaults.
func NewWindow(max int, size time.Duration, opts ...Option) *Window {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if size <= 0 {
		size = DefaultWindowSize
	}
	w := &Window{
		max:    max,
		size:   size,
		gate:   make(chan struct{}, 1),
		stamps: make([]time.Time, 0, max),
		now:    time.Now,
		sleep:  SleepWithContext,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Acquire blocks until a request slot is free, then records the request.
func (w *Window) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case w.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.gate }()

	for {
		now := w.now()
		wait := w.reserve(now)
		if wait <= 0 {
			return nil
		}
		w.logger.Debug("catalog rate limit reached, waiting",
			logging.Duration("wait", wait),
			logging.Int("max_requests", w.max),
			logging.Duration("window", w.size))
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve prunes expired stamps and records now when capacity remains. It
// returns how long to wait otherwise.
func (w *Window) reserve(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	if len(w.stamps) < w.max {
		w.stamps = append(w.stamps, now)
		return 0
	}
	wait := w.stamps[0].Add(w.size).Sub(now)
	if wait <= 0 {
		// Clock moved backwards between prune and here; retry immediately.
		return time.Millisecond
	}
	return wait
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.size)
	drop := 0
	for drop < len(w.stamps) && !w.stamps[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[drop:]...)
	}
}

// InFlight reports how many recorded requests still fall inside the window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(w.now())
	return len(w.stamps)
}

// Unlimited never waits. It stands in for Window where throttling is not wanted.
type Unlimited struct{}

var _ Limiter = Unlimited{}

// Acquire returns immediately unless ctx is already done.
func (Unlimited) Acquire(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

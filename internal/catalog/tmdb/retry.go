package tmdb

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"watchlist/internal/logging"
	"watchlist/internal/ratelimit"
)

// Backoff bounds for transient catalog failures.
const (
	InitialBackoff = 2 * time.Second
	MaxBackoff     = 60 * time.Second
)

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, gateway errors, timeouts).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// RetryingSearcher retries transient failures of the wrapped Searcher with
// exponential backoff.
type RetryingSearcher struct {
	next       Searcher
	maxRetries int
	initial    time.Duration
	ceiling    time.Duration
	sleep      func(context.Context, time.Duration) error
	logger     *slog.Logger
}

var _ Searcher = (*RetryingSearcher)(nil)

// RetryOption configures a RetryingSearcher.
type RetryOption func(*RetryingSearcher)

// WithBackoff overrides the initial and maximum delay between attempts.
func WithBackoff(initial, ceiling time.Duration) RetryOption {
	return func(r *RetryingSearcher) {
		if initial > 0 {
			r.initial = initial
		}
		if ceiling > 0 {
			r.ceiling = ceiling
		}
	}
}

// WithSleep replaces the context-aware sleep used between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) RetryOption {
	return func(r *RetryingSearcher) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRetryingSearcher wraps next. maxRetries is the number of extra attempts
// after the first; zero disables retries.
func NewRetryingSearcher(next Searcher, maxRetries int, logger *slog.Logger, opts ...RetryOption) *RetryingSearcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &RetryingSearcher{
		next:       next,
		maxRetries: maxRetries,
		initial:    InitialBackoff,
		ceiling:    MaxBackoff,
		sleep:      ratelimit.SleepWithContext,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchMovie implements Searcher.
func (r *RetryingSearcher) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return r.do(ctx, "movie", query, func() (*Response, error) {
		return r.next.SearchMovie(ctx, query, opts)
	})
}

// SearchTV implements Searcher.
func (r *RetryingSearcher) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return r.do(ctx, "tv", query, func() (*Response, error) {
		return r.next.SearchTV(ctx, query, opts)
	})
}

func (r *RetryingSearcher) do(ctx context.Context, kind, query string, call func() (*Response, error)) (*Response, error) {
	backoff := r.initial
	for attempt := 0; ; attempt++ {
		resp, err := call()
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if attempt >= r.maxRetries || !IsRetriable(err) {
			return nil, err
		}
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "tmdb search failed, retrying", "catalog_retry",
			logging.String("query", query),
			logging.String("media_kind", kind),
			logging.Int("attempt", attempt+1),
			logging.Int("max_retries", r.maxRetries),
			logging.Duration("backoff", backoff),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "TMDB is throttling or unavailable; the request will be retried"),
			logging.String(logging.FieldImpact, "import slows down until TMDB recovers"),
		)
		if sleepErr := r.sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff *= 2
		if backoff > r.ceiling {
			backoff = r.ceiling
		}
	}
}

package tmdb

import (
	"context"

	"watchlist/internal/ratelimit"
)

// LimitedSearcher takes one limiter slot for every request it forwards.
// Place it beneath RetryingSearcher so retried attempts are counted too.
type LimitedSearcher struct {
	next    Searcher
	limiter ratelimit.Limiter
}

var _ Searcher = (*LimitedSearcher)(nil)

// NewLimitedSearcher gates next behind limiter. A nil limiter disables throttling.
func NewLimitedSearcher(next Searcher, limiter ratelimit.Limiter) *LimitedSearcher {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &LimitedSearcher{next: next, limiter: limiter}
}

// SearchMovie implements Searcher.
func (l *LimitedSearcher) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	if err := l.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.next.SearchMovie(ctx, query, opts)
}

// SearchTV implements Searcher.
func (l *LimitedSearcher) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	if err := l.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.next.SearchTV(ctx, query, opts)
}

package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"watchlist/internal/catalog/tmdb"
)

type scriptedSearcher struct {
	errs  []error
	calls int
}

func (s *scriptedSearcher) next() (*tmdb.Response, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	return &tmdb.Response{Results: []tmdb.Result{{ID: 1, Title: "Found"}}}, nil
}

func (s *scriptedSearcher) SearchMovie(context.Context, string, tmdb.SearchOptions) (*tmdb.Response, error) {
	return s.next()
}

func (s *scriptedSearcher) SearchTV(context.Context, string, tmdb.SearchOptions) (*tmdb.Response, error) {
	return s.next()
}

type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestRetryingSearcherRetriesTransientFailures(t *testing.T) {
	inner := &scriptedSearcher{errs: []error{
		&tmdb.StatusError{Code: http.StatusTooManyRequests},
		&tmdb.StatusError{Code: http.StatusServiceUnavailable},
	}}
	sleeper := &recordingSleep{}
	searcher := tmdb.NewRetryingSearcher(inner, 3, nil,
		tmdb.WithBackoff(10*time.Millisecond, 15*time.Millisecond),
		tmdb.WithSleep(sleeper.Sleep))

	resp, err := searcher.SearchMovie(context.Background(), "Found", tmdb.SearchOptions{})
	if err != nil {
		t.Fatalf("SearchMovie returned error: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
	want := []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}
	if len(sleeper.waits) != len(want) || sleeper.waits[0] != want[0] || sleeper.waits[1] != want[1] {
		t.Fatalf("backoff waits = %v, want %v", sleeper.waits, want)
	}
}

func TestRetryingSearcherStopsAfterMaxRetries(t *testing.T) {
	busy := &tmdb.StatusError{Code: http.StatusBadGateway}
	inner := &scriptedSearcher{errs: []error{busy, busy, busy, busy}}
	sleeper := &recordingSleep{}
	searcher := tmdb.NewRetryingSearcher(inner, 2, nil, tmdb.WithSleep(sleeper.Sleep))

	_, err := searcher.SearchTV(context.Background(), "x", tmdb.SearchOptions{})
	var statusErr *tmdb.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Fatalf("expected final 502, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingSearcherDoesNotRetryPermanentErrors(t *testing.T) {
	inner := &scriptedSearcher{errs: []error{&tmdb.StatusError{Code: http.StatusUnauthorized}}}
	searcher := tmdb.NewRetryingSearcher(inner, 5, nil, tmdb.WithSleep((&recordingSleep{}).Sleep))

	if _, err := searcher.SearchMovie(context.Background(), "x", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected 401 to surface")
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryingSearcherHonoursCancellation(t *testing.T) {
	inner := &scriptedSearcher{errs: []error{&tmdb.StatusError{Code: http.StatusTooManyRequests}}}
	searcher := tmdb.NewRetryingSearcher(inner, 5, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := searcher.SearchMovie(ctx, "x", tmdb.SearchOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &tmdb.StatusError{Code: 429}, true},
		{"gateway timeout", &tmdb.StatusError{Code: 504}, true},
		{"not found", &tmdb.StatusError{Code: 404}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"decode", errors.New("decode tmdb response: unexpected EOF"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tmdb.IsRetriable(tt.err); got != tt.want {
				t.Fatalf("IsRetriable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

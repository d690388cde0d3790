package matching_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"watchlist/internal/catalog/tmdb"
	"watchlist/internal/matching"
	"watchlist/internal/services"
)

type searchCall struct {
	kind  string
	query string
	year  int
}

type fakeSearcher struct {
	byYear map[int][]tmdb.Result
	err    error
	calls  []searchCall
}

func (f *fakeSearcher) respond(kind, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	f.calls = append(f.calls, searchCall{kind: kind, query: query, year: opts.Year})
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.Response{Results: f.byYear[opts.Year]}, nil
}

func (f *fakeSearcher) SearchMovie(_ context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	return f.respond("movie", query, opts)
}

func (f *fakeSearcher) SearchTV(_ context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	return f.respond("tv", query, opts)
}

type countingLimiter struct {
	acquired int
}

func (c *countingLimiter) Acquire(ctx context.Context) error {
	c.acquired++
	return ctx.Err()
}

func TestResolveExactMatch(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		2010: {{ID: 27205, Title: "Inception", ReleaseDate: "2010-07-16", Popularity: 150, PosterPath: "/inception.jpg"}},
	}}
	limiter := &countingLimiter{}
	m := matching.New(tmdb.NewLimitedSearcher(searcher, limiter), nil)

	got, err := m.Resolve(context.Background(), "Inception", 2010, matching.MediaMovie)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.CatalogID != 27205 || got.Year != 2010 || got.PosterPath != "/inception.jpg" || got.MediaKind != matching.MediaMovie {
		t.Fatalf("unexpected match: %#v", got)
	}
	if got.Confidence != matching.ConfidenceExact || got.Score < 90 {
		t.Fatalf("confidence = %s score = %.2f, want exact >= 90", got.Confidence, got.Score)
	}
	if limiter.acquired != 1 || len(searcher.calls) != 1 {
		t.Fatalf("acquired = %d calls = %d, want 1 each", limiter.acquired, len(searcher.calls))
	}
}

func TestResolveInvertedArticle(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		1999: {{ID: 603, Title: "Matrix, The", ReleaseDate: "1999-03-30"}},
	}}
	got, err := matching.New(searcher, nil).Resolve(context.Background(), "The Matrix", 1999, matching.MediaMovie)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.Confidence != matching.ConfidenceExact {
		t.Fatalf("expected exact match, got %#v", got)
	}
}

func TestResolveRetriesWithoutYear(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		0: {{ID: 11, Title: "Heat", ReleaseDate: "1995-12-15"}},
	}}
	limiter := &countingLimiter{}
	got, err := matching.New(tmdb.NewLimitedSearcher(searcher, limiter), nil).Resolve(context.Background(), "Heat", 1996, matching.MediaMovie)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.CatalogID != 11 {
		t.Fatalf("expected relaxed-year match, got %#v", got)
	}
	if len(searcher.calls) != 2 || searcher.calls[0].year != 1996 || searcher.calls[1].year != 0 {
		t.Fatalf("unexpected calls: %#v", searcher.calls)
	}
	if limiter.acquired != 2 {
		t.Fatalf("acquired = %d, want 2", limiter.acquired)
	}
}

func TestResolveNoCandidatesReturnsNil(t *testing.T) {
	searcher := &fakeSearcher{}
	got, err := matching.New(searcher, nil).Resolve(context.Background(), "Unknown Obscure Film XYZ", 2099, matching.MediaMovie)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil match, got %#v", got)
	}
	if len(searcher.calls) != 2 {
		t.Fatalf("calls = %d, want 2 (with and without year)", len(searcher.calls))
	}
}

func TestResolveWithoutYearSearchesOnce(t *testing.T) {
	searcher := &fakeSearcher{}
	if _, err := matching.New(searcher, nil).Resolve(context.Background(), "Nothing", 0, matching.MediaMovie); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(searcher.calls))
	}
}

func TestResolveTiesPickFirstCandidate(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		2005: {
			{ID: 1, Title: "Crash", ReleaseDate: "2005-05-06", Popularity: 10},
			{ID: 2, Title: "Crash", ReleaseDate: "2005-01-01", Popularity: 10},
		},
	}}
	m := matching.New(searcher, nil)
	for i := 0; i < 10; i++ {
		got, err := m.Resolve(context.Background(), "Crash", 2005, matching.MediaMovie)
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if got.CatalogID != 1 {
			t.Fatalf("tie resolved to %d, want first candidate", got.CatalogID)
		}
	}
}

func TestResolveRanksExactTitlesByPopularity(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		0: {
			{ID: 1, Title: "Heat", ReleaseDate: "1986-03-07", Popularity: 1},
			{ID: 949, Title: "Heat", ReleaseDate: "1995-12-15", Popularity: 500},
		},
	}}
	got, err := matching.New(searcher, nil).Resolve(context.Background(), "Heat", 0, matching.MediaMovie)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.CatalogID != 949 {
		t.Fatalf("expected the more popular Heat, got %#v", got)
	}
	if got.Confidence != matching.ConfidenceExact || got.Score < matching.ExactScore {
		t.Fatalf("confidence = %s score = %.2f, want exact >= %.0f", got.Confidence, got.Score, matching.ExactScore)
	}
}

func TestResolveTVUsesTVSearch(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		0: {{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20"}},
	}}
	got, err := matching.New(searcher, nil).Resolve(context.Background(), "Breaking Bad", 0, matching.MediaTV)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.MediaKind != matching.MediaTV || got.MatchedTitle != "Breaking Bad" {
		t.Fatalf("unexpected match: %#v", got)
	}
	if searcher.calls[0].kind != "tv" {
		t.Fatalf("expected tv search, got %s", searcher.calls[0].kind)
	}
}

func TestResolveLowConfidenceKeepsBestGuess(t *testing.T) {
	searcher := &fakeSearcher{byYear: map[int][]tmdb.Result{
		1980: {{ID: 5, Title: "Completely Different", ReleaseDate: "2001-01-01"}},
	}}
	got, err := matching.New(searcher, nil).Resolve(context.Background(), "Zzz", 1980, matching.MediaMovie)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got == nil || got.Confidence != matching.ConfidenceFailed || got.CatalogID != 5 {
		t.Fatalf("expected failed best guess, got %#v", got)
	}
}

func TestResolveSurfacesCatalogErrors(t *testing.T) {
	searcher := &fakeSearcher{err: &tmdb.StatusError{Code: http.StatusUnauthorized}}
	_, err := matching.New(searcher, nil).Resolve(context.Background(), "Heat", 1995, matching.MediaMovie)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	searcher := &fakeSearcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := matching.New(tmdb.NewLimitedSearcher(searcher, &countingLimiter{}), nil).Resolve(ctx, "Heat", 1995, matching.MediaMovie)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("expected no catalog calls after cancellation, got %d", len(searcher.calls))
	}
}

func TestResolveRejectsEmptyTitle(t *testing.T) {
	_, err := matching.New(&fakeSearcher{}, nil).Resolve(context.Background(), "  ", 0, matching.MediaMovie)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package matching

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"watchlist/internal/catalog/tmdb"
	"watchlist/internal/logging"
	"watchlist/internal/services"
)

// Matcher resolves titles against the catalog. Throttling belongs to the
// searcher; wrap it with tmdb.NewLimitedSearcher.
type Matcher struct {
	searcher tmdb.Searcher
	logger   *slog.Logger
}

// New constructs a Matcher.
func New(searcher tmdb.Searcher, logger *slog.Logger) *Matcher {
	return &Matcher{
		searcher: searcher,
		logger:   logging.NewComponentLogger(logger, "matcher"),
	}
}

// Resolve searches the catalog for title and returns the best scored
// candidate. It returns (nil, nil) when the catalog has no candidates, even
// after dropping the year filter. Errors come only from the catalog or ctx.
func (m *Matcher) Resolve(ctx context.Context, title string, year int, kind MediaKind) (*MatchResult, error) {
	if m == nil || m.searcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "matching", "resolve", "catalog searcher unavailable", nil)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "matching", "resolve", "title is empty", nil)
	}
	if kind == "" {
		kind = MediaMovie
	}
	if year < 0 {
		year = 0
	}
	logger := logging.WithContext(ctx, m.logger)

	results, err := m.search(ctx, title, year, kind)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && year > 0 {
		logger.Debug("no catalog results with year filter, retrying without year",
			logging.String("title", title),
			logging.Int("year", year))
		results, err = m.search(ctx, title, 0, kind)
		if err != nil {
			return nil, err
		}
	}

	best, eval, ok := pickBest(title, year, results)
	if !ok {
		logger.Info("no catalog match",
			logging.String("title", title),
			logging.Int("year", year),
			logging.String("media_kind", string(kind)))
		return nil, nil
	}

	attrs := []logging.Attr{
		logging.String("title", title),
		logging.Int("year", year),
		logging.Int64("catalog_id", best.ID),
		logging.String("matched_title", best.DisplayTitle()),
		logging.Int("matched_year", best.Year()),
		logging.Float64("score", eval.Score),
		logging.Float64("similarity", eval.Similarity),
		logging.Int("candidates", len(results)),
	}
	attrs = append(attrs, logging.DecisionAttrs("match_confidence", string(eval.Confidence), confidenceReason(eval))...)
	logger.Info("catalog match scored", logging.Args(attrs...)...)

	return &MatchResult{
		CatalogID:    best.ID,
		MatchedTitle: best.DisplayTitle(),
		Year:         best.Year(),
		PosterPath:   strings.TrimSpace(best.PosterPath),
		Confidence:   eval.Confidence,
		Score:        eval.Score,
		MediaKind:    kind,
	}, nil
}

func (m *Matcher) search(ctx context.Context, title string, year int, kind MediaKind) ([]tmdb.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := tmdb.SearchOptions{Year: year}
	var (
		resp *tmdb.Response
		err  error
	)
	switch kind {
	case MediaTV:
		resp, err = m.searcher.SearchTV(ctx, title, opts)
	default:
		resp, err = m.searcher.SearchMovie(ctx, title, opts)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalService, "matching", "search", "tmdb search failed", err)
	}
	if resp == nil {
		return nil, nil
	}
	return resp.Results, nil
}

// pickBest scores every usable candidate and keeps the first highest raw
// score. The exact-match floor is not used for ranking.
func pickBest(title string, year int, results []tmdb.Result) (tmdb.Result, Evaluation, bool) {
	var (
		best     tmdb.Result
		bestEval Evaluation
		found    bool
	)
	for _, candidate := range results {
		if candidate.ID <= 0 || candidate.DisplayTitle() == "" {
			continue
		}
		eval := Evaluate(title, year, candidate.DisplayTitle(), candidate.Year(), candidate.Popularity)
		if !found || eval.RawScore > bestEval.RawScore {
			best, bestEval, found = candidate, eval, true
		}
	}
	return best, bestEval, found
}

func confidenceReason(e Evaluation) string {
	switch {
	case e.ExactTitle && e.Confidence == ConfidenceExact:
		return "normalized titles match"
	case e.Confidence == ConfidenceExact:
		return "score at or above exact threshold"
	case e.Confidence == ConfidenceFuzzy:
		return "score at or above fuzzy threshold"
	default:
		return "score below fuzzy threshold"
	}
}

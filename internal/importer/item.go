package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"watchlist/internal/logging"
	"watchlist/internal/matching"
)

// itemOutcome is the result of processing one item. Every item yields exactly
// one outcome; the only error processItem returns is cancellation.
type itemOutcome struct {
	status  ItemStatus
	action  ResultAction
	match   *matching.MatchResult
	message string
}

func succeeded(match *matching.MatchResult, action ResultAction) itemOutcome {
	return itemOutcome{status: ItemSuccess, action: action, match: match}
}

func skipped(match *matching.MatchResult, action ResultAction, message string) itemOutcome {
	return itemOutcome{status: ItemSkipped, action: action, match: match, message: message}
}

func failed(match *matching.MatchResult, format string, args ...any) itemOutcome {
	return itemOutcome{status: ItemFailed, match: match, message: fmt.Sprintf(format, args...)}
}

func (o itemOutcome) record(jobID int64, position int, item ImportItem, now time.Time) JobItem {
	rec := JobItem{
		JobID:          jobID,
		Position:       position,
		Title:          item.Title,
		Year:           item.Year,
		OriginalRating: item.OriginalRating,
		SourceStatus:   item.Status,
		IsRewatch:      item.IsRewatch,
		MediaKind:      item.MediaKind,
		Status:         o.status,
		ResultAction:   o.action,
		ErrorMessage:   o.message,
		CreatedAt:      now.UTC(),
	}
	if o.match != nil {
		rec.CatalogID = o.match.CatalogID
		rec.MatchedTitle = o.match.MatchedTitle
		rec.MatchedYear = o.match.Year
		rec.PosterPath = o.match.PosterPath
		rec.MediaKind = o.match.MediaKind
		rec.Confidence = o.match.Confidence
	}
	return rec
}

func (p *Processor) processItem(ctx context.Context, userID string, item ImportItem, cfg ImportConfig) (itemOutcome, error) {
	logger := logging.WithContext(ctx, p.logger).With(logging.String("title", item.Title))

	libraryStatus, ok := LibraryStatusFor(item.Status)
	if !ok {
		return failed(nil, "unsupported status %q", item.Status), nil
	}
	if item.Status == SourceWatchlist && !cfg.ImportWatchlist {
		return skipped(nil, ActionNone, "watchlist import disabled"), nil
	}
	if item.Status == SourceWatched && !cfg.ImportWatched {
		return skipped(nil, ActionNone, "watched import disabled"), nil
	}
	if strings.TrimSpace(item.Title) == "" {
		return failed(nil, "title is empty"), nil
	}
	kind := item.MediaKind
	if kind == "" {
		kind = matching.MediaMovie
	}

	match, err := p.matcher.Resolve(ctx, item.Title, item.Year, kind)
	if err != nil {
		if ctx.Err() != nil {
			return itemOutcome{}, ctx.Err()
		}
		logging.WarnWithContext(logger, "catalog lookup failed", "catalog_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the TMDB API key and connectivity"),
			logging.String(logging.FieldImpact, "item recorded as failed"),
		)
		return failed(nil, "catalog lookup failed: %v", err), nil
	}
	if match == nil {
		return failed(nil, "no match found for %q", item.Title), nil
	}
	if match.Confidence == matching.ConfidenceFailed {
		if match.Score < p.minScore {
			return failed(nil, "no match found for %q (best candidate scored %.0f)", item.Title, match.Score), nil
		}
		return failed(match, "low confidence match %q (score %.0f)", match.MatchedTitle, match.Score), nil
	}
	if match.MediaKind == "" {
		match.MediaKind = kind
	}

	outcome, err := p.reconcile(ctx, logger, userID, item, cfg, match, libraryStatus)
	if err != nil {
		if ctx.Err() != nil {
			return itemOutcome{}, ctx.Err()
		}
		logging.WarnWithContext(logger, "library write failed", "library_write_failed",
			logging.Error(err),
			logging.Int64("catalog_id", match.CatalogID),
			logging.String(logging.FieldImpact, "item recorded as failed"),
		)
		return failed(match, "%v", err), nil
	}
	return outcome, nil
}

// reconcile merges a matched item into the user's library.
func (p *Processor) reconcile(ctx context.Context, logger *slog.Logger, userID string, item ImportItem, cfg ImportConfig, match *matching.MatchResult, status LibraryStatus) (itemOutcome, error) {
	var incoming *float64
	if cfg.ImportRatings && item.OriginalRating != nil {
		rating := *item.OriginalRating
		incoming = &rating
	}

	exists, err := p.library.MediaExists(ctx, userID, match.CatalogID, match.MediaKind)
	if err != nil {
		return itemOutcome{}, fmt.Errorf("check library: %w", err)
	}
	media := Media{
		CatalogID:  match.CatalogID,
		Kind:       match.MediaKind,
		Title:      match.MatchedTitle,
		PosterPath: match.PosterPath,
		Year:       match.Year,
	}

	if exists {
		existing, err := p.library.GetRating(ctx, userID, match.CatalogID, match.MediaKind)
		if err != nil {
			return itemOutcome{}, fmt.Errorf("read existing rating: %w", err)
		}
		if cfg.ConflictStrategy == StrategySkip {
			logger.Debug("existing entry kept", logging.Args(logging.DecisionAttrs("conflict_resolution", "skip", "strategy is skip")...)...)
			return skipped(match, ActionSkippedExisting, ""), nil
		}
		if !ShouldUpdate(existing, incoming, cfg.ConflictStrategy) {
			logger.Debug("existing rating kept", logging.Args(append(
				logging.DecisionAttrs("conflict_resolution", "keep", string(cfg.ConflictStrategy)),
				formatRating("existing_rating", existing),
				formatRating("incoming_rating", incoming),
			)...)...)
			return skipped(match, ActionSkippedExisting, ""), nil
		}
		mediaID, err := p.library.UpsertMedia(ctx, media)
		if err != nil {
			return itemOutcome{}, fmt.Errorf("upsert media: %w", err)
		}
		if err := p.library.UpdateRating(ctx, userID, mediaID, incoming); err != nil {
			return itemOutcome{}, fmt.Errorf("update rating: %w", err)
		}
		logger.Info("existing rating updated", logging.Args(append(
			logging.DecisionAttrs("conflict_resolution", "update", string(cfg.ConflictStrategy)),
			formatRating("existing_rating", existing),
			formatRating("incoming_rating", incoming),
		)...)...)
		return succeeded(match, ActionUpdated), nil
	}

	mediaID, err := p.library.UpsertMedia(ctx, media)
	if err != nil {
		return itemOutcome{}, fmt.Errorf("upsert media: %w", err)
	}
	userMediaID, err := p.library.SetUserMediaStatus(ctx, userID, mediaID, status, incoming)
	if err != nil {
		return itemOutcome{}, fmt.Errorf("add to library: %w", err)
	}
	if item.IsRewatch && cfg.MarkRewatchAsTag {
		if err := p.library.AttachSystemTag(ctx, userMediaID, RewatchTag); err != nil {
			logging.WarnWithContext(logger, "rewatch tag not attached", "rewatch_tag_failed",
				logging.Error(err),
				logging.Int64("user_media_id", userMediaID),
				logging.String(logging.FieldImpact, "entry imported without the rewatch tag"),
			)
		}
	}
	logger.Debug("library entry created",
		logging.Int64("catalog_id", match.CatalogID),
		logging.String("library_status", string(status)))
	return succeeded(match, ActionCreated), nil
}

func formatRating(key string, rating *float64) logging.Attr {
	if rating == nil {
		return logging.String(key, "none")
	}
	return logging.Float64(key, *rating)
}

package importer

import (
	"context"

	"watchlist/internal/matching"
)

// Matcher resolves a title to its best catalog match. A nil result means the
// catalog had no candidates.
type Matcher interface {
	Resolve(ctx context.Context, title string, year int, kind matching.MediaKind) (*matching.MatchResult, error)
}

// LibraryStore reads and writes the user's library.
type LibraryStore interface {
	MediaExists(ctx context.Context, userID string, catalogID int64, kind matching.MediaKind) (bool, error)
	GetRating(ctx context.Context, userID string, catalogID int64, kind matching.MediaKind) (*float64, error)
	UpsertMedia(ctx context.Context, media Media) (int64, error)
	SetUserMediaStatus(ctx context.Context, userID string, mediaID int64, status LibraryStatus, rating *float64) (int64, error)
	UpdateRating(ctx context.Context, userID string, mediaID int64, rating *float64) error
	AttachSystemTag(ctx context.Context, userMediaID int64, tagKey string) error
}

// JobStore persists jobs and their item records.
type JobStore interface {
	CreateJob(ctx context.Context, userID, source string, totalItems int) (int64, error)
	SetJobStatus(ctx context.Context, jobID int64, status JobStatus, errorMessage string) error
	SetJobCounters(ctx context.Context, jobID int64, counters Counters) error
	InsertJobItem(ctx context.Context, item JobItem) error
}

package importer

import (
	"fmt"
	"strings"
	"time"

	"watchlist/internal/matching"
)

// SourceStatus is the list an item belonged to in the source service.
type SourceStatus string

const (
	SourceWatchlist SourceStatus = "watchlist"
	SourceWatched   SourceStatus = "watched"
)

// LibraryStatus is the status vocabulary of the user's library.
type LibraryStatus string

const (
	LibraryWatchlist LibraryStatus = "watchlist"
	LibraryFinished  LibraryStatus = "finished"
)

// LibraryStatusFor maps a source status to the library vocabulary.
func LibraryStatusFor(status SourceStatus) (LibraryStatus, bool) {
	switch status {
	case SourceWatchlist:
		return LibraryWatchlist, true
	case SourceWatched:
		return LibraryFinished, true
	default:
		return "", false
	}
}

// ImportItem is one record from the source export.
type ImportItem struct {
	Title          string             `json:"title"`
	Year           int                `json:"year,omitempty"`
	OriginalRating *float64           `json:"original_rating,omitempty"`
	Status         SourceStatus       `json:"status"`
	IsRewatch      bool               `json:"is_rewatch,omitempty"`
	MediaKind      matching.MediaKind `json:"media_kind,omitempty"`
}

// ConflictStrategy decides what happens when an imported rating meets an
// existing one.
type ConflictStrategy string

const (
	StrategySkip             ConflictStrategy = "skip"
	StrategyOverwrite        ConflictStrategy = "overwrite"
	StrategyKeepHigherRating ConflictStrategy = "keep_higher_rating"
)

// ParseConflictStrategy converts a string into a known strategy.
func ParseConflictStrategy(value string) (ConflictStrategy, error) {
	switch s := ConflictStrategy(strings.ToLower(strings.TrimSpace(value))); s {
	case StrategySkip, StrategyOverwrite, StrategyKeepHigherRating:
		return s, nil
	default:
		return "", fmt.Errorf("unknown conflict strategy %q (want skip, overwrite or keep_higher_rating)", value)
	}
}

// ImportConfig holds the per-job import options.
type ImportConfig struct {
	ConflictStrategy ConflictStrategy `json:"conflict_strategy"`
	ImportRatings    bool             `json:"import_ratings"`
	ImportWatchlist  bool             `json:"import_watchlist"`
	ImportWatched    bool             `json:"import_watched"`
	MarkRewatchAsTag bool             `json:"mark_rewatch_as_tag"`
}

// DefaultImportConfig imports everything and never overwrites ratings.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		ConflictStrategy: StrategySkip,
		ImportRatings:    true,
		ImportWatchlist:  true,
		ImportWatched:    true,
	}
}

// JobStatus represents the lifecycle of an import job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ItemStatus is the final outcome of one import item.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
	ItemSkipped ItemStatus = "skipped"
)

// ParseItemStatus converts a string into a known ItemStatus.
func ParseItemStatus(value string) (ItemStatus, bool) {
	switch s := ItemStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case ItemSuccess, ItemFailed, ItemSkipped:
		return s, true
	default:
		return "", false
	}
}

// ResultAction records what an item did to the library.
type ResultAction string

const (
	ActionNone            ResultAction = ""
	ActionCreated         ResultAction = "created"
	ActionUpdated         ResultAction = "updated"
	ActionSkippedExisting ResultAction = "skipped_existing"
)

// CancelledMessage is the job error recorded when a run is cancelled.
const CancelledMessage = "import cancelled"

// Counters are the live progress numbers of a job.
type Counters struct {
	Processed  int `json:"processed_items"`
	Successful int `json:"successful_items"`
	Failed     int `json:"failed_items"`
	Skipped    int `json:"skipped_items"`
}

func (c *Counters) add(status ItemStatus) {
	c.Processed++
	switch status {
	case ItemSuccess:
		c.Successful++
	case ItemFailed:
		c.Failed++
	case ItemSkipped:
		c.Skipped++
	}
}

// Job is a persisted import run.
type Job struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Source     string    `json:"source"`
	Status     JobStatus `json:"status"`
	TotalItems int       `json:"total_items"`
	Counters
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobItem is the append-only record of one processed import item.
type JobItem struct {
	ID             int64               `json:"id"`
	JobID          int64               `json:"job_id"`
	Position       int                 `json:"position"`
	Title          string              `json:"title"`
	Year           int                 `json:"year,omitempty"`
	OriginalRating *float64            `json:"original_rating,omitempty"`
	SourceStatus   SourceStatus        `json:"source_status"`
	IsRewatch      bool                `json:"is_rewatch"`
	CatalogID      int64               `json:"catalog_id,omitempty"`
	MatchedTitle   string              `json:"matched_title,omitempty"`
	MatchedYear    int                 `json:"matched_year,omitempty"`
	PosterPath     string              `json:"poster_path,omitempty"`
	MediaKind      matching.MediaKind  `json:"media_kind,omitempty"`
	Confidence     matching.Confidence `json:"confidence,omitempty"`
	Status         ItemStatus          `json:"status"`
	ResultAction   ResultAction        `json:"result_action,omitempty"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Media is the canonical catalog entry shared by every user.
type Media struct {
	CatalogID  int64
	Kind       matching.MediaKind
	Title      string
	PosterPath string
	Year       int
}

// Summary reports the outcome of a run.
type Summary struct {
	JobID      int64     `json:"job_id"`
	Status     JobStatus `json:"status"`
	TotalItems int       `json:"total_items"`
	Counters
	ErrorMessage string `json:"error_message,omitempty"`
}

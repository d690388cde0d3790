package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"watchlist/internal/logging"
	"watchlist/internal/services"
)

// Processing defaults.
const (
	DefaultBatchSize     = 10
	DefaultMinMatchScore = 30.0
	RewatchTag           = "rewatch"
)

// ProgressFunc observes every persisted item together with the job counters
// after it.
type ProgressFunc func(item JobItem, counters Counters)

// Processor runs import jobs. A Processor may run several jobs concurrently;
// each job's items are processed sequentially.
type Processor struct {
	matcher   Matcher
	library   LibraryStore
	jobs      JobStore
	logger    *slog.Logger
	batchSize int
	minScore  float64
	progress  ProgressFunc
	now       func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithBatchSize sets how many items are grouped per batch.
func WithBatchSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithMinMatchScore sets the score below which a failed match counts as no
// match at all.
func WithMinMatchScore(score float64) Option {
	return func(p *Processor) {
		if score >= 0 {
			p.minScore = score
		}
	}
}

// WithProgress registers an observer called after each item is persisted.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) {
		p.progress = fn
	}
}

// NewProcessor wires a Processor.
func NewProcessor(matcher Matcher, library LibraryStore, jobs JobStore, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		matcher:   matcher,
		library:   library,
		jobs:      jobs,
		logger:    logging.NewComponentLogger(logger, "importer"),
		batchSize: DefaultBatchSize,
		minScore:  DefaultMinMatchScore,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateAndRun creates a pending job for items and runs it.
func (p *Processor) CreateAndRun(ctx context.Context, userID, source string, items []ImportItem, cfg ImportConfig) (Summary, error) {
	jobID, err := p.jobs.CreateJob(ctx, userID, source, len(items))
	if err != nil {
		return Summary{}, fmt.Errorf("create import job: %w", err)
	}
	return p.Run(ctx, jobID, userID, items, cfg)
}

// Run drives job jobID to a terminal state. Item-level problems are recorded
// as failed items; the returned error is non-nil only when the job itself
// failed (store failure or cancellation), in which case the job is marked
// failed before returning.
func (p *Processor) Run(ctx context.Context, jobID int64, userID string, items []ImportItem, cfg ImportConfig) (Summary, error) {
	ctx = services.WithUserID(services.WithJobID(ctx, jobID), userID)
	logger := logging.WithContext(ctx, p.logger)
	summary := Summary{JobID: jobID, Status: JobProcessing, TotalItems: len(items)}

	if cfg.ConflictStrategy == "" {
		cfg.ConflictStrategy = StrategySkip
	}
	if _, err := ParseConflictStrategy(string(cfg.ConflictStrategy)); err != nil {
		return p.failJob(ctx, logger, summary, services.Wrap(services.ErrValidation, "importer", "run", "invalid import config", err))
	}
	if err := p.jobs.SetJobStatus(ctx, jobID, JobProcessing, ""); err != nil {
		return p.failJob(ctx, logger, summary, fmt.Errorf("mark job processing: %w", err))
	}

	start := p.now()
	logger.Info("import started",
		logging.String(logging.FieldEventType, "import_start"),
		logging.Int("total_items", len(items)),
		logging.String("conflict_strategy", string(cfg.ConflictStrategy)),
		logging.Bool("import_ratings", cfg.ImportRatings),
		logging.Bool("import_watchlist", cfg.ImportWatchlist),
		logging.Bool("import_watched", cfg.ImportWatched),
		logging.Bool("mark_rewatch_as_tag", cfg.MarkRewatchAsTag),
	)

	for batchStart := 0; batchStart < len(items); batchStart += p.batchSize {
		batchEnd := min(batchStart+p.batchSize, len(items))
		for idx := batchStart; idx < batchEnd; idx++ {
			if ctx.Err() != nil {
				return p.cancelJob(ctx, logger, summary)
			}
			itemCtx := services.WithItemIndex(ctx, idx)
			outcome, err := p.processItem(itemCtx, userID, items[idx], cfg)
			if err != nil {
				return p.cancelJob(ctx, logger, summary)
			}

			// The item's library writes may already be committed, so its
			// record outlives a cancellation that lands after them.
			persistCtx := context.WithoutCancel(ctx)
			record := outcome.record(jobID, idx, items[idx], p.now())
			if err := p.jobs.InsertJobItem(persistCtx, record); err != nil {
				return p.failJob(ctx, logger, summary, fmt.Errorf("record item %d: %w", idx, err))
			}
			summary.Counters.add(outcome.status)
			if err := p.jobs.SetJobCounters(persistCtx, jobID, summary.Counters); err != nil {
				return p.failJob(ctx, logger, summary, fmt.Errorf("update job counters: %w", err))
			}
			if p.progress != nil {
				p.progress(record, summary.Counters)
			}
		}
		logger.Debug("import batch processed",
			logging.Int("batch_start", batchStart),
			logging.Int("batch_end", batchEnd),
			logging.Int("processed_items", summary.Processed))
	}

	if err := p.jobs.SetJobStatus(ctx, jobID, JobCompleted, ""); err != nil {
		return p.failJob(ctx, logger, summary, fmt.Errorf("mark job completed: %w", err))
	}
	summary.Status = JobCompleted
	logger.Info("import completed",
		logging.String(logging.FieldEventType, "import_complete"),
		logging.Int("processed_items", summary.Processed),
		logging.Int("successful_items", summary.Successful),
		logging.Int("failed_items", summary.Failed),
		logging.Int("skipped_items", summary.Skipped),
		logging.Duration("duration", p.now().Sub(start)),
	)
	return summary, nil
}

func (p *Processor) cancelJob(ctx context.Context, logger *slog.Logger, summary Summary) (Summary, error) {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	err := services.Wrap(services.ErrCancelled, "importer", "run", CancelledMessage, cause)
	summary.Status = JobFailed
	summary.ErrorMessage = CancelledMessage
	p.persistFailure(ctx, logger, summary.JobID, CancelledMessage)
	logging.WarnWithContext(logger, "import cancelled", "import_cancelled",
		logging.Int("processed_items", summary.Processed),
		logging.Int("total_items", summary.TotalItems),
		logging.String(logging.FieldErrorHint, "start a new import with the same file to finish"),
		logging.String(logging.FieldImpact, "remaining items were not imported"),
	)
	return summary, err
}

func (p *Processor) failJob(ctx context.Context, logger *slog.Logger, summary Summary, cause error) (Summary, error) {
	summary.Status = JobFailed
	summary.ErrorMessage = strings.TrimSpace(cause.Error())
	p.persistFailure(ctx, logger, summary.JobID, summary.ErrorMessage)
	logging.ErrorWithContext(logger, "import failed", "import_failed",
		logging.Error(cause),
		logging.String("error_kind", services.Kind(cause)),
		logging.Int("processed_items", summary.Processed),
		logging.Int("total_items", summary.TotalItems),
		logging.String(logging.FieldErrorHint, "check the database and re-run the import as a new job"),
	)
	return summary, cause
}

// persistFailure marks the job failed even when ctx is already cancelled.
func (p *Processor) persistFailure(ctx context.Context, logger *slog.Logger, jobID int64, message string) {
	if err := p.jobs.SetJobStatus(context.WithoutCancel(ctx), jobID, JobFailed, message); err != nil {
		logger.Error("failed to persist job failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_status_persist_failed"))
	}
}

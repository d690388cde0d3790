package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"watchlist/internal/catalog/tmdb"
	"watchlist/internal/config"
	"watchlist/internal/importer"
	"watchlist/internal/logging"
	"watchlist/internal/matching"
	"watchlist/internal/ratelimit"
	"watchlist/internal/services"
	"watchlist/internal/store"
)

// staleJobAge is how long a processing job may go without a counter update
// before a new run assumes its process died.
const staleJobAge = 15 * time.Minute

const staleJobMessage = "import interrupted: importer stopped before finishing"

type runOptions struct {
	userID      string
	file        string
	source      string
	strategy    string
	noRatings   bool
	noWatchlist bool
	noWatched   bool
	rewatchTag  bool
	jsonOutput  bool
}

func readImportItems(path string) ([]importer.ImportItem, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("--file is required")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		var expanded string
		if expanded, err = config.ExpandPath(path); err == nil {
			data, err = os.ReadFile(expanded)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var items []importer.ImportItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse import file %s: %w", path, err)
	}
	for i := range items {
		if items[i].MediaKind != "" {
			kind, err := matching.ParseMediaKind(string(items[i].MediaKind))
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i+1, err)
			}
			items[i].MediaKind = kind
		}
	}
	return items, nil
}

// importConfigFor applies per-run flags on top of the [import] defaults.
func importConfigFor(cfg *config.Config, opts runOptions) (importer.ImportConfig, error) {
	strategyValue := cfg.Import.ConflictStrategy
	if strings.TrimSpace(opts.strategy) != "" {
		strategyValue = opts.strategy
	}
	strategy, err := importer.ParseConflictStrategy(strategyValue)
	if err != nil {
		return importer.ImportConfig{}, err
	}
	return importer.ImportConfig{
		ConflictStrategy: strategy,
		ImportRatings:    cfg.Import.ImportRatings && !opts.noRatings,
		ImportWatchlist:  cfg.Import.ImportWatchlist && !opts.noWatchlist,
		ImportWatched:    cfg.Import.ImportWatched && !opts.noWatched,
		MarkRewatchAsTag: cfg.Import.MarkRewatchAsTag || opts.rewatchTag,
	}, nil
}

// openLimiter returns the catalog limiter configured for this process and a
// release func. The in-memory window only bounds one process, so it is held
// under an exclusive file lock.
func openLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	size := time.Duration(cfg.RateLimit.WindowMS) * time.Millisecond
	switch cfg.RateLimit.Backend {
	case config.RateBackendRedis:
		window, err := ratelimit.OpenRedisWindow(ctx, cfg.RateLimit.RedisURL, cfg.RateLimit.RedisKey, cfg.RateLimit.MaxRequests, size, logger)
		if err != nil {
			return nil, nil, err
		}
		return window, func() { _ = window.Close() }, nil
	default:
		lockPath := cfg.CatalogLockPath()
		lock := flock.New(lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, nil, fmt.Errorf("acquire catalog lock: %w", err)
		}
		if !ok {
			return nil, nil, fmt.Errorf("another import holds the catalog quota (lock %s); wait for it or switch rate_limit.backend to redis", lockPath)
		}
		window := ratelimit.NewWindow(cfg.RateLimit.MaxRequests, size, ratelimit.WithLogger(logger))
		return window, func() { _ = lock.Unlock() }, nil
	}
}

// newCatalogSearcher takes a limiter slot for every HTTP attempt, retries
// included.
func newCatalogSearcher(cfg *config.Config, limiter ratelimit.Limiter, logger *slog.Logger) (tmdb.Searcher, error) {
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithTimeout(time.Duration(cfg.TMDB.RequestTimeout)*time.Second))
	if err != nil {
		return nil, err
	}
	return tmdb.NewRetryingSearcher(tmdb.NewLimitedSearcher(client, limiter), cfg.TMDB.MaxHTTPRetries, logger), nil
}

// newProgressBar returns nil when w is not a terminal.
func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	if total <= 0 || !isTerminal(w) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func runImport(ctx *commandContext, parent context.Context, stdout, stderr io.Writer, opts runOptions) (importer.Summary, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return importer.Summary{}, err
	}
	if err := cfg.ValidateCatalog(); err != nil {
		return importer.Summary{}, err
	}
	userID := strings.TrimSpace(opts.userID)
	if userID == "" {
		return importer.Summary{}, errors.New("--user is required")
	}
	items, err := readImportItems(opts.file)
	if err != nil {
		return importer.Summary{}, err
	}
	importCfg, err := importConfigFor(cfg, opts)
	if err != nil {
		return importer.Summary{}, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return importer.Summary{}, err
	}

	runCtx := services.WithRequestID(parent, uuid.NewString())
	logger = logging.WithContext(runCtx, logger)

	limiter, release, err := openLimiter(runCtx, cfg, logger)
	if err != nil {
		return importer.Summary{}, err
	}
	defer release()

	searcher, err := newCatalogSearcher(cfg, limiter, logger)
	if err != nil {
		return importer.Summary{}, err
	}
	matcher := matching.New(searcher, logger)

	var summary importer.Summary
	err = ctx.withStore(func(st *store.Store) error {
		swept, err := st.FailStaleJobs(runCtx, time.Now().Add(-staleJobAge), staleJobMessage)
		if err != nil {
			return err
		}
		if swept > 0 {
			logging.WarnWithContext(logger, "marked stale import jobs failed", "stale_jobs_swept",
				logging.Int64("jobs", swept),
				logging.String(logging.FieldErrorHint, "a previous import process exited mid-run"),
				logging.String(logging.FieldImpact, "those jobs stop at their last recorded item"),
			)
		}

		bar := newProgressBar(stderr, len(items))
		procOpts := []importer.Option{
			importer.WithBatchSize(cfg.Import.BatchSize),
			importer.WithMinMatchScore(cfg.Import.MinMatchScore),
		}
		if bar != nil {
			procOpts = append(procOpts, importer.WithProgress(func(_ importer.JobItem, counters importer.Counters) {
				_ = bar.Set(counters.Processed)
			}))
		}

		proc := importer.NewProcessor(matcher, st, st, logger, procOpts...)
		var runErr error
		summary, runErr = proc.CreateAndRun(runCtx, userID, opts.source, items, importCfg)
		if bar != nil {
			_ = bar.Finish()
		}
		return runErr
	})
	if summary.JobID != 0 {
		if opts.jsonOutput {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(summary)
		} else {
			fmt.Fprintln(stdout, renderSummary(summary))
		}
	}
	return summary, err
}

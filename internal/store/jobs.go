package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"watchlist/internal/importer"
	"watchlist/internal/matching"
)

// ErrJobNotFound is returned when a job mutation targets a missing job.
var ErrJobNotFound = errors.New("import job not found")

const jobColumns = "id, user_id, source, status, total_items, processed_items, successful_items, failed_items, skipped_items, error_message, created_at, started_at, completed_at"

const jobItemColumns = "id, job_id, position, title, year, original_rating, source_status, is_rewatch, catalog_id, matched_title, matched_year, poster_path, media_kind, confidence, status, result_action, error_message, created_at"

// CreateJob inserts a pending job and returns its identifier.
func (s *Store) CreateJob(ctx context.Context, userID, source string, totalItems int) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, errors.New("user id required")
	}
	if totalItems < 0 {
		return 0, fmt.Errorf("total items must not be negative (got %d)", totalItems)
	}
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO import_jobs (user_id, source, status, total_items, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		userID, strings.TrimSpace(source), importer.JobPending, totalItems, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// SetJobStatus moves a job to status. Entering processing stamps started_at;
// entering a terminal status stamps completed_at.
func (s *Store) SetJobStatus(ctx context.Context, jobID int64, status importer.JobStatus, errorMessage string) error {
	now := s.timestamp()
	var (
		res sql.Result
		err error
	)
	switch {
	case status == importer.JobProcessing:
		res, err = s.execWithRetry(ctx,
			`UPDATE import_jobs
            SET status = ?, error_message = NULL, started_at = COALESCE(started_at, ?), updated_at = ?
            WHERE id = ?`,
			status, now, now, jobID)
	case status.IsTerminal():
		res, err = s.execWithRetry(ctx,
			`UPDATE import_jobs
            SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
            WHERE id = ?`,
			status, nullableString(errorMessage), now, now, jobID)
	default:
		res, err = s.execWithRetry(ctx,
			`UPDATE import_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
			status, nullableString(errorMessage), now, jobID)
	}
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return requireRow(res, jobID)
}

// SetJobCounters persists the live progress counters of a job.
func (s *Store) SetJobCounters(ctx context.Context, jobID int64, counters importer.Counters) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE import_jobs
        SET processed_items = ?, successful_items = ?, failed_items = ?, skipped_items = ?, updated_at = ?
        WHERE id = ?`,
		counters.Processed, counters.Successful, counters.Failed, counters.Skipped, s.timestamp(), jobID)
	if err != nil {
		return fmt.Errorf("update job counters: %w", err)
	}
	return requireRow(res, jobID)
}

// InsertJobItem appends the record of one processed item.
func (s *Store) InsertJobItem(ctx context.Context, item importer.JobItem) error {
	created := item.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO import_job_items (
            job_id, position, title, year, original_rating, source_status, is_rewatch,
            catalog_id, matched_title, matched_year, poster_path, media_kind, confidence,
            status, result_action, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.JobID,
		item.Position,
		item.Title,
		nullableInt(item.Year),
		nullableFloat(item.OriginalRating),
		item.SourceStatus,
		boolToInt(item.IsRewatch),
		nullableInt64(item.CatalogID),
		nullableString(item.MatchedTitle),
		nullableInt(item.MatchedYear),
		nullableString(item.PosterPath),
		nullableString(string(item.MediaKind)),
		nullableString(string(item.Confidence)),
		item.Status,
		nullableString(string(item.ResultAction)),
		nullableString(item.ErrorMessage),
		created.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert job item: %w", err)
	}
	return nil
}

// GetJob fetches a job owned by userID. It returns (nil, nil) when the job does
// not exist or belongs to someone else.
func (s *Store) GetJob(ctx context.Context, jobID int64, userID string) (*importer.Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM import_jobs WHERE id = ? AND user_id = ?`, jobID, strings.TrimSpace(userID))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs for userID, newest first.
func (s *Store) ListJobs(ctx context.Context, userID string, limit int) ([]importer.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM import_jobs WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []importer.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ListJobItems returns the recorded items of a job in input order.
func (s *Store) ListJobItems(ctx context.Context, jobID int64) ([]importer.JobItem, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobItemColumns+` FROM import_job_items WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job items: %w", err)
	}
	defer rows.Close()

	var items []importer.JobItem
	for rows.Next() {
		item, err := scanJobItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FailStaleJobs marks jobs that have been processing without progress since
// cutoff as failed. A crashed importer otherwise leaves them processing forever.
func (s *Store) FailStaleJobs(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`UPDATE import_jobs
        SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
        WHERE status = ? AND updated_at < ?`,
		importer.JobFailed, nullableString(message), now, now,
		importer.JobProcessing, cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result, jobID int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrJobNotFound, jobID)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*importer.Job, error) {
	var (
		job          importer.Job
		status       string
		errorMessage sql.NullString
		createdRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.UserID,
		&job.Source,
		&status,
		&job.TotalItems,
		&job.Processed,
		&job.Successful,
		&job.Failed,
		&job.Skipped,
		&errorMessage,
		&createdRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = importer.JobStatus(status)
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = parseTime(createdRaw)
	job.StartedAt = parseTimePtr(startedRaw)
	job.CompletedAt = parseTimePtr(completedRaw)
	return &job, nil
}

func scanJobItem(scanner interface{ Scan(dest ...any) error }) (importer.JobItem, error) {
	var (
		item         importer.JobItem
		year         sql.NullInt64
		rating       sql.NullFloat64
		sourceStatus string
		isRewatch    int
		catalogID    sql.NullInt64
		matchedTitle sql.NullString
		matchedYear  sql.NullInt64
		posterPath   sql.NullString
		mediaKind    sql.NullString
		confidence   sql.NullString
		status       string
		action       sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&item.JobID,
		&item.Position,
		&item.Title,
		&year,
		&rating,
		&sourceStatus,
		&isRewatch,
		&catalogID,
		&matchedTitle,
		&matchedYear,
		&posterPath,
		&mediaKind,
		&confidence,
		&status,
		&action,
		&errorMessage,
		&createdRaw,
	); err != nil {
		return importer.JobItem{}, err
	}
	item.Year = int(year.Int64)
	if rating.Valid {
		v := rating.Float64
		item.OriginalRating = &v
	}
	item.SourceStatus = importer.SourceStatus(sourceStatus)
	item.IsRewatch = isRewatch != 0
	item.CatalogID = catalogID.Int64
	item.MatchedTitle = matchedTitle.String
	item.MatchedYear = int(matchedYear.Int64)
	item.PosterPath = posterPath.String
	item.MediaKind = matching.MediaKind(mediaKind.String)
	item.Confidence = matching.Confidence(confidence.String)
	item.Status = importer.ItemStatus(status)
	item.ResultAction = importer.ResultAction(action.String)
	item.ErrorMessage = errorMessage.String
	item.CreatedAt = parseTime(createdRaw)
	return item, nil
}

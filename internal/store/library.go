package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"watchlist/internal/importer"
	"watchlist/internal/matching"
)

// ErrUnknownTag is returned when a system tag key is not registered.
var ErrUnknownTag = errors.New("unknown system tag")

// MediaExists reports whether userID already has the catalog entry in their library.
func (s *Store) MediaExists(ctx context.Context, userID string, catalogID int64, kind matching.MediaKind) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT EXISTS (
            SELECT 1 FROM user_media um
            JOIN media m ON m.id = um.media_id
            WHERE um.user_id = ? AND m.catalog_id = ? AND m.media_kind = ?
        )`,
		userID, catalogID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check library entry: %w", err)
	}
	return exists == 1, nil
}

// GetRating returns the user's rating for a catalog entry, nil when unrated or absent.
func (s *Store) GetRating(ctx context.Context, userID string, catalogID int64, kind matching.MediaKind) (*float64, error) {
	var rating sql.NullFloat64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT um.rating FROM user_media um
        JOIN media m ON m.id = um.media_id
        WHERE um.user_id = ? AND m.catalog_id = ? AND m.media_kind = ?`,
		userID, catalogID, kind,
	).Scan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	if !rating.Valid {
		return nil, nil
	}
	v := rating.Float64
	return &v, nil
}

// UpsertMedia creates or refreshes the canonical media row keyed by catalog id
// and kind, returning its id.
func (s *Store) UpsertMedia(ctx context.Context, media importer.Media) (int64, error) {
	if media.CatalogID <= 0 {
		return 0, fmt.Errorf("catalog id must be positive (got %d)", media.CatalogID)
	}
	kind := media.Kind
	if kind == "" {
		kind = matching.MediaMovie
	}
	now := s.timestamp()
	id, err := s.queryIDWithRetry(ctx,
		`INSERT INTO media (catalog_id, media_kind, title, poster_path, year, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (catalog_id, media_kind) DO UPDATE SET
            title = CASE WHEN excluded.title <> '' THEN excluded.title ELSE media.title END,
            poster_path = COALESCE(excluded.poster_path, media.poster_path),
            year = COALESCE(excluded.year, media.year),
            updated_at = excluded.updated_at
        RETURNING id`,
		media.CatalogID, kind, strings.TrimSpace(media.Title), nullableString(media.PosterPath),
		nullableInt(media.Year), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert media: %w", err)
	}
	return id, nil
}

// SetUserMediaStatus adds mediaID to the user's library (or updates the
// existing entry) and returns the user_media id.
func (s *Store) SetUserMediaStatus(ctx context.Context, userID string, mediaID int64, status importer.LibraryStatus, rating *float64) (int64, error) {
	now := s.timestamp()
	id, err := s.queryIDWithRetry(ctx,
		`INSERT INTO user_media (user_id, media_id, status, rating, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id, media_id) DO UPDATE SET
            status = excluded.status,
            rating = excluded.rating,
            updated_at = excluded.updated_at
        RETURNING id`,
		userID, mediaID, status, nullableFloat(rating), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("set library status: %w", err)
	}
	return id, nil
}

// UpdateRating replaces the rating of an existing library entry.
func (s *Store) UpdateRating(ctx context.Context, userID string, mediaID int64, rating *float64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE user_media SET rating = ?, updated_at = ? WHERE user_id = ? AND media_id = ?`,
		nullableFloat(rating), s.timestamp(), userID, mediaID)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update rating: no library entry for media %d", mediaID)
	}
	return nil
}

// UserMediaID returns the library entry id for a catalog entry, 0 when absent.
func (s *Store) UserMediaID(ctx context.Context, userID string, catalogID int64, kind matching.MediaKind) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT um.id FROM user_media um
        JOIN media m ON m.id = um.media_id
        WHERE um.user_id = ? AND m.catalog_id = ? AND m.media_kind = ?`,
		userID, catalogID, kind,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get library entry: %w", err)
	}
	return id, nil
}

// AttachSystemTag links a system tag to a library entry. Attaching twice is a no-op.
func (s *Store) AttachSystemTag(ctx context.Context, userMediaID int64, tagKey string) error {
	tagKey = strings.ToLower(strings.TrimSpace(tagKey))
	var tagID int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id FROM tags WHERE tag_key = ? AND is_system = 1`, tagKey).Scan(&tagID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrUnknownTag, tagKey)
	}
	if err != nil {
		return fmt.Errorf("lookup tag: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO user_media_tags (user_media_id, tag_id, created_at) VALUES (?, ?, ?)`,
		userMediaID, tagID, s.timestamp()); err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// Tags lists the tag keys attached to a library entry in key order.
func (s *Store) Tags(ctx context.Context, userMediaID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT t.tag_key FROM user_media_tags umt
        JOIN tags t ON t.id = umt.tag_id
        WHERE umt.user_media_id = ?
        ORDER BY t.tag_key`, userMediaID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		tags = append(tags, key)
	}
	return tags, rows.Err()
}

package matching

import (
	"fmt"
	"strings"
)

// MediaKind distinguishes the catalog collections a title can resolve to.
type MediaKind string

const (
	MediaMovie MediaKind = "movie"
	MediaTV    MediaKind = "tv"
)

// ParseMediaKind converts a string into a MediaKind. Empty input is a movie.
func ParseMediaKind(value string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(MediaMovie):
		return MediaMovie, nil
	case string(MediaTV):
		return MediaTV, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

// Confidence classifies how trustworthy a match is.
type Confidence string

const (
	ConfidenceExact  Confidence = "exact"
	ConfidenceFuzzy  Confidence = "fuzzy"
	ConfidenceFailed Confidence = "failed"
)

// MatchResult is the best catalog candidate for one title.
type MatchResult struct {
	CatalogID    int64      `json:"catalog_id"`
	MatchedTitle string     `json:"matched_title"`
	Year         int        `json:"year,omitempty"`
	PosterPath   string     `json:"poster_path,omitempty"`
	Confidence   Confidence `json:"confidence"`
	Score        float64    `json:"score"`
	MediaKind    MediaKind  `json:"media_kind"`
}

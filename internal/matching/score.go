package matching

import (
	"math"
	"strings"
)

// Scoring weights. The three components sum to at most 100.
const (
	exactTitlePoints   = 50.0
	similarTitlePoints = 40.0
	substringBonus     = 5.0
	popularityCap      = 20.0

	// ExactScore is the score at or above which a match is exact.
	ExactScore = 70.0
	// FuzzyScore is the score at or above which a match is fuzzy.
	FuzzyScore = 40.0
	// exactSimilarity allows an exact title match an off-by-one year.
	exactSimilarity = 0.9
)

// Evaluation is the scoring breakdown for one candidate against a query.
type Evaluation struct {
	QueryTitle     string
	CandidateTitle string
	QueryYear      int
	CandidateYear  int
	Similarity     float64
	ExactTitle     bool
	TitlePoints    float64
	YearPoints     float64
	PopularPoints  float64
	// RawScore is the component sum. Candidates are ranked on it.
	RawScore float64
	// Score is RawScore raised to ExactScore for exact matches.
	Score      float64
	Confidence Confidence
}

// Evaluate scores candidate against the query title and year. A zero year
// means unknown on either side.
func Evaluate(title string, year int, candidateTitle string, candidateYear int, popularity float64) Evaluation {
	query := Normalize(title)
	cand := Normalize(candidateTitle)
	eval := Evaluation{
		QueryTitle:     query,
		CandidateTitle: cand,
		QueryYear:      max(year, 0),
		CandidateYear:  max(candidateYear, 0),
		Similarity:     Similarity(query, cand),
		ExactTitle:     query != "" && query == cand,
	}
	eval.TitlePoints = titlePoints(query, cand, eval.Similarity)
	eval.YearPoints = yearPoints(eval.QueryYear, eval.CandidateYear)
	eval.PopularPoints = popularityPoints(popularity)
	eval.RawScore = eval.TitlePoints + eval.YearPoints + eval.PopularPoints
	eval.Score = eval.RawScore
	eval.Confidence = Classify(eval)
	if eval.Confidence == ConfidenceExact && eval.Score < ExactScore {
		eval.Score = ExactScore
	}
	return eval
}

// Score returns the 0-100 match score of a candidate.
func Score(title string, year int, candidateTitle string, candidateYear int, popularity float64) float64 {
	return Evaluate(title, year, candidateTitle, candidateYear, popularity).Score
}

// Classify derives the confidence of an evaluated candidate. An exact
// normalized title is exact when the query has no year or the years are within
// one; anything else is graded by score.
func Classify(e Evaluation) Confidence {
	if e.ExactTitle {
		if e.QueryYear == 0 || e.QueryYear == e.CandidateYear {
			return ConfidenceExact
		}
		if e.Similarity >= exactSimilarity && yearsWithin(e.QueryYear, e.CandidateYear, 1) {
			return ConfidenceExact
		}
	}
	switch {
	case e.Score >= ExactScore:
		return ConfidenceExact
	case e.Score >= FuzzyScore:
		return ConfidenceFuzzy
	default:
		return ConfidenceFailed
	}
}

func titlePoints(query, candidate string, similarity float64) float64 {
	if query == "" || candidate == "" {
		return 0
	}
	if query == candidate {
		return exactTitlePoints
	}
	points := similarTitlePoints * similarity
	if strings.Contains(query, candidate) || strings.Contains(candidate, query) {
		points += substringBonus
	}
	return points
}

func yearPoints(query, candidate int) float64 {
	switch {
	case query > 0 && candidate > 0:
		switch diff := abs(query - candidate); diff {
		case 0:
			return 30
		case 1:
			return 20
		case 2:
			return 10
		default:
			return 0
		}
	case query > 0 || candidate > 0:
		return 5
	default:
		return 0
	}
}

func popularityPoints(popularity float64) float64 {
	if popularity <= 0 || math.IsNaN(popularity) {
		return 0
	}
	return math.Min(popularityCap, math.Log10(popularity+1)*5)
}

func yearsWithin(a, b, tolerance int) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	return abs(a-b) <= tolerance
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

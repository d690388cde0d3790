// Package matching resolves free-text titles from an import file to TMDB
// entries.
//
// Titles are normalized (case, diacritics, leading or comma-inverted articles,
// punctuation) and every search candidate is scored on title similarity, year
// proximity and popularity. The best candidate is classified as an exact,
// fuzzy or failed match. Matcher performs the rate-limited catalog lookups and
// relaxes the year filter once when a search comes back empty.
package matching

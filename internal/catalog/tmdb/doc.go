// Package tmdb is the small TMDB client the importer resolves titles against.
//
// It exposes movie and TV search with an optional release-year filter and
// returns typed results carrying the fields the matcher scores (title, release
// date, popularity, poster). RetryingSearcher layers bounded exponential
// backoff over any Searcher for transient HTTP failures; pacing against the
// catalog quota is the caller's job (see package ratelimit).
package tmdb

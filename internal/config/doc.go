// Package config loads, normalizes, and validates watchlist importer
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and WATCHLIST_REDIS_URL. The Config type centralizes every knob
// the CLI and the import pipeline need: where the SQLite database lives, how
// the catalog is reached, how hard it may be hit, and which defaults a new
// import job starts from.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enums, and clear validation errors.
package config

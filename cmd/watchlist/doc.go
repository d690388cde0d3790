// Package main hosts the watchlist CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration, opens the SQLite store, and
// drives bulk imports through internal/importer. Read-only commands (job
// status, item listings) never touch the catalog, so they work without a
// TMDB key.
package main

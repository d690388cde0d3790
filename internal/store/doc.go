// Package store persists import jobs and user libraries in SQLite.
//
// Store implements both importer.JobStore and importer.LibraryStore on one
// database file (<data_dir>/watchlist.db) opened in WAL mode with foreign keys
// enforced. Writes retry on SQLITE_BUSY with bounded backoff so a CLI reading
// job progress never fails a running import. Lookups that find nothing return
// (nil, nil); mutations of a missing job return ErrJobNotFound.
package store

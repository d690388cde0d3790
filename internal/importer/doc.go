// Package importer drives bulk watch-history imports.
//
// A job moves from pending to processing to a terminal completed or failed
// state. Items are handled strictly in input order: each is gated by the job's
// ImportConfig, resolved through the title matcher, reconciled with the user's
// library (ShouldUpdate decides rating conflicts) and recorded as exactly one
// append-only job item. Job counters are persisted after every item so pollers
// see live progress. Item-level problems become failed rows; only store
// failures and cancellation end the job early.
package importer

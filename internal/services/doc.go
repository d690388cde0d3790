// Package services defines shared utilities consumed by the import pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp import job IDs, item positions, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures so
//     callers can tell a per-item problem from an infrastructure outage.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across components.
package services

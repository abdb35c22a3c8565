// Package stats computes per-day delivery statistics for reporting.
//
// The aggregator recomputes a full calendar day (UTC) from the notification
// and delivery stores and upserts the result, so running it twice for the
// same day is safe and always converges to the same numbers. It is typically
// triggered shortly after midnight for the previous day, and can be re-run
// for any historical day after late webhooks arrive.
package stats

// Package notification holds the core outbound-message record and its lifecycle.
//
// A Notification represents one outbound message attempt set on a single
// channel (sms, chat, email or in_app). Its status follows a fixed state
// machine:
//
//	pending → scheduled → sent → read
//
// with a parallel failed state reachable from any non-terminal state. Terminal
// states are read, and failed once attempts are exhausted. Every transition is
// performed through a method on Notification (MarkSent, MarkFailed, MarkRead,
// Retry) that enforces the guards and returns the audit LogEntry the caller
// must persist alongside the record.
//
// The package also defines the Storage interface the rest of the engine works
// against, together with an in-memory implementation for tests and local
// development and a Postgres implementation backed by pgx.
package notification

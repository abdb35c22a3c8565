// Package delivery tracks provider-side delivery of SMS and chat messages
// and reconciles provider webhooks back onto notifications.
//
// A Record is created when an adapter hands a message to a gateway that
// supports delivery callbacks. The record is a tagged variant: one type with
// a Kind discriminant rather than parallel per-channel tables, since SMS and
// chat tracking differ only in a couple of fields.
//
// The Reconciler consumes provider callbacks. Status can only move forward
// (sent, delivered, read, with failed and expired as terminal offshoots);
// late or duplicated callbacks never regress a record. Read receipts
// propagate to the parent notification exactly once. Callbacks whose
// provider message ID matches no record are logged and discarded - they are
// routine during provider retention windows, not errors.
package delivery

// Package queue implements the durable delivery queue between notification
// creation and channel dispatch.
//
// Each entry references one notification and carries a priority and a due
// time. Workers claim entries atomically with a lease: the best due entry is
// the one with the highest priority, ties broken by earliest due time. A
// claimed entry whose lease expires (worker crash, lost connectivity) becomes
// claimable again automatically, so no notification is stranded.
//
// The queue decides nothing about delivery outcomes. A Processor performs the
// delivery and returns a Disposition: delete the entry (done, whether the
// notification succeeded or permanently failed) or requeue it at a later time
// (retry with backoff). Infrastructure errors release the entry untouched.
//
// Two storage implementations are provided: MemoryStorage for tests and
// local development, and PostgresStorage using FOR UPDATE SKIP LOCKED for
// multi-process deployments.
package queue

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on a pgx connection pool. Claim relies
// on FOR UPDATE SKIP LOCKED so concurrent workers never receive the same
// entry; lease recovery is part of the claim predicate, so no background
// goroutine is needed.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a queue storage over the given pool.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pgx pool cannot be nil")
	}
	return &PostgresStorage{pool: pool}, nil
}

// Enqueue implements Storage. The partial unique index on notification_id
// turns a duplicate live entry into a constraint violation.
func (s *PostgresStorage) Enqueue(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrEntryNil
	}

	const query = `
		INSERT INTO notification_queue (id, notification_id, priority, process_at, enqueued_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.NotificationID, int16(entry.Priority), entry.ProcessAt, entry.EnqueuedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyQueued
		}
		return fmt.Errorf("enqueue entry: %w", err)
	}
	return nil
}

// Claim implements Storage.
func (s *PostgresStorage) Claim(ctx context.Context, workerID uuid.UUID, lease time.Duration) (*Entry, error) {
	const query = `
		UPDATE notification_queue
		SET claimed = TRUE,
		    claimed_by = $1,
		    claimed_at = NOW(),
		    lease_until = NOW() + $2
		WHERE id = (
			SELECT id FROM notification_queue
			WHERE process_at <= NOW()
			  AND (NOT claimed OR lease_until < NOW())
			ORDER BY priority DESC, process_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, notification_id, priority, process_at, claimed, claimed_by, claimed_at, lease_until, enqueued_at`

	row := s.pool.QueryRow(ctx, query, workerID, lease)

	var entry Entry
	var priority int16
	err := row.Scan(&entry.ID, &entry.NotificationID, &priority, &entry.ProcessAt,
		&entry.Claimed, &entry.ClaimedBy, &entry.ClaimedAt, &entry.LeaseUntil, &entry.EnqueuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNothingToClaim
		}
		return nil, fmt.Errorf("claim entry: %w", err)
	}
	entry.Priority = Priority(priority)

	return &entry, nil
}

// Release implements Storage.
func (s *PostgresStorage) Release(ctx context.Context, id uuid.UUID, processAt time.Time) error {
	const query = `
		UPDATE notification_queue
		SET claimed = FALSE, claimed_by = NULL, claimed_at = NULL, lease_until = NULL, process_at = $2
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, processAt)
	if err != nil {
		return fmt.Errorf("release entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Delete implements Storage.
func (s *PostgresStorage) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

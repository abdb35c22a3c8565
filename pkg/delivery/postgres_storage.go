package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on a pgx connection pool. The unique
// index on provider_message_id backs the ErrDuplicateRecord contract.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed delivery record store.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

const recordColumns = `id, notification_id, kind, provider_message_id, status,
	sent_at, delivered_at, read_at, failure_note, provider, cost, callback_data,
	created_at, updated_at`

// Create implements Storage.
func (ps *PostgresStorage) Create(ctx context.Context, record *Record) error {
	if record == nil {
		return ErrRecordNil
	}

	callbackData, err := marshalCallbackData(record.CallbackData)
	if err != nil {
		return err
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO delivery_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.ID, record.NotificationID, record.Kind, record.ProviderMessageID,
		record.Status, record.SentAt, record.DeliveredAt, record.ReadAt,
		record.FailureNote, record.Provider, record.Cost, callbackData,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to insert delivery record %s: %w", record.ID, err)
	}
	return nil
}

// Update implements Storage.
func (ps *PostgresStorage) Update(ctx context.Context, record *Record) error {
	if record == nil {
		return ErrRecordNil
	}

	callbackData, err := marshalCallbackData(record.CallbackData)
	if err != nil {
		return err
	}

	tag, err := ps.pool.Exec(ctx, `
		UPDATE delivery_records SET
			status = $2, delivered_at = $3, read_at = $4, failure_note = $5,
			callback_data = $6, updated_at = $7
		WHERE id = $1`,
		record.ID, record.Status, record.DeliveredAt, record.ReadAt,
		record.FailureNote, callbackData, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery record %s: %w", record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// GetByProviderMessageID implements Storage.
func (ps *PostgresStorage) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*Record, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM delivery_records
		WHERE provider_message_id = $1`, providerMessageID)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load delivery record by provider message id: %w", err)
	}
	return record, nil
}

// ListByNotificationIDs implements Storage.
func (ps *PostgresStorage) ListByNotificationIDs(ctx context.Context, notificationIDs []uuid.UUID) ([]*Record, error) {
	if len(notificationIDs) == 0 {
		return nil, nil
	}

	rows, err := ps.pool.Query(ctx, `
		SELECT `+recordColumns+` FROM delivery_records
		WHERE notification_id = ANY($1)
		ORDER BY created_at ASC`, notificationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		record       Record
		callbackData []byte
	)
	if err := row.Scan(
		&record.ID, &record.NotificationID, &record.Kind, &record.ProviderMessageID,
		&record.Status, &record.SentAt, &record.DeliveredAt, &record.ReadAt,
		&record.FailureNote, &record.Provider, &record.Cost, &callbackData,
		&record.CreatedAt, &record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(callbackData) > 0 {
		if err := json.Unmarshal(callbackData, &record.CallbackData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal callback data: %w", err)
		}
	}
	return &record, nil
}

func marshalCallbackData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal callback data: %w", err)
	}
	return out, nil
}

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on top of a pgx connection pool.
// Schema is managed by the goose migrations shipped in the migrations/
// directory (see pkg/pg.Migrate).
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification store.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pgx pool cannot be nil")
	}
	return &PostgresStorage{pool: pool}, nil
}

const notificationColumns = `id, recipient_id, type, channel, phone_number, email,
	subject, body, status, scheduled_at, sent_at, read_at, attempts, max_attempts,
	last_error, provider_response_id, template_code, variables,
	sender_id, related_type, related_id, created_at, updated_at`

func (ps *PostgresStorage) Create(ctx context.Context, n *Notification) error {
	if n == nil {
		return ErrNotificationNil
	}

	variables, err := json.Marshal(n.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal notification variables: %w", err)
	}

	var relatedType, relatedID *string
	if n.Related != nil {
		relatedType = &n.Related.Type
		relatedID = &n.Related.ID
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		n.ID, n.RecipientID, n.Type, n.Channel, n.PhoneNumber, n.Email,
		n.Subject, n.Body, n.Status, n.ScheduledAt, n.SentAt, n.ReadAt,
		n.Attempts, n.MaxAttempts, n.LastError, n.ProviderResponseID,
		n.TemplateCode, variables, n.SenderID, relatedType, relatedID,
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

func (ps *PostgresStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load notification %s: %w", id, err)
	}
	return n, nil
}

func (ps *PostgresStorage) Update(ctx context.Context, n *Notification) error {
	if n == nil {
		return ErrNotificationNil
	}

	variables, err := json.Marshal(n.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal notification variables: %w", err)
	}

	tag, err := ps.pool.Exec(ctx, `
		UPDATE notifications SET
			status = $2, scheduled_at = $3, sent_at = $4, read_at = $5,
			attempts = $6, last_error = $7, provider_response_id = $8,
			variables = $9, updated_at = $10
		WHERE id = $1`,
		n.ID, n.Status, n.ScheduledAt, n.SentAt, n.ReadAt,
		n.Attempts, n.LastError, n.ProviderResponseID, variables, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", n.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, n.ID)
	}
	return nil
}

func (ps *PostgresStorage) AppendLog(ctx context.Context, entry *LogEntry) error {
	if entry == nil {
		return nil
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal log metadata: %w", err)
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO notification_logs (id, notification_id, action, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.NotificationID, entry.Action, entry.Message, metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) ListLogs(ctx context.Context, notificationID uuid.UUID) ([]LogEntry, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, notification_id, action, message, metadata, created_at
		FROM notification_logs
		WHERE notification_id = $1
		ORDER BY created_at ASC`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			entry    LogEntry
			metadata []byte
		)
		if err := rows.Scan(&entry.ID, &entry.NotificationID, &entry.Action,
			&entry.Message, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal log metadata: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (ps *PostgresStorage) ListSentOn(ctx context.Context, date time.Time) ([]Notification, error) {
	dayStart := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := ps.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE sent_at >= $1 AND sent_at < $2
		ORDER BY id ASC`, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications sent on %s: %w", dayStart.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (ps *PostgresStorage) ListFailedOn(ctx context.Context, date time.Time) ([]Notification, error) {
	dayStart := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := ps.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status = $1 AND updated_at >= $2 AND updated_at < $3
		ORDER BY id ASC`, StatusFailed, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications failed on %s: %w", dayStart.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (ps *PostgresStorage) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipient_id = $1 ORDER BY created_at DESC`
	args := []any{recipientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for recipient %s: %w", recipientID, err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n           Notification
		variables   []byte
		relatedType *string
		relatedID   *string
	)
	if err := row.Scan(
		&n.ID, &n.RecipientID, &n.Type, &n.Channel, &n.PhoneNumber, &n.Email,
		&n.Subject, &n.Body, &n.Status, &n.ScheduledAt, &n.SentAt, &n.ReadAt,
		&n.Attempts, &n.MaxAttempts, &n.LastError, &n.ProviderResponseID,
		&n.TemplateCode, &variables, &n.SenderID, &relatedType, &relatedID,
		&n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &n.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification variables: %w", err)
		}
	}
	if relatedType != nil && relatedID != nil {
		n.Related = &RelatedObject{Type: *relatedType, ID: *relatedID}
	}
	return &n, nil
}

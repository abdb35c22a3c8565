package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on a pgx connection pool. Save is an
// upsert on the day column, so recomputing a date replaces its row.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed statistics store.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pgx pool cannot be nil")
	}
	return &PostgresStorage{pool: pool}, nil
}

// Save implements Storage.
func (ps *PostgresStorage) Save(ctx context.Context, s *DailyStatistics) error {
	if s == nil {
		return errors.New("statistics cannot be nil")
	}

	byType, err := json.Marshal(s.ByType)
	if err != nil {
		return fmt.Errorf("failed to marshal per-type counters: %w", err)
	}

	_, err = ps.pool.Exec(ctx, `
		INSERT INTO daily_statistics (
			day,
			sms_sent, sms_delivered, sms_read,
			chat_sent, chat_delivered, chat_read,
			email_sent, email_delivered, email_read,
			in_app_sent, in_app_delivered, in_app_read,
			by_type, total_sent, total_failures, sms_cost, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (day) DO UPDATE SET
			sms_sent = EXCLUDED.sms_sent, sms_delivered = EXCLUDED.sms_delivered, sms_read = EXCLUDED.sms_read,
			chat_sent = EXCLUDED.chat_sent, chat_delivered = EXCLUDED.chat_delivered, chat_read = EXCLUDED.chat_read,
			email_sent = EXCLUDED.email_sent, email_delivered = EXCLUDED.email_delivered, email_read = EXCLUDED.email_read,
			in_app_sent = EXCLUDED.in_app_sent, in_app_delivered = EXCLUDED.in_app_delivered, in_app_read = EXCLUDED.in_app_read,
			by_type = EXCLUDED.by_type, total_sent = EXCLUDED.total_sent,
			total_failures = EXCLUDED.total_failures, sms_cost = EXCLUDED.sms_cost,
			generated_at = EXCLUDED.generated_at`,
		Day(s.Date),
		s.SMS.Sent, s.SMS.Delivered, s.SMS.Read,
		s.Chat.Sent, s.Chat.Delivered, s.Chat.Read,
		s.Email.Sent, s.Email.Delivered, s.Email.Read,
		s.InApp.Sent, s.InApp.Delivered, s.InApp.Read,
		byType, s.TotalSent, s.TotalFailures, s.SMSCost, s.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save statistics for %s: %w", Day(s.Date).Format("2006-01-02"), err)
	}
	return nil
}

// Get implements Storage.
func (ps *PostgresStorage) Get(ctx context.Context, date time.Time) (*DailyStatistics, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT day,
			sms_sent, sms_delivered, sms_read,
			chat_sent, chat_delivered, chat_read,
			email_sent, email_delivered, email_read,
			in_app_sent, in_app_delivered, in_app_read,
			by_type, total_sent, total_failures, sms_cost, generated_at
		FROM daily_statistics WHERE day = $1`, Day(date))

	var (
		s      DailyStatistics
		byType []byte
	)
	err := row.Scan(
		&s.Date,
		&s.SMS.Sent, &s.SMS.Delivered, &s.SMS.Read,
		&s.Chat.Sent, &s.Chat.Delivered, &s.Chat.Read,
		&s.Email.Sent, &s.Email.Delivered, &s.Email.Read,
		&s.InApp.Sent, &s.InApp.Delivered, &s.InApp.Read,
		&byType, &s.TotalSent, &s.TotalFailures, &s.SMSCost, &s.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, Day(date).Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to load statistics for %s: %w", Day(date).Format("2006-01-02"), err)
	}
	if len(byType) > 0 {
		if err := json.Unmarshal(byType, &s.ByType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal per-type counters: %w", err)
		}
	}
	return &s, nil
}

package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage implements Storage on a pgx connection pool. The active
// window bounds are stored as minutes from midnight.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed preference store.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pgx pool cannot be nil")
	}
	return &PostgresStorage{pool: pool}, nil
}

func (ps *PostgresStorage) Get(ctx context.Context, recipientID string) (*Preferences, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT recipient_id,
			receive_sms, receive_chat, receive_email, receive_in_app,
			payment_reminders, interventions, contracts, tasks,
			payment_reminder_lead_days, language,
			active_from_minutes, active_until_minutes, weekend, updated_at
		FROM notification_preferences WHERE recipient_id = $1`, recipientID)

	var (
		p                       Preferences
		activeFrom, activeUntil int
	)
	err := row.Scan(
		&p.RecipientID,
		&p.ReceiveSMS, &p.ReceiveChat, &p.ReceiveEmail, &p.ReceiveInApp,
		&p.PaymentReminders, &p.Interventions, &p.Contracts, &p.Tasks,
		&p.PaymentReminderLeadDays, &p.Language,
		&activeFrom, &activeUntil, &p.Weekend, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: recipient %s", ErrNotFound, recipientID)
		}
		return nil, fmt.Errorf("failed to load preferences for recipient %s: %w", recipientID, err)
	}
	p.ActiveFrom = TimeOfDay{Hour: activeFrom / 60, Minute: activeFrom % 60}
	p.ActiveUntil = TimeOfDay{Hour: activeUntil / 60, Minute: activeUntil % 60}
	return &p, nil
}

func (ps *PostgresStorage) Save(ctx context.Context, prefs Preferences) error {
	_, err := ps.pool.Exec(ctx, `
		INSERT INTO notification_preferences (
			recipient_id,
			receive_sms, receive_chat, receive_email, receive_in_app,
			payment_reminders, interventions, contracts, tasks,
			payment_reminder_lead_days, language,
			active_from_minutes, active_until_minutes, weekend, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (recipient_id) DO UPDATE SET
			receive_sms = EXCLUDED.receive_sms, receive_chat = EXCLUDED.receive_chat,
			receive_email = EXCLUDED.receive_email, receive_in_app = EXCLUDED.receive_in_app,
			payment_reminders = EXCLUDED.payment_reminders, interventions = EXCLUDED.interventions,
			contracts = EXCLUDED.contracts, tasks = EXCLUDED.tasks,
			payment_reminder_lead_days = EXCLUDED.payment_reminder_lead_days,
			language = EXCLUDED.language,
			active_from_minutes = EXCLUDED.active_from_minutes,
			active_until_minutes = EXCLUDED.active_until_minutes,
			weekend = EXCLUDED.weekend, updated_at = EXCLUDED.updated_at`,
		prefs.RecipientID,
		prefs.ReceiveSMS, prefs.ReceiveChat, prefs.ReceiveEmail, prefs.ReceiveInApp,
		prefs.PaymentReminders, prefs.Interventions, prefs.Contracts, prefs.Tasks,
		prefs.PaymentReminderLeadDays, prefs.Language,
		prefs.ActiveFrom.Minutes(), prefs.ActiveUntil.Minutes(), prefs.Weekend, prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences for recipient %s: %w", prefs.RecipientID, err)
	}
	return nil
}

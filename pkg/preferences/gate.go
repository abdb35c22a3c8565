package preferences

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/seyniprops/backoffice/pkg/notification"
)

// Gate decides whether a recipient may receive a notification. Checks are
// evaluated in a fixed order and the first failing check short-circuits:
// channel opt-in, type opt-in, daily active window (inclusive), weekend flag.
type Gate struct {
	storage Storage
	logger  *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger for the Gate.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a preference gate backed by the given storage.
func NewGate(storage Storage, opts ...GateOption) (*Gate, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	g := &Gate{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Load returns the recipient's preferences, falling back to Default for
// recipients who never configured anything.
func (g *Gate) Load(ctx context.Context, recipientID string) (Preferences, error) {
	prefs, err := g.storage.Get(ctx, recipientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Default(recipientID), nil
		}
		return Preferences{}, err
	}
	return *prefs, nil
}

// CanReceive reports whether the recipient may receive a notification of the
// given type on the given channel at the given time.
func (g *Gate) CanReceive(ctx context.Context, recipientID string, ch notification.Channel, typ notification.Type, at time.Time) (bool, error) {
	prefs, err := g.Load(ctx, recipientID)
	if err != nil {
		return false, err
	}

	allowed, reason := Evaluate(prefs, ch, typ, at)
	if !allowed {
		g.logger.DebugContext(ctx, "notification suppressed by preference gate",
			slog.String("recipient_id", recipientID),
			slog.String("channel", string(ch)),
			slog.String("type", string(typ)),
			slog.String("reason", reason))
	}
	return allowed, nil
}

// Evaluate runs the gate checks against explicit preferences. Split out from
// CanReceive so callers holding preferences already loaded can reuse it.
func Evaluate(prefs Preferences, ch notification.Channel, typ notification.Type, at time.Time) (bool, string) {
	switch ch {
	case notification.ChannelSMS:
		if !prefs.ReceiveSMS {
			return false, "sms channel disabled"
		}
	case notification.ChannelChat:
		if !prefs.ReceiveChat {
			return false, "chat channel disabled"
		}
	case notification.ChannelEmail:
		if !prefs.ReceiveEmail {
			return false, "email channel disabled"
		}
	case notification.ChannelInApp:
		if !prefs.ReceiveInApp {
			return false, "in-app channel disabled"
		}
	}

	switch typ {
	case notification.TypePaymentReminder:
		if !prefs.PaymentReminders {
			return false, "payment reminders disabled"
		}
	case notification.TypeInterventionAssigned, notification.TypeInterventionCompleted:
		if !prefs.Interventions {
			return false, "intervention notifications disabled"
		}
	case notification.TypeContractExpiry:
		if !prefs.Contracts {
			return false, "contract notifications disabled"
		}
	case notification.TypeTaskAssigned:
		if !prefs.Tasks {
			return false, "task notifications disabled"
		}
	}

	// Active window bounds are inclusive on both ends.
	minutes := at.Hour()*60 + at.Minute()
	if minutes < prefs.ActiveFrom.Minutes() || minutes > prefs.ActiveUntil.Minutes() {
		return false, "outside active window"
	}

	if !prefs.Weekend {
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false, "weekend deliveries disabled"
		}
	}

	return true, ""
}

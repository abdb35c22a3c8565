// Package notifier assembles the notification delivery engine from its
// parts: storage, preference gate, template renderer, channel adapters,
// dispatcher, queue worker, webhook ingress and the daily statistics job.
//
// It is the composition root an application embeds:
//
//	engine, err := notifier.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Start(ctx)
//	defer engine.Stop()
//
//	r := chi.NewRouter()
//	r.Mount("/webhooks/delivery", engine.WebhookRoutes())
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/seyniprops/backoffice/pkg/channel"
	"github.com/seyniprops/backoffice/pkg/config"
	"github.com/seyniprops/backoffice/pkg/delivery"
	"github.com/seyniprops/backoffice/pkg/dispatch"
	"github.com/seyniprops/backoffice/pkg/logger"
	"github.com/seyniprops/backoffice/pkg/notification"
	"github.com/seyniprops/backoffice/pkg/pg"
	"github.com/seyniprops/backoffice/pkg/preferences"
	"github.com/seyniprops/backoffice/pkg/queue"
	"github.com/seyniprops/backoffice/pkg/redis"
	"github.com/seyniprops/backoffice/pkg/stats"
	"github.com/seyniprops/backoffice/pkg/templates"
)

// Config holds the engine-level settings; connection and adapter settings
// live in their own env sections (PG_*, REDIS_*, SMS_*, CHAT_*, EMAIL_*,
// DISPATCH_*).
type Config struct {
	ServiceName   string `env:"NOTIFIER_SERVICE_NAME" envDefault:"seyniprops-notifier"`
	Environment   string `env:"NOTIFIER_ENV" envDefault:"development"`
	TemplatesPath string `env:"NOTIFIER_TEMPLATES_PATH" envDefault:"templates.yaml"`

	// DevMode swaps the live SMS, chat and email gateways for file-writing
	// adapters so local runs never reach real providers.
	DevMode bool `env:"NOTIFIER_DEV_MODE" envDefault:"false"`
}

// Engine is the assembled delivery engine.
type Engine struct {
	Dispatcher *dispatch.Dispatcher
	Worker     *queue.Worker
	StatsJob   *dispatch.StatsJob

	Notifications notification.Storage
	Preferences   preferences.Storage
	Deliveries    delivery.Storage
	Statistics    stats.Storage

	pool    *pgxpool.Pool
	redis   *goredis.Client
	webhook *delivery.Handler
	logger  *slog.Logger
}

// New loads configuration from the environment, connects to Postgres and
// Redis, applies migrations and wires every component together.
func New(ctx context.Context) (*Engine, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("notifier config: %w", err)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithAttr(logger.Component("notifier")))

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis config: %w", err)
	}
	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	engine, err := build(cfg, pool, redisClient, log)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	return engine, nil
}

func build(cfg Config, pool *pgxpool.Pool, redisClient *goredis.Client, log *slog.Logger) (*Engine, error) {
	notifications, err := notification.NewPostgresStorage(pool)
	if err != nil {
		return nil, err
	}
	queueStorage, err := queue.NewPostgresStorage(pool)
	if err != nil {
		return nil, err
	}
	deliveries, err := delivery.NewPostgresStorage(pool)
	if err != nil {
		return nil, err
	}
	prefStorage, err := preferences.NewPostgresStorage(pool)
	if err != nil {
		return nil, err
	}
	statsStorage, err := stats.NewPostgresStorage(pool)
	if err != nil {
		return nil, err
	}

	gate, err := preferences.NewGate(prefStorage, preferences.WithGateLogger(log))
	if err != nil {
		return nil, err
	}

	catalog := templates.NewMemoryCatalog()
	if err := templates.LoadYAMLFile(cfg.TemplatesPath, catalog); err != nil {
		return nil, fmt.Errorf("template catalog: %w", err)
	}
	renderer, err := templates.NewRenderer(catalog)
	if err != nil {
		return nil, err
	}

	var dispatchCfg dispatch.Config
	if err := config.Load(&dispatchCfg); err != nil {
		return nil, fmt.Errorf("dispatch config: %w", err)
	}

	adapters, err := buildAdapters(cfg, dispatchCfg, redisClient)
	if err != nil {
		return nil, err
	}

	dispatcher, err := dispatch.NewDispatcher(gate, renderer, notifications, queueStorage, deliveries, adapters,
		dispatch.WithSendTimeout(dispatchCfg.SendTimeout),
		dispatch.WithLogger(log))
	if err != nil {
		return nil, err
	}

	worker, err := queue.NewWorker(queueStorage, dispatcher,
		queue.WithPullInterval(dispatchCfg.PullInterval),
		queue.WithLeaseDuration(dispatchCfg.LeaseDuration),
		queue.WithMaxConcurrent(dispatchCfg.MaxConcurrent),
		queue.WithWorkerLogger(log))
	if err != nil {
		return nil, err
	}

	reconciler, err := delivery.NewReconciler(deliveries, notifications, delivery.WithReconcilerLogger(log))
	if err != nil {
		return nil, err
	}

	aggregator, err := stats.NewAggregator(notifications, deliveries, statsStorage, stats.WithAggregatorLogger(log))
	if err != nil {
		return nil, err
	}
	statsJob, err := dispatch.NewStatsJob(aggregator,
		dispatch.WithRunAfterMidnight(dispatchCfg.StatsRunAfter),
		dispatch.WithStatsJobLogger(log))
	if err != nil {
		return nil, err
	}

	return &Engine{
		Dispatcher:    dispatcher,
		Worker:        worker,
		StatsJob:      statsJob,
		Notifications: notifications,
		Preferences:   prefStorage,
		Deliveries:    deliveries,
		Statistics:    statsStorage,
		pool:          pool,
		redis:         redisClient,
		webhook:       delivery.NewHandler(reconciler, log),
		logger:        log,
	}, nil
}

func buildAdapters(cfg Config, dispatchCfg dispatch.Config, redisClient *goredis.Client) ([]channel.Adapter, error) {
	inApp, err := channel.NewInAppAdapter(redisClient)
	if err != nil {
		return nil, err
	}

	if cfg.DevMode {
		return []channel.Adapter{
			channel.NewDevAdapter(notification.ChannelSMS, dispatchCfg.DevDeliveryDir),
			channel.NewDevAdapter(notification.ChannelChat, dispatchCfg.DevDeliveryDir),
			channel.NewDevAdapter(notification.ChannelEmail, dispatchCfg.DevDeliveryDir),
			inApp,
		}, nil
	}

	var smsCfg channel.SMSConfig
	if err := config.Load(&smsCfg); err != nil {
		return nil, fmt.Errorf("sms config: %w", err)
	}
	sms, err := channel.NewSMSAdapter(smsCfg)
	if err != nil {
		return nil, err
	}

	var chatCfg channel.ChatConfig
	if err := config.Load(&chatCfg); err != nil {
		return nil, fmt.Errorf("chat config: %w", err)
	}
	chat, err := channel.NewChatAdapter(chatCfg)
	if err != nil {
		return nil, err
	}

	var emailCfg channel.EmailConfig
	if err := config.Load(&emailCfg); err != nil {
		return nil, fmt.Errorf("email config: %w", err)
	}
	email, err := channel.NewEmailAdapter(emailCfg)
	if err != nil {
		return nil, err
	}

	return []channel.Adapter{sms, chat, email, inApp}, nil
}

// Start launches the queue worker and the daily statistics job.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.Worker.Start(ctx); err != nil {
		return fmt.Errorf("queue worker: %w", err)
	}
	e.StatsJob.Start(ctx)
	e.logger.InfoContext(ctx, "notification engine started")
	return nil
}

// Stop shuts down the worker and the statistics job, waiting for in-flight
// deliveries to finish.
func (e *Engine) Stop() error {
	e.StatsJob.Stop()
	if err := e.Worker.Stop(); err != nil && !errors.Is(err, queue.ErrWorkerNotStarted) {
		return fmt.Errorf("queue worker: %w", err)
	}
	return nil
}

// Close releases the Postgres and Redis connections. Call after Stop.
func (e *Engine) Close() {
	e.pool.Close()
	if err := e.redis.Close(); err != nil {
		e.logger.Error("failed to close redis client", slog.String("error", err.Error()))
	}
}

// WebhookRoutes returns the delivery callback routes for mounting into the
// application router, typically under /webhooks/delivery.
func (e *Engine) WebhookRoutes() chi.Router {
	return e.webhook.Routes()
}

// Healthchecks returns the readiness probes for the engine's backing stores.
func (e *Engine) Healthchecks() []func(context.Context) error {
	return []func(context.Context) error{
		pg.Healthcheck(e.pool),
		redis.Healthcheck(e.redis),
	}
}

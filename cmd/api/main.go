package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innsync_backend/internal/bookings"
	"innsync_backend/internal/email"
	"innsync_backend/internal/events"
	"innsync_backend/internal/guests"
	apphttp "innsync_backend/internal/http"
	"innsync_backend/internal/http/router"
	"innsync_backend/internal/ingest"
	"innsync_backend/internal/messages"
	"innsync_backend/internal/notification"
	"innsync_backend/internal/properties"
	"innsync_backend/internal/reconcile"
	"innsync_backend/platform/config"
	"innsync_backend/platform/db"
	"innsync_backend/platform/logger"
	"innsync_backend/platform/phone"
	"innsync_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	phone.DefaultRegion = cfg.GetDefaultPhoneRegion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	queueClient, closeQueue := initQueueClient(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
		log.Info("email alerts enabled", "to", cfg.GetAlertEmailTo())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	propertyRepo := properties.NewRepository(pool)
	guestRepo := guests.NewRepository(pool)
	bookingRepo := bookings.NewRepository(pool)
	messageRepo := messages.NewRepository(pool)
	ledgerRepo := reconcile.NewLedgerRepository(pool)

	propertyResolver := properties.NewResolver(propertyRepo, log)
	guestResolver := guests.NewResolver(guestRepo, cfg.GetDefaultGuestCountry(), log)

	reconcileService := reconcile.NewService(
		propertyResolver, guestResolver, bookingRepo, messageRepo,
		ledgerRepo, eventBus, cfg, log,
	)

	ingestModule := ingest.NewModule(pool, messageRepo, queueClient, eventBus, val, log)
	reconcileModule := reconcile.NewModule(
		reconcile.NewHandler(reconcileService, messageRepo, ledgerRepo),
		ingestModule.Auth(),
	)
	notificationModule := notification.NewModule(pool, sender, cfg.GetAlertEmailTo(), eventBus, ingestModule.Auth(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			ingestModule,
			reconcileModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initQueueClient builds the asynq client, or a nil client when redis
// is not configured. A nil client stores messages without queueing;
// the synchronous reconcile endpoint remains available.
func initQueueClient(cfg config.QueueConfig, log *logger.Logger) (*reconcile.QueueClient, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background reconciliation disabled")
		return nil, nil
	}

	client, err := reconcile.NewQueueClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

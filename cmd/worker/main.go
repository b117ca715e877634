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
	"innsync_backend/internal/messages"
	"innsync_backend/internal/notification"
	"innsync_backend/internal/properties"
	"innsync_backend/internal/reconcile"
	"innsync_backend/platform/config"
	"innsync_backend/platform/db"
	"innsync_backend/platform/logger"
	"innsync_backend/platform/phone"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueueName, "concurrency", cfg.WorkerConcurrency)

	phone.DefaultRegion = cfg.GetDefaultPhoneRegion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	}

	propertyRepo := properties.NewRepository(pool)
	guestRepo := guests.NewRepository(pool)
	bookingRepo := bookings.NewRepository(pool)
	messageRepo := messages.NewRepository(pool)
	ledgerRepo := reconcile.NewLedgerRepository(pool)

	reconcileService := reconcile.NewService(
		properties.NewResolver(propertyRepo, log),
		guests.NewResolver(guestRepo, cfg.GetDefaultGuestCountry(), log),
		bookingRepo, messageRepo, ledgerRepo, eventBus, cfg, log,
	)

	// Worker-side notifier: reconciliation outcomes land in the feed
	// (and the alert mailbox) no matter which process did the work.
	notifierRepo := notification.NewRepository(pool)
	notifier := notification.NewService(notifierRepo, sender, cfg.GetAlertEmailTo(), log)
	notification.RegisterHandlers(eventBus, notifier)

	server, err := reconcile.NewQueueServer(cfg, log)
	if err != nil {
		log.Error("failed to initialize queue server", "error", err)
		panic("failed to initialize queue server: " + err.Error())
	}

	worker := reconcile.NewWorker(reconcileService, messageRepo, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(worker.Mux())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining queue")
		server.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped", "error", err)
		panic("worker stopped: " + err.Error())
	}
	log.Info("worker shut down cleanly")
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

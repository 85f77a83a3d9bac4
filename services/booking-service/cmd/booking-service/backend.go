package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/sellerbook/libs/db"
	"github.com/md-rashed-zaman/sellerbook/libs/kafkax"
	"github.com/md-rashed-zaman/sellerbook/libs/runtime"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/sqlitestore"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/sellerbook/services/booking-service/internal/tokens"
)

// appStore is everything the service needs from a storage driver.
type appStore interface {
	booking.Store
	handlers.UserProvisioner
	tokens.CredentialStore
}

type backend struct {
	store   appStore
	checks  []runtime.ReadyCheck
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg settings, logger *slog.Logger) (*backend, error) {
	if cfg.storeDriver == "sqlite" {
		return openSQLite(ctx, cfg, logger)
	}
	return openPostgres(ctx, cfg, logger)
}

func openSQLite(ctx context.Context, cfg settings, logger *slog.Logger) (*backend, error) {
	st, err := sqlitestore.Open(ctx, cfg.sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	logger.Info("sqlite store ready", "path", cfg.sqlitePath)
	if len(cfg.kafkaBrokers) > 0 {
		logger.Warn("KAFKA_BROKERS ignored: the sqlite store does not record outbox events")
	}
	return &backend{
		store:   st,
		checks:  []runtime.ReadyCheck{{Name: "sqlite", Check: db.SQLReadyCheck(st.DB())}},
		closers: []func(){func() { _ = st.Close() }},
	}, nil
}

func openPostgres(ctx context.Context, cfg settings, logger *slog.Logger) (*backend, error) {
	pool, err := db.Open(ctx, cfg.databaseURL, db.PoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}
	be := &backend{closers: []func(){pool.Close}}

	outboxRepo := outbox.NewRepository(pool)
	st := storage.NewStore(pool, outboxRepo)
	if cfg.migrateOnStart {
		if err := st.Migrate(ctx); err != nil {
			be.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	be.store = st
	be.checks = append(be.checks, runtime.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(pool)})

	if len(cfg.kafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set; outbox events stay queued")
		return be, nil
	}
	writer := kafkax.NewWriter(cfg.kafkaBrokers)
	be.closers = append(be.closers, func() { _ = writer.Close() })
	be.checks = append(be.checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.kafkaBrokers)})

	publisher := outbox.NewPublisher(outboxRepo, writer, logger, outbox.PublisherConfig{
		PollEvery: cfg.outboxPollEvery,
		BatchSize: cfg.outboxBatchSize,
	})
	go publisher.Run(ctx)
	return be, nil
}

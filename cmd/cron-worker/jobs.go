package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/auctions"
	"github.com/angelmondragon/jewelbid-backend/internal/bids"
	"github.com/angelmondragon/jewelbid-backend/internal/cron"
	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
)

const defaultOutboxMaxAttempts = 10

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// buildJobs wires the jobs the worker runs on every tick, in order.
func buildJobs(cfg *config.Config, logg *logger.Logger, client database, notifier notifications.Notifier, marketMetrics *metrics.MarketplaceMetrics) ([]cron.Job, error) {
	conn := client.DB()
	events := outbox.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	closer, err := auctions.NewCloser(auctions.CloserParams{
		Items:     items.NewRepository(conn),
		Bids:      bids.NewRepository(conn),
		Deals:     deals.NewRepository(conn),
		Events:    events,
		DB:        client,
		Outbox:    outbox.NewService(events, logg),
		Notifier:  notifier,
		Metrics:   marketMetrics,
		Logger:    logg,
		TxRetries: cfg.DB.TxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("auction closer: %w", err)
	}
	closeJob, err := auctions.NewCloseJob(closer, logg)
	if err != nil {
		return nil, err
	}

	notificationCleanup, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "notification-cleanup",
		Logger:    logg,
		DB:        client,
		Retention: cfg.Cron.NotificationRetention,
		Purge:     notificationRepo.DeleteReadBefore,
	})
	if err != nil {
		return nil, err
	}

	maxAttempts := cfg.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultOutboxMaxAttempts
	}
	outboxRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "outbox-retention",
		Logger:    logg,
		DB:        client,
		Retention: cfg.Cron.OutboxRetention,
		Purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return events.DeletePublishedBefore(ctx, tx, cutoff, maxAttempts)
		},
	})
	if err != nil {
		return nil, err
	}

	return []cron.Job{closeJob, notificationCleanup, outboxRetention}, nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/jewelbid-backend/internal/bootstrap"
	"github.com/angelmondragon/jewelbid-backend/internal/cron"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
)

const serviceKind = "cron-worker"

func main() {
	logg, err := run()
	bootstrap.Exit(logg, serviceKind, err)
}

func run() (*logger.Logger, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, serviceKind, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(context.Background(), "shutdown cleanup failed", err)
		}
	}()
	cfg, logg := rt.Config, rt.Logger

	// One lock per environment so staging and prod workers never block each other.
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey(serviceKind, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return logg, err
	}
	notifier := notifications.NewNotifier(notifications.NewRepository(rt.DB.DB()), logg)
	rt.Defer(notifier.Close)
	jobs, err := buildJobs(cfg, logg, rt.DB, notifier, metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return logg, err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return logg, err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "jobs": len(jobs)})
	logg.Info(ctx, "cron worker started")
	err = service.Run(ctx)
	logg.Info(ctx, "cron worker stopped")
	return logg, err
}

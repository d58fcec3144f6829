package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/jewelbid-backend/internal/bootstrap"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/registry"
	"github.com/angelmondragon/jewelbid-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	logg, err := run()
	bootstrap.Exit(logg, serviceKind, err)
}

func run() (*logger.Logger, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, serviceKind, false)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(context.Background(), "shutdown cleanup failed", err)
		}
	}()
	cfg, logg := rt.Config, rt.Logger

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return logg, err
	}
	rt.Defer(pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return logg, err
	}
	conn := rt.DB.DB()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            rt.DB,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(conn),
		DLQRepository: outbox.NewDLQRepository(conn),
		Registry:      eventRegistry,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return logg, err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := bootstrap.Serve(ctx, metricsServer, 5*time.Second); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "outbox publisher started")
	err = service.Run(ctx)
	logg.Info(ctx, "outbox publisher stopped")
	return logg, err
}

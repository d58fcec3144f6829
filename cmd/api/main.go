package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/jewelbid-backend/api/routes"
	"github.com/angelmondragon/jewelbid-backend/internal/bootstrap"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

const (
	serviceName       = "api"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 20 * time.Second
)

func main() {
	logg, err := run()
	bootstrap.Exit(logg, serviceName, err)
}

func run() (*logger.Logger, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, serviceName, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error(context.Background(), "shutdown cleanup failed", err)
		}
	}()
	logg := rt.Logger

	notifier := notifications.NewNotifier(notifications.NewRepository(rt.DB.DB()), logg)
	rt.Defer(notifier.Close)

	params, err := buildServices(rt.Config, logg, rt.DB, notifier, prometheus.DefaultRegisterer)
	if err != nil {
		return logg, err
	}
	params.Redis = rt.Redis
	params.Limiter = rt.Redis
	params.Replays = rt.Redis

	// Hosting platforms inject PORT; the config value covers local runs.
	port := envOr("PORT", rt.Config.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      rt.Config.App.Env,
		"addr":     ":" + port,
		"instance": envOr("DYNO", "local"),
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	logg.Info(ctx, "api server listening")
	if err := bootstrap.Serve(ctx, server, shutdownTimeout); err != nil {
		return logg, err
	}
	logg.Info(ctx, "api server stopped")
	return logg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

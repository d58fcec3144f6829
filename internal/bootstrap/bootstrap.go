// Package bootstrap holds the startup steps shared by the api, cron-worker
// and outbox-publisher binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/migrate"
	"github.com/angelmondragon/jewelbid-backend/pkg/redis"
)

// Runtime is what every binary needs before it builds its own services.
// Close releases the resources in reverse order of acquisition.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []func() error
}

// Load reads .env when present, then the JEWELBID_* environment.
func Load(service string) (*config.Config, *logger.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("read .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service
	return cfg, logger.FromConfig(service, cfg.App), nil
}

// Open loads config and connects to postgres. Dev migrations run when
// enabled. Redis is dialed only when withRedis is set.
func Open(ctx context.Context, service string, withRedis bool) (*Runtime, error) {
	cfg, logg, err := Load(service)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logg}

	rt.DB, err = db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, rt.DB); err != nil {
		return nil, errors.Join(fmt.Errorf("dev migrations: %w", err), rt.Close())
	}
	if !withRedis {
		return rt, nil
	}
	rt.Redis, err = redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect redis: %w", err), rt.Close())
	}
	rt.closers = append(rt.closers, rt.Redis.Close)
	return rt, nil
}

// Defer registers an extra resource to release on Close.
func (rt *Runtime) Defer(closer func() error) {
	rt.closers = append(rt.closers, closer)
}

func (rt *Runtime) Close() error {
	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, rt.closers[i]())
	}
	rt.closers = nil
	return err
}

// Serve runs srv until ctx is cancelled, then drains it within grace.
func Serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Exit logs err and terminates the process. A nil err exits cleanly.
func Exit(logg *logger.Logger, service string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: service})
	}
	logg.Error(context.Background(), service+" failed", err)
	os.Exit(1)
}

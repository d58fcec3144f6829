package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/api/routes"
	"github.com/angelmondragon/jewelbid-backend/internal/auctions"
	"github.com/angelmondragon/jewelbid-backend/internal/auth"
	"github.com/angelmondragon/jewelbid-backend/internal/bids"
	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/internal/offers"
	"github.com/angelmondragon/jewelbid-backend/internal/requests"
	"github.com/angelmondragon/jewelbid-backend/internal/reservations"
	"github.com/angelmondragon/jewelbid-backend/internal/users"
	"github.com/angelmondragon/jewelbid-backend/internal/wishlist"
	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
)

type database interface {
	DB() *gorm.DB
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// buildServices constructs every domain service over one connection. The
// returned params still need the redis-backed fields set by the caller.
func buildServices(cfg *config.Config, logg *logger.Logger, client database, notifier notifications.Notifier, reg prometheus.Registerer) (routes.Params, error) {
	conn := client.DB()
	retries := cfg.DB.TxRetries
	currency, err := enums.ParseCurrency(cfg.Marketplace.DefaultCurrency, enums.CurrencyUSD)
	if err != nil {
		return routes.Params{}, err
	}

	marketMetrics := metrics.NewMarketplaceMetrics(reg)
	events := outbox.NewRepository(conn)
	emitter := outbox.NewService(events, logg)
	notificationRepo := notifications.NewRepository(conn)

	userRepo := users.NewRepository(conn)
	itemRepo := items.NewRepository(conn)
	bidRepo := bids.NewRepository(conn)
	dealRepo := deals.NewRepository(conn)
	requestRepo := requests.NewRepository(conn)

	p := routes.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       client,
		Gatherer: prometheus.DefaultGatherer,
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		p.Gatherer = g
	}

	if p.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}); err != nil {
		return p, fmt.Errorf("auth service: %w", err)
	}
	if p.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             client,
		Users:          userRepo,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return p, fmt.Errorf("register service: %w", err)
	}
	if p.Users, err = users.NewService(userRepo, client, notifier); err != nil {
		return p, fmt.Errorf("users service: %w", err)
	}
	if p.Items, err = items.NewService(itemRepo, client, currency); err != nil {
		return p, fmt.Errorf("items service: %w", err)
	}
	if p.Bids, err = bids.NewService(bids.ServiceParams{
		Items:           itemRepo,
		Bids:            bidRepo,
		DB:              client,
		Outbox:          emitter,
		Notifier:        notifier,
		Metrics:         marketMetrics,
		Logger:          logg,
		AntiSnipeWindow: cfg.Marketplace.AntiSnipeWindow,
		MinIncrement:    decimal.NewFromInt(cfg.Marketplace.MinBidIncrement),
		TxRetries:       retries,
	}); err != nil {
		return p, fmt.Errorf("bids service: %w", err)
	}
	if p.Reservations, err = reservations.NewService(reservations.ServiceParams{
		Items:     itemRepo,
		Deals:     dealRepo,
		DB:        client,
		Outbox:    emitter,
		Metrics:   marketMetrics,
		Logger:    logg,
		TxRetries: retries,
	}); err != nil {
		return p, fmt.Errorf("reservations service: %w", err)
	}
	if p.Requests, err = requests.NewService(requestRepo, currency); err != nil {
		return p, fmt.Errorf("requests service: %w", err)
	}
	if p.Offers, err = offers.NewService(offers.ServiceParams{
		Offers:    offers.NewRepository(conn),
		Requests:  requestRepo,
		Deals:     dealRepo,
		DB:        client,
		Outbox:    emitter,
		Notifier:  notifier,
		Metrics:   marketMetrics,
		Logger:    logg,
		TxRetries: retries,
	}); err != nil {
		return p, fmt.Errorf("offers service: %w", err)
	}
	if p.Deals, err = deals.NewService(deals.ServiceParams{
		Deals:     dealRepo,
		Items:     itemRepo,
		DB:        client,
		Outbox:    emitter,
		Notifier:  notifier,
		Logger:    logg,
		TxRetries: retries,
	}); err != nil {
		return p, fmt.Errorf("deals service: %w", err)
	}
	if p.Notifications, err = notifications.NewService(notificationRepo); err != nil {
		return p, fmt.Errorf("notifications service: %w", err)
	}
	if p.Wishlist, err = wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(conn),
		ItemRepo:     itemRepo,
	}); err != nil {
		return p, fmt.Errorf("wishlist service: %w", err)
	}
	if p.Closer, err = auctions.NewCloser(auctions.CloserParams{
		Items:     itemRepo,
		Bids:      bidRepo,
		Deals:     dealRepo,
		Events:    events,
		DB:        client,
		Outbox:    emitter,
		Notifier:  notifier,
		Metrics:   marketMetrics,
		Logger:    logg,
		TxRetries: retries,
	}); err != nil {
		return p, fmt.Errorf("auction closer: %w", err)
	}
	p.DeadLetters = outbox.NewDeadLetterService(outbox.NewDLQRepository(conn), client, logg)
	return p, nil
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/jewelbid-backend/api/controllers"
	"github.com/angelmondragon/jewelbid-backend/api/middleware"
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
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/redis"
)

// Params carries everything the router wires into handlers. Nil services
// produce handlers that answer with an internal error.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Limiter  redis.RateLimiter
	Replays  redis.IdempotencyStore
	Gatherer prometheus.Gatherer

	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Items         items.Service
	Bids          bids.Service
	Reservations  reservations.Service
	Requests      requests.Service
	Offers        offers.Service
	Deals         deals.Service
	Notifications notifications.Service
	Wishlist      wishlist.Service
	Closer        auctions.Closer
	DeadLetters   outbox.DeadLetterService
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginLimit,
		EmailLimit: cfg.AuthRateLimit.LoginLimit,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": p.Redis,
		}))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Limiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Limiter, logg)).Post("/register", controllers.AuthRegister(p.Register, p.Auth, logg))
	})

	// Platform schedulers call with GET; manual triggers use POST.
	cronClose := controllers.CronCloseAuctions(p.Closer, logg)
	r.With(middleware.CronAuth(cfg.Marketplace.CronSecret, logg)).Get("/api/v1/cron/close-auctions", cronClose)
	r.With(middleware.CronAuth(cfg.Marketplace.CronSecret, logg)).Post("/api/v1/cron/close-auctions", cronClose)

	// Public catalogue reads.
	r.Group(func(r chi.Router) {
		r.Get("/api/v1/items/live", controllers.ItemListLive(p.Items, logg))
		r.Get("/api/v1/items/direct", controllers.ItemListDirect(p.Items, logg))
		r.Get("/api/v1/items/ended", controllers.ItemListEnded(p.Items, logg))
		r.Get("/api/v1/items/{itemId}", controllers.ItemGet(p.Items, logg))
		r.Get("/api/v1/items/{itemId}/bids", controllers.BidListForItem(p.Bids, logg))
		r.Get("/api/v1/requests/{requestId}", controllers.RequestGet(p.Requests, logg))
		r.Get("/api/v1/requests/{requestId}/offers", controllers.OfferList(p.Offers, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Replays, logg))

		r.Get("/api/v1/users/me", controllers.UserMe(p.Users, logg))
		r.Post("/api/v1/users/me/become-seller", controllers.UserBecomeSeller(p.Users, logg))

		r.Get("/api/v1/items/mine", controllers.ItemListMine(p.Items, logg))
		r.Post("/api/v1/items", controllers.ItemCreate(p.Items, logg))
		r.Post("/api/v1/items/{itemId}/publish", controllers.ItemPublish(p.Items, logg))
		r.Post("/api/v1/items/{itemId}/reserve", controllers.ItemReserve(p.Reservations, logg))
		r.With(middleware.BidRateLimit(p.Limiter, cfg.Marketplace.BidRateLimit, cfg.Marketplace.BidRateWindow, logg)).
			Post("/api/v1/items/{itemId}/bids", controllers.BidPlace(p.Bids, logg))
		r.Get("/api/v1/bids/mine", controllers.BidListMine(p.Bids, logg))

		r.Get("/api/v1/requests", controllers.RequestList(p.Requests, logg))
		r.Post("/api/v1/requests", controllers.RequestCreate(p.Requests, logg))
		r.Post("/api/v1/requests/{requestId}/offers", controllers.OfferSubmit(p.Offers, logg))
		r.Post("/api/v1/requests/{requestId}/offers/{offerId}/accept", controllers.OfferAccept(p.Offers, logg))

		// Flat patterns keep the full route visible to Idempotency.
		r.Get("/api/v1/deals", controllers.DealList(p.Deals, logg))
		r.Get("/api/v1/deals/{dealId}", controllers.DealGet(p.Deals, logg))
		r.Post("/api/v1/deals/{dealId}/checkout", controllers.DealCheckout(p.Deals, logg))
		r.Post("/api/v1/deals/{dealId}/pay", controllers.DealPay(p.Deals, logg))
		r.Post("/api/v1/deals/{dealId}/complete", controllers.DealComplete(p.Deals, logg))
		r.Post("/api/v1/deals/{dealId}/cancel", controllers.DealCancel(p.Deals, logg))

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(p.Notifications, logg))
			r.Delete("/", controllers.DeleteAllNotifications(p.Notifications, logg))
		})

		r.Route("/api/v1/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(p.Wishlist, logg))
			r.Post("/{itemId}/toggle", controllers.WishlistToggle(p.Wishlist, logg))
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Get("/sellers/pending", controllers.AdminPendingSellers(p.Users, logg))
		r.Post("/sellers/{userId}/verify", controllers.AdminVerifySeller(p.Users, logg))
		r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(p.DeadLetters, logg))
		r.Post("/outbox/dead-letters/{eventId}/requeue", controllers.AdminRequeueDeadLetter(p.DeadLetters, logg))
	})

	return r
}

package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/auctions"
	"github.com/angelmondragon/jewelbid-backend/internal/bids"
	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications/notificationstest"
	"github.com/angelmondragon/jewelbid-backend/internal/reservations"
	"github.com/angelmondragon/jewelbid-backend/internal/users"
	pkgauth "github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/dbtest"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
)

const cronSecret = "cron-secret"

type harness struct {
	t       *testing.T
	conn    *gorm.DB
	cfg     *config.Config
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.New(t)
	runner := db.Wrap(conn)
	logg := logger.Nop()
	notifier := &notificationstest.Recorder{}
	events := outbox.NewRepository(conn)
	emitter := outbox.NewService(events, logg)
	reg := prometheus.NewRegistry()
	marketMetrics := metrics.NewMarketplaceMetrics(reg)

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "jewelbid-test", ExpirationMinutes: 5},
		Marketplace: config.MarketplaceConfig{
			AntiSnipeWindow: 5 * time.Minute,
			MinBidIncrement: 1,
			DefaultCurrency: "USD",
			CronSecret:      cronSecret,
		},
	}

	itemRepo := items.NewRepository(conn)
	bidRepo := bids.NewRepository(conn)
	dealRepo := deals.NewRepository(conn)

	itemSvc, err := items.NewService(itemRepo, runner, enums.CurrencyUSD)
	require.NoError(t, err)
	bidSvc, err := bids.NewService(bids.ServiceParams{
		Items:           itemRepo,
		Bids:            bidRepo,
		DB:              runner,
		Outbox:          emitter,
		Notifier:        notifier,
		Metrics:         marketMetrics,
		Logger:          logg,
		AntiSnipeWindow: cfg.Marketplace.AntiSnipeWindow,
		MinIncrement:    decimal.NewFromInt(cfg.Marketplace.MinBidIncrement),
	})
	require.NoError(t, err)
	reserveSvc, err := reservations.NewService(reservations.ServiceParams{
		Items:   itemRepo,
		Deals:   dealRepo,
		DB:      runner,
		Outbox:  emitter,
		Metrics: marketMetrics,
		Logger:  logg,
	})
	require.NoError(t, err)
	userSvc, err := users.NewService(users.NewRepository(conn), runner, notifier)
	require.NoError(t, err)
	closer, err := auctions.NewCloser(auctions.CloserParams{
		Items:    itemRepo,
		Bids:     bidRepo,
		Deals:    dealRepo,
		Events:   events,
		DB:       runner,
		Outbox:   emitter,
		Notifier: notifier,
		Metrics:  marketMetrics,
		Logger:   logg,
	})
	require.NoError(t, err)

	handler := NewRouter(Params{
		Config:       cfg,
		Logger:       logg,
		DB:           runner,
		Gatherer:     reg,
		Users:        userSvc,
		Items:        itemSvc,
		Bids:         bidSvc,
		Reservations: reserveSvc,
		Closer:       closer,
		DeadLetters:  outbox.NewDeadLetterService(outbox.NewDLQRepository(conn), runner, logg),
	})
	return &harness{t: t, conn: conn, cfg: cfg, handler: handler}
}

func (h *harness) token(user models.User) string {
	h.t.Helper()
	token, err := pkgauth.MintAccessToken(h.cfg.JWT, time.Now(), pkgauth.Identity{UserID: user.ID, Role: user.Role})
	require.NoError(h.t, err)
	return token
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Reason  string         `json:"reason"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthLive(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-JewelBid-Env"))

	rec = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/v1/items/"+uuid.NewString()+"/bids", "", map[string]any{"amount": "10"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestBidFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	seller := dbtest.User(t, h.conn, enums.UserRoleSellerVerified)
	alice := dbtest.User(t, h.conn, enums.UserRoleBuyer)
	bob := dbtest.User(t, h.conn, enums.UserRoleBuyer)
	end := time.Now().Add(2 * time.Hour)
	item := dbtest.Auction(t, h.conn, seller.ID, 100, &end)
	path := "/api/v1/items/" + item.ID.String() + "/bids"

	rec := h.do(http.MethodPost, path, h.token(alice), map[string]any{"amount": "150"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, path, h.token(bob), map[string]any{"amount": "150"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "BID_TOO_LOW", env.Error.Reason)
	assert.Equal(t, "151", env.Error.Details["minimum"])

	rec = h.do(http.MethodGet, "/api/v1/items/"+item.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		CurrentPrice string `json:"currentPrice"`
		BidCount     int64  `json:"bidCount"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.Equal(t, "150", view.CurrentPrice)
	assert.EqualValues(t, 1, view.BidCount)
}

func TestSellerCannotBidOnOwnItem(t *testing.T) {
	h := newHarness(t)
	seller := dbtest.User(t, h.conn, enums.UserRoleSellerVerified)
	item := dbtest.Auction(t, h.conn, seller.ID, 100, nil)

	rec := h.do(http.MethodPost, "/api/v1/items/"+item.ID.String()+"/bids", h.token(seller), map[string]any{"amount": "500"})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestReserveReturnsDealID(t *testing.T) {
	h := newHarness(t)
	seller := dbtest.User(t, h.conn, enums.UserRoleSellerVerified)
	buyer := dbtest.User(t, h.conn, enums.UserRoleBuyer)
	item := dbtest.Direct(t, h.conn, seller.ID, 900)

	rec := h.do(http.MethodPost, "/api/v1/items/"+item.ID.String()+"/reserve", h.token(buyer), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		DealID uuid.UUID `json:"dealId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	require.NotEqual(t, uuid.Nil, body.DealID)

	var deal models.Deal
	dbtest.Reload(t, h.conn, &deal, body.DealID)
	assert.Equal(t, buyer.ID, deal.BuyerID)
	assert.Equal(t, enums.DealStatusPendingPayment, deal.Status)
}

func TestCronCloseAuctionsAuth(t *testing.T) {
	h := newHarness(t)
	seller := dbtest.User(t, h.conn, enums.UserRoleSellerVerified)
	buyer := dbtest.User(t, h.conn, enums.UserRoleBuyer)
	ended := time.Now().Add(-time.Minute)
	item := dbtest.Auction(t, h.conn, seller.ID, 100, &ended)
	dbtest.Bid(t, h.conn, item.ID, buyer.ID, 250, ended.Add(-time.Hour))

	rec := h.do(http.MethodPost, "/api/v1/cron/close-auctions", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/cron/close-auctions", "wrong", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/cron/close-auctions", cronSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result auctions.Result
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 1, result.Processed)

	assert.EqualValues(t, 1, dbtest.Count(t, h.conn, &models.Deal{}, "item_id = ? AND buyer_id = ?", item.ID, buyer.ID))
}

func TestCronCloseAuctionsAcceptsPlatformHeaderOnGet(t *testing.T) {
	h := newHarness(t)
	seller := dbtest.User(t, h.conn, enums.UserRoleSellerVerified)
	buyer := dbtest.User(t, h.conn, enums.UserRoleBuyer)
	ended := time.Now().Add(-time.Minute)
	item := dbtest.Auction(t, h.conn, seller.ID, 100, &ended)
	dbtest.Bid(t, h.conn, item.ID, buyer.ID, 250, ended.Add(-time.Hour))

	rec := h.do(http.MethodGet, "/api/v1/cron/close-auctions", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/close-auctions", nil)
	req.Header.Set("x-vercel-cron", "1")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sweep struct {
		Success   bool `json:"success"`
		Processed int  `json:"processed"`
		Details   []struct {
			ID uuid.UUID `json:"id"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sweep))
	assert.True(t, sweep.Success)
	assert.Equal(t, 1, sweep.Processed)
	require.Len(t, sweep.Details, 1)
	assert.Equal(t, item.ID, sweep.Details[0].ID)
}

func TestCatalogueListsDirectAndEndedItems(t *testing.T) {
	h := newHarness(t)
	seller := dbtest.User(t, h.conn, enums.UserRoleSellerVerified)
	direct := dbtest.Direct(t, h.conn, seller.ID, 900)
	ended := time.Now().Add(-time.Hour)
	unsold := dbtest.Auction(t, h.conn, seller.ID, 100, &ended)
	later := time.Now().Add(time.Hour)
	dbtest.Auction(t, h.conn, seller.ID, 100, &later)

	ids := func(rec *httptest.ResponseRecorder) []uuid.UUID {
		var rows []struct {
			ID uuid.UUID `json:"id"`
		}
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &rows))
		out := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			out = append(out, row.ID)
		}
		return out
	}

	rec := h.do(http.MethodGet, "/api/v1/items/direct", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{direct.ID}, ids(rec))

	rec = h.do(http.MethodGet, "/api/v1/items/ended", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{unsold.ID}, ids(rec))

	rec = h.do(http.MethodGet, "/api/v1/items/direct?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRejectBuyers(t *testing.T) {
	h := newHarness(t)
	buyer := dbtest.User(t, h.conn, enums.UserRoleBuyer)
	admin := dbtest.User(t, h.conn, enums.UserRoleAdmin)

	rec := h.do(http.MethodGet, "/api/v1/admin/sellers/pending", h.token(buyer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/admin/sellers/pending", h.token(admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/admin/outbox/dead-letters", h.token(admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/v1/admin/outbox/dead-letters/"+uuid.NewString()+"/requeue", h.token(admin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestMissingServiceAnswersUnavailable(t *testing.T) {
	h := newHarness(t)
	buyer := dbtest.User(t, h.conn, enums.UserRoleBuyer)

	rec := h.do(http.MethodGet, "/api/v1/wishlist/", h.token(buyer), nil)
	assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
}

package deals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications/notificationstest"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/dbtest"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *service
	conn    *gorm.DB
	notices *notificationstest.Recorder
	buyer   auth.Identity
	seller  auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	rec := &notificationstest.Recorder{}
	svc, err := NewService(ServiceParams{
		Deals:    NewRepository(conn),
		Items:    items.NewRepository(conn),
		DB:       db.Wrap(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Notifier: rec,
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }

	buyer := dbtest.User(t, conn, enums.UserRoleBuyer)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	return &fixture{
		svc:     impl,
		conn:    conn,
		notices: rec,
		buyer:   auth.Identity{UserID: buyer.ID, Role: buyer.Role},
		seller:  auth.Identity{UserID: seller.ID, Role: seller.Role},
	}
}

func (f *fixture) deal(t *testing.T, status enums.DealStatus, itemID *uuid.UUID) models.Deal {
	t.Helper()
	deal := models.Deal{
		BuyerID:    f.buyer.UserID,
		SellerID:   f.seller.UserID,
		ItemID:     itemID,
		TotalPrice: decimal.NewFromInt(1000),
		Currency:   enums.CurrencyUSD,
		Status:     status,
		CreatedAt:  fixedNow,
	}
	dbtest.Insert(t, f.conn, &deal)
	return deal
}

func (f *fixture) reservedItem(t *testing.T) models.Item {
	t.Helper()
	item := dbtest.Direct(t, f.conn, f.seller.UserID, 1000)
	require.NoError(t, f.conn.Model(&models.Item{}).Where("id = ?", item.ID).Update("status", enums.ItemStatusReserved).Error)
	return item
}

func TestCheckoutMovesOpenDealToPendingPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deal := f.deal(t, enums.DealStatusOpen, nil)

	_, err := f.svc.Checkout(ctx, deal.ID, f.seller)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	got, err := f.svc.Checkout(ctx, deal.ID, f.buyer)
	require.NoError(t, err)
	require.Equal(t, enums.DealStatusPendingPayment, got.Status)

	again, err := f.svc.Checkout(ctx, deal.ID, f.buyer)
	require.NoError(t, err)
	require.Equal(t, enums.DealStatusPendingPayment, again.Status)
	require.Equal(t, int64(1), dbtest.Count(t, f.conn, &models.OutboxEvent{}, "event_type = ?", enums.EventDealCheckout))
}

func TestSimulatePaymentRequiresCheckout(t *testing.T) {
	f := newFixture(t)
	deal := f.deal(t, enums.DealStatusOpen, nil)

	_, err := f.svc.SimulatePayment(context.Background(), deal.ID, f.buyer)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var reloaded models.Deal
	dbtest.Reload(t, f.conn, &reloaded, deal.ID)
	require.Equal(t, enums.DealStatusOpen, reloaded.Status)
}

func TestSimulatePaymentSettlesItemDeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.reservedItem(t)
	deal := f.deal(t, enums.DealStatusPendingPayment, &item.ID)

	outsider := auth.Identity{UserID: uuid.New(), Role: enums.UserRoleBuyer}
	_, err := f.svc.SimulatePayment(ctx, deal.ID, outsider)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	paid, err := f.svc.SimulatePayment(ctx, deal.ID, f.buyer)
	require.NoError(t, err)
	require.Equal(t, enums.DealStatusPaid, paid.Status)

	var reloadedItem models.Item
	dbtest.Reload(t, f.conn, &reloadedItem, item.ID)
	require.Equal(t, enums.ItemStatusSold, reloadedItem.Status)

	buyerNotices := f.notices.For(f.buyer.UserID)
	require.Len(t, buyerNotices, 1)
	require.Equal(t, "Payment Successful", buyerNotices[0].Title)
	require.Equal(t, "/deals/"+deal.ID.String(), buyerNotices[0].Link)
	sellerNotices := f.notices.For(f.seller.UserID)
	require.Len(t, sellerNotices, 1)
	require.Equal(t, "Item Sold!", sellerNotices[0].Title)

	// paying twice is a no-op
	again, err := f.svc.SimulatePayment(ctx, deal.ID, f.seller)
	require.NoError(t, err)
	require.Equal(t, enums.DealStatusPaid, again.Status)
	require.Len(t, f.notices.Notices, 2)
}

func TestSimulatePaymentLeavesTerminalDeals(t *testing.T) {
	f := newFixture(t)
	for _, status := range []enums.DealStatus{enums.DealStatusCancelled, enums.DealStatusComplete} {
		deal := f.deal(t, status, nil)
		got, err := f.svc.SimulatePayment(context.Background(), deal.ID, f.buyer)
		require.NoError(t, err)
		require.Equal(t, status, got.Status)
	}
	require.Empty(t, f.notices.Notices)
}

func TestCompleteOnlyFromPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.deal(t, enums.DealStatusPendingPayment, nil)
	_, err := f.svc.Complete(ctx, pending.ID, f.seller)
	require.Equal(t, pkgerrors.ReasonInvalidTransition, pkgerrors.ReasonOf(err))

	paid := f.deal(t, enums.DealStatusPaid, nil)
	_, err = f.svc.Complete(ctx, paid.ID, f.buyer)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := auth.Identity{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	done, err := f.svc.Complete(ctx, paid.ID, admin)
	require.NoError(t, err)
	require.Equal(t, enums.DealStatusComplete, done.Status)
}

func TestCancelReleasesReservedItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.reservedItem(t)
	deal := f.deal(t, enums.DealStatusPendingPayment, &item.ID)

	cancelled, err := f.svc.Cancel(ctx, deal.ID, f.buyer)
	require.NoError(t, err)
	require.Equal(t, enums.DealStatusCancelled, cancelled.Status)

	var reloaded models.Item
	dbtest.Reload(t, f.conn, &reloaded, item.ID)
	require.Equal(t, enums.ItemStatusPublished, reloaded.Status)

	_, err = f.svc.Cancel(ctx, deal.ID, f.buyer)
	require.Equal(t, pkgerrors.ReasonInvalidTransition, pkgerrors.ReasonOf(err))

	paid := f.deal(t, enums.DealStatusPaid, nil)
	_, err = f.svc.Cancel(ctx, paid.ID, f.seller)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deal := f.deal(t, enums.DealStatusOpen, nil)

	got, err := f.svc.Get(ctx, deal.ID, f.seller)
	require.NoError(t, err)
	require.Equal(t, deal.ID, got.ID)

	_, err = f.svc.Get(ctx, deal.ID, auth.Identity{UserID: uuid.New(), Role: enums.UserRoleBuyer})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Get(ctx, uuid.New(), f.buyer)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	rows, err := f.svc.ListForUser(ctx, f.buyer.UserID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rows, err = f.svc.ListForUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, rows)
}

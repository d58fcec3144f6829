package items

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/dbtest"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.New(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), enums.CurrencyUSD)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl, conn
}

func TestCreateDirectItemRequiresPrice(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	actor := auth.Identity{UserID: seller.ID, Role: seller.Role}

	_, err := svc.Create(context.Background(), actor, CreateItemInput{Title: "Pearl necklace", SaleType: enums.SaleTypeDirect})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	price := decimal.NewFromInt(900)
	view, err := svc.Create(context.Background(), actor, CreateItemInput{
		Title:       "Pearl necklace",
		SaleType:    enums.SaleTypeDirect,
		BuyNowPrice: &price,
		Publish:     true,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ItemStatusPublished, view.Status)
	require.Equal(t, enums.CurrencyUSD, view.Currency)
	require.True(t, view.BuyNowPrice.Equal(price))
}

func TestCreateAuctionValidation(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSellerVerified)
	actor := auth.Identity{UserID: seller.ID, Role: seller.Role}
	ctx := context.Background()

	past := fixedNow.Add(-time.Minute)
	_, err := svc.Create(ctx, actor, CreateItemInput{Title: "Ruby", SaleType: enums.SaleTypeAuction, AuctionEnd: &past})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	negative := decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, actor, CreateItemInput{Title: "Ruby", SaleType: enums.SaleTypeAuction, StartingPrice: &negative})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, actor, CreateItemInput{Title: "  ", SaleType: enums.SaleTypeAuction})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(ctx, actor, CreateItemInput{Title: "Ruby", SaleType: enums.SaleTypeAuction, Currency: "XYZ"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	end := fixedNow.Add(time.Hour)
	start := decimal.NewFromInt(100)
	view, err := svc.Create(ctx, actor, CreateItemInput{
		Title:         "Ruby",
		SaleType:      enums.SaleTypeAuction,
		StartingPrice: &start,
		AuctionEnd:    &end,
		Currency:      "eur",
	})
	require.NoError(t, err)
	require.Equal(t, enums.ItemStatusDraft, view.Status)
	require.Equal(t, enums.CurrencyEUR, view.Currency)
	require.True(t, view.CurrentPrice.Equal(start))
}

func TestCreateRequiresSellerRole(t *testing.T) {
	svc, conn := newTestService(t)
	buyer := dbtest.User(t, conn, enums.UserRoleBuyer)
	_, err := svc.Create(context.Background(), auth.Identity{UserID: buyer.ID, Role: buyer.Role}, CreateItemInput{Title: "x", SaleType: enums.SaleTypeAuction})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestPublishOwnerOnly(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	other := dbtest.User(t, conn, enums.UserRoleSeller)
	item := models.Item{
		SellerID: seller.ID,
		Title:    "Emerald brooch",
		SaleType: enums.SaleTypeDirect,
		Status:   enums.ItemStatusDraft,
		Currency: enums.CurrencyUSD,
	}
	dbtest.Insert(t, conn, &item)
	ctx := context.Background()

	_, err := svc.Publish(ctx, auth.Identity{UserID: other.ID, Role: other.Role}, item.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Publish(ctx, auth.Identity{UserID: seller.ID, Role: seller.Role}, item.ID)
	require.Equal(t, pkgerrors.ReasonPriceMissing, pkgerrors.ReasonOf(err))

	price := decimal.NewFromInt(50)
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", item.ID).Update("buy_now_price", price).Error)
	view, err := svc.Publish(ctx, auth.Identity{UserID: seller.ID, Role: seller.Role}, item.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ItemStatusPublished, view.Status)
}

func TestGetReportsCurrentPrice(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	bidder := dbtest.User(t, conn, enums.UserRoleBuyer)
	item := dbtest.Auction(t, conn, seller.ID, 100, nil)
	ctx := context.Background()

	view, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, view.CurrentPrice.Equal(decimal.NewFromInt(100)))
	require.Zero(t, view.BidCount)

	dbtest.Bid(t, conn, item.ID, bidder.ID, 150, fixedNow)
	dbtest.Bid(t, conn, item.ID, bidder.ID, 175, fixedNow.Add(time.Second))
	view, err = svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, view.CurrentPrice.Equal(decimal.NewFromInt(175)), "got %s", view.CurrentPrice)
	require.EqualValues(t, 2, view.BidCount)

	_, err = svc.Get(ctx, seller.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListLiveExcludesEndedAndSold(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	soon := fixedNow.Add(10 * time.Minute)
	later := fixedNow.Add(time.Hour)
	ended := fixedNow.Add(-time.Minute)

	liveLater := dbtest.Auction(t, conn, seller.ID, 10, &later)
	liveSoon := dbtest.Auction(t, conn, seller.ID, 10, &soon)
	openEnded := dbtest.Auction(t, conn, seller.ID, 10, nil)
	dbtest.Auction(t, conn, seller.ID, 10, &ended)
	sold := dbtest.Auction(t, conn, seller.ID, 10, &later)
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", sold.ID).Update("status", enums.ItemStatusSold).Error)
	dbtest.Direct(t, conn, seller.ID, 100)

	views, err := svc.ListLive(context.Background(), fixedNow)
	require.NoError(t, err)
	require.Len(t, views, 3)
	require.Equal(t, liveSoon.ID, views[0].ID)
	require.Equal(t, liveLater.ID, views[1].ID)
	require.Equal(t, openEnded.ID, views[2].ID)
}

func TestCreateRejectsFractionalOrOversizedPrices(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	actor := auth.Identity{UserID: seller.ID, Role: seller.Role}
	ctx := context.Background()

	fractional := decimal.RequireFromString("899.99")
	_, err := svc.Create(ctx, actor, CreateItemInput{Title: "Pearl necklace", SaleType: enums.SaleTypeDirect, BuyNowPrice: &fractional})
	require.Equal(t, pkgerrors.ReasonInvalidAmount, pkgerrors.ReasonOf(err))

	huge := decimal.RequireFromString("10000000000")
	_, err = svc.Create(ctx, actor, CreateItemInput{Title: "Ruby", SaleType: enums.SaleTypeAuction, StartingPrice: &huge})
	require.Equal(t, pkgerrors.ReasonInvalidAmount, pkgerrors.ReasonOf(err))

	start := decimal.NewFromInt(100)
	_, err = svc.Create(ctx, actor, CreateItemInput{Title: "Ruby", SaleType: enums.SaleTypeAuction, StartingPrice: &start, BuyNowPrice: &fractional})
	require.Equal(t, pkgerrors.ReasonInvalidAmount, pkgerrors.ReasonOf(err))
}

func setCreatedAt(t *testing.T, conn *gorm.DB, id any, at time.Time) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", id).UpdateColumn("created_at", at).Error)
}

func TestListDirectReturnsPricedPublishedNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)

	older := dbtest.Direct(t, conn, seller.ID, 500)
	newer := dbtest.Direct(t, conn, seller.ID, 900)
	setCreatedAt(t, conn, older.ID, fixedNow.Add(-2*time.Hour))
	setCreatedAt(t, conn, newer.ID, fixedNow.Add(-time.Hour))

	reserved := dbtest.Direct(t, conn, seller.ID, 700)
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", reserved.ID).Update("status", enums.ItemStatusReserved).Error)
	unpriced := dbtest.Direct(t, conn, seller.ID, 300)
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", unpriced.ID).Update("buy_now_price", nil).Error)
	dbtest.Auction(t, conn, seller.ID, 10, nil)

	views, err := svc.ListDirect(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, newer.ID, views[0].ID)
	require.Equal(t, older.ID, views[1].ID)

	views, err = svc.ListDirect(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
}

func TestListEndedReturnsUnsoldAuctionsLatestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	seller := dbtest.User(t, conn, enums.UserRoleSeller)
	bidder := dbtest.User(t, conn, enums.UserRoleBuyer)
	longAgo := fixedNow.Add(-48 * time.Hour)
	recently := fixedNow.Add(-time.Minute)
	later := fixedNow.Add(time.Hour)

	first := dbtest.Auction(t, conn, seller.ID, 10, &longAgo)
	second := dbtest.Auction(t, conn, seller.ID, 10, &recently)
	dbtest.Bid(t, conn, second.ID, bidder.ID, 40, recently.Add(-time.Hour))
	dbtest.Auction(t, conn, seller.ID, 10, &later)
	dbtest.Auction(t, conn, seller.ID, 10, nil)
	sold := dbtest.Auction(t, conn, seller.ID, 10, &recently)
	require.NoError(t, conn.Model(&models.Item{}).Where("id = ?", sold.ID).Update("status", enums.ItemStatusSold).Error)

	views, err := svc.ListEnded(context.Background(), fixedNow, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, second.ID, views[0].ID)
	require.Equal(t, first.ID, views[1].ID)
	require.True(t, views[0].CurrentPrice.Equal(decimal.NewFromInt(40)))
}

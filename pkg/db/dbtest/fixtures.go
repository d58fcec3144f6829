package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Insert writes row and fails the test on error.
func Insert(t testing.TB, conn *gorm.DB, row any) {
	t.Helper()
	if err := conn.Create(row).Error; err != nil {
		t.Fatalf("insert %T: %v", row, err)
	}
}

func User(t testing.TB, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:           id,
		Email:        id.String() + "@example.com",
		PasswordHash: "x",
		Name:         "User " + id.String()[:8],
		Role:         role,
		SellerStatus: enums.SellerStatusNone,
	}
	Insert(t, conn, &user)
	return user
}

// Auction inserts a published auction item ending at end (nil for open ended).
func Auction(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, starting int64, end *time.Time) models.Item {
	t.Helper()
	item := models.Item{
		SellerID:      sellerID,
		Title:         "Sapphire ring",
		SaleType:      enums.SaleTypeAuction,
		Status:        enums.ItemStatusPublished,
		Currency:      enums.CurrencyUSD,
		StartingPrice: decimal.NewFromInt(starting),
		AuctionEnd:    end,
	}
	Insert(t, conn, &item)
	return item
}

// Direct inserts a published direct-sale item priced at price.
func Direct(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, price int64) models.Item {
	t.Helper()
	p := decimal.NewFromInt(price)
	item := models.Item{
		SellerID:      sellerID,
		Title:         "Diamond pendant",
		SaleType:      enums.SaleTypeDirect,
		Status:        enums.ItemStatusPublished,
		Currency:      enums.CurrencyUSD,
		StartingPrice: decimal.Zero,
		BuyNowPrice:   &p,
	}
	Insert(t, conn, &item)
	return item
}

func Bid(t testing.TB, conn *gorm.DB, itemID, bidderID uuid.UUID, amount int64, at time.Time) models.Bid {
	t.Helper()
	bid := models.Bid{ItemID: itemID, BidderID: bidderID, Amount: decimal.NewFromInt(amount), CreatedAt: at.UTC()}
	Insert(t, conn, &bid)
	return bid
}

// Reload re-reads row by primary key into dest.
func Reload(t testing.TB, conn *gorm.DB, dest any, id uuid.UUID) {
	t.Helper()
	if err := conn.Where("id = ?", id).First(dest).Error; err != nil {
		t.Fatalf("reload %T %s: %v", dest, id, err)
	}
}

// Count returns the number of rows of model matching the optional condition.
func Count(t testing.TB, conn *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	q := conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

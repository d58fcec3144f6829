package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Item is a sellable listing, either auctioned or sold at a fixed price.
type Item struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID      uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	Title         string           `gorm:"column:title;not null" json:"title"`
	Description   *string          `gorm:"column:description" json:"description"`
	Category      *string          `gorm:"column:category" json:"category"`
	SaleType      enums.SaleType   `gorm:"column:sale_type;type:sale_type;not null" json:"saleType"`
	Status        enums.ItemStatus `gorm:"column:status;type:item_status;not null" json:"status"`
	Currency      enums.Currency   `gorm:"column:currency;type:char(3);not null" json:"currency"`
	StartingPrice decimal.Decimal  `gorm:"column:starting_price;type:numeric(12,2);not null" json:"startingPrice"`
	BuyNowPrice   *decimal.Decimal `gorm:"column:buy_now_price;type:numeric(12,2)" json:"buyNowPrice"`
	AuctionEnd    *time.Time       `gorm:"column:auction_end" json:"auctionEnd"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// AuctionOpenAt reports whether bids are still accepted at now.
func (i Item) AuctionOpenAt(now time.Time) bool {
	return i.AuctionEnd == nil || i.AuctionEnd.After(now)
}

// CurrentPrice is the highest bid when one exists, else the starting price.
func (i Item) CurrentPrice(highestBid *decimal.Decimal) decimal.Decimal {
	if highestBid != nil {
		return *highestBid
	}
	return i.StartingPrice
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Deal joins a buyer and seller around exactly one originating item or one
// accepted (request, offer) pair.
type Deal struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	SellerID   uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	ItemID     *uuid.UUID       `gorm:"column:item_id;type:uuid" json:"itemId"`
	RequestID  *uuid.UUID       `gorm:"column:request_id;type:uuid" json:"requestId"`
	OfferID    *uuid.UUID       `gorm:"column:offer_id;type:uuid" json:"offerId"`
	TotalPrice decimal.Decimal  `gorm:"column:total_price;type:numeric(12,2);not null" json:"totalPrice"`
	Currency   enums.Currency   `gorm:"column:currency;type:char(3);not null" json:"currency"`
	Status     enums.DealStatus `gorm:"column:status;type:deal_status;not null" json:"status"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (d *Deal) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// IsParticipant reports whether userID is the buyer or the seller.
func (d Deal) IsParticipant(userID uuid.UUID) bool {
	return d.BuyerID == userID || d.SellerID == userID
}

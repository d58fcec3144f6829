package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Offer is a seller's priced answer to a Request.
type Offer struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   uuid.UUID         `gorm:"column:request_id;type:uuid;not null;index" json:"requestId"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null" json:"sellerId"`
	Description string            `gorm:"column:description;not null" json:"description"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Status      enums.OfferStatus `gorm:"column:status;type:offer_status;not null" json:"status"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

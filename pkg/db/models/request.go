package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Request is a buyer's want-ad that sellers answer with offers.
type Request struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID       uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	Title         string              `gorm:"column:title;not null" json:"title"`
	Description   *string             `gorm:"column:description" json:"description"`
	Category      *string             `gorm:"column:category" json:"category"`
	BudgetMax     *decimal.Decimal    `gorm:"column:budget_max;type:numeric(12,2)" json:"budgetMax"`
	Currency      enums.Currency      `gorm:"column:currency;type:char(3);not null" json:"currency"`
	Status        enums.RequestStatus `gorm:"column:status;type:request_status;not null" json:"status"`
	ChosenOfferID *uuid.UUID          `gorm:"column:chosen_offer_id;type:uuid" json:"chosenOfferId"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (r *Request) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

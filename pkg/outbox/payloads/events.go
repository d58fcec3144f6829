package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// BidPlacedEvent is emitted for every accepted bid.
type BidPlacedEvent struct {
	BidID         uuid.UUID       `json:"bid_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	BidderID      uuid.UUID       `json:"bidder_id"`
	Amount        decimal.Decimal `json:"amount"`
	AuctionEnd    *time.Time      `json:"auction_end,omitempty"`
	AuctionExtend bool            `json:"auction_extended"`
}

// AuctionClosedEvent reports the outcome of an expired auction.
type AuctionClosedEvent struct {
	ItemID   uuid.UUID        `json:"item_id"`
	SellerID uuid.UUID        `json:"seller_id"`
	DealID   *uuid.UUID       `json:"deal_id,omitempty"`
	WinnerID *uuid.UUID       `json:"winner_id,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Outcome  string           `json:"outcome"`
}

// DealEvent carries a deal snapshot for lifecycle events.
type DealEvent struct {
	DealID     uuid.UUID        `json:"deal_id"`
	BuyerID    uuid.UUID        `json:"buyer_id"`
	SellerID   uuid.UUID        `json:"seller_id"`
	ItemID     *uuid.UUID       `json:"item_id,omitempty"`
	RequestID  *uuid.UUID       `json:"request_id,omitempty"`
	OfferID    *uuid.UUID       `json:"offer_id,omitempty"`
	TotalPrice decimal.Decimal  `json:"total_price"`
	Currency   enums.Currency   `json:"currency"`
	Status     enums.DealStatus `json:"status"`
}

// OfferAcceptedEvent is emitted when a request collapses into a deal.
type OfferAcceptedEvent struct {
	RequestID       uuid.UUID   `json:"request_id"`
	OfferID         uuid.UUID   `json:"offer_id"`
	DealID          uuid.UUID   `json:"deal_id"`
	DeclinedOfferID []uuid.UUID `json:"declined_offer_ids"`
}

// NewDealEvent snapshots a deal row.
func NewDealEvent(d models.Deal) DealEvent {
	return DealEvent{
		DealID:     d.ID,
		BuyerID:    d.BuyerID,
		SellerID:   d.SellerID,
		ItemID:     d.ItemID,
		RequestID:  d.RequestID,
		OfferID:    d.OfferID,
		TotalPrice: d.TotalPrice,
		Currency:   d.Currency,
		Status:     d.Status,
	}
}

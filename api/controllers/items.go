package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/api/validators"
	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

type createItemRequest struct {
	Title         string           `json:"title" validate:"required,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=80"`
	SaleType      enums.SaleType   `json:"saleType" validate:"required,oneof=AUCTION DIRECT"`
	Currency      string           `json:"currency,omitempty" validate:"omitempty,currency"`
	StartingPrice *decimal.Decimal `json:"startingPrice,omitempty"`
	BuyNowPrice   *decimal.Decimal `json:"buyNowPrice,omitempty"`
	AuctionEnd    *time.Time       `json:"auctionEnd,omitempty"`
	Publish       bool             `json:"publish"`
}

func (c createItemRequest) toInput() items.CreateItemInput {
	return items.CreateItemInput{
		Title:         validators.SanitizeString(c.Title, 200),
		Description:   c.Description,
		Category:      c.Category,
		SaleType:      c.SaleType,
		Currency:      c.Currency,
		StartingPrice: c.StartingPrice,
		BuyNowPrice:   c.BuyNowPrice,
		AuctionEnd:    c.AuctionEnd,
		Publish:       c.Publish,
	}
}

// ItemCreate lists a new item for the calling seller.
func ItemCreate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		var body createItemRequest
		if !decodeBody(w, r, logg, &body) {
			return
		}
		item, err := svc.Create(r.Context(), identity, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ItemGet(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ItemPublish(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Publish(r.Context(), identity, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ItemListLive returns published auctions that are still accepting bids.
func ItemListLive(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		rows, err := svc.ListLive(r.Context(), time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ItemListDirect is the fixed-price catalogue buyers reserve from.
func ItemListDirect(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", items.DefaultCatalogueLimit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListDirect(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ItemListEnded returns auctions that ended without being sold.
func ItemListEnded(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", items.DefaultCatalogueLimit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListEnded(r.Context(), time.Now(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ItemListMine(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "items")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.ListMine(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

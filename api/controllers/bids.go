package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/api/validators"
	"github.com/angelmondragon/jewelbid-backend/internal/bids"
	"github.com/angelmondragon/jewelbid-backend/internal/reservations"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

// Amounts arrive as JSON numbers or strings; decimal accepts both.
type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BidPlace submits a bid on an auction item for the caller.
func BidPlace(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "bids")
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
		var body placeBidRequest
		if !decodeBody(w, r, logg, &body) {
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithItemID(ctx, itemID.String())
		}
		bid, err := svc.PlaceBid(ctx, itemID, identity.UserID, body.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

func BidListForItem(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "bids")
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func BidListMine(svc bids.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "bids")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.ListForBidder(r.Context(), identity.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ItemReserve reserves a direct-sale item for the caller or resumes the
// caller's existing reservation.
func ItemReserve(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reservations")
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
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithItemID(ctx, itemID.String())
		}
		deal, err := svc.ReserveOrResume(ctx, itemID, identity.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dealId": deal.ID, "deal": deal})
	}
}

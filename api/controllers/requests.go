package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/api/validators"
	"github.com/angelmondragon/jewelbid-backend/internal/offers"
	"github.com/angelmondragon/jewelbid-backend/internal/requests"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

type createRequestRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=80"`
	BudgetMax   *decimal.Decimal `json:"budgetMax,omitempty"`
	Currency    string           `json:"currency,omitempty" validate:"omitempty,currency"`
}

type submitOfferRequest struct {
	Description string          `json:"description" validate:"required,max=5000"`
	Price       decimal.Decimal `json:"price"`
}

// RequestCreate opens a buyer request describing a wanted piece.
func RequestCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requests")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		var body createRequestRequest
		if !decodeBody(w, r, logg, &body) {
			return
		}
		created, err := svc.Create(r.Context(), identity, requests.CreateRequestInput{
			Title:       validators.SanitizeString(body.Title, 200),
			Description: body.Description,
			Category:    body.Category,
			BudgetMax:   body.BudgetMax,
			Currency:    body.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func RequestGet(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requests")
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// RequestList returns open requests, or the caller's own with ?mine=true.
func RequestList(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requests")
			return
		}
		if validators.ParseQueryBool(r, "mine") {
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
			return
		}
		rows, err := svc.ListOpen(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// OfferSubmit lets a seller answer an open request.
func OfferSubmit(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "offers")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitOfferRequest
		if !decodeBody(w, r, logg, &body) {
			return
		}
		offer, err := svc.SubmitOffer(r.Context(), requestID, identity, offers.SubmitOfferInput{
			Description: validators.SanitizeString(body.Description, 5000),
			Price:       body.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

func OfferList(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "offers")
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForRequest(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// OfferAccept resolves a request with one of its offers and opens a deal.
func OfferAccept(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "offers")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deal, err := svc.AcceptOffer(r.Context(), requestID, offerID, identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"dealId": deal.ID, "deal": deal})
	}
}

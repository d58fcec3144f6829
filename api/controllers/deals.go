package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	"github.com/angelmondragon/jewelbid-backend/api/validators"
	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
)

type dealAction func(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error)

// dealHandler adapts one deal lifecycle action to HTTP.
func dealHandler(svc deals.Service, logg *logger.Logger, pick func(deals.Service) dealAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deals")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		dealID, err := validators.ParseUUIDParam(r, "dealId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDealID(ctx, dealID.String())
		}
		deal, err := pick(svc)(ctx, dealID, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, deal)
	}
}

func DealGet(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealHandler(svc, logg, func(s deals.Service) dealAction { return s.Get })
}

// DealCheckout moves an OPEN deal to PENDING_PAYMENT.
func DealCheckout(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealHandler(svc, logg, func(s deals.Service) dealAction { return s.Checkout })
}

// DealPay records a simulated payment.
func DealPay(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealHandler(svc, logg, func(s deals.Service) dealAction { return s.SimulatePayment })
}

func DealComplete(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealHandler(svc, logg, func(s deals.Service) dealAction { return s.Complete })
}

func DealCancel(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return dealHandler(svc, logg, func(s deals.Service) dealAction { return s.Cancel })
}

// DealList returns every deal the caller takes part in.
func DealList(svc deals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "deals")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		rows, err := svc.ListForUser(r.Context(), identity.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

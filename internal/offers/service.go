// Package offers resolves buyer requests into deals through seller offers.
package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/internal/requests"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/payloads"
)

type Service interface {
	SubmitOffer(ctx context.Context, requestID uuid.UUID, actor auth.Identity, input SubmitOfferInput) (*models.Offer, error)
	ListForRequest(ctx context.Context, requestID uuid.UUID) ([]models.Offer, error)
	AcceptOffer(ctx context.Context, requestID, offerID uuid.UUID, actor auth.Identity) (*models.Deal, error)
}

type SubmitOfferInput struct {
	Description string
	Price       decimal.Decimal
}

type ServiceParams struct {
	Offers    *Repository
	Requests  *requests.Repository
	Deals     *deals.Repository
	DB        db.TxRunner
	Outbox    outbox.Emitter
	Notifier  notifications.Notifier
	Metrics   *metrics.MarketplaceMetrics
	Logger    *logger.Logger
	TxRetries int
}

type service struct {
	offers   *Repository
	requests *requests.Repository
	deals    *deals.Repository
	db       db.TxRunner
	outbox   outbox.Emitter
	notifier notifications.Notifier
	metrics  *metrics.MarketplaceMetrics
	logg     *logger.Logger
	retries  int
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Offers == nil || params.Requests == nil || params.Deals == nil {
		return nil, fmt.Errorf("offer, request and deal repositories required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		offers:   params.Offers,
		requests: params.Requests,
		deals:    params.Deals,
		db:       params.DB,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     logg,
		retries:  params.TxRetries,
		now:      time.Now,
	}, nil
}

func (s *service) SubmitOffer(ctx context.Context, requestID uuid.UUID, actor auth.Identity, input SubmitOfferInput) (*models.Offer, error) {
	if !actor.CanSell() {
		return nil, pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "only sellers can submit offers")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount, "price must be greater than zero")
	}
	if !models.WholeAmount(input.Price) {
		return nil, pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount,
			fmt.Sprintf("price must be a whole number of currency units no larger than %s", models.MaxAmount))
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, requestNotFoundOr(err)
	}
	if request.Status != enums.RequestStatusOpen {
		return nil, resolved()
	}
	if request.BuyerID == actor.UserID {
		return nil, pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "you cannot answer your own request")
	}

	now := s.now().UTC()
	offer := &models.Offer{
		RequestID:   request.ID,
		SellerID:    actor.UserID,
		Description: description,
		Price:       input.Price,
		Status:      enums.OfferStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert offer")
	}

	s.notifier.Notify(ctx, notifications.Notice{
		UserID:  request.BuyerID,
		Title:   "New Offer",
		Message: fmt.Sprintf("A seller offered %s %s for %q.", request.Currency, offer.Price.String(), request.Title),
		Type:    enums.NotificationTypeInfo,
		Link:    fmt.Sprintf("/requested-items/%s", request.ID),
	})
	return offer, nil
}

func (s *service) ListForRequest(ctx context.Context, requestID uuid.UUID) ([]models.Offer, error) {
	rows, err := s.offers.ListForRequest(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list offers")
	}
	return rows, nil
}

type acceptance struct {
	deal    models.Deal
	request models.Request
}

// AcceptOffer resolves the request with offerID: the offer is accepted, its
// pending siblings are declined and an OPEN deal is created, all in one
// transaction holding the request row.
func (s *service) AcceptOffer(ctx context.Context, requestID, offerID uuid.UUID, actor auth.Identity) (*models.Deal, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"request_id": requestID.String(),
		"offer_id":   offerID.String(),
		"user_id":    actor.UserID.String(),
	})

	var result acceptance
	err := db.WithRetry(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		accepted, err := s.acceptTx(ctx, tx, requestID, offerID, actor)
		if err != nil {
			return err
		}
		result = *accepted
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_deals_offer") {
			return nil, resolved()
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept offer")
	}

	s.metrics.IncDealCreated("offer")
	s.notifier.Notify(ctx, notifications.Notice{
		UserID:  result.deal.SellerID,
		Title:   "Offer Accepted",
		Message: fmt.Sprintf("Your offer for %q was accepted.", result.request.Title),
		Type:    enums.NotificationTypeSuccess,
		Link:    fmt.Sprintf("/deals/%s", result.deal.ID),
	})
	s.logg.Info(ctx, "offer accepted")
	return &result.deal, nil
}

func (s *service) acceptTx(ctx context.Context, tx *gorm.DB, requestID, offerID uuid.UUID, actor auth.Identity) (*acceptance, error) {
	now := s.now().UTC()
	requestRepo := s.requests.WithTx(tx)
	offerRepo := s.offers.WithTx(tx)

	request, err := requestRepo.FindByIDForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mismatch("request not found")
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	offer, err := offerRepo.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mismatch("offer not found")
		}
		return nil, fmt.Errorf("load offer: %w", err)
	}
	if offer.RequestID != request.ID {
		return nil, mismatch("offer does not belong to this request")
	}
	if !actor.Is(request.BuyerID) && !actor.IsAdmin() {
		return nil, pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "only the request owner can accept offers")
	}
	if request.Status.Resolved() {
		return nil, resolved()
	}

	if err := offerRepo.UpdateStatus(ctx, offer.ID, enums.OfferStatusAccepted, now); err != nil {
		return nil, fmt.Errorf("accept offer: %w", err)
	}
	declined, err := offerRepo.DeclinePendingExcept(ctx, request.ID, offer.ID, now)
	if err != nil {
		return nil, fmt.Errorf("decline sibling offers: %w", err)
	}
	if err := requestRepo.MarkOfferAccepted(ctx, request.ID, offer.ID, now); err != nil {
		return nil, fmt.Errorf("resolve request: %w", err)
	}
	request.Status = enums.RequestStatusOfferAccepted
	request.ChosenOfferID = &offer.ID

	deal := models.Deal{
		BuyerID:    request.BuyerID,
		SellerID:   offer.SellerID,
		RequestID:  &request.ID,
		OfferID:    &offer.ID,
		TotalPrice: offer.Price,
		Currency:   request.Currency,
		Status:     enums.DealStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.deals.WithTx(tx).Create(ctx, &deal); err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}

	actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
	events := []outbox.DomainEvent{
		{
			EventType:     enums.EventOfferAccepted,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Actor:         actorRef,
			OccurredAt:    now,
			Data: payloads.OfferAcceptedEvent{
				RequestID:       request.ID,
				OfferID:         offer.ID,
				DealID:          deal.ID,
				DeclinedOfferID: declined,
			},
		},
		{
			EventType:     enums.EventDealCreated,
			AggregateType: enums.AggregateDeal,
			AggregateID:   deal.ID,
			Actor:         actorRef,
			OccurredAt:    now,
			Data:          payloads.NewDealEvent(deal),
		},
	}
	for _, event := range events {
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("emit %s: %w", event.EventType, err)
		}
	}
	return &acceptance{deal: deal, request: *request}, nil
}

func resolved() error {
	return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonRequestResolved, "this request already has an accepted offer")
}

func requestNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load request")
}

// mismatch covers every way a request/offer pair fails to line up, including
// either side being absent, so the response never reveals which ids exist.
func mismatch(msg string) error {
	return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonMismatch, msg)
}

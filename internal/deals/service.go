package deals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/payloads"
)

const listLimit = 200

// Service drives deals through OPEN → PENDING_PAYMENT → PAID → COMPLETE,
// with CANCELLED reachable from the first two.
type Service interface {
	Get(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error)
	Checkout(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error)
	SimulatePayment(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error)
	Complete(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error)
	Cancel(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Deal, error)
}

type ServiceParams struct {
	Deals     *Repository
	Items     *items.Repository
	DB        db.TxRunner
	Outbox    outbox.Emitter
	Notifier  notifications.Notifier
	Logger    *logger.Logger
	TxRetries int
}

type service struct {
	deals    *Repository
	items    *items.Repository
	db       db.TxRunner
	outbox   outbox.Emitter
	notifier notifications.Notifier
	logg     *logger.Logger
	retries  int
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Deals == nil || params.Items == nil {
		return nil, fmt.Errorf("deal and item repositories required")
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
		deals:    params.Deals,
		items:    params.Items,
		db:       params.DB,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		logg:     logg,
		retries:  params.TxRetries,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error) {
	deal, err := s.deals.FindByID(ctx, dealID)
	if err != nil {
		return nil, notFoundOr(err, "load deal")
	}
	if !deal.IsParticipant(actor.UserID) && !actor.IsAdmin() {
		return nil, forbidden()
	}
	return deal, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Deal, error) {
	rows, err := s.deals.ListForUser(ctx, userID, listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list deals")
	}
	return rows, nil
}

// Checkout moves an accepted-offer deal into payment. Repeating it on a deal
// already awaiting payment returns the deal unchanged.
func (s *service) Checkout(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error) {
	deal, _, err := s.transition(ctx, dealID, func(tx *gorm.DB, deal *models.Deal) (enums.DealStatus, error) {
		if !actor.Is(deal.BuyerID) {
			return "", forbidden()
		}
		switch deal.Status {
		case enums.DealStatusPendingPayment:
			return "", nil
		case enums.DealStatusOpen:
			return enums.DealStatusPendingPayment, nil
		default:
			return "", invalidTransition(deal.Status, enums.DealStatusPendingPayment)
		}
	})
	return deal, err
}

// SimulatePayment settles a deal awaiting payment. Terminal and already paid
// deals are returned as they are.
func (s *service) SimulatePayment(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error) {
	deal, changed, err := s.transition(ctx, dealID, func(tx *gorm.DB, deal *models.Deal) (enums.DealStatus, error) {
		if !deal.IsParticipant(actor.UserID) && !actor.IsAdmin() {
			return "", forbidden()
		}
		switch deal.Status {
		case enums.DealStatusCancelled, enums.DealStatusComplete, enums.DealStatusPaid:
			return "", nil
		case enums.DealStatusOpen:
			return "", pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonInvalidTransition,
				"deal must be checked out before payment")
		}
		if deal.ItemID != nil {
			if err := s.items.WithTx(tx).UpdateStatus(ctx, *deal.ItemID, enums.ItemStatusSold); err != nil {
				return "", fmt.Errorf("mark item sold: %w", err)
			}
		}
		return enums.DealStatusPaid, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		link := fmt.Sprintf("/deals/%s", deal.ID)
		s.notifier.Notify(ctx,
			notifications.Notice{
				UserID:  deal.BuyerID,
				Title:   "Payment Successful",
				Message: fmt.Sprintf("Your payment of %s %s was received.", deal.Currency, deal.TotalPrice.String()),
				Type:    enums.NotificationTypeSuccess,
				Link:    link,
			},
			notifications.Notice{
				UserID:  deal.SellerID,
				Title:   "Item Sold!",
				Message: fmt.Sprintf("The buyer paid %s %s. Please arrange delivery.", deal.Currency, deal.TotalPrice.String()),
				Type:    enums.NotificationTypeSuccess,
				Link:    link,
			},
		)
	}
	return deal, nil
}

func (s *service) Complete(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error) {
	deal, _, err := s.transition(ctx, dealID, func(tx *gorm.DB, deal *models.Deal) (enums.DealStatus, error) {
		if !actor.Is(deal.SellerID) && !actor.IsAdmin() {
			return "", forbidden()
		}
		if !deal.Status.CanTransitionTo(enums.DealStatusComplete) {
			return "", invalidTransition(deal.Status, enums.DealStatusComplete)
		}
		return enums.DealStatusComplete, nil
	})
	return deal, err
}

// Cancel abandons a deal that has not been paid. A reserved direct item goes
// back on sale.
func (s *service) Cancel(ctx context.Context, dealID uuid.UUID, actor auth.Identity) (*models.Deal, error) {
	deal, _, err := s.transition(ctx, dealID, func(tx *gorm.DB, deal *models.Deal) (enums.DealStatus, error) {
		if !deal.IsParticipant(actor.UserID) && !actor.IsAdmin() {
			return "", forbidden()
		}
		if !deal.Status.CanTransitionTo(enums.DealStatusCancelled) {
			return "", invalidTransition(deal.Status, enums.DealStatusCancelled)
		}
		if deal.ItemID == nil {
			return enums.DealStatusCancelled, nil
		}
		itemRepo := s.items.WithTx(tx)
		item, err := itemRepo.FindByIDForUpdate(ctx, *deal.ItemID)
		if err != nil {
			return "", fmt.Errorf("lock item: %w", err)
		}
		if item.Status == enums.ItemStatusReserved {
			if err := itemRepo.UpdateStatus(ctx, item.ID, enums.ItemStatusPublished); err != nil {
				return "", fmt.Errorf("release item: %w", err)
			}
		}
		return enums.DealStatusCancelled, nil
	})
	return deal, err
}

// decideFunc inspects the locked deal and returns the next status, or an
// empty status to leave the deal untouched.
type decideFunc func(tx *gorm.DB, deal *models.Deal) (enums.DealStatus, error)

func (s *service) transition(ctx context.Context, dealID uuid.UUID, decide decideFunc) (*models.Deal, bool, error) {
	ctx = s.logg.WithDealID(ctx, dealID.String())
	var (
		result  *models.Deal
		changed bool
	)
	err := db.WithRetry(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		result, changed = nil, false
		deal, err := s.deals.WithTx(tx).FindByIDForUpdate(ctx, dealID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
			}
			return fmt.Errorf("lock deal: %w", err)
		}
		next, err := decide(tx, deal)
		if err != nil {
			return err
		}
		if next == "" {
			result = deal
			return nil
		}
		if !deal.Status.CanTransitionTo(next) {
			return invalidTransition(deal.Status, next)
		}
		now := s.now().UTC()
		if err := s.deals.WithTx(tx).UpdateStatus(ctx, deal.ID, next, now); err != nil {
			return fmt.Errorf("update deal status: %w", err)
		}
		deal.Status = next
		deal.UpdatedAt = now
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventFor(next),
			AggregateType: enums.AggregateDeal,
			AggregateID:   deal.ID,
			OccurredAt:    now,
			Data:          payloads.NewDealEvent(*deal),
		}); err != nil {
			return fmt.Errorf("emit deal event: %w", err)
		}
		result, changed = deal, true
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, false, err
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deal transition")
	}
	if changed {
		s.logg.Info(ctx, "deal moved to "+string(result.Status))
	}
	return result, changed, nil
}

func eventFor(status enums.DealStatus) enums.OutboxEventType {
	switch status {
	case enums.DealStatusPendingPayment:
		return enums.EventDealCheckout
	case enums.DealStatusPaid:
		return enums.EventDealPaid
	case enums.DealStatusComplete:
		return enums.EventDealCompleted
	case enums.DealStatusCancelled:
		return enums.EventDealCancelled
	default:
		return enums.EventDealCreated
	}
}

func forbidden() error {
	return pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "you are not a participant of this deal")
}

func invalidTransition(from, to enums.DealStatus) error {
	return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonInvalidTransition,
		fmt.Sprintf("deal cannot move from %s to %s", from, to))
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "deal not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+op)
}

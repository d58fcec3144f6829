// Package reservations holds direct-sale items for a single buyer while they
// pay.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/internal/items"
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
	ReserveOrResume(ctx context.Context, itemID, buyerID uuid.UUID) (*models.Deal, error)
}

type ServiceParams struct {
	Items     *items.Repository
	Deals     *deals.Repository
	DB        db.TxRunner
	Outbox    outbox.Emitter
	Metrics   *metrics.MarketplaceMetrics
	Logger    *logger.Logger
	TxRetries int
}

type service struct {
	items   *items.Repository
	deals   *deals.Repository
	db      db.TxRunner
	outbox  outbox.Emitter
	metrics *metrics.MarketplaceMetrics
	logg    *logger.Logger
	retries int
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Items == nil || params.Deals == nil {
		return nil, fmt.Errorf("item and deal repositories required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		items:   params.Items,
		deals:   params.Deals,
		db:      params.DB,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    logg,
		retries: params.TxRetries,
		now:     time.Now,
	}, nil
}

// ReserveOrResume creates a PENDING_PAYMENT deal for buyerID at the item's
// buy-now price, or hands back the buyer's existing active deal.
func (s *service) ReserveOrResume(ctx context.Context, itemID, buyerID uuid.UUID) (*models.Deal, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"item_id":  itemID.String(),
		"buyer_id": buyerID.String(),
	})

	var (
		result  *models.Deal
		created bool
	)
	err := db.WithRetry(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		deal, isNew, err := s.reserveTx(ctx, tx, itemID, buyerID)
		if err != nil {
			return err
		}
		result, created = deal, isNew
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, deals.ActiveItemIndex) {
			return nil, alreadyReserved()
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve item")
	}
	if created {
		s.metrics.IncDealCreated("direct")
		s.logg.Info(ctx, "item reserved")
	}
	return result, nil
}

func (s *service) reserveTx(ctx context.Context, tx *gorm.DB, itemID, buyerID uuid.UUID) (*models.Deal, bool, error) {
	itemRepo := s.items.WithTx(tx)
	dealRepo := s.deals.WithTx(tx)
	now := s.now().UTC()

	item, err := itemRepo.FindByIDForUpdate(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, false, fmt.Errorf("lock item: %w", err)
	}
	active, err := dealRepo.ActiveForItem(ctx, item.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load active deals: %w", err)
	}
	if err := checkReservable(item, buyerID); err != nil {
		return nil, false, err
	}

	for i := range active {
		deal := active[i]
		if deal.BuyerID != buyerID {
			return nil, false, alreadyReserved()
		}
		if deal.Status == enums.DealStatusPaid {
			continue
		}
		if item.Status != enums.ItemStatusReserved {
			if err := itemRepo.UpdateStatus(ctx, item.ID, enums.ItemStatusReserved); err != nil {
				return nil, false, fmt.Errorf("reserve item: %w", err)
			}
		}
		if deal.Status == enums.DealStatusOpen {
			if err := dealRepo.UpdateStatus(ctx, deal.ID, enums.DealStatusPendingPayment, now); err != nil {
				return nil, false, fmt.Errorf("resume deal: %w", err)
			}
			deal.Status = enums.DealStatusPendingPayment
			deal.UpdatedAt = now
		}
		return &deal, false, nil
	}
	if len(active) > 0 {
		// the buyer already paid for this item
		return nil, false, pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonItemUnavailable, "this item has already been paid for")
	}

	deal := &models.Deal{
		BuyerID:    buyerID,
		SellerID:   item.SellerID,
		ItemID:     &item.ID,
		TotalPrice: *item.BuyNowPrice,
		Currency:   item.Currency,
		Status:     enums.DealStatusPendingPayment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := dealRepo.Create(ctx, deal); err != nil {
		return nil, false, fmt.Errorf("create deal: %w", err)
	}
	if err := itemRepo.UpdateStatus(ctx, item.ID, enums.ItemStatusReserved); err != nil {
		return nil, false, fmt.Errorf("reserve item: %w", err)
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDealCreated,
		AggregateType: enums.AggregateDeal,
		AggregateID:   deal.ID,
		Actor:         &outbox.ActorRef{UserID: buyerID},
		OccurredAt:    now,
		Data:          payloads.NewDealEvent(*deal),
	}); err != nil {
		return nil, false, fmt.Errorf("emit deal created: %w", err)
	}
	return deal, true, nil
}

func checkReservable(item *models.Item, buyerID uuid.UUID) error {
	if item.SaleType != enums.SaleTypeDirect {
		return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonNotDirectSale, "item is not available for direct purchase")
	}
	if !item.Status.Purchasable() {
		return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonItemUnavailable, "item is not available")
	}
	if item.BuyNowPrice == nil || !item.BuyNowPrice.IsPositive() {
		return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonPriceMissing, "item has no buy-now price")
	}
	if item.SellerID == buyerID {
		return pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonSelfPurchaseForbidden, "you cannot buy your own listing")
	}
	return nil
}

func alreadyReserved() error {
	return pkgerrors.Rejection(pkgerrors.CodeConflict, pkgerrors.ReasonItemAlreadyReserved, "item is already reserved by another buyer")
}

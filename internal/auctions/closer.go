// Package auctions settles auctions whose deadline has passed.
package auctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/bids"
	"github.com/angelmondragon/jewelbid-backend/internal/deals"
	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/payloads"
)

const defaultBatchSize = 100

// Outcome statuses reported per processed item.
const (
	StatusSold   = "SOLD"
	StatusNoBids = "NO_BIDS"
)

type Outcome struct {
	ItemID   uuid.UUID  `json:"id"`
	DealID   *uuid.UUID `json:"dealId"`
	Status   string     `json:"status"`
	WinnerID *uuid.UUID `json:"winner"`
}

type Result struct {
	Processed int       `json:"processed"`
	Outcomes  []Outcome `json:"details"`
}

// Closer resolves expired auctions into deals.
type Closer interface {
	CloseExpiredAuctions(ctx context.Context, now time.Time) (Result, error)
}

type CloserParams struct {
	Items     *items.Repository
	Bids      *bids.Repository
	Deals     *deals.Repository
	Events    *outbox.Repository
	DB        db.TxRunner
	Outbox    outbox.Emitter
	Notifier  notifications.Notifier
	Metrics   *metrics.MarketplaceMetrics
	Logger    *logger.Logger
	BatchSize int
	TxRetries int
}

type closer struct {
	items     *items.Repository
	bids      *bids.Repository
	deals     *deals.Repository
	events    *outbox.Repository
	db        db.TxRunner
	outbox    outbox.Emitter
	notifier  notifications.Notifier
	metrics   *metrics.MarketplaceMetrics
	logg      *logger.Logger
	batchSize int
	retries   int
}

func NewCloser(params CloserParams) (Closer, error) {
	if params.Items == nil || params.Bids == nil || params.Deals == nil || params.Events == nil {
		return nil, fmt.Errorf("item, bid, deal and outbox repositories required")
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
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &closer{
		items:     params.Items,
		bids:      params.Bids,
		deals:     params.Deals,
		events:    params.Events,
		db:        params.DB,
		outbox:    params.Outbox,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      logg,
		batchSize: batch,
		retries:   params.TxRetries,
	}, nil
}

// CloseExpiredAuctions settles every expired, unsettled auction at now. Each
// item commits on its own; failures are collected and returned with the
// outcomes that did succeed.
func (c *closer) CloseExpiredAuctions(ctx context.Context, now time.Time) (Result, error) {
	now = now.UTC()
	result := Result{Outcomes: []Outcome{}}

	candidates, err := c.items.ListExpiredAuctions(ctx, now, c.batchSize)
	if err != nil {
		return result, fmt.Errorf("list expired auctions: %w", err)
	}

	var errs error
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		outcome, item, err := c.closeOne(ctx, candidate.ID, now)
		if err != nil {
			c.logg.Error(c.logg.WithItemID(ctx, candidate.ID.String()), "close auction failed", err)
			errs = multierr.Append(errs, fmt.Errorf("item %s: %w", candidate.ID, err))
			continue
		}
		if outcome == nil {
			continue
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		c.metrics.IncAuctionClosed(outcome.Status)
		if outcome.DealID != nil {
			c.metrics.IncDealCreated("auction")
		}
		c.notifyClosed(ctx, item, *outcome)
	}
	result.Processed = len(result.Outcomes)
	return result, errs
}

// closeOne returns a nil outcome when another closer got to the item first.
func (c *closer) closeOne(ctx context.Context, itemID uuid.UUID, now time.Time) (*Outcome, models.Item, error) {
	var (
		outcome *Outcome
		closed  models.Item
	)
	err := db.WithRetry(ctx, c.db, c.retries, func(tx *gorm.DB) error {
		outcome = nil
		itemRepo := c.items.WithTx(tx)

		item, err := itemRepo.FindByIDForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("lock item: %w", err)
		}
		if item.SaleType != enums.SaleTypeAuction || item.Status != enums.ItemStatusPublished || item.AuctionOpenAt(now) {
			return nil
		}
		settled, err := c.events.HasEvent(ctx, tx, item.ID, enums.EventAuctionClosed)
		if err != nil {
			return fmt.Errorf("check closed marker: %w", err)
		}
		if settled {
			return nil
		}

		leader, err := c.bids.WithTx(tx).Leader(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("load leading bid: %w", err)
		}

		out := &Outcome{ItemID: item.ID, Status: StatusNoBids}
		event := payloads.AuctionClosedEvent{ItemID: item.ID, SellerID: item.SellerID, Outcome: StatusNoBids}
		if leader != nil {
			deal := &models.Deal{
				BuyerID:    leader.BidderID,
				SellerID:   item.SellerID,
				ItemID:     &item.ID,
				TotalPrice: leader.Amount,
				Currency:   item.Currency,
				Status:     enums.DealStatusPendingPayment,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := c.deals.WithTx(tx).Create(ctx, deal); err != nil {
				return fmt.Errorf("create deal: %w", err)
			}
			if err := itemRepo.UpdateStatus(ctx, item.ID, enums.ItemStatusSold); err != nil {
				return fmt.Errorf("mark item sold: %w", err)
			}
			item.Status = enums.ItemStatusSold
			winner := leader.BidderID
			out.Status, out.DealID, out.WinnerID = StatusSold, &deal.ID, &winner
			event.Outcome, event.DealID, event.WinnerID, event.Amount = StatusSold, &deal.ID, &winner, &leader.Amount
		}

		if err := c.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuctionClosed,
			AggregateType: enums.AggregateItem,
			AggregateID:   item.ID,
			OccurredAt:    now,
			Data:          event,
		}); err != nil {
			return fmt.Errorf("emit auction closed: %w", err)
		}
		outcome, closed = out, *item
		return nil
	})
	if err != nil {
		return nil, models.Item{}, err
	}
	return outcome, closed, nil
}

func (c *closer) notifyClosed(ctx context.Context, item models.Item, outcome Outcome) {
	if outcome.Status == StatusNoBids {
		c.notifier.Notify(ctx, notifications.Notice{
			UserID:  item.SellerID,
			Title:   "Auction Ended",
			Message: fmt.Sprintf("Your auction for %q ended with no bids.", item.Title),
			Type:    enums.NotificationTypeWarning,
			Link:    "/account/listings",
		})
		return
	}
	c.notifier.Notify(ctx,
		notifications.Notice{
			UserID:  *outcome.WinnerID,
			Title:   "You Won!",
			Message: fmt.Sprintf("You won the auction for %q. Complete your payment to claim it.", item.Title),
			Type:    enums.NotificationTypeSuccess,
			Link:    fmt.Sprintf("/checkout/%s", *outcome.DealID),
		},
		notifications.Notice{
			UserID:  item.SellerID,
			Title:   "Auction Ended",
			Message: fmt.Sprintf("Your auction for %q has ended with a winning bid.", item.Title),
			Type:    enums.NotificationTypeInfo,
			Link:    "/account/listings",
		},
	)
}

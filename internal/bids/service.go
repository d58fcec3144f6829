package bids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/metrics"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/payloads"
)

const (
	defaultAntiSnipeWindow = 5 * time.Minute
	listLimit              = 200
)

// Service accepts bids against live auctions.
type Service interface {
	PlaceBid(ctx context.Context, itemID, bidderID uuid.UUID, amount decimal.Decimal) (*models.Bid, error)
	ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.Bid, error)
	ListForBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error)
}

type ServiceParams struct {
	Items           *items.Repository
	Bids            *Repository
	DB              db.TxRunner
	Outbox          outbox.Emitter
	Notifier        notifications.Notifier
	Metrics         *metrics.MarketplaceMetrics
	Logger          *logger.Logger
	AntiSnipeWindow time.Duration
	MinIncrement    decimal.Decimal
	TxRetries       int
}

type service struct {
	items        *items.Repository
	bids         *Repository
	db           db.TxRunner
	outbox       outbox.Emitter
	notifier     notifications.Notifier
	metrics      *metrics.MarketplaceMetrics
	logg         *logger.Logger
	window       time.Duration
	minIncrement decimal.Decimal
	retries      int
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Items == nil || params.Bids == nil {
		return nil, fmt.Errorf("item and bid repositories required")
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
	window := params.AntiSnipeWindow
	if window <= 0 {
		window = defaultAntiSnipeWindow
	}
	increment := params.MinIncrement
	if !increment.IsPositive() {
		increment = decimal.NewFromInt(1)
	}
	return &service{
		items:        params.Items,
		bids:         params.Bids,
		db:           params.DB,
		outbox:       params.Outbox,
		notifier:     params.Notifier,
		metrics:      params.Metrics,
		logg:         logg,
		window:       window,
		minIncrement: increment,
		retries:      params.TxRetries,
		now:          time.Now,
	}, nil
}

type placement struct {
	bid            models.Bid
	item           models.Item
	previousLeader *uuid.UUID
	extended       bool
}

// PlaceBid validates and records a bid. The item row stays locked for the
// whole check-then-insert sequence so concurrent bids observe each other.
func (s *service) PlaceBid(ctx context.Context, itemID, bidderID uuid.UUID, amount decimal.Decimal) (*models.Bid, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"item_id":   itemID.String(),
		"bidder_id": bidderID.String(),
	})

	var result placement
	err := db.WithRetry(ctx, s.db, s.retries, func(tx *gorm.DB) error {
		placed, err := s.placeTx(ctx, tx, itemID, bidderID, amount)
		if err != nil {
			return err
		}
		result = *placed
		return nil
	})
	if err != nil {
		s.observe(err)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place bid")
	}
	s.observe(nil)
	if result.extended {
		s.metrics.IncAuctionExtended()
	}

	s.notifyPlaced(ctx, result)
	s.logg.Info(ctx, "bid accepted")
	return &result.bid, nil
}

// placeTx returns raw storage errors so WithRetry can replay serialization
// failures; typed rejections stop the retry loop.
func (s *service) placeTx(ctx context.Context, tx *gorm.DB, itemID, bidderID uuid.UUID, amount decimal.Decimal) (*placement, error) {
	now := s.now().UTC()
	itemRepo := s.items.WithTx(tx)
	bidRepo := s.bids.WithTx(tx)

	item, err := itemRepo.FindByIDForUpdate(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, fmt.Errorf("lock item: %w", err)
	}
	if err := checkBiddable(item, bidderID, amount, now); err != nil {
		return nil, err
	}

	leader, err := bidRepo.Leader(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load leading bid: %w", err)
	}
	var highest *decimal.Decimal
	if leader != nil {
		highest = &leader.Amount
	}
	minimum := MinimumBid(highest, item.StartingPrice, s.minIncrement)
	if amount.LessThan(minimum) {
		return nil, bidTooLow(item.Currency, minimum)
	}

	out := &placement{item: *item}
	if leader != nil {
		prev := leader.BidderID
		out.previousLeader = &prev
	}

	if item.AuctionEnd != nil && item.AuctionEnd.Sub(now) < s.window {
		newEnd := now.Add(s.window)
		if newEnd.After(*item.AuctionEnd) {
			if err := itemRepo.UpdateAuctionEnd(ctx, item.ID, newEnd); err != nil {
				return nil, fmt.Errorf("extend auction: %w", err)
			}
			out.item.AuctionEnd = &newEnd
			out.extended = true
		}
	}

	out.bid = models.Bid{
		ItemID:    item.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := bidRepo.Create(ctx, &out.bid); err != nil {
		return nil, fmt.Errorf("insert bid: %w", err)
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventBidPlaced,
		AggregateType: enums.AggregateItem,
		AggregateID:   item.ID,
		Actor:         &outbox.ActorRef{UserID: bidderID},
		OccurredAt:    now,
		Data: payloads.BidPlacedEvent{
			BidID:         out.bid.ID,
			ItemID:        item.ID,
			BidderID:      bidderID,
			Amount:        amount,
			AuctionEnd:    out.item.AuctionEnd,
			AuctionExtend: out.extended,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("emit bid placed: %w", err)
	}
	return out, nil
}

// checkBiddable applies the bid preconditions in their fixed order; the first
// failing rule decides the rejection.
func checkBiddable(item *models.Item, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) error {
	if item.SaleType != enums.SaleTypeAuction {
		return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonNotAnAuction, "item is not sold by auction")
	}
	if item.Status != enums.ItemStatusPublished {
		return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonAuctionNotOpen, "this auction is not open for bidding")
	}
	if !item.AuctionOpenAt(now) {
		return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonAuctionEnded, "this auction has already ended")
	}
	if item.SellerID == bidderID {
		return pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonSelfBiddingForbidden, "you cannot bid on your own listing")
	}
	if !amount.IsPositive() {
		return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount, "bid amount must be greater than zero")
	}
	if !models.WholeAmount(amount) {
		return wholeAmountRequired("bid amount")
	}
	return nil
}

// MinimumBid is max(highest, starting, 0) + increment.
func MinimumBid(highest *decimal.Decimal, starting, increment decimal.Decimal) decimal.Decimal {
	base := decimal.Max(starting, decimal.Zero)
	if highest != nil {
		base = decimal.Max(base, *highest)
	}
	return base.Add(increment)
}

func wholeAmountRequired(field string) error {
	return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount,
		fmt.Sprintf("%s must be a whole number of currency units no larger than %s", field, models.MaxAmount))
}

func bidTooLow(currency enums.Currency, minimum decimal.Decimal) error {
	return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonBidTooLow,
		fmt.Sprintf("Bid too low. Minimum allowed is %s %s", currency, minimum.String())).
		WithDetails(map[string]any{
			"minimum":  minimum,
			"currency": currency,
		})
}

func (s *service) notifyPlaced(ctx context.Context, p placement) {
	link := fmt.Sprintf("/auctions/%s", p.item.ID)
	notices := []notifications.Notice{{
		UserID:  p.item.SellerID,
		Title:   "New Bid",
		Message: fmt.Sprintf("A new bid of %s %s was placed on %q.", p.item.Currency, p.bid.Amount.String(), p.item.Title),
		Type:    enums.NotificationTypeInfo,
		Link:    link,
	}}
	if p.previousLeader != nil && *p.previousLeader != p.bid.BidderID {
		notices = append(notices, notifications.Notice{
			UserID:  *p.previousLeader,
			Title:   "You've been outbid!",
			Message: fmt.Sprintf("Someone placed a higher bid on %q. Check it out now.", p.item.Title),
			Type:    enums.NotificationTypeWarning,
			Link:    link,
		})
	}
	s.notifier.Notify(ctx, notices...)
}

func (s *service) observe(err error) {
	switch {
	case err == nil:
		s.metrics.ObserveBid(metrics.BidOutcomeAccepted, "")
	case pkgerrors.ReasonOf(err) != "":
		s.metrics.ObserveBid(metrics.BidOutcomeRejected, pkgerrors.ReasonOf(err))
	default:
		s.metrics.ObserveBid(metrics.BidOutcomeError, "")
	}
}

func (s *service) ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.Bid, error) {
	rows, err := s.bids.ListForItem(ctx, itemID, listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list bids")
	}
	return rows, nil
}

func (s *service) ListForBidder(ctx context.Context, bidderID uuid.UUID) ([]models.Bid, error) {
	rows, err := s.bids.ListForBidder(ctx, bidderID, listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list bids")
	}
	return rows, nil
}

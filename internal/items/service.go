package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

const (
	liveListLimit = 100
	// DefaultCatalogueLimit sizes the direct and ended listings.
	DefaultCatalogueLimit = 24
)

// Service manages listings.
type Service interface {
	Create(ctx context.Context, actor auth.Identity, input CreateItemInput) (*ItemView, error)
	Publish(ctx context.Context, actor auth.Identity, itemID uuid.UUID) (*ItemView, error)
	Get(ctx context.Context, itemID uuid.UUID) (*ItemView, error)
	ListLive(ctx context.Context, now time.Time) ([]ItemView, error)
	ListDirect(ctx context.Context, limit int) ([]ItemView, error)
	ListEnded(ctx context.Context, now time.Time, limit int) ([]ItemView, error)
	ListMine(ctx context.Context, actor auth.Identity) ([]ItemView, error)
}

type CreateItemInput struct {
	Title         string
	Description   *string
	Category      *string
	SaleType      enums.SaleType
	Currency      string
	StartingPrice *decimal.Decimal
	BuyNowPrice   *decimal.Decimal
	AuctionEnd    *time.Time
	Publish       bool
}

// ItemView is an item with its effective current price.
type ItemView struct {
	models.Item
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	BidCount     int64           `json:"bidCount"`
}

type service struct {
	repo            *Repository
	tx              db.TxRunner
	defaultCurrency enums.Currency
	now             func() time.Time
}

func NewService(repo *Repository, tx db.TxRunner, defaultCurrency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if !defaultCurrency.IsValid() {
		defaultCurrency = enums.CurrencyUSD
	}
	return &service{repo: repo, tx: tx, defaultCurrency: defaultCurrency, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Identity, input CreateItemInput) (*ItemView, error) {
	if !actor.CanSell() && !actor.IsAdmin() {
		return nil, pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "seller role required to list items")
	}
	item, err := s.buildItem(actor.UserID, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert item")
	}
	return &ItemView{Item: *item, CurrentPrice: item.CurrentPrice(nil)}, nil
}

func (s *service) buildItem(sellerID uuid.UUID, input CreateItemInput) (*models.Item, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.SaleType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saleType must be AUCTION or DIRECT")
	}
	currency, err := enums.ParseCurrency(input.Currency, s.defaultCurrency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}

	item := &models.Item{
		SellerID:      sellerID,
		Title:         title,
		Description:   input.Description,
		Category:      input.Category,
		SaleType:      input.SaleType,
		Status:        enums.ItemStatusDraft,
		Currency:      currency,
		StartingPrice: decimal.Zero,
	}

	switch input.SaleType {
	case enums.SaleTypeDirect:
		if input.BuyNowPrice == nil || !input.BuyNowPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyNowPrice must be greater than zero for direct sales")
		}
		item.BuyNowPrice = input.BuyNowPrice
	case enums.SaleTypeAuction:
		if input.StartingPrice != nil {
			if input.StartingPrice.IsNegative() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "startingPrice cannot be negative")
			}
			if !models.WholeAmount(*input.StartingPrice) {
				return nil, invalidPrice("startingPrice")
			}
			item.StartingPrice = *input.StartingPrice
		}
		if input.AuctionEnd != nil {
			end := input.AuctionEnd.UTC()
			if !end.After(s.now().UTC()) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "auctionEnd must be in the future")
			}
			item.AuctionEnd = &end
		}
		item.BuyNowPrice = input.BuyNowPrice
	}

	if item.BuyNowPrice != nil && !models.WholeAmount(*item.BuyNowPrice) {
		return nil, invalidPrice("buyNowPrice")
	}
	if input.Publish {
		item.Status = enums.ItemStatusPublished
	}
	return item, nil
}

func invalidPrice(field string) error {
	return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount,
		fmt.Sprintf("%s must be a whole number of currency units no larger than %s", field, models.MaxAmount))
}

func (s *service) Publish(ctx context.Context, actor auth.Identity, itemID uuid.UUID) (*ItemView, error) {
	var published *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return notFoundOr(err, "load item")
		}
		if item.SellerID != actor.UserID && !actor.IsAdmin() {
			return pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "only the seller can publish this item")
		}
		switch item.Status {
		case enums.ItemStatusPublished:
			published = item
			return nil
		case enums.ItemStatusDraft, enums.ItemStatusHidden:
		default:
			return pkgerrors.Rejection(pkgerrors.CodeStateConflict, pkgerrors.ReasonItemUnavailable,
				fmt.Sprintf("item in status %s cannot be published", item.Status))
		}
		if item.SaleType == enums.SaleTypeDirect && item.BuyNowPrice == nil {
			return pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonPriceMissing, "direct items need a buy now price before publication")
		}
		if err := repo.UpdateStatus(ctx, item.ID, enums.ItemStatusPublished); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: publish item")
		}
		item.Status = enums.ItemStatusPublished
		published = item
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "publish item")
	}
	return s.view(ctx, *published)
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*ItemView, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFoundOr(err, "load item")
	}
	return s.view(ctx, *item)
}

func (s *service) ListLive(ctx context.Context, now time.Time) ([]ItemView, error) {
	rows, err := s.repo.ListLiveAuctions(ctx, now.UTC(), liveListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list live auctions")
	}
	return s.views(ctx, rows)
}

func (s *service) ListDirect(ctx context.Context, limit int) ([]ItemView, error) {
	rows, err := s.repo.ListDirect(ctx, catalogueLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list direct items")
	}
	return s.views(ctx, rows)
}

// ListEnded lists auctions that ran out without a sale. Views carry the
// final bid stats.
func (s *service) ListEnded(ctx context.Context, now time.Time, limit int) ([]ItemView, error) {
	rows, err := s.repo.ListEnded(ctx, now.UTC(), catalogueLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list ended auctions")
	}
	return s.views(ctx, rows)
}

func catalogueLimit(limit int) int {
	if limit <= 0 {
		return DefaultCatalogueLimit
	}
	return min(limit, liveListLimit)
}

func (s *service) ListMine(ctx context.Context, actor auth.Identity) ([]ItemView, error) {
	rows, err := s.repo.ListBySeller(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list seller items")
	}
	return s.views(ctx, rows)
}

func (s *service) view(ctx context.Context, item models.Item) (*ItemView, error) {
	views, err := s.views(ctx, []models.Item{item})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *service) views(ctx context.Context, rows []models.Item) ([]ItemView, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	stats, err := s.repo.BidStatsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bid stats")
	}
	out := make([]ItemView, 0, len(rows))
	for _, row := range rows {
		st := stats[row.ID]
		out = append(out, ItemView{Item: row, CurrentPrice: row.CurrentPrice(st.Highest), BidCount: st.Count})
	}
	return out, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+op)
}

func asTyped(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

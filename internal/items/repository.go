package items

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Repository persists listings. Every other marketplace package goes through
// it to read or mutate item rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID returns gorm.ErrRecordNotFound when the item does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate loads the item holding a row lock until the surrounding
// transaction ends. Must be called on a transaction-bound repository.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ItemStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) UpdateAuctionEnd(ctx context.Context, id uuid.UUID, end time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]any{"auction_end": end, "updated_at": time.Now().UTC()}).Error
}

// ListExpiredAuctions returns published auctions whose end is at or before
// now and that were never closed, oldest end first. An auction_closed outbox
// row marks an auction as processed even when it stays PUBLISHED.
func (r *Repository) ListExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]models.Item, error) {
	var rows []models.Item
	q := r.db.WithContext(ctx).
		Where("sale_type = ? AND status = ?", enums.SaleTypeAuction, enums.ItemStatusPublished).
		Where("auction_end IS NOT NULL AND auction_end <= ?", now).
		Where("NOT EXISTS (SELECT 1 FROM outbox_events oe WHERE oe.aggregate_id = items.id AND oe.event_type = ?)", enums.EventAuctionClosed).
		Order("auction_end ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ListLiveAuctions returns published auctions still accepting bids at now.
// Open-ended auctions sort last.
func (r *Repository) ListLiveAuctions(ctx context.Context, now time.Time, limit int) ([]models.Item, error) {
	var rows []models.Item
	q := r.db.WithContext(ctx).
		Where("sale_type = ? AND status = ?", enums.SaleTypeAuction, enums.ItemStatusPublished).
		Where("auction_end IS NULL OR auction_end > ?", now).
		Order("CASE WHEN auction_end IS NULL THEN 1 ELSE 0 END").
		Order("auction_end ASC").
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ListDirect returns published fixed-price items that carry a buy now
// price, newest first.
func (r *Repository) ListDirect(ctx context.Context, limit int) ([]models.Item, error) {
	var rows []models.Item
	q := r.db.WithContext(ctx).
		Where("sale_type = ? AND status = ?", enums.SaleTypeDirect, enums.ItemStatusPublished).
		Where("buy_now_price IS NOT NULL").
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ListEnded returns auctions past their end that are still PUBLISHED, most
// recently ended first. Closed auctions with a winner are SOLD and excluded.
func (r *Repository) ListEnded(ctx context.Context, now time.Time, limit int) ([]models.Item, error) {
	var rows []models.Item
	q := r.db.WithContext(ctx).
		Where("sale_type = ? AND status = ?", enums.SaleTypeAuction, enums.ItemStatusPublished).
		Where("auction_end IS NOT NULL AND auction_end <= ?", now).
		Order("auction_end DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Item, error) {
	var rows []models.Item
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// BidStats summarises the bids placed on one item.
type BidStats struct {
	ItemID  uuid.UUID
	Highest *decimal.Decimal
	Count   int64
}

// BidStatsFor aggregates bids for the given items. Items without bids are
// absent from the result.
func (r *Repository) BidStatsFor(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]BidStats, error) {
	out := make(map[uuid.UUID]BidStats, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	type row struct {
		ItemID  uuid.UUID
		Highest decimal.Decimal
		Count   int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Select("item_id, MAX(amount) AS highest, COUNT(*) AS count").
		Where("item_id IN ?", itemIDs).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		highest := r.Highest
		out[r.ItemID] = BidStats{ItemID: r.ItemID, Highest: &highest, Count: r.Count}
	}
	return out, nil
}

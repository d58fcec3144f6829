package deals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// ActiveItemIndex is the partial unique index allowing one non-cancelled
// deal per item.
const ActiveItemIndex = "ux_deals_active_item"

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

func (r *Repository) Create(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// ActiveForItem returns the item's deals in OPEN, PENDING_PAYMENT or PAID,
// oldest first.
func (r *Repository) ActiveForItem(ctx context.Context, itemID uuid.UUID) ([]models.Deal, error) {
	var rows []models.Deal
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND status IN ?", itemID, enums.ActiveDealStatuses).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// FindByOffer returns the deal created from offerID, or nil.
func (r *Repository) FindByOffer(ctx context.Context, offerID uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).Where("offer_id = ?", offerID).First(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DealStatus, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": now}).Error
}

// ListForUser returns deals where userID is buyer or seller, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Deal, error) {
	var rows []models.Deal
	q := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

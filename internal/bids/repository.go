package bids

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
)

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

func (r *Repository) Create(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// Leader returns the winning bid for the item: highest amount, earliest
// placement on ties. It returns nil when the item has no bids.
func (r *Repository) Leader(ctx context.Context, itemID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("amount DESC").
		Order("created_at ASC").
		Order("id ASC").
		First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *Repository) ListForItem(ctx context.Context, itemID uuid.UUID, limit int) ([]models.Bid, error) {
	var rows []models.Bid
	q := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("amount DESC").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) ListForBidder(ctx context.Context, bidderID uuid.UUID, limit int) ([]models.Bid, error) {
	var rows []models.Bid
	q := r.db.WithContext(ctx).
		Where("bidder_id = ?", bidderID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

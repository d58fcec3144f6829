package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx binds the repository to tx. A nil tx keeps the pooled connection.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) first(q *gorm.DB, where string, arg any) (*models.User, error) {
	var user models.User
	if err := q.Where(where, arg).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail expects an already lowercased address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx), "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate row-locks the user until the surrounding tx ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(db.ForUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values).Error
}

func (r *Repository) UpdateRoleStatus(ctx context.Context, id uuid.UUID, role enums.UserRole, status enums.SellerStatus) error {
	return r.update(ctx, id, map[string]any{
		"role":          role,
		"seller_status": status,
		"updated_at":    time.Now().UTC(),
	})
}

// UpdatePasswordHash stores a hash recomputed with the current argon2
// parameters.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": hash})
}

// ListPendingSellers returns the seller verification queue, oldest first.
func (r *Repository) ListPendingSellers(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("seller_status = ?", enums.SellerStatusPending).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

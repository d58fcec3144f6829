package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string             `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string             `gorm:"column:password_hash;not null" json:"-"`
	Name         string             `gorm:"column:name;not null" json:"name"`
	Role         enums.UserRole     `gorm:"column:role;type:user_role;not null" json:"role"`
	SellerStatus enums.SellerStatus `gorm:"column:seller_status;type:seller_status;not null" json:"sellerStatus"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

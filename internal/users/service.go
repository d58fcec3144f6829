package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/notifications"
	"github.com/angelmondragon/jewelbid-backend/pkg/auth"
	"github.com/angelmondragon/jewelbid-backend/pkg/db"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

// Service covers profile reads and the seller approval workflow.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	RequestSellerAccess(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	VerifySeller(ctx context.Context, admin auth.Identity, userID uuid.UUID) (*UserDTO, error)
	ListPendingSellers(ctx context.Context, admin auth.Identity) ([]UserDTO, error)
}

type service struct {
	repo     *Repository
	db       db.TxRunner
	notifier notifications.Notifier
}

func NewService(repo *Repository, tx db.TxRunner, notifier notifications.Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{repo: repo, db: tx, notifier: notifier}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return FromModel(user), nil
}

// RequestSellerAccess queues the user for seller verification. Users already
// pending or approved are returned unchanged.
func (s *service) RequestSellerAccess(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	var out *models.User
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return notFoundOr(err)
		}
		out = user
		switch user.SellerStatus {
		case enums.SellerStatusPending, enums.SellerStatusApproved:
			return nil
		}
		if user.Role.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeValidation, "admins cannot request seller access")
		}
		if err := repo.UpdateRoleStatus(ctx, user.ID, user.Role, enums.SellerStatusPending); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: request seller access")
		}
		user.SellerStatus = enums.SellerStatusPending
		return nil
	})
	if err != nil {
		return nil, typed(err)
	}
	return FromModel(out), nil
}

func (s *service) VerifySeller(ctx context.Context, admin auth.Identity, userID uuid.UUID) (*UserDTO, error) {
	if !admin.IsAdmin() {
		return nil, pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "admin role required")
	}
	var (
		out     *models.User
		changed bool
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return notFoundOr(err)
		}
		out = user
		if user.Role == enums.UserRoleSellerVerified && user.SellerStatus == enums.SellerStatusApproved {
			return nil
		}
		if user.Role.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeValidation, "admins cannot become sellers")
		}
		if err := repo.UpdateRoleStatus(ctx, user.ID, enums.UserRoleSellerVerified, enums.SellerStatusApproved); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: verify seller")
		}
		user.Role = enums.UserRoleSellerVerified
		user.SellerStatus = enums.SellerStatusApproved
		changed = true
		return nil
	})
	if err != nil {
		return nil, typed(err)
	}
	if changed {
		s.notifier.Notify(ctx, notifications.Notice{
			UserID:  out.ID,
			Title:   "Seller Verified",
			Message: "Your seller account has been verified. You can now list items.",
			Type:    enums.NotificationTypeSuccess,
			Link:    "/seller/list-item",
		})
	}
	return FromModel(out), nil
}

func (s *service) ListPendingSellers(ctx context.Context, admin auth.Identity) ([]UserDTO, error) {
	if !admin.IsAdmin() {
		return nil, pkgerrors.Rejection(pkgerrors.CodeForbidden, pkgerrors.ReasonForbidden, "admin role required")
	}
	rows, err := s.repo.ListPendingSellers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list pending sellers")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
}

func typed(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "user update")
}

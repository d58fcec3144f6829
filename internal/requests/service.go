// Package requests manages buyer want-ads that sellers answer with offers.
package requests

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
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
)

const openListLimit = 100

type Service interface {
	Create(ctx context.Context, actor auth.Identity, input CreateRequestInput) (*models.Request, error)
	Get(ctx context.Context, requestID uuid.UUID) (*models.Request, error)
	ListOpen(ctx context.Context) ([]models.Request, error)
	ListMine(ctx context.Context, actor auth.Identity) ([]models.Request, error)
}

type CreateRequestInput struct {
	Title       string
	Description *string
	Category    *string
	BudgetMax   *decimal.Decimal
	Currency    string
}

type service struct {
	repo            *Repository
	defaultCurrency enums.Currency
	now             func() time.Time
}

func NewService(repo *Repository, defaultCurrency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("request repository required")
	}
	if !defaultCurrency.IsValid() {
		defaultCurrency = enums.CurrencyUSD
	}
	return &service{repo: repo, defaultCurrency: defaultCurrency, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Identity, input CreateRequestInput) (*models.Request, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.BudgetMax != nil && (!input.BudgetMax.IsPositive() || !models.WholeAmount(*input.BudgetMax)) {
		return nil, pkgerrors.Rejection(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount,
			fmt.Sprintf("budgetMax must be a whole amount between 1 and %s", models.MaxAmount))
	}
	currency, err := enums.ParseCurrency(input.Currency, s.defaultCurrency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}
	now := s.now().UTC()
	request := &models.Request{
		BuyerID:     actor.UserID,
		Title:       title,
		Description: input.Description,
		Category:    input.Category,
		BudgetMax:   input.BudgetMax,
		Currency:    currency,
		Status:      enums.RequestStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert request")
	}
	return request, nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load request")
	}
	return request, nil
}

func (s *service) ListOpen(ctx context.Context) ([]models.Request, error) {
	rows, err := s.repo.ListOpen(ctx, openListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list open requests")
	}
	return rows, nil
}

func (s *service) ListMine(ctx context.Context, actor auth.Identity) ([]models.Request, error) {
	rows, err := s.repo.ListByBuyer(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list requests")
	}
	return rows, nil
}

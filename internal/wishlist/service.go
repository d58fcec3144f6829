package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/jewelbid-backend/internal/items"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ItemRepo     *items.Repository
}

// Service exposes business rules for wishlist management.
type Service interface {
	Toggle(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (Page, error)
}

// Entry is a saved item with the time it was saved.
type Entry struct {
	Item    models.Item `json:"item"`
	SavedAt time.Time   `json:"savedAt"`
}

type Page struct {
	Items      []Entry `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

type service struct {
	wishlistRepo *Repository
	itemRepo     *items.Repository
	now          func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.ItemRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item repo is required")
	}
	return &service{wishlistRepo: params.WishlistRepo, itemRepo: params.ItemRepo, now: time.Now}, nil
}

// Toggle saves the item when it is not on the wishlist and removes it
// otherwise. It reports whether the item is saved afterwards.
func (s *service) Toggle(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	if itemID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	removed, err := s.wishlistRepo.RemoveItem(ctx, userID, itemID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	if removed {
		return false, nil
	}
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	entry := &models.WishlistItem{UserID: userID, ItemID: itemID, CreatedAt: s.now().UTC()}
	if err := s.wishlistRepo.AddItem(ctx, entry); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return true, nil
}

// List returns the user's saved items, newest first. Items deleted since
// they were saved are skipped.
func (s *service) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (Page, error) {
	after, err := pagination.ParseCursor(cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.wishlistRepo.ListEntries(ctx, userID, after, limit)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ItemID)
	}
	itemsByID, err := s.wishlistRepo.ItemsByID(ctx, ids)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wishlist items")
	}
	page := Page{Items: make([]Entry, 0, len(rows))}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	for _, row := range rows {
		item, ok := itemsByID[row.ItemID]
		if !ok {
			continue
		}
		page.Items = append(page.Items, Entry{Item: item, SavedAt: row.CreatedAt})
	}
	return page, nil
}

package wishlist

import (
	"context"
	"errors"

	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type itemFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	ItemRepo     itemFinder
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (PageDTO, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*ItemDTO, error)
	Remove(ctx context.Context, userID, entryID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	itemRepo     itemFinder
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	if params.ItemRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item repo is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		itemRepo:     params.ItemRepo,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (PageDTO, error) {
	page, err := s.wishlistRepo.ListItems(ctx, userID, cursor, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return PageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	return page, nil
}

// Add ensures the product exists. A second like for the same product is a DuplicateEntry.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*ItemDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	item, err := s.itemRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	row, err := s.wishlistRepo.AddItem(ctx, userID, productID)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateEntry, err, "product already in wishlist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add to wishlist")
	}
	return &ItemDTO{
		ID:        row.ID,
		ProductID: item.ID,
		Name:      item.Name,
		Price:     item.Price,
		Available: !item.Sold,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *service) Remove(ctx context.Context, userID, entryID uuid.UUID) error {
	if err := s.wishlistRepo.RemoveItem(ctx, userID, entryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

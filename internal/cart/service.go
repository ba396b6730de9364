package cart

import (
	"context"
	"errors"

	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the per-user cart.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]LineDTO, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*LineDTO, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type lineRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Create(ctx context.Context, line *models.CartItem) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error
	Delete(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}

type itemReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
}

// ServiceParams bundles the cart dependencies.
type ServiceParams struct {
	Repo  lineRepository
	Items itemReader
}

type service struct {
	repo  lineRepository
	items itemReader
}

// NewService builds the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository required")
	}
	if params.Items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reader required")
	}
	return &service{repo: params.Repo, items: params.Items}, nil
}

// List returns the user's lines. Lines whose item was removed are omitted.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]LineDTO, error) {
	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	if len(lines) == 0 {
		return []LineDTO{}, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	byID := make(map[uuid.UUID]*models.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	out := make([]LineDTO, 0, len(lines))
	for _, line := range lines {
		item, ok := byID[line.ProductID]
		if !ok {
			continue
		}
		out = append(out, toLineDTO(line, item))
	}
	return out, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*LineDTO, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, err := s.items.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if item.Sold {
		return nil, pkgerrors.New(pkgerrors.CodeItemUnavailable, "product already sold")
	}

	line, err := s.repo.Create(ctx, &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateEntry, err, "product already in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add to cart")
	}
	dto := toLineDTO(*line, item)
	return &dto, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return mapLineError(s.repo.UpdateQuantity(ctx, userID, lineID, quantity), "update cart line")
}

func (s *service) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	return mapLineError(s.repo.Delete(ctx, userID, lineID), "remove cart line")
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func mapLineError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func toLineDTO(line models.CartItem, item *models.Item) LineDTO {
	return LineDTO{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Name:      item.Name,
		Price:     item.Price,
		Images:    append([]string{}, item.Images...),
		Available: !item.Sold,
		AddedAt:   line.CreatedAt,
	}
}

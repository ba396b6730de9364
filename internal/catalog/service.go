package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes item listing and moderation operations.
type Service interface {
	CreateItem(ctx context.Context, ownerID uuid.UUID, input CreateItemInput) (*ItemDTO, error)
	ListAvailable(ctx context.Context, gender string) ([]ItemDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type itemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListAvailable(ctx context.Context, gender *enums.Gender) ([]models.Item, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Item, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlobStore persists uploaded images and returns their public URL.
type BlobStore interface {
	Save(ctx context.Context, data []byte, suggestedName string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ServiceParams bundles the catalog dependencies.
type ServiceParams struct {
	Repo   itemRepository
	Blobs  BlobStore
	Logger *logger.Logger
}

type service struct {
	repo  itemRepository
	blobs BlobStore
	logg  *logger.Logger
}

// NewService builds the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item repository required")
	}
	if params.Blobs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "blob store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger required")
	}
	return &service{repo: params.Repo, blobs: params.Blobs, logg: params.Logger}, nil
}

func (s *service) CreateItem(ctx context.Context, ownerID uuid.UUID, input CreateItemInput) (*ItemDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	gender := enums.GenderBoth
	if strings.TrimSpace(input.Gender) != "" {
		parsed, err := enums.ParseGender(input.Gender)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "gender must be male, female or both")
		}
		gender = parsed
	}

	urls := make([]string, 0, len(input.Images))
	for _, img := range input.Images {
		url, err := s.blobs.Save(ctx, img.Data, img.Filename)
		if err != nil {
			s.discardBlobs(ctx, urls)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
		}
		urls = append(urls, url)
	}

	item, err := s.repo.Create(ctx, &models.Item{
		OwnerID:     ownerID,
		Name:        name,
		Brand:       strings.TrimSpace(input.Brand),
		Size:        strings.TrimSpace(input.Size),
		Color:       strings.TrimSpace(input.Color),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price.Round(2),
		Gender:      gender,
		Images:      urls,
	})
	if err != nil {
		s.discardBlobs(ctx, urls)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	dto := NewItemDTO(item)
	return &dto, nil
}

// ListAvailable ignores gender values outside male, female and both.
func (s *service) ListAvailable(ctx context.Context, gender string) ([]ItemDTO, error) {
	var filter *enums.Gender
	if parsed, err := enums.ParseGender(gender); err == nil {
		filter = &parsed
	}
	rows, err := s.repo.ListAvailable(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return newItemDTOs(rows), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load product")
	}
	dto := NewItemDTO(item)
	return &dto, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user items")
	}
	return newItemDTOs(rows), nil
}

// Delete removes the item; stored images are cleaned up best-effort afterwards.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "load item")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "delete item")
	}
	s.discardBlobs(ctx, item.Images)
	return nil
}

func (s *service) discardBlobs(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.blobs.Delete(ctx, url); err != nil {
			logCtx := s.logg.WithField(ctx, "image_url", url)
			s.logg.Warn(logCtx, "catalog.image_cleanup_failed")
		}
	}
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

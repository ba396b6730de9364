package catalog

import (
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is the public representation of a listed item.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"user_id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Sold        bool            `json:"sold"`
	Gender      enums.Gender    `json:"gender"`
	Images      []string        `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ImageUpload is one file received with an item listing.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// CreateItemInput holds the validated listing fields.
type CreateItemInput struct {
	Name        string          `form:"name" validate:"required,notblank"`
	Brand       string          `form:"brand"`
	Size        string          `form:"size"`
	Color       string          `form:"color"`
	Description string          `form:"description"`
	Category    string          `form:"category"`
	Price       decimal.Decimal `form:"price"`
	Gender      string          `form:"gender"`
	Images      []ImageUpload   `form:"-"`
}

func NewItemDTO(item *models.Item) ItemDTO {
	images := append([]string{}, item.Images...)
	return ItemDTO{
		ID:          item.ID,
		OwnerID:     item.OwnerID,
		Name:        item.Name,
		Brand:       item.Brand,
		Size:        item.Size,
		Color:       item.Color,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		Sold:        item.Sold,
		Gender:      item.Gender,
		Images:      images,
		CreatedAt:   item.CreatedAt,
	}
}

func newItemDTOs(rows []models.Item) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewItemDTO(&rows[i]))
	}
	return out
}

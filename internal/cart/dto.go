package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest is the body of POST /api/user/cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  *int   `json:"quantity,omitempty" validate:"omitempty,gte=1"`
}

// UpdateQuantityRequest is the body of PUT /api/user/cart/{id}.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// LineDTO is a cart line joined with the listed item.
type LineDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Images    []string        `json:"images"`
	Available bool            `json:"available"`
	AddedAt   time.Time       `json:"added_at"`
}

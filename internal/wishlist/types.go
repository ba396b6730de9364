package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest is the body of POST /api/user/wishlist.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// ItemDTO is one wishlist row joined with its item.
type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
	CreatedAt time.Time       `json:"created_at"`
}

// PageDTO returns a cursor-paginated wishlist view.
type PageDTO struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

package orders

import (
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDTO is the public shape of a ledger entry.
type OrderDTO struct {
	ID        uuid.UUID         `json:"id"`
	BuyerID   uuid.UUID         `json:"buyer_id"`
	SellerID  uuid.UUID         `json:"seller_id"`
	ItemID    uuid.UUID         `json:"item_id"`
	Quantity  int               `json:"quantity"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Reference *string           `json:"reference,omitempty"`
	Status    enums.OrderStatus `json:"status"`
	Location  *string           `json:"location,omitempty"`
	OrderedAt time.Time         `json:"ordered_at"`
	PaidAt    *time.Time        `json:"paid_at,omitempty"`
}

// OrderSummary adds the listed item's name and price when the item still exists.
type OrderSummary struct {
	OrderDTO
	ItemName  *string          `json:"item_name,omitempty"`
	ItemPrice *decimal.Decimal `json:"item_price,omitempty"`
}

// OrderList is a cursor page of order summaries.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func FromModel(o *models.Order) OrderDTO {
	return OrderDTO{
		ID:        o.ID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		ItemID:    o.ItemID,
		Quantity:  o.Quantity,
		Amount:    o.Amount,
		Currency:  o.Currency,
		Reference: o.Reference,
		Status:    o.Status,
		Location:  o.Location,
		OrderedAt: o.OrderedAt,
		PaidAt:    o.PaidAt,
	}
}

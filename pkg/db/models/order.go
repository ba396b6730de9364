package models

import (
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a ledger entry for one purchased item. Reconciled orders carry the
// gateway reference; (reference, item_id) is unique.
type Order struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index:orders_buyer_id_idx"`
	SellerID  uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index:orders_seller_id_idx"`
	ItemID    uuid.UUID         `gorm:"column:item_id;type:uuid;not null;uniqueIndex:orders_reference_item_key,priority:2"`
	Quantity  int               `gorm:"column:quantity;not null;default:1"`
	Amount    decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency  string            `gorm:"column:currency;type:text;not null"`
	Reference *string           `gorm:"column:reference;type:text;uniqueIndex:orders_reference_item_key,priority:1"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null;index:orders_status_idx"`
	Location  *string           `gorm:"column:location;type:text"`
	OrderedAt time.Time         `gorm:"column:ordered_at;not null"`
	PaidAt    *time.Time        `gorm:"column:paid_at"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderedAt.IsZero() {
		o.OrderedAt = time.Now().UTC()
	}
	return nil
}

// All returns every persisted model, in dependency order.
func All() []any {
	return []any{&User{}, &Item{}, &CartItem{}, &WishlistItem{}, &Order{}}
}

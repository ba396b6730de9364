package models

import (
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a single listed product. Each item is unique stock: once Sold is set
// it cannot be reserved again.
type Item struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID     uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index:items_owner_id_idx"`
	Name        string          `gorm:"column:name;type:text;not null"`
	Brand       string          `gorm:"column:brand;type:text;not null;default:''"`
	Size        string          `gorm:"column:size;type:text;not null;default:''"`
	Color       string          `gorm:"column:color;type:text;not null;default:''"`
	Description string          `gorm:"column:description;type:text;not null;default:''"`
	Category    string          `gorm:"column:category;type:text;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Sold        bool            `gorm:"column:sold;not null;default:false;index:items_sold_idx"`
	Gender      enums.Gender    `gorm:"column:gender;type:text;not null;default:'both'"`
	Images      []string        `gorm:"column:images;type:jsonb;serializer:json"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

package wishlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidCursor is returned by ListItems given an undecodable cursor.
var ErrInvalidCursor = errors.New("invalid cursor")

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry. The (user_id, product_id) unique index rejects duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, gorm.ErrInvalidValue
	}
	row := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// RemoveItem deletes the entry when it belongs to userID.
func (r *Repository) RemoveItem(ctx context.Context, userID, entryID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListItems returns a cursor-paginated list of liked items for a user.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor string, limit int) (PageDTO, error) {
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return PageDTO{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	dataQuery := r.db.WithContext(ctx).
		Table("wishlist_items wi").
		Select(strings.Join([]string{
			"wi.id AS wishlist_id",
			"wi.created_at AS wishlist_created_at",
			"i.id AS product_id",
			"i.name",
			"i.price",
			"i.sold",
		}, ", ")).
		Joins("JOIN items i ON i.id = wi.product_id").
		Where("wi.user_id = ?", userID).
		Scopes(pagination.Keyset(decodedCursor, "wi.created_at", "wi.id", limit))

	var records []wishlistRecord
	if err := dataQuery.Scan(&records).Error; err != nil {
		return PageDTO{}, err
	}

	page := pagination.BuildPage(records, limit, func(rec wishlistRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.WishlistCreatedAt, ID: rec.WishlistID}
	})

	items := make([]ItemDTO, 0, len(page.Items))
	for _, record := range page.Items {
		items = append(items, record.toDTO())
	}
	return PageDTO{Items: items, NextCursor: page.NextCursor}, nil
}

type wishlistRecord struct {
	WishlistID        uuid.UUID       `gorm:"column:wishlist_id"`
	WishlistCreatedAt time.Time       `gorm:"column:wishlist_created_at"`
	ProductID         uuid.UUID       `gorm:"column:product_id"`
	Name              string          `gorm:"column:name"`
	Price             decimal.Decimal `gorm:"column:price"`
	Sold              bool            `gorm:"column:sold"`
}

func (r wishlistRecord) toDTO() ItemDTO {
	return ItemDTO{
		ID:        r.WishlistID,
		ProductID: r.ProductID,
		Name:      r.Name,
		Price:     r.Price,
		Available: !r.Sold,
		CreatedAt: r.WishlistCreatedAt,
	}
}

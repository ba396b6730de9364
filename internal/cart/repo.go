package cart

import (
	"context"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistent cart lines. Every method is scoped by user.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindForUser loads a line only when it belongs to userID.
func (r *Repository) FindForUser(ctx context.Context, userID, lineID uuid.UUID) (*models.CartItem, error) {
	var row models.CartItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", lineID, userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a line. The (user_id, product_id) unique index rejects duplicates.
func (r *Repository) Create(ctx context.Context, line *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateQuantity returns gorm.ErrRecordNotFound when the line is missing or owned by someone else.
func (r *Repository) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, lineID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", lineID, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByProducts drops the user's lines for the given products.
func (r *Repository) DeleteByProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

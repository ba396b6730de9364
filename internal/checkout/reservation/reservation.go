package reservation

import (
	"context"
	"fmt"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const reasonAlreadySold = "item already sold"

// ItemReservationRequest asks for one item to be taken off the market.
type ItemReservationRequest struct {
	ItemID uuid.UUID
}

// ItemReservationResult reports whether the conditional update claimed the item.
type ItemReservationResult struct {
	ItemID   uuid.UUID
	Reserved bool
	Reason   string
}

// MarkSold flips sold from false to true for itemID. It returns false when the
// item was already sold or does not exist; the row is never touched twice.
func MarkSold(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction required")
	}
	res := tx.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND sold = ?", itemID, false).
		Update("sold", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Reserve claims a single item and returns ItemUnavailable when another buyer got there first.
func Reserve(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	ok, err := MarkSold(ctx, tx, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve item")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeItemUnavailable, "item is no longer available").
			WithDetails(map[string]any{"item_id": itemID})
	}
	return nil
}

// ReserveItems attempts every request inside tx and reports per-item results.
// Unavailable items do not abort the batch.
func ReserveItems(ctx context.Context, tx *gorm.DB, requests []ItemReservationRequest) ([]ItemReservationResult, error) {
	results := make([]ItemReservationResult, 0, len(requests))
	for _, req := range requests {
		if req.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
		}
		ok, err := MarkSold(ctx, tx, req.ItemID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve item")
		}
		result := ItemReservationResult{ItemID: req.ItemID, Reserved: ok}
		if !ok {
			result.Reason = reasonAlreadySold
		}
		results = append(results, result)
	}
	return results, nil
}

package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/angelmondragon/thriftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ReferenceItemIndex is the unique index that stops a reference being recorded twice for one item.
	ReferenceItemIndex = "orders_reference_item_key"
	// ReferenceItemColumns is how sqlite names the same constraint in its error text.
	ReferenceItemColumns = "orders.reference, orders.item_id"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateBatch(ctx context.Context, orders []models.Order) error
	FindForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID, buyerID uuid.UUID, at time.Time) (int64, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error)
}

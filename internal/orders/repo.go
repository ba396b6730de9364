package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/angelmondragon/thriftlane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidCursor is returned by list queries given an undecodable cursor.
var ErrInvalidCursor = errors.New("invalid cursor")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateBatch(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&orders).Error
}

// FindForBuyer never returns another buyer's order.
func (r *repository) FindForBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ? AND buyer_id = ?", orderID, buyerID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid moves an unpaid order owned by buyerID to paid and reports the rows touched.
func (r *repository) MarkPaid(ctx context.Context, orderID, buyerID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND buyer_id = ? AND status = ?", orderID, buyerID, enums.OrderStatusUnpaid).
		Updates(map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ?", reference).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listSummaries(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("o.buyer_id = ?", buyerID)
	})
}

// ListAll returns every order, optionally narrowed to one status.
func (r *repository) ListAll(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	return r.listSummaries(ctx, params, func(q *gorm.DB) *gorm.DB {
		if status != nil {
			return q.Where("o.status = ?", *status)
		}
		return q
	})
}

func (r *repository) listSummaries(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	query := r.db.WithContext(ctx).
		Table("orders o").
		Select(strings.Join(summaryColumns, ", ")).
		Joins("LEFT JOIN items i ON i.id = o.item_id")
	query = query.Scopes(scope, pagination.Keyset(cursor, "o.created_at", "o.id", params.Limit))

	var records []orderSummaryRecord
	if err := query.Scan(&records).Error; err != nil {
		return nil, err
	}

	page := pagination.BuildPage(records, params.Limit, func(rec orderSummaryRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	out := make([]OrderSummary, 0, len(page.Items))
	for _, rec := range page.Items {
		out = append(out, rec.toSummary())
	}
	return &OrderList{Orders: out, NextCursor: page.NextCursor}, nil
}

var summaryColumns = []string{
	"o.id",
	"o.buyer_id",
	"o.seller_id",
	"o.item_id",
	"o.quantity",
	"o.amount",
	"o.currency",
	"o.reference",
	"o.status",
	"o.location",
	"o.ordered_at",
	"o.paid_at",
	"o.created_at",
	"i.name AS item_name",
	"i.price AS item_price",
}

type orderSummaryRecord struct {
	ID        uuid.UUID           `gorm:"column:id"`
	BuyerID   uuid.UUID           `gorm:"column:buyer_id"`
	SellerID  uuid.UUID           `gorm:"column:seller_id"`
	ItemID    uuid.UUID           `gorm:"column:item_id"`
	Quantity  int                 `gorm:"column:quantity"`
	Amount    decimal.Decimal     `gorm:"column:amount"`
	Currency  string              `gorm:"column:currency"`
	Reference sql.NullString      `gorm:"column:reference"`
	Status    enums.OrderStatus   `gorm:"column:status"`
	Location  sql.NullString      `gorm:"column:location"`
	OrderedAt time.Time           `gorm:"column:ordered_at"`
	PaidAt    sql.NullTime        `gorm:"column:paid_at"`
	CreatedAt time.Time           `gorm:"column:created_at"`
	ItemName  sql.NullString      `gorm:"column:item_name"`
	ItemPrice decimal.NullDecimal `gorm:"column:item_price"`
}

func (r orderSummaryRecord) toSummary() OrderSummary {
	summary := OrderSummary{
		OrderDTO: OrderDTO{
			ID:        r.ID,
			BuyerID:   r.BuyerID,
			SellerID:  r.SellerID,
			ItemID:    r.ItemID,
			Quantity:  r.Quantity,
			Amount:    r.Amount,
			Currency:  r.Currency,
			Reference: nullStringPtr(r.Reference),
			Status:    r.Status,
			Location:  nullStringPtr(r.Location),
			OrderedAt: r.OrderedAt,
		},
	}
	if r.PaidAt.Valid {
		paid := r.PaidAt.Time
		summary.PaidAt = &paid
	}
	summary.ItemName = nullStringPtr(r.ItemName)
	if r.ItemPrice.Valid {
		price := r.ItemPrice.Decimal
		summary.ItemPrice = &price
	}
	return summary
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

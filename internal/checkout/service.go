package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/thriftlane-backend/internal/catalog"
	"github.com/angelmondragon/thriftlane-backend/internal/checkout/reservation"
	"github.com/angelmondragon/thriftlane-backend/internal/orders"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const orderPathDirect = "direct"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

type itemLoaderFactory func(tx *gorm.DB) itemLoader

func defaultItemLoader(tx *gorm.DB) itemLoader {
	return catalog.NewRepository(tx)
}

// Service runs the direct order path: reserve one item and record an unpaid order.
type Service interface {
	ReserveAndOrder(ctx context.Context, input ReserveInput) (*orders.OrderDTO, error)
	ConfirmPayment(ctx context.Context, orderID, buyerID uuid.UUID) (*orders.OrderDTO, error)
}

// ReserveInput captures a validated direct order request.
type ReserveInput struct {
	ItemID   uuid.UUID
	BuyerID  uuid.UUID
	Quantity int
	Location string
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	DB              txRunner
	OrdersRepo      orders.Repository
	ItemLoader      itemLoaderFactory
	DefaultCurrency string
	Metrics         *metrics.OrderMetrics
	Logger          *logger.Logger
	Now             func() time.Time
}

type service struct {
	tx         txRunner
	ordersRepo orders.Repository
	items      itemLoaderFactory
	currency   string
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	items := params.ItemLoader
	if items == nil {
		items = defaultItemLoader
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = "NGN"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:         params.DB,
		ordersRepo: params.OrdersRepo,
		items:      items,
		currency:   currency,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// ReserveAndOrder marks the item sold and writes an unpaid order in one transaction.
// Either both writes land or neither does.
func (s *service) ReserveAndOrder(ctx context.Context, input ReserveInput) (*orders.OrderDTO, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_id is required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.items(tx).FindByID(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}

		if err := reservation.Reserve(ctx, tx, item.ID); err != nil {
			return err
		}

		order, err := s.ordersRepo.WithTx(tx).Create(ctx, &models.Order{
			BuyerID:   input.BuyerID,
			SellerID:  item.OwnerID,
			ItemID:    item.ID,
			Quantity:  input.Quantity,
			Amount:    item.Price.Mul(decimal.NewFromInt(int64(input.Quantity))),
			Currency:  s.currency,
			Status:    enums.OrderStatusUnpaid,
			Location:  &location,
			OrderedAt: s.now().UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		created = order
		return nil
	})
	if err != nil {
		s.recordReservationFailure(ctx, input.ItemID, err)
		return nil, err
	}

	s.metrics.IncReservation(metrics.ReservationReserved)
	s.metrics.AddOrdersCreated(orderPathDirect, 1)
	logCtx := s.logg.WithOrderID(ctx, created.ID.String())
	s.logg.Info(logCtx, "order.reserved")

	dto := orders.FromModel(created)
	return &dto, nil
}

// ConfirmPayment moves an unpaid order to paid. A missing order and another
// buyer's order are indistinguishable to the caller.
func (s *service) ConfirmPayment(ctx context.Context, orderID, buyerID uuid.UUID) (*orders.OrderDTO, error) {
	if orderID == uuid.Nil || buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		if _, err := repo.MarkPaid(ctx, orderID, buyerID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order, err := repo.FindForBuyer(ctx, orderID, buyerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		switch order.Status {
		case enums.OrderStatusPaid:
			confirmed = order
			return nil
		case enums.OrderStatusSuccess:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was settled through the payment gateway")
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be confirmed").
				WithDetails(map[string]any{"status": order.Status})
		}
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, confirmed.ID.String())
	s.logg.Info(logCtx, "order.paid")
	dto := orders.FromModel(confirmed)
	return &dto, nil
}

func (s *service) recordReservationFailure(ctx context.Context, itemID uuid.UUID, err error) {
	logCtx := s.logg.WithField(ctx, "item_id", itemID.String())
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeItemUnavailable):
		s.metrics.IncReservation(metrics.ReservationUnavailable)
		s.logg.Info(logCtx, "order.reserve_unavailable")
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.metrics.IncReservation(metrics.ReservationNotFound)
	default:
		s.logg.Error(logCtx, "order.reserve_failed", err)
	}
}

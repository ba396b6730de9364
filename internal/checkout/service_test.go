package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/thriftlane-backend/internal/orders"
	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

type failingLedger struct {
	orders.Repository
}

func (f failingLedger) WithTx(tx *gorm.DB) orders.Repository {
	return failingLedger{Repository: f.Repository.WithTx(tx)}
}

func (failingLedger) Create(context.Context, *models.Order) (*models.Order, error) {
	return nil, errors.New("ledger write failed")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB, repo orders.Repository) Service {
	t.Helper()
	if repo == nil {
		repo = orders.NewRepository(conn)
	}
	svc, err := NewService(ServiceParams{
		DB:              db.Wrap(conn),
		OrdersRepo:      repo,
		DefaultCurrency: "ngn",
		Logger:          logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:             func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func seedItem(t *testing.T, conn *gorm.DB, price string) models.Item {
	t.Helper()
	item := models.Item{OwnerID: uuid.New(), Name: "Vintage jacket", Price: decimal.RequireFromString(price)}
	require.NoError(t, conn.Create(&item).Error)
	return item
}

func TestReserveAndOrderCreatesUnpaidOrder(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	item := seedItem(t, conn, "50")
	buyer := uuid.New()

	order, err := svc.ReserveAndOrder(ctx, ReserveInput{ItemID: item.ID, BuyerID: buyer, Quantity: 2, Location: "Lagos"})
	require.NoError(t, err)
	assert.True(t, order.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, enums.OrderStatusUnpaid, order.Status)
	assert.Equal(t, "NGN", order.Currency)
	assert.Equal(t, item.OwnerID, order.SellerID)
	require.NotNil(t, order.Location)
	assert.Equal(t, "Lagos", *order.Location)

	var reloaded models.Item
	require.NoError(t, conn.First(&reloaded, "id = ?", item.ID).Error)
	assert.True(t, reloaded.Sold)

	_, err = svc.ReserveAndOrder(ctx, ReserveInput{ItemID: item.ID, BuyerID: uuid.New(), Quantity: 1, Location: "Abuja"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeItemUnavailable))

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestReserveAndOrderValidation(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	item := seedItem(t, conn, "10")

	cases := []ReserveInput{
		{ItemID: uuid.Nil, BuyerID: uuid.New(), Quantity: 1, Location: "x"},
		{ItemID: item.ID, BuyerID: uuid.New(), Quantity: 0, Location: "x"},
		{ItemID: item.ID, BuyerID: uuid.New(), Quantity: 1, Location: "  "},
	}
	for _, tc := range cases {
		_, err := svc.ReserveAndOrder(ctx, tc)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", tc)
	}

	_, err := svc.ReserveAndOrder(ctx, ReserveInput{ItemID: uuid.New(), BuyerID: uuid.New(), Quantity: 1, Location: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReserveAndOrderRollsBackWhenLedgerFails(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, failingLedger{Repository: orders.NewRepository(conn)})
	item := seedItem(t, conn, "75")

	_, err := svc.ReserveAndOrder(context.Background(), ReserveInput{ItemID: item.ID, BuyerID: uuid.New(), Quantity: 1, Location: "Ibadan"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var reloaded models.Item
	require.NoError(t, conn.First(&reloaded, "id = ?", item.ID).Error)
	assert.False(t, reloaded.Sold, "sold flag must roll back with the failed order")

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReserveAndOrderNeverOversells(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	item := seedItem(t, conn, "20")

	const buyers = 8
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		successes   int
		unavailable int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReserveAndOrder(context.Background(), ReserveInput{ItemID: item.ID, BuyerID: uuid.New(), Quantity: 1, Location: "Kano"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsCode(err, pkgerrors.CodeItemUnavailable):
				unavailable++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, buyers-1, unavailable)

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Where("item_id = ?", item.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConfirmPayment(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	ctx := context.Background()
	buyer := uuid.New()
	item := seedItem(t, conn, "30")

	order, err := svc.ReserveAndOrder(ctx, ReserveInput{ItemID: item.ID, BuyerID: buyer, Quantity: 1, Location: "Enugu"})
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, order.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "another buyer's order looks missing")

	_, err = svc.ConfirmPayment(ctx, uuid.New(), buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	paid, err := svc.ConfirmPayment(ctx, order.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	again, err := svc.ConfirmPayment(ctx, order.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, again.Status)
}

func TestConfirmPaymentRejectsGatewayOrders(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn, nil)
	buyer := uuid.New()
	item := seedItem(t, conn, "30")
	ref := "ref-77"
	order := models.Order{BuyerID: buyer, SellerID: item.OwnerID, ItemID: item.ID, Quantity: 1, Amount: item.Price, Currency: "NGN", Reference: &ref, Status: enums.OrderStatusSuccess}
	require.NoError(t, conn.Create(&order).Error)

	_, err := svc.ConfirmPayment(context.Background(), order.ID, buyer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

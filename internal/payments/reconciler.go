package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/thriftlane-backend/internal/cart"
	"github.com/angelmondragon/thriftlane-backend/internal/catalog"
	"github.com/angelmondragon/thriftlane-backend/internal/checkout/reservation"
	"github.com/angelmondragon/thriftlane-backend/internal/orders"
	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/metrics"
	"github.com/angelmondragon/thriftlane-backend/pkg/paystack"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	orderPathReconcile  = "reconcile"
	defaultVerifyWindow = 10 * time.Second
	statusSuccess       = "success"
)

// errAlreadyRecorded aborts the ledger transaction when a concurrent reconcile won the unique index.
var errAlreadyRecorded = errors.New("reference already recorded")

// Verifier checks a transaction reference with the payment gateway.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
}

type cartPruner interface {
	DeleteByProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error)
}

// Reconciler turns verified gateway transactions into ledger orders.
type Reconciler interface {
	Reconcile(ctx context.Context, reference string, buyerID uuid.UUID) (*Result, error)
}

// Result is returned for every reconcile call that did not fail.
type Result struct {
	Status           string   `json:"status"`
	Reference        string   `json:"reference"`
	OrdersCreated    int      `json:"orders_created"`
	AlreadyProcessed bool     `json:"already_processed"`
	SkippedProducts  []string `json:"skipped_products,omitempty"`
}

// ReconcilerParams bundles the reconciliation dependencies.
type ReconcilerParams struct {
	DB              txRunner
	Gateway         Verifier
	OrdersRepo      orders.Repository
	Items           func(tx *gorm.DB) itemFinder
	Cart            func(tx *gorm.DB) cartPruner
	AmountPolicy    string
	DefaultCurrency string
	VerifyTimeout   time.Duration
	Metrics         *metrics.OrderMetrics
	Logger          *logger.Logger
	Now             func() time.Time
}

type reconciler struct {
	tx         txRunner
	gateway    Verifier
	ordersRepo orders.Repository
	items      func(tx *gorm.DB) itemFinder
	cart       func(tx *gorm.DB) cartPruner
	policy     string
	currency   string
	timeout    time.Duration
	metrics    *metrics.OrderMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewReconciler validates params and fills defaults.
func NewReconciler(params ReconcilerParams) (Reconciler, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	policy := strings.ToLower(strings.TrimSpace(params.AmountPolicy))
	switch policy {
	case "":
		policy = config.AmountPolicyTransaction
	case config.AmountPolicyTransaction, config.AmountPolicySplit:
	default:
		return nil, fmt.Errorf("unknown amount policy %q", params.AmountPolicy)
	}
	items := params.Items
	if items == nil {
		items = func(tx *gorm.DB) itemFinder { return catalog.NewRepository(tx) }
	}
	cartFactory := params.Cart
	if cartFactory == nil {
		cartFactory = func(tx *gorm.DB) cartPruner { return cart.NewRepository(tx) }
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = "NGN"
	}
	timeout := params.VerifyTimeout
	if timeout <= 0 {
		timeout = defaultVerifyWindow
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &reconciler{
		tx:         params.DB,
		gateway:    params.Gateway,
		ordersRepo: params.OrdersRepo,
		items:      items,
		cart:       cartFactory,
		policy:     policy,
		currency:   currency,
		timeout:    timeout,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// Reconcile verifies reference with the gateway and records one success order
// per purchased item. Calling it again for the same reference creates nothing.
// No ledger write happens unless the gateway confirmed the payment and the
// metadata names at least one cart item.
func (r *reconciler) Reconcile(ctx context.Context, reference string, buyerID uuid.UUID) (*Result, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	ctx = r.logg.WithReference(ctx, reference)

	txn, err := r.verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	if txn.MetadataErr != nil || len(txn.Metadata.CartItems) == 0 {
		r.metrics.IncReconciliation(metrics.ReconcileInvalidMetadata)
		e := pkgerrors.New(pkgerrors.CodeInvalidMetadata, "cart items missing or invalid metadata")
		if txn.MetadataErr != nil {
			e = pkgerrors.Wrap(pkgerrors.CodeInvalidMetadata, txn.MetadataErr, "cart items missing or invalid metadata")
		}
		return nil, e
	}

	if err := checkBuyer(txn.Metadata.BuyerID, buyerID); err != nil {
		r.metrics.IncReconciliation(metrics.ReconcileBuyerMismatch)
		r.logg.Warn(r.logg.WithUserID(ctx, buyerID.String()), "payment.buyer_mismatch")
		return nil, err
	}

	productIDs, skipped := collectProductIDs(txn.Metadata.CartItems)
	result, err := r.record(ctx, txn, buyerID, productIDs)
	if err != nil {
		r.metrics.IncReconciliation(metrics.ReconcileFailed)
		r.logg.Error(ctx, "payment.reconcile_failed", err)
		return nil, err
	}
	result.SkippedProducts = append(result.SkippedProducts, skipped...)

	if result.AlreadyProcessed {
		r.metrics.IncReconciliation(metrics.ReconcileAlreadyProcessed)
		r.logg.Info(ctx, "payment.already_processed")
	} else {
		r.metrics.IncReconciliation(metrics.ReconcileCreated)
		r.metrics.AddOrdersCreated(orderPathReconcile, result.OrdersCreated)
		logCtx := r.logg.WithField(ctx, "orders_created", result.OrdersCreated)
		r.logg.Info(logCtx, "payment.reconciled")
	}
	return result, nil
}

func (r *reconciler) verify(ctx context.Context, reference string) (*paystack.Transaction, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	txn, err := r.gateway.Verify(verifyCtx, reference)
	elapsed := time.Since(started)

	switch {
	case err == nil && txn.Verified():
		r.metrics.ObserveGatewayVerify("verified", elapsed)
		return txn, nil
	case err == nil:
		r.metrics.ObserveGatewayVerify("not_verified", elapsed)
		r.metrics.IncReconciliation(metrics.ReconcileNotVerified)
		status := ""
		if txn != nil {
			status = txn.Status
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotVerified, "payment verification failed").
			WithDetails(map[string]any{"reference": reference, "gateway_status": status})
	case pkgerrors.IsCode(err, pkgerrors.CodePaymentNotVerified), pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		r.metrics.ObserveGatewayVerify("not_verified", elapsed)
		r.metrics.IncReconciliation(metrics.ReconcileNotVerified)
		return nil, err
	default:
		r.metrics.ObserveGatewayVerify("unavailable", elapsed)
		r.metrics.IncReconciliation(metrics.ReconcileGatewayUnavailable)
		r.logg.Warn(ctx, "payment.gateway_unavailable")
		if pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "payment gateway unavailable")
	}
}

func (r *reconciler) record(ctx context.Context, txn *paystack.Transaction, buyerID uuid.UUID, productIDs []uuid.UUID) (*Result, error) {
	result := &Result{Status: statusSuccess, Reference: txn.Reference}

	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.ordersRepo.WithTx(tx)
		exists, err := repo.ExistsByReference(ctx, txn.Reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check reference")
		}
		if exists {
			result.AlreadyProcessed = true
			return nil
		}

		found, err := r.items(tx).FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
		}
		byID := make(map[uuid.UUID]models.Item, len(found))
		for _, item := range found {
			byID[item.ID] = item
		}

		present := make([]models.Item, 0, len(productIDs))
		for _, id := range productIDs {
			item, ok := byID[id]
			if !ok {
				result.SkippedProducts = append(result.SkippedProducts, id.String())
				continue
			}
			present = append(present, item)
		}
		if len(present) == 0 {
			return nil
		}

		if err := r.markSold(ctx, tx, present); err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(present))
		for _, item := range present {
			ids = append(ids, item.ID)
		}
		if _, err := r.cart(tx).DeleteByProducts(ctx, buyerID, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear purchased cart lines")
		}

		rows := r.buildOrders(txn, buyerID, present)
		if err := repo.CreateBatch(ctx, rows); err != nil {
			if isReferenceConflict(err) {
				return errAlreadyRecorded
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create orders")
		}
		result.OrdersCreated = len(rows)
		return nil
	})
	if errors.Is(err, errAlreadyRecorded) {
		return &Result{Status: statusSuccess, Reference: txn.Reference, AlreadyProcessed: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// markSold claims every item. An item someone else already bought still gets its
// order recorded, since the buyer has paid; the conflict is surfaced for follow-up.
func (r *reconciler) markSold(ctx context.Context, tx *gorm.DB, items []models.Item) error {
	requests := make([]reservation.ItemReservationRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, reservation.ItemReservationRequest{ItemID: item.ID})
	}
	results, err := reservation.ReserveItems(ctx, tx, requests)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Reserved {
			continue
		}
		r.metrics.IncSoldConflict()
		logCtx := r.logg.WithFields(ctx, map[string]any{"item_id": res.ItemID.String(), "reason": res.Reason})
		r.logg.Warn(logCtx, "payment.item_already_sold")
	}
	return nil
}

func (r *reconciler) buildOrders(txn *paystack.Transaction, buyerID uuid.UUID, items []models.Item) []models.Order {
	currency := txn.Currency
	if currency == "" {
		currency = r.currency
	}
	now := r.now().UTC()
	paidAt := now
	if txn.PaidAt != nil {
		paidAt = txn.PaidAt.UTC()
	}
	amounts := lineAmounts(r.policy, txn.Amount, len(items))

	rows := make([]models.Order, 0, len(items))
	for i, item := range items {
		ref := txn.Reference
		paid := paidAt
		rows = append(rows, models.Order{
			BuyerID:   buyerID,
			SellerID:  item.OwnerID,
			ItemID:    item.ID,
			Quantity:  1,
			Amount:    amounts[i],
			Currency:  currency,
			Reference: &ref,
			Status:    enums.OrderStatusSuccess,
			OrderedAt: now,
			PaidAt:    &paid,
		})
	}
	return rows
}

// checkBuyer rejects a caller other than the buyer named in the transaction
// metadata. Transactions without a buyer_id can be claimed by any caller.
func checkBuyer(metadataBuyer string, caller uuid.UUID) error {
	metadataBuyer = strings.TrimSpace(metadataBuyer)
	if metadataBuyer == "" {
		return nil
	}
	if owner, err := uuid.Parse(metadataBuyer); err == nil && owner == caller {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another buyer")
}

// isReferenceConflict matches only the (reference, item_id) index. Postgres
// reports the index name, sqlite the column list.
func isReferenceConflict(err error) bool {
	return db.IsUniqueViolation(err, orders.ReferenceItemIndex) ||
		db.IsUniqueViolation(err, orders.ReferenceItemColumns)
}

// collectProductIDs keeps the first occurrence of every parseable id.
func collectProductIDs(refs []paystack.CartItemRef) ([]uuid.UUID, []string) {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	ids := make([]uuid.UUID, 0, len(refs))
	var skipped []string
	for _, ref := range refs {
		raw := strings.TrimSpace(ref.ProductID)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			skipped = append(skipped, raw)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, skipped
}

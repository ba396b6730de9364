package paystackwebhook

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/thriftlane-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/paystack"
	"github.com/angelmondragon/thriftlane-backend/pkg/redis"
)

const testSecret = "sk_test_webhook"

type stubReconciler struct {
	calls  int
	buyer  uuid.UUID
	ref    string
	failed error
}

func (s *stubReconciler) Reconcile(_ context.Context, reference string, buyerID uuid.UUID) (*payments.Result, error) {
	s.calls++
	s.ref = reference
	s.buyer = buyerID
	if s.failed != nil {
		return nil, s.failed
	}
	return &payments.Result{Status: "success", Reference: reference, OrdersCreated: 1}, nil
}

func newTestService(t *testing.T, rec payments.Reconciler) (*Service, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	guard, err := NewIdempotencyGuard(redis.NewFromClient(raw), time.Hour)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		SecretKey:  testSecret,
		Reconciler: rec,
		Guard:      guard,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, srv
}

func chargeBody(reference, buyer string) []byte {
	return []byte(`{"event":"charge.success","data":{"reference":"` + reference +
		`","status":"success","amount":5000,"currency":"NGN","metadata":{"buyer_id":"` + buyer +
		`","cart_items":[{"product_id":"` + uuid.NewString() + `"}]}}}`)
}

func TestParseDeliveryRejectsBadSignature(t *testing.T) {
	svc, _ := newTestService(t, &stubReconciler{})
	body := chargeBody("ref-1", uuid.NewString())

	_, err := svc.ParseDelivery(body, paystack.Sign("wrong", body))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.ParseDelivery(body, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	event, err := svc.ParseDelivery(body, paystack.Sign(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, paystack.EventChargeSuccess, event.Event)
}

func TestHandleEventReconcilesOnce(t *testing.T) {
	rec := &stubReconciler{}
	svc, _ := newTestService(t, rec)
	buyer := uuid.New()
	body := chargeBody("ref-1", buyer.String())
	event, err := svc.ParseDelivery(body, paystack.Sign(testSecret, body))
	require.NoError(t, err)

	outcome, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, "ref-1", rec.ref)
	assert.Equal(t, buyer, rec.buyer)

	outcome, err = svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, rec.calls)
}

func TestHandleEventReleasesClaimOnFailure(t *testing.T) {
	rec := &stubReconciler{failed: pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway down")}
	svc, srv := newTestService(t, rec)
	body := chargeBody("ref-9", uuid.NewString())
	event, err := svc.ParseDelivery(body, paystack.Sign(testSecret, body))
	require.NoError(t, err)

	_, err = svc.HandleEvent(context.Background(), event)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayUnavailable))
	assert.Empty(t, srv.Keys())

	rec.failed = nil
	outcome, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 2, rec.calls)
}

func TestHandleEventIgnoresOtherEvents(t *testing.T) {
	rec := &stubReconciler{}
	svc, _ := newTestService(t, rec)

	outcome, err := svc.HandleEvent(context.Background(), &paystack.Event{Event: "transfer.success"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Zero(t, rec.calls)
}

func TestHandleEventRequiresBuyer(t *testing.T) {
	rec := &stubReconciler{}
	svc, srv := newTestService(t, rec)

	_, err := svc.HandleEvent(context.Background(), &paystack.Event{
		Event:       paystack.EventChargeSuccess,
		Transaction: &paystack.Transaction{Reference: "ref-1", Status: "success"},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidMetadata))
	assert.Zero(t, rec.calls)
	assert.Empty(t, srv.Keys())
}

func TestNewIdempotencyGuardValidates(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Minute)
	assert.Error(t, err)

	srv := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	_, err = NewIdempotencyGuard(redis.NewFromClient(raw), -time.Second)
	assert.Error(t, err)

	guard, err := NewIdempotencyGuard(redis.NewFromClient(raw), time.Minute)
	require.NoError(t, err)
	_, err = guard.CheckAndMark(context.Background(), "")
	assert.Error(t, err)
}

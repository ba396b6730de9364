package paystackwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const provider = "paystack"

// DeliveryStore is the subset of the redis client the guard needs.
type DeliveryStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookDeliveryKey(provider, deliveryID string) string
}

type IdempotencyGuard struct {
	store DeliveryStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store DeliveryStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("delivery store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark claims deliveryID and reports whether it was already claimed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return false, errors.New("delivery id is required")
	}
	key := g.store.WebhookDeliveryKey(provider, deliveryID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set delivery key: %w", err)
	}
	return !set, nil
}

// Release forgets deliveryID so a gateway retry is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return errors.New("delivery id is required")
	}
	return g.store.Del(ctx, g.store.WebhookDeliveryKey(provider, deliveryID))
}

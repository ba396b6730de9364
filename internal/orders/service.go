package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service exposes read access to the order ledger.
type Service interface {
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, status string, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo Repository
}

// NewService builds the ledger read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	list, err := s.repo.ListBuyerOrders(ctx, buyerID, params)
	if err != nil {
		return nil, mapListError(err)
	}
	return list, nil
}

// ListAll accepts an empty status for every order, or one of unpaid, paid and success.
func (s *service) ListAll(ctx context.Context, status string, params pagination.Params) (*OrderList, error) {
	var filter *enums.OrderStatus
	if raw := strings.ToLower(strings.TrimSpace(status)); raw != "" {
		parsed, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
				WithDetails(map[string]any{"status": status})
		}
		filter = &parsed
	}
	list, err := s.repo.ListAll(ctx, filter, params)
	if err != nil {
		return nil, mapListError(err)
	}
	return list, nil
}

func mapListError(err error) error {
	if errors.Is(err, ErrInvalidCursor) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
}

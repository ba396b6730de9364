package enums

import "fmt"

// OrderStatus tracks where an order sits in its payment lifecycle.
type OrderStatus string

const (
	// OrderStatusUnpaid marks a direct order awaiting buyer confirmation.
	OrderStatusUnpaid OrderStatus = "unpaid"
	// OrderStatusPaid marks a direct order the buyer confirmed.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusSuccess marks an order created from a gateway-verified transaction.
	OrderStatusSuccess OrderStatus = "success"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusUnpaid,
	OrderStatusPaid,
	OrderStatusSuccess,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

package paystack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Metadata is the custom payload attached to a transaction at checkout.
type Metadata struct {
	CartItems []CartItemRef `json:"cart_items"`
	// BuyerID identifies the purchasing user for webhook-driven reconciliation.
	BuyerID string `json:"buyer_id,omitempty"`
}

// CartItemRef points at one purchased product.
type CartItemRef struct {
	ProductID string `json:"product_id"`
}

// UnmarshalJSON accepts metadata as an object, a JSON-encoded string, an empty
// string or null. Paystack echoes whatever the client sent at initialization.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			*m = Metadata{}
			return nil
		}
		trimmed = []byte(encoded)
	}
	type plain Metadata
	var out plain
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	*m = Metadata(out)
	return nil
}

// UnmarshalJSON accepts product ids given as strings or numbers.
func (c *CartItemRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID json.RawMessage `json:"product_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ProductID = ""
	value := bytes.TrimSpace(raw.ProductID)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return nil
	}
	if value[0] == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return err
		}
		c.ProductID = strings.TrimSpace(s)
		return nil
	}
	if n, err := strconv.ParseInt(string(value), 10, 64); err == nil {
		c.ProductID = strconv.FormatInt(n, 10)
	}
	return nil
}

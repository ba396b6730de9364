package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess is emitted when a charge settles.
const EventChargeSuccess = "charge.success"

// VerifySignature reports whether signature is the hex HMAC-SHA512 of body
// under secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the signature Paystack would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Event is a decoded webhook delivery.
type Event struct {
	Event       string
	Transaction *Transaction
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var raw struct {
		Event string             `json:"event"`
		Data  transactionPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if strings.TrimSpace(raw.Event) == "" {
		return nil, fmt.Errorf("webhook event type missing")
	}
	return &Event{Event: raw.Event, Transaction: raw.Data.toTransaction()}, nil
}

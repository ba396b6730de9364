package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.paystack.co"
	defaultTimeout             = 10 * time.Second
	responseBodyReadLimit      = 1 << 20
	errorBodyReadLimit   int64 = 1024

	// StatusSuccess is the transaction status Paystack reports for a settled charge.
	StatusSuccess = "success"
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client verifies transactions against the Paystack REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	timeout    time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Paystack API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every verification call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient builds the Paystack client given a secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SecretKey exposes the key used to sign webhook payloads.
func (c *Client) SecretKey() string {
	return c.secretKey
}

// Transaction is the normalized result of a verification call.
type Transaction struct {
	Reference string
	Status    string
	// Amount is in currency subunits (kobo for NGN).
	Amount   int64
	Currency string
	PaidAt   *time.Time
	Metadata Metadata
	// MetadataErr is set when the metadata field could not be decoded.
	MetadataErr error
}

// Verified reports whether the gateway considers the charge settled.
func (t *Transaction) Verified() bool {
	return t != nil && strings.EqualFold(t.Status, StatusSuccess)
}

type transactionPayload struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    *string         `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (p transactionPayload) toTransaction() *Transaction {
	tx := &Transaction{
		Reference: p.Reference,
		Status:    p.Status,
		Amount:    p.Amount,
		Currency:  strings.ToUpper(strings.TrimSpace(p.Currency)),
	}
	if len(p.Metadata) > 0 {
		if err := json.Unmarshal(p.Metadata, &tx.Metadata); err != nil {
			tx.MetadataErr = err
		}
	}
	if p.PaidAt != nil {
		if parsed, err := time.Parse(time.RFC3339, *p.PaidAt); err == nil {
			utc := parsed.UTC()
			tx.PaidAt = &utc
		}
	}
	return tx
}

// Verify fetches the transaction identified by reference. Transport failures,
// timeouts and 5xx responses surface as GATEWAY_UNAVAILABLE; unknown references
// and rejected lookups as PAYMENT_NOT_VERIFIED. A returned transaction may still
// be unsettled; callers check Verified.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.buildURL("transaction/verify/" + url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "build verify request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "execute verify request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "verify request failed")
	}

	var apiResp struct {
		Status  bool               `json:"status"`
		Message string             `json:"message"`
		Data    transactionPayload `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode verify response")
	}

	if resp.StatusCode != http.StatusOK || !apiResp.Status {
		msg := strings.TrimSpace(apiResp.Message)
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotVerified, "payment verification failed").
			WithDetails(map[string]any{"reference": trimmed, "gateway_message": msg})
	}

	tx := apiResp.Data.toTransaction()
	if tx.Reference == "" {
		tx.Reference = trimmed
	}
	return tx, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

package paystack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient("sk_test", WithBaseURL(srv.URL), WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	return client
}

func TestVerifySuccess(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{
			"reference":"ref-1","status":"success","amount":5000,"currency":"ngn",
			"paid_at":"2026-03-01T10:00:00.000Z",
			"metadata":{"cart_items":[{"product_id":"I1"},{"product_id":42}]}}}`))
	})

	tx, err := client.Verify(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "/transaction/verify/ref-1", gotPath)
	assert.True(t, tx.Verified())
	assert.Equal(t, int64(5000), tx.Amount)
	assert.Equal(t, "NGN", tx.Currency)
	require.NotNil(t, tx.PaidAt)
	assert.Equal(t, 2026, tx.PaidAt.Year())
	require.NoError(t, tx.MetadataErr)
	require.Len(t, tx.Metadata.CartItems, 2)
	assert.Equal(t, "I1", tx.Metadata.CartItems[0].ProductID)
	assert.Equal(t, "42", tx.Metadata.CartItems[1].ProductID)
}

func TestVerifyAbandonedTransactionIsReturnedUnverified(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"reference":"ref-2","status":"abandoned","amount":100,"currency":"NGN","metadata":""}}`))
	})

	tx, err := client.Verify(context.Background(), "ref-2")
	require.NoError(t, err)
	assert.False(t, tx.Verified())
	assert.Empty(t, tx.Metadata.CartItems)
}

func TestVerifyUnknownReference(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	})

	_, err := client.Verify(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePaymentNotVerified, pkgerrors.As(err).Code())
}

func TestVerifyServerErrorIsUnavailable(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Verify(context.Background(), "ref")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGatewayUnavailable, pkgerrors.As(err).Code())
}

func TestVerifyTimeoutIsUnavailable(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	start := time.Now()
	_, err := client.Verify(context.Background(), "slow")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGatewayUnavailable, pkgerrors.As(err).Code())
	assert.Less(t, time.Since(start), time.Second)
}

func TestVerifyMalformedMetadataIsFlagged(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"reference":"r","status":"success","amount":1,"currency":"NGN","metadata":{"cart_items":"oops"}}}`))
	})

	tx, err := client.Verify(context.Background(), "r")
	require.NoError(t, err)
	assert.Error(t, tx.MetadataErr)
}

func TestVerifyRequiresReference(t *testing.T) {
	client, err := NewClient("sk")
	require.NoError(t, err)
	_, err = client.Verify(context.Background(), " ")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = NewClient("")
	assert.Error(t, err)
}

func TestMetadataAcceptsEncodedString(t *testing.T) {
	var m Metadata
	require.NoError(t, m.UnmarshalJSON([]byte(`"{\"cart_items\":[{\"product_id\":\"abc\"}],\"buyer_id\":\"u1\"}"`)))
	require.Len(t, m.CartItems, 1)
	assert.Equal(t, "abc", m.CartItems[0].ProductID)
	assert.Equal(t, "u1", m.BuyerID)

	require.NoError(t, m.UnmarshalJSON([]byte(`null`)))
	assert.Empty(t, m.CartItems)
}

package paystack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	sig := Sign("sk_test", body)

	assert.True(t, VerifySignature("sk_test", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("sk_test", []byte(`{"event":"tampered"}`), sig))
	assert.False(t, VerifySignature("sk_test", body, "not-hex"))
	assert.False(t, VerifySignature("sk_test", body, ""))
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"ref-9","status":"success","amount":250000,"currency":"NGN","metadata":{"buyer_id":"b1","cart_items":[{"product_id":"p1"}]}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, ev.Event)
	assert.Equal(t, "ref-9", ev.Transaction.Reference)
	assert.Equal(t, "b1", ev.Transaction.Metadata.BuyerID)

	_, err = ParseEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}

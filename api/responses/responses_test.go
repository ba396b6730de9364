package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error
}

func TestWriteErrorKeepsClientMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeItemUnavailable, "item already sold"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "ITEM_UNAVAILABLE", apiErr.Code)
	assert.Equal(t, "item already sold", apiErr.Message)
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	rec := httptest.NewRecorder()
	WriteError(context.Background(), logg, rec, errors.New("pq: connection refused at 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
	assert.Equal(t, "internal server error", apiErr.Message)
	assert.Contains(t, buf.String(), "connection refused", "cause should be logged")
}

func TestWriteErrorGatewayUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "dial tcp: timeout"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "payment gateway unavailable", apiErr.Message)
}

func TestWriteErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "invalid body").WithDetails(map[string]string{"quantity": "min"})
	WriteError(context.Background(), nil, rec, err)

	apiErr := decodeError(t, rec)
	assert.NotNil(t, apiErr.Details)

	rec = httptest.NewRecorder()
	hidden := pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]string{"owner": "x"})
	WriteError(context.Background(), nil, rec, hidden)
	assert.Nil(t, decodeError(t, rec).Details)
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"status": "success"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"status":"success"}}`, rec.Body.String())
}

package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/thriftlane-backend/api/routes"
	"github.com/angelmondragon/thriftlane-backend/internal/app"
	"github.com/angelmondragon/thriftlane-backend/pkg/auth"
	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/db"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/paystack"
	"github.com/angelmondragon/thriftlane-backend/pkg/redis"
)

const testPaystackSecret = "sk_test_router"

type stubGateway struct {
	calls atomic.Int32
	txns  map[string]*paystack.Transaction
}

func (g *stubGateway) Verify(_ context.Context, reference string) (*paystack.Transaction, error) {
	g.calls.Add(1)
	if txn, ok := g.txns[reference]; ok {
		return txn, nil
	}
	return &paystack.Transaction{Reference: reference, Status: "failed"}, nil
}

type testEnv struct {
	handler http.Handler
	conn    *gorm.DB
	cfg     *config.Config
	gateway *stubGateway
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "thriftlane", ExpirationMinutes: 30},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginIPLimit:       50,
			LoginEmailLimit:    50,
			RegisterWindow:     time.Minute,
			RegisterIPLimit:    50,
			RegisterEmailLimit: 50,
		},
		Paystack: config.PaystackConfig{
			SecretKey:     testPaystackSecret,
			VerifyTimeout: time.Second,
			WebhookTTL:    time.Hour,
		},
		Orders:  config.OrdersConfig{DefaultCurrency: "NGN", AmountPolicy: config.AmountPolicyTransaction},
		Uploads: config.UploadsConfig{Dir: t.TempDir(), PublicPrefix: "/uploads", MaxUploadMB: 2},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig(t)
	gateway := &stubGateway{txns: map[string]*paystack.Transaction{}}

	deps, err := app.NewDependencies(app.Params{
		Config:  cfg,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:      db.Wrap(conn),
		Redis:   rdb,
		Gateway: gateway,
	})
	require.NoError(t, err)

	return &testEnv{handler: routes.NewRouter(deps), conn: conn, cfg: cfg, gateway: gateway}
}

func (e *testEnv) seedUser(t *testing.T, role enums.UserRole) (models.User, string) {
	t.Helper()
	user := models.User{
		Fullname:     "Test User",
		Email:        uuid.NewString() + "@example.com",
		PhoneNumber:  "08000000000",
		PasswordHash: "unused",
		Role:         role,
	}
	require.NoError(t, e.conn.Create(&user).Error)
	token, err := auth.MintAccessToken(e.cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: user.ID, Role: role})
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) seedItem(t *testing.T, owner uuid.UUID, price string) models.Item {
	t.Helper()
	item := models.Item{
		OwnerID: owner,
		Name:    "Denim jacket",
		Price:   decimal.RequireFromString(price),
		Gender:  enums.GenderBoth,
	}
	require.NoError(t, e.conn.Create(&item).Error)
	return item
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	live := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "test", live.Header().Get("X-Thriftlane-Env"))

	ready := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, ready.Code)
	var body map[string]string
	decodeData(t, ready, &body)
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsEndpointExposesHTTPSeries(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/health/live", "", nil)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/health/live")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/user/cart", "/api/orders", "/api/auth/me"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminRoutesRejectNormalUsers(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.seedUser(t, enums.UserRoleNormal)
	_, adminToken := env.seedUser(t, enums.UserRoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	register := map[string]string{
		"fullname":         "Ada Obi",
		"email":            "ada@example.com",
		"phone_number":     "08011112222",
		"password":         "thrift2026",
		"confirm_password": "thrift2026",
	}
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/auth/register", "", register)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "thrift2026"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)

	rec = env.do(t, http.MethodGet, "/api/auth/me", login.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada@example.com")
}

func TestReserveOrderOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.seedUser(t, enums.UserRoleNormal)
	_, buyerA := env.seedUser(t, enums.UserRoleNormal)
	_, buyerB := env.seedUser(t, enums.UserRoleNormal)
	item := env.seedItem(t, seller.ID, "25.00")

	body := map[string]any{"item_id": item.ID.String(), "quantity": 2, "location": "Lagos"}

	rec := env.do(t, http.MethodPost, "/api/order", buyerA, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
		Amount string    `json:"amount"`
	}
	decodeData(t, rec, &order)
	assert.Equal(t, "unpaid", order.Status)
	assert.True(t, decimal.RequireFromString(order.Amount).Equal(decimal.NewFromInt(50)))

	rec = env.do(t, http.MethodPost, "/api/order", buyerB, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ITEM_UNAVAILABLE", errorCode(t, rec))

	// only the owner can confirm
	rec = env.do(t, http.MethodPost, "/api/order/"+order.ID.String()+"/pay", buyerB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/order/"+order.ID.String()+"/pay", buyerA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &order)
	assert.Equal(t, "paid", order.Status)

	var stored models.Item
	require.NoError(t, env.conn.First(&stored, "id = ?", item.ID).Error)
	assert.True(t, stored.Sold)
}

func TestVerifyPaymentRecordsOrdersOnce(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.seedUser(t, enums.UserRoleNormal)
	buyer, buyerToken := env.seedUser(t, enums.UserRoleNormal)
	item := env.seedItem(t, seller.ID, "50.00")

	rec := env.do(t, http.MethodPost, "/api/user/cart", buyerToken, map[string]string{"product_id": item.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env.gateway.txns["ref-1"] = &paystack.Transaction{
		Reference: "ref-1",
		Status:    paystack.StatusSuccess,
		Amount:    5000,
		Currency:  "NGN",
		Metadata:  paystack.Metadata{CartItems: []paystack.CartItemRef{{ProductID: item.ID.String()}}},
	}

	rec = env.do(t, http.MethodPost, "/api/verify-payment", buyerToken, map[string]string{"reference": "ref-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Status           string `json:"status"`
		OrdersCreated    int    `json:"orders_created"`
		AlreadyProcessed bool   `json:"already_processed"`
	}
	decodeData(t, rec, &result)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.OrdersCreated)

	rec = env.do(t, http.MethodPost, "/api/verify-payment", buyerToken, map[string]string{"reference": "ref-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &result)
	assert.True(t, result.AlreadyProcessed)

	var count int64
	require.NoError(t, env.conn.Model(&models.Order{}).Where("reference = ?", "ref-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var lines int64
	require.NoError(t, env.conn.Model(&models.CartItem{}).Where("user_id = ?", buyer.ID).Count(&lines).Error)
	assert.Zero(t, lines)

	rec = env.do(t, http.MethodPost, "/api/verify-payment", buyerToken, map[string]string{"reference": "ref-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PAYMENT_NOT_VERIFIED", errorCode(t, rec))
}

func TestVerifyPaymentRejectsAnotherBuyersReference(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.seedUser(t, enums.UserRoleNormal)
	owner, _ := env.seedUser(t, enums.UserRoleNormal)
	_, otherToken := env.seedUser(t, enums.UserRoleNormal)
	item := env.seedItem(t, seller.ID, "50.00")

	env.gateway.txns["ref-owned"] = &paystack.Transaction{
		Reference: "ref-owned",
		Status:    paystack.StatusSuccess,
		Amount:    5000,
		Currency:  "NGN",
		Metadata: paystack.Metadata{
			BuyerID:   owner.ID.String(),
			CartItems: []paystack.CartItemRef{{ProductID: item.ID.String()}},
		},
	}

	rec := env.do(t, http.MethodPost, "/api/verify-payment", otherToken, map[string]string{"reference": "ref-owned"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	var count int64
	require.NoError(t, env.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPaystackWebhook(t *testing.T) {
	env := newTestEnv(t)
	seller, _ := env.seedUser(t, enums.UserRoleNormal)
	buyer, _ := env.seedUser(t, enums.UserRoleNormal)
	item := env.seedItem(t, seller.ID, "12.50")

	env.gateway.txns["ref-wh"] = &paystack.Transaction{
		Reference: "ref-wh",
		Status:    paystack.StatusSuccess,
		Amount:    1250,
		Currency:  "NGN",
		Metadata:  paystack.Metadata{CartItems: []paystack.CartItemRef{{ProductID: item.ID.String()}}},
	}

	body := `{"event":"charge.success","data":{"reference":"ref-wh","status":"success","amount":1250,"currency":"NGN",` +
		`"metadata":{"buyer_id":"` + buyer.ID.String() + `","cart_items":[{"product_id":"` + item.ID.String() + `"}]}}}`

	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paystack", strings.NewReader(body))
		req.Header.Set(paystack.SignatureHeader, signature)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.gateway.calls.Load())

	signature := paystack.Sign(testPaystackSecret, []byte(body))
	rec = send(signature)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome map[string]string
	decodeData(t, rec, &outcome)
	assert.Equal(t, "processed", outcome["status"])

	rec = send(signature)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &outcome)
	assert.Equal(t, "duplicate", outcome["status"])
	assert.Equal(t, int32(1), env.gateway.calls.Load())

	var order models.Order
	require.NoError(t, env.conn.First(&order, "reference = ?", "ref-wh").Error)
	assert.Equal(t, buyer.ID, order.BuyerID)
	assert.Equal(t, seller.ID, order.SellerID)
}

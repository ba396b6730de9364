package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/thriftlane-backend/internal/users"
	pkgAuth "github.com/angelmondragon/thriftlane-backend/pkg/auth"
	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/db/models"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
)

var (
	testJWT      = config.JWTConfig{Secret: "test-secret", Issuer: "thriftlane", ExpirationMinutes: 15}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

func newTestService(t *testing.T) (Service, *users.Repository) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	repo := users.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Now:            func() time.Time { return time.Now() },
	})
	require.NoError(t, err)
	return svc, repo
}

func validRegister() RegisterRequest {
	return RegisterRequest{
		Fullname:        "Chioma Eze",
		Email:           "  Chioma@Example.com ",
		PhoneNumber:     "08030000000",
		Password:        "thrift1234",
		ConfirmPassword: "thrift1234",
	}
}

func TestRegisterIssuesTokenForNormalUser(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(context.Background(), validRegister())
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "chioma@example.com", resp.User.Email)
	assert.Equal(t, enums.UserRoleNormal, resp.User.Role)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.EqualValues(t, 15*60, resp.ExpiresIn)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validRegister())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateEntry))
}

func TestRegisterValidatesPasswords(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mismatch := validRegister()
	mismatch.ConfirmPassword = "other1234"
	_, err := svc.Register(ctx, mismatch)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	weak := validRegister()
	weak.Password = "short"
	weak.ConfirmPassword = "short"
	_, err = svc.Register(ctx, weak)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLoginAndVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "CHIOMA@example.com", Password: "thrift1234"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	id, err := svc.Verify(ctx, "chioma@example.com", "thrift1234")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, id)

	_, err = svc.Login(ctx, LoginRequest{Email: "chioma@example.com", Password: "wrong1234"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Verify(ctx, "nobody@example.com", "thrift1234")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestMeAndListUsers(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegister())
	require.NoError(t, err)
	_, err = repo.Create(ctx, users.CreateUserDTO{Fullname: "Admin", Email: "admin@example.com", PhoneNumber: "1", PasswordHash: "x", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	me, err := svc.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chioma Eze", me.Fullname)

	_, err = svc.Me(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	all, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{JWTConfig: testJWT})
	assert.Error(t, err)
}

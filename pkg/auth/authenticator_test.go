package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
)

type stubRoleLookup struct {
	role enums.UserRole
	err  error
}

func (s stubRoleLookup) LookupRole(context.Context, uuid.UUID) (enums.UserRole, error) {
	return s.role, s.err
}

func mintFor(t *testing.T, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthenticateTrustsTokenWithoutLookup(t *testing.T) {
	a := NewAuthenticator(testJWTConfig(), nil)
	userID := uuid.New()

	identity, err := a.Authenticate(context.Background(), mintFor(t, userID, enums.UserRoleNormal))
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, enums.UserRoleNormal, identity.Role)
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	a := NewAuthenticator(testJWTConfig(), stubRoleLookup{role: enums.UserRoleNormal})

	identity, err := a.Authenticate(context.Background(), mintFor(t, uuid.New(), enums.UserRoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleNormal, identity.Role, "demoted admin must lose admin role")
}

func TestAuthenticateErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewAuthenticator(testJWTConfig(), nil).Authenticate(ctx, "  ")
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = NewAuthenticator(testJWTConfig(), nil).Authenticate(ctx, "garbage")
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	gone := NewAuthenticator(testJWTConfig(), stubRoleLookup{err: ErrUnknownUser})
	_, err = gone.Authenticate(ctx, mintFor(t, uuid.New(), enums.UserRoleNormal))
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	down := NewAuthenticator(testJWTConfig(), stubRoleLookup{err: errors.New("db down")})
	_, err = down.Authenticate(ctx, mintFor(t, uuid.New(), enums.UserRoleNormal))
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestRequireRole(t *testing.T) {
	a := NewAuthenticator(testJWTConfig(), nil)
	normal := Identity{UserID: uuid.New(), Role: enums.UserRoleNormal}
	admin := Identity{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	assert.NoError(t, a.RequireRole(normal, enums.UserRoleNormal))
	assert.NoError(t, a.RequireRole(admin, enums.UserRoleNormal))
	assert.NoError(t, a.RequireRole(admin, enums.UserRoleAdmin))

	err := a.RequireRole(normal, enums.UserRoleAdmin)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/google/uuid"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == enums.UserRoleAdmin
}

// RoleLookup resolves the current role of a user from the credential store.
// ErrUnknownUser signals the account no longer exists.
type RoleLookup interface {
	LookupRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error)
}

// ErrUnknownUser is returned by RoleLookup implementations for missing accounts.
var ErrUnknownUser = errors.New("unknown user")

// Authenticator turns bearer tokens into identities and enforces roles.
type Authenticator struct {
	cfg    config.JWTConfig
	lookup RoleLookup
}

// NewAuthenticator builds an Authenticator. A nil lookup trusts the role in the token.
func NewAuthenticator(cfg config.JWTConfig, lookup RoleLookup) *Authenticator {
	return &Authenticator{cfg: cfg, lookup: lookup}
}

// Authenticate validates token and returns the caller identity. When a role
// lookup is configured the stored role wins over the token claim, so role
// changes apply without waiting for token expiry.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token")
	}
	claims, err := ParseAccessToken(a.cfg, token)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	identity := Identity{UserID: claims.UserID, Role: claims.Role}
	if a.lookup == nil {
		return identity, nil
	}

	role, err := a.lookup.LookupRole(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "user no longer exists")
		}
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user role")
	}
	identity.Role = role
	return identity, nil
}

// RequireRole returns a Forbidden error unless identity holds role. Admins pass
// every role check.
func (a *Authenticator) RequireRole(identity Identity, role enums.UserRole) error {
	if identity.Role == role || identity.IsAdmin() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
}

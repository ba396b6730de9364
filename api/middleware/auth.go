package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/thriftlane-backend/api/responses"
	"github.com/angelmondragon/thriftlane-backend/api/validators"
	"github.com/angelmondragon/thriftlane-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

type identityAuthenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// Auth validates a bearer token and seeds the request context with the caller identity.
func Auth(authn identityAuthenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity.UserID.String())
				ctx = logg.WithActorRole(ctx, string(identity.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

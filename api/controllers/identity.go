package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/thriftlane-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
)

// callerID returns the authenticated user behind r.
func callerID(r *http.Request) (uuid.UUID, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return identity.UserID, nil
}

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/thriftlane-backend/api/responses"
	"github.com/angelmondragon/thriftlane-backend/api/validators"
	"github.com/angelmondragon/thriftlane-backend/internal/payments"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

type verifyPaymentRequest struct {
	Reference string `json:"reference" validate:"required,notblank"`
}

// VerifyPayment reconciles a gateway reference into orders for the caller.
func VerifyPayment(rec payments.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := rec.Reconcile(r.Context(), req.Reference, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

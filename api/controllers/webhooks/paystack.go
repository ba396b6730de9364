package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/thriftlane-backend/api/responses"
	paystackwebhook "github.com/angelmondragon/thriftlane-backend/internal/webhooks/paystack"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/paystack"
)

const maxWebhookBytes = 1 << 20

type PaystackWebhookService interface {
	ParseDelivery(body []byte, signature string) (*paystack.Event, error)
	HandleEvent(ctx context.Context, event *paystack.Event) (paystackwebhook.Outcome, error)
}

// PaystackWebhook authenticates and processes gateway deliveries.
func PaystackWebhook(svc PaystackWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := svc.ParseDelivery(payload, r.Header.Get(paystack.SignatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome, err := svc.HandleEvent(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(outcome)})
	}
}

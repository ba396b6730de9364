package paystackwebhook

import (
	"context"
	"strings"

	"github.com/angelmondragon/thriftlane-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"github.com/angelmondragon/thriftlane-backend/pkg/paystack"
	"github.com/google/uuid"
)

// Outcome describes what happened to a delivery.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

type ServiceParams struct {
	SecretKey  string
	Reconciler payments.Reconciler
	Guard      *IdempotencyGuard
	Logger     *logger.Logger
}

type Service struct {
	secret     string
	reconciler payments.Reconciler
	guard      *IdempotencyGuard
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if strings.TrimSpace(params.SecretKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paystack secret required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		secret:     params.SecretKey,
		reconciler: params.Reconciler,
		guard:      params.Guard,
		logg:       params.Logger,
	}, nil
}

// ParseDelivery authenticates a raw webhook body and decodes it.
func (s *Service) ParseDelivery(body []byte, signature string) (*paystack.Event, error) {
	if !paystack.VerifySignature(s.secret, body, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	event, err := paystack.ParseEvent(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	return event, nil
}

// HandleEvent reconciles charge.success deliveries. Each event:reference pair is
// processed once; a failed attempt releases its claim so the retry can run.
func (s *Service) HandleEvent(ctx context.Context, event *paystack.Event) (Outcome, error) {
	if event == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	if event.Event != paystack.EventChargeSuccess {
		s.logg.Debug(s.logg.WithField(ctx, "event", event.Event), "paystack.webhook_ignored")
		return OutcomeIgnored, nil
	}
	if event.Transaction == nil || strings.TrimSpace(event.Transaction.Reference) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction reference missing")
	}

	reference := strings.TrimSpace(event.Transaction.Reference)
	ctx = s.logg.WithReference(ctx, reference)

	buyerID, err := uuid.Parse(strings.TrimSpace(event.Transaction.Metadata.BuyerID))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeInvalidMetadata, "buyer_id missing from transaction metadata")
	}

	deliveryID := event.Event + ":" + reference
	seen, err := s.guard.CheckAndMark(ctx, deliveryID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook delivery")
	}
	if seen {
		s.logg.Info(ctx, "paystack.webhook_duplicate")
		return OutcomeDuplicate, nil
	}

	if _, err := s.reconciler.Reconcile(ctx, reference, buyerID); err != nil {
		if relErr := s.guard.Release(ctx, deliveryID); relErr != nil {
			s.logg.Error(ctx, "paystack.webhook_release_failed", relErr)
		}
		return "", err
	}
	s.logg.Info(ctx, "paystack.webhook_processed")
	return OutcomeProcessed, nil
}

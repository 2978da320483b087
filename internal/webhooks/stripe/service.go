package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
	"github.com/angelmondragon/sportshub-backend/pkg/logger"
)

type paymentStatusHandler interface {
	HandleGatewayStatus(ctx context.Context, intentRef, status string) (*models.Payment, error)
}

type ServiceParams struct {
	Payments paymentStatusHandler
	Logger   *logger.Logger
}

// Service translates PaymentIntent events into payment status updates.
type Service struct {
	payments paymentStatusHandler
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// HandleEvent applies one verified event. Event types outside the
// PaymentIntent lifecycle are acknowledged and ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled,
		stripe.EventTypePaymentIntentProcessing:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		if intent.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
		}
		return s.apply(ctx, event.ID, intent.ID, string(intent.Status))
	default:
		return nil
	}
}

func (s *Service) apply(ctx context.Context, eventID, intentID, status string) error {
	payment, err := s.payments.HandleGatewayStatus(ctx, intentID, status)
	if err != nil {
		// intents opened outside this service are not ours to track
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"event_id": eventID, "intent_id": intentID})
				s.logg.Warn(logCtx, "stripe webhook for unknown payment intent")
			}
			return nil
		}
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithPaymentID(ctx, payment.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"event_id":       eventID,
			"gateway_status": status,
			"payment_status": payment.Status,
		})
		s.logg.Info(logCtx, "stripe webhook applied")
	}
	return nil
}

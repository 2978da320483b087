package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

// RefundReasonRequestedByCustomer is the only refund reason the storefront issues.
const RefundReasonRequestedByCustomer = string(stripe.RefundReasonRequestedByCustomer)

// Gateway opens, inspects and refunds PaymentIntents. Failures surface as DEPENDENCY_ERROR.
type Gateway struct {
	currency  string
	newIntent func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getIntent func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	newRefund func(params *stripe.RefundParams) (*stripe.Refund, error)
}

// NewGateway binds the gateway to an initialized client. The client sets stripe.Key.
func NewGateway(client *Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client is required")
	}
	return &Gateway{
		currency:  client.Currency(),
		newIntent: paymentintent.New,
		getIntent: paymentintent.Get,
		newRefund: refund.New,
	}, nil
}

// OpenIntent creates a PaymentIntent for amountCents and returns its id and client secret.
func (g *Gateway) OpenIntent(ctx context.Context, amountCents int64, description string, metadata map[string]string) (string, string, error) {
	if amountCents <= 0 {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(g.currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	intent, err := g.newIntent(params)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return intent.ID, intent.ClientSecret, nil
}

// GetIntentStatus returns the raw PaymentIntent status string.
func (g *Gateway) GetIntentStatus(ctx context.Context, intentRef string) (string, error) {
	intent, err := g.fetch(ctx, intentRef, false)
	if err != nil {
		return "", err
	}
	return string(intent.Status), nil
}

// GetClientSecret returns the secret the storefront needs to confirm the intent.
func (g *Gateway) GetClientSecret(ctx context.Context, intentRef string) (string, error) {
	intent, err := g.fetch(ctx, intentRef, false)
	if err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}

// ChargeFromIntent returns the latest charge id attached to the intent, if any.
func (g *Gateway) ChargeFromIntent(ctx context.Context, intentRef string) (string, error) {
	intent, err := g.fetch(ctx, intentRef, true)
	if err != nil {
		return "", err
	}
	if intent.LatestCharge == nil {
		return "", nil
	}
	return intent.LatestCharge.ID, nil
}

// Refund refunds chargeRef. A nil amount refunds the full charge. Stripe
// replays the first result for a repeated idempotencyKey.
func (g *Gateway) Refund(ctx context.Context, chargeRef string, amountCents *int64, reason, idempotencyKey string) (string, error) {
	chargeRef = strings.TrimSpace(chargeRef)
	if chargeRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "charge reference is required")
	}
	if reason == "" {
		reason = RefundReasonRequestedByCustomer
	}
	params := &stripe.RefundParams{
		Charge: stripe.String(chargeRef),
		Reason: stripe.String(reason),
	}
	if amountCents != nil {
		params.Amount = stripe.Int64(*amountCents)
	}
	params.Context = ctx
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	rf, err := g.newRefund(params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
	}
	return rf.ID, nil
}

func (g *Gateway) fetch(ctx context.Context, intentRef string, expandCharge bool) (*stripe.PaymentIntent, error) {
	intentRef = strings.TrimSpace(intentRef)
	if intentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent reference is required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if expandCharge {
		params.AddExpand("latest_charge")
	}
	intent, err := g.getIntent(intentRef, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment intent")
	}
	return intent, nil
}

package payments

import "context"

// GatewayStatusSucceeded is the only intent status that lets a payment commit.
const GatewayStatusSucceeded = "succeeded"

// RefundReasonRequestedByCustomer is passed on every refund this service issues.
const RefundReasonRequestedByCustomer = "requested_by_customer"

// Gateway is the card processor surface checkout depends on. pkg/stripe.Gateway implements it.
type Gateway interface {
	// OpenIntent returns the intent id and the client secret the storefront confirms it with.
	OpenIntent(ctx context.Context, amountCents int64, description string, metadata map[string]string) (ref, clientSecret string, err error)
	GetIntentStatus(ctx context.Context, intentRef string) (string, error)
	GetClientSecret(ctx context.Context, intentRef string) (string, error)
	ChargeFromIntent(ctx context.Context, intentRef string) (string, error)
	// Refund is safe to repeat with the same idempotencyKey.
	Refund(ctx context.Context, chargeRef string, amountCents *int64, reason, idempotencyKey string) (string, error)
}

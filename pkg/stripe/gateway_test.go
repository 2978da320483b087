package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/sportshub-backend/pkg/errors"
)

func TestGatewayOpenIntent(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	g := &Gateway{
		currency: "usd",
		newIntent: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			captured = params
			return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}, nil
		},
	}

	id, secret, err := g.OpenIntent(context.Background(), 4500, "cart checkout", map[string]string{"cart_id": "c1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", id)
	assert.Equal(t, "pi_123_secret_abc", secret)
	require.NotNil(t, captured)
	assert.Equal(t, int64(4500), *captured.Amount)
	assert.Equal(t, "usd", *captured.Currency)
	assert.Equal(t, "c1", captured.Metadata["cart_id"])
}

func TestGatewayOpenIntentWrapsFailure(t *testing.T) {
	g := &Gateway{
		currency: "usd",
		newIntent: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, errors.New("card network down")
		},
	}
	_, _, err := g.OpenIntent(context.Background(), 100, "x", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGatewayChargeFromIntent(t *testing.T) {
	var expanded []*string
	g := &Gateway{
		getIntent: func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			expanded = params.Expand
			return &stripe.PaymentIntent{
				ID:           id,
				Status:       stripe.PaymentIntentStatusSucceeded,
				LatestCharge: &stripe.Charge{ID: "ch_1"},
			}, nil
		},
	}
	charge, err := g.ChargeFromIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "ch_1", charge)
	require.Len(t, expanded, 1)
	assert.Equal(t, "latest_charge", *expanded[0])

	status, err := g.GetIntentStatus(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", status)
}

func TestGatewayRefundDefaultsReason(t *testing.T) {
	var captured *stripe.RefundParams
	g := &Gateway{
		newRefund: func(params *stripe.RefundParams) (*stripe.Refund, error) {
			captured = params
			return &stripe.Refund{ID: "re_1"}, nil
		},
	}
	id, err := g.Refund(context.Background(), "ch_1", nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "re_1", id)
	assert.Equal(t, "requested_by_customer", *captured.Reason)
	assert.Nil(t, captured.Amount)
	assert.Nil(t, captured.IdempotencyKey)

	_, err = g.Refund(context.Background(), " ", nil, "", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGatewayRefundSendsIdempotencyKey(t *testing.T) {
	var captured *stripe.RefundParams
	g := &Gateway{
		newRefund: func(params *stripe.RefundParams) (*stripe.Refund, error) {
			captured = params
			return &stripe.Refund{ID: "re_1"}, nil
		},
	}
	_, err := g.Refund(context.Background(), "ch_1", nil, RefundReasonRequestedByCustomer, "refund-TXN-1A2B3C4D")
	require.NoError(t, err)
	require.NotNil(t, captured.IdempotencyKey)
	assert.Equal(t, "refund-TXN-1A2B3C4D", *captured.IdempotencyKey)
}

func TestGatewayGetClientSecret(t *testing.T) {
	g := &Gateway{
		getIntent: func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{ID: id, ClientSecret: id + "_secret_xyz"}, nil
		},
	}
	secret, err := g.GetClientSecret(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Equal(t, "pi_9_secret_xyz", secret)

	_, err = g.GetClientSecret(context.Background(), "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

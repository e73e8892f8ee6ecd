package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Stripe opens PaymentIntents through the Stripe API.
type Stripe struct {
	client *stripe.Client
}

var _ Processor = (*Stripe)(nil)

// NewStripe creates a Stripe processor authenticated with secretKey.
func NewStripe(secretKey string) *Stripe {
	return &Stripe{client: stripe.NewClient(secretKey)}
}

// NewStripeWithClient wraps an existing client, e.g. one with a custom backend.
func NewStripeWithClient(client *stripe.Client) *Stripe {
	return &Stripe{client: client}
}

// CreateCharge opens a PaymentIntent for req.
func (s *Stripe) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount.MinorUnits()),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return chargeFromIntent(pi), nil
}

// GetCharge retrieves the current state of a PaymentIntent.
func (s *Stripe) GetCharge(ctx context.Context, ref string) (*Charge, error) {
	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, ref, &stripe.PaymentIntentRetrieveParams{})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, fmt.Errorf("payment intent %s: %w", ref, ErrUnknownCharge)
		}
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	return chargeFromIntent(pi), nil
}

func chargeFromIntent(pi *stripe.PaymentIntent) *Charge {
	return &Charge{
		Ref:          pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       MapStripeStatus(pi.Status),
	}
}

// MapStripeStatus reduces a PaymentIntent status to a Status. Only succeeded
// and canceled are final; requires_payment_method is retryable on the client
// so it stays pending.
func MapStripeStatus(status stripe.PaymentIntentStatus) Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

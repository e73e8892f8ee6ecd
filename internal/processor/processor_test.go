package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		status stripe.PaymentIntentStatus
		want   Status
	}{
		{stripe.PaymentIntentStatusSucceeded, StatusSucceeded},
		{stripe.PaymentIntentStatusCanceled, StatusFailed},
		{stripe.PaymentIntentStatusProcessing, StatusPending},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, StatusPending},
		{stripe.PaymentIntentStatusRequiresAction, StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, MapStripeStatus(tt.status))
		})
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusSucceeded, ParseStatus("succeeded"))
	assert.Equal(t, StatusFailed, ParseStatus("canceled"))
	assert.Equal(t, StatusFailed, ParseStatus("failed"))
	assert.Equal(t, StatusPending, ParseStatus("processing"))
	assert.Equal(t, StatusPending, ParseStatus(""))
}

func TestFake(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	charge, err := f.CreateCharge(ctx, ChargeRequest{Amount: 5150, Currency: "usd", Metadata: map[string]string{"groupMemberId": "m1"}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, charge.Status)

	req, ok := f.Request(charge.Ref)
	require.True(t, ok)
	assert.Equal(t, "m1", req.Metadata["groupMemberId"])

	f.SetStatus(charge.Ref, StatusSucceeded)
	got, err := f.GetCharge(ctx, charge.Ref)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)

	_, err = f.GetCharge(ctx, "pi_missing")
	assert.True(t, errors.Is(err, ErrUnknownCharge))

	f.CreateErr = errors.New("card network down")
	_, err = f.CreateCharge(ctx, ChargeRequest{Amount: 1})
	assert.Error(t, err)
}

// Package processor talks to the external payment processor that settles
// member shares.
package processor

import (
	"context"
	"errors"

	"github.com/mmynk/groupsplit/internal/money"
)

// Status is a processor-side outcome, reduced to what reconciliation needs.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusPending covers every state in which the charge may still settle.
	StatusPending Status = "pending"
)

// ErrUnknownCharge is returned when the processor has no charge for a reference.
var ErrUnknownCharge = errors.New("unknown charge")

// ChargeRequest describes one charge to open.
type ChargeRequest struct {
	// Amount in minor units of Currency.
	Amount   money.Cents
	Currency string

	// Metadata is attached to the charge so webhooks can be correlated.
	Metadata map[string]string

	// IdempotencyKey makes retried opens return the same charge.
	IdempotencyKey string
}

// Charge is the processor's view of an opened charge.
type Charge struct {
	Ref          string
	ClientSecret string
	Status       Status
}

// Processor opens charges and reports their status.
type Processor interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, ref string) (*Charge, error)
}

// ParseStatus maps a status string received from outside (a webhook or an
// API caller) onto a Status. Unrecognised values are treated as pending.
func ParseStatus(s string) Status {
	switch s {
	case "succeeded", "completed":
		return StatusSucceeded
	case "failed", "canceled", "cancelled":
		return StatusFailed
	default:
		return StatusPending
	}
}

package models

import "github.com/mmynk/groupsplit/internal/money"

// PaymentStatus is the state of one payment attempt.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether no further transition is expected.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentPending
}

// Payment is one attempt to settle a GroupMember's share.
type Payment struct {
	ID            string `json:"id"`
	GroupMemberID string `json:"group_member_id"`

	// ExternalRef correlates this payment with the processor's transaction.
	// Empty until the charge has been opened.
	ExternalRef string `json:"external_ref,omitempty"`

	// Amount is the charged amount: the share plus the processing fee.
	Amount money.Cents `json:"amount"`

	Status PaymentStatus `json:"status"`

	// PaidAt is set only when Status is completed; zero otherwise.
	PaidAt int64 `json:"paid_at,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

package models

import "github.com/mmynk/groupsplit/internal/money"

// Group is the set of people splitting one reservation.
type Group struct {
	// ID is the unique identifier (UUID format).
	ID string `json:"id"`

	// ReservationID is the reservation this group belongs to (1:1).
	ReservationID string `json:"reservation_id"`

	// Name is the display name, e.g. "Blue Note Group".
	Name string `json:"name"`

	// InviteCode lets new users join. Globally unique and never changed.
	InviteCode string `json:"invite_code"`

	CreatedAt int64 `json:"created_at"`
}

// GroupMember is one user's membership and current share within a group.
type GroupMember struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`

	// ShareAmount is what this member currently owes. Never negative.
	ShareAmount money.Cents `json:"share_amount"`

	// IsPaid flips to true once a payment for this member completes.
	IsPaid bool `json:"is_paid"`

	// JoinedAt orders members for remainder assignment.
	JoinedAt int64 `json:"joined_at"`
}

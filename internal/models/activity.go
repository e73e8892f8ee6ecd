package models

// ActivityType classifies an Activity.
type ActivityType string

const (
	ActivityCreate   ActivityType = "create"
	ActivityJoin     ActivityType = "join"
	ActivityPayment  ActivityType = "payment"
	ActivityReminder ActivityType = "reminder"
)

// Activity is an immutable log entry describing a ledger event.
type Activity struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// ReservationID is optional.
	ReservationID string `json:"reservation_id,omitempty"`

	Type      ActivityType `json:"type"`
	Message   string       `json:"message"`
	CreatedAt int64        `json:"created_at"`
}

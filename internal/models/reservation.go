package models

import "github.com/mmynk/groupsplit/internal/money"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationActive, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// Reservation is a venue booking whose cost is split among a group.
type Reservation struct {
	// ID is the unique identifier (UUID format).
	ID string `json:"id"`

	// OwnerID is the user who created the reservation.
	OwnerID string `json:"owner_id"`

	VenueName  string `json:"venue_name"`
	VenueImage string `json:"venue_image,omitempty"`

	// EventDate is the Unix timestamp of the booked event.
	EventDate int64 `json:"event_date"`

	// TotalCost is fixed at creation.
	TotalCost money.Cents `json:"total_cost"`

	Description string            `json:"description,omitempty"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   int64             `json:"created_at"`
}

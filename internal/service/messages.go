package service

import (
	"github.com/mmynk/groupsplit/internal/ledger"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
)

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *models.User `json:"user"`
}

type CreateReservationRequest struct {
	VenueName   string      `json:"venue_name"`
	VenueImage  string      `json:"venue_image,omitempty"`
	EventDate   int64       `json:"event_date"`
	TotalCost   money.Cents `json:"total_cost"`
	Description string      `json:"description,omitempty"`
}

type CreateReservationResponse struct {
	Reservation *models.Reservation `json:"reservation"`
	Group       *models.Group       `json:"group"`
	Member      *models.GroupMember `json:"member"`
}

type GetReservationRequest struct {
	ReservationID string `json:"reservation_id"`
}

type GetReservationResponse struct {
	Reservation *ledger.ReservationView `json:"reservation"`
}

type UpdateReservationStatusRequest struct {
	ReservationID string                   `json:"reservation_id"`
	Status        models.ReservationStatus `json:"status"`
}

type UpdateReservationStatusResponse struct {
	Reservation *models.Reservation `json:"reservation"`
}

type JoinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

type JoinGroupResponse struct {
	Member *models.GroupMember `json:"member"`

	// Shares are every member's share after the join, keyed by member ID.
	Shares map[string]money.Cents `json:"shares"`
}

type OpenPaymentRequest struct {
	GroupMemberID string `json:"group_member_id"`
}

type OpenPaymentResponse struct {
	Payment      *models.Payment `json:"payment"`
	Amount       money.Cents     `json:"amount"`
	Currency     string          `json:"currency"`
	ClientSecret string          `json:"client_secret"`
}

type ConfirmPaymentRequest struct {
	ExternalRef string `json:"external_ref"`
}

type ConfirmPaymentResponse struct {
	Result *ledger.ReconciliationResult `json:"result"`
}

type GetDashboardRequest struct{}

type GetDashboardResponse struct {
	Dashboard *ledger.DashboardView `json:"dashboard"`
}

type ListActivitiesRequest struct {
	// Limit defaults to the dashboard feed size when zero.
	Limit int `json:"limit,omitempty"`
}

type ListActivitiesResponse struct {
	Activities []ledger.ActivityView `json:"activities"`
}

type SendReminderRequest struct {
	ReservationID string `json:"reservation_id"`
}

type SendReminderResponse struct {
	Sent int `json:"sent"`
}

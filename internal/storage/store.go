// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupsplit/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would break a uniqueness rule:
	// a second group for a reservation, a duplicate membership, or a second
	// pending payment for a member.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateInviteCode is returned when a generated invite code is
	// already taken. Callers retry with a fresh code.
	ErrDuplicateInviteCode = errors.New("invite code already in use")
)

// GroupLedger is a consistent snapshot of one group, read inside the
// transaction that will write it back.
type GroupLedger struct {
	Reservation *models.Reservation
	Group       *models.Group

	// Members are in join order.
	Members []*models.GroupMember

	// Committed holds the IDs of members with a pending or completed payment.
	Committed map[string]bool
}

// GroupMutation edits a GroupLedger in place. Members appended with an empty
// ID are inserted; existing members whose ShareAmount changed are updated.
// Returning an error rolls the whole transaction back.
type GroupMutation func(l *GroupLedger) error

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger or service layers.
type Store interface {
	// UpsertUser inserts the user or refreshes its profile fields.
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// CreateReservation writes a reservation, its group and the owner's
	// membership in one transaction. IDs and timestamps are populated.
	CreateReservation(ctx context.Context, res *models.Reservation, group *models.Group, owner *models.GroupMember) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error
	ListReservationsByOwner(ctx context.Context, userID string) ([]*models.Reservation, error)
	ListReservationsByMember(ctx context.Context, userID string) ([]*models.Reservation, error)

	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	GetGroupByReservationID(ctx context.Context, reservationID string) (*models.Group, error)
	GetGroupMember(ctx context.Context, id string) (*models.GroupMember, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error)

	// UpdateGroup loads the group's ledger, applies fn and persists the
	// result atomically.
	UpdateGroup(ctx context.Context, groupID string, fn GroupMutation) (*GroupLedger, error)

	// CreatePayment inserts a pending payment. Returns ErrConflict if the
	// member already has one pending.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SetPaymentExternalRef(ctx context.Context, paymentID, ref string) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByExternalRef(ctx context.Context, ref string) (*models.Payment, error)
	ListPaymentsByMember(ctx context.Context, memberID string) ([]*models.Payment, error)
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]*models.Payment, error)

	// CompletePayment moves a pending payment to completed and marks its
	// member paid in one transaction. It reports false, with no write, when
	// the payment was not pending.
	CompletePayment(ctx context.Context, paymentID string, paidAt int64) (bool, error)

	// FailPayment moves a pending payment to failed. It reports false when
	// the payment was not pending.
	FailPayment(ctx context.Context, paymentID string) (bool, error)

	CreateActivity(ctx context.Context, activity *models.Activity) error
	// ListActivitiesByUser returns the user's activities, newest first.
	ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error)

	// Close releases any resources held by the store.
	Close() error
}

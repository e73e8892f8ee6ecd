// Package ledger implements the group cost-splitting rules: creating a
// reservation with its group, rebalancing shares when people join, settling
// shares through the payment processor, and summarising it all for a user.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/lock"
	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/storage"
)

// inviteCodeAttempts bounds retries when a generated invite code collides.
const inviteCodeAttempts = 3

// ReservationInput is what a user supplies to create a reservation.
type ReservationInput struct {
	VenueName   string
	VenueImage  string
	EventDate   int64
	TotalCost   money.Cents
	Description string
}

// SplitEngine owns group membership and the share each member owes.
type SplitEngine struct {
	store         storage.Store
	locker        lock.Locker
	activity      *ActivityLog
	metrics       *metrics.Ledger
	newInviteCode func(venue string) string
}

// NewSplitEngine creates a SplitEngine. locker serialises joins per group.
func NewSplitEngine(store storage.Store, locker lock.Locker, activity *ActivityLog, m *metrics.Ledger) *SplitEngine {
	return &SplitEngine{
		store:         store,
		locker:        locker,
		activity:      activity,
		metrics:       m,
		newInviteCode: NewInviteCode,
	}
}

// NewInviteCode builds a human-readable, hard-to-guess invite code from the
// venue name, e.g. "blue-note-3f9a1c2e".
func NewInviteCode(venue string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	s := slug.Make(venue)
	if len(s) > 12 {
		s = strings.TrimRight(s[:12], "-")
	}
	if s == "" {
		return suffix
	}
	return s + "-" + suffix
}

func validateUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return validationError("user is required")
	}
	return nil
}

// CreateReservation records a reservation owned by owner, creates its group
// and makes the owner the first member, liable for the whole cost.
func (e *SplitEngine) CreateReservation(ctx context.Context, owner *models.User, in ReservationInput) (*models.Reservation, *models.Group, *models.GroupMember, error) {
	if err := validateUser(owner); err != nil {
		return nil, nil, nil, err
	}
	venue := strings.TrimSpace(in.VenueName)
	if venue == "" {
		return nil, nil, nil, validationError("venue name is required")
	}
	if in.TotalCost <= 0 {
		return nil, nil, nil, validationError("total cost must be positive, got %s", in.TotalCost)
	}
	if in.EventDate == 0 {
		return nil, nil, nil, validationError("event date is required")
	}

	if err := e.store.UpsertUser(ctx, owner); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to save owner profile: %w", err)
	}

	res, group, member, err := e.createInitialGroup(ctx, owner, venue, in)
	if err != nil {
		return nil, nil, nil, err
	}

	slog.Info("Reservation created",
		"reservation_id", res.ID,
		"group_id", group.ID,
		"owner_id", owner.ID,
		"total_cost", res.TotalCost.String(),
	)
	e.metrics.ReservationCreated()

	e.activity.Record(ctx, &models.Activity{
		UserID:        owner.ID,
		ReservationID: res.ID,
		Type:          models.ActivityCreate,
		Message:       fmt.Sprintf("Created reservation for %s", res.VenueName),
	})

	return res, group, member, nil
}

// createInitialGroup writes the reservation, its group and the owner's
// membership atomically, drawing a new invite code on collision.
func (e *SplitEngine) createInitialGroup(ctx context.Context, owner *models.User, venue string, in ReservationInput) (*models.Reservation, *models.Group, *models.GroupMember, error) {
	var lastErr error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		res := &models.Reservation{
			OwnerID:     owner.ID,
			VenueName:   venue,
			VenueImage:  in.VenueImage,
			EventDate:   in.EventDate,
			TotalCost:   in.TotalCost,
			Description: in.Description,
			Status:      models.ReservationActive,
		}
		group := &models.Group{
			Name:       venue + " Group",
			InviteCode: e.newInviteCode(venue),
		}
		member := &models.GroupMember{
			UserID:      owner.ID,
			ShareAmount: in.TotalCost,
		}

		err := e.store.CreateReservation(ctx, res, group, member)
		if err == nil {
			return res, group, member, nil
		}
		if !errors.Is(err, storage.ErrDuplicateInviteCode) {
			return nil, nil, nil, fmt.Errorf("failed to create reservation: %w", classify(err))
		}

		slog.Warn("Invite code collision, retrying", "invite_code", group.InviteCode, "attempt", attempt+1)
		lastErr = err
	}
	return nil, nil, nil, fmt.Errorf("failed to allocate invite code: %w", classify(lastErr))
}

// JoinGroup adds user to the group behind inviteCode and rebalances shares.
// Members who have paid or have a payment in flight keep their share; the
// rest of the cost is split equally among everyone else and the joiner.
func (e *SplitEngine) JoinGroup(ctx context.Context, inviteCode string, user *models.User) (*models.GroupMember, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, validationError("invite code is required")
	}

	group, err := e.store.GetGroupByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, fmt.Errorf("invalid invite code: %w", classify(err))
	}

	if err := e.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user profile: %w", err)
	}

	start := time.Now()
	release, err := e.locker.Lock(ctx, lock.GroupKey(group.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}
	defer release()
	e.metrics.ObserveLockWait("group", time.Since(start))

	var joined *models.GroupMember
	ledger, err := e.store.UpdateGroup(ctx, group.ID, func(l *storage.GroupLedger) error {
		for _, m := range l.Members {
			if m.UserID == user.ID {
				return ErrAlreadyMember
			}
		}
		if l.Reservation.Status != models.ReservationActive {
			return fmt.Errorf("%w: reservation is %s", ErrConflict, l.Reservation.Status)
		}

		participants := make([]calculator.Participant, len(l.Members))
		for i, m := range l.Members {
			participants[i] = calculator.Participant{
				ID:     m.ID,
				Share:  m.ShareAmount,
				Frozen: m.IsPaid || l.Committed[m.ID],
			}
		}

		shares, joinerShare, err := calculator.Rebalance(l.Reservation.TotalCost, participants)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		for i, m := range l.Members {
			m.ShareAmount = shares[i]
		}

		joined = &models.GroupMember{UserID: user.ID, ShareAmount: joinerShare}
		l.Members = append(l.Members, joined)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyMember) || errors.Is(err, storage.ErrConflict) {
			e.metrics.GroupJoin(metrics.JoinResultAlreadyMember)
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to join group: %w", classify(err))
	}
	e.metrics.GroupJoin(metrics.JoinResultJoined)

	slog.Info("Member joined group",
		"group_id", group.ID,
		"user_id", user.ID,
		"member_id", joined.ID,
		"share", joined.ShareAmount.String(),
		"members", len(ledger.Members),
	)

	e.activity.Record(ctx, &models.Activity{
		UserID:        user.ID,
		ReservationID: ledger.Reservation.ID,
		Type:          models.ActivityJoin,
		Message:       fmt.Sprintf("%s joined the group for %s", user.DisplayName(), ledger.Reservation.VenueName),
	})

	return joined, nil
}

// Shares returns the stored share of every member of a group, keyed by member ID.
func (e *SplitEngine) Shares(ctx context.Context, groupID string) (map[string]money.Cents, error) {
	members, err := e.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, classify(err)
	}
	if len(members) == 0 {
		if _, err := e.store.GetGroup(ctx, groupID); err != nil {
			return nil, classify(err)
		}
	}

	shares := make(map[string]money.Cents, len(members))
	for _, m := range members {
		shares[m.ID] = m.ShareAmount
	}
	return shares, nil
}

// UpdateReservationStatus moves a reservation to status. Only the owner may
// do this; the total cost never changes.
func (e *SplitEngine) UpdateReservationStatus(ctx context.Context, actorID, reservationID string, status models.ReservationStatus) (*models.Reservation, error) {
	if !status.Valid() {
		return nil, validationError("unknown reservation status %q", status)
	}

	res, err := e.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, classify(err)
	}
	if res.OwnerID != actorID {
		return nil, fmt.Errorf("%w: only the owner can change a reservation", ErrForbidden)
	}
	if res.Status == status {
		return res, nil
	}

	if err := e.store.UpdateReservationStatus(ctx, reservationID, status); err != nil {
		return nil, classify(err)
	}
	slog.Info("Reservation status changed", "reservation_id", reservationID, "from", res.Status, "to", status)

	res.Status = status
	return res, nil
}

// Remind writes a reminder activity for every unpaid member of the
// reservation other than the owner. It returns how many were sent.
func (e *SplitEngine) Remind(ctx context.Context, actor *models.User, reservationID string) (int, error) {
	if err := validateUser(actor); err != nil {
		return 0, err
	}

	res, err := e.store.GetReservation(ctx, reservationID)
	if err != nil {
		return 0, classify(err)
	}
	if res.OwnerID != actor.ID {
		return 0, fmt.Errorf("%w: only the owner can send reminders", ErrForbidden)
	}

	group, err := e.store.GetGroupByReservationID(ctx, reservationID)
	if err != nil {
		return 0, classify(err)
	}
	members, err := e.store.ListGroupMembers(ctx, group.ID)
	if err != nil {
		return 0, classify(err)
	}

	sent := 0
	for _, m := range members {
		if m.IsPaid || m.UserID == actor.ID || m.ShareAmount == 0 {
			continue
		}
		e.activity.Record(ctx, &models.Activity{
			UserID:        m.UserID,
			ReservationID: res.ID,
			Type:          models.ActivityReminder,
			Message:       fmt.Sprintf("%s reminded you to pay %s for %s", actor.DisplayName(), m.ShareAmount, res.VenueName),
		})
		sent++
	}

	slog.Info("Reminders sent", "reservation_id", res.ID, "count", sent)
	return sent, nil
}

package ledger

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/storage"
)

// DefaultFeedLimit is the number of activities shown on a dashboard.
const DefaultFeedLimit = 10

// MemberView is a group member with their profile and payment attempts.
type MemberView struct {
	Member   *models.GroupMember `json:"member"`
	User     *models.User        `json:"user,omitempty"`
	Payments []*models.Payment   `json:"payments"`
}

// ReservationView is a reservation with its group and members.
type ReservationView struct {
	Reservation *models.Reservation `json:"reservation"`
	Group       *models.Group       `json:"group"`
	Members     []MemberView        `json:"members"`
}

// Stats are the headline numbers of a dashboard.
type Stats struct {
	ActiveReservations int `json:"active_reservations"`

	// TotalSaved is in whole currency units.
	TotalSaved int64 `json:"total_saved"`

	// GroupMembers counts memberships across the user's reservations.
	GroupMembers int `json:"group_members"`
}

// ActivityView is an activity with its actor and optional reservation.
type ActivityView struct {
	Activity    *models.Activity    `json:"activity"`
	User        *models.User        `json:"user,omitempty"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
}

// DashboardView is everything a user sees on their dashboard.
type DashboardView struct {
	Reservations []ReservationView `json:"reservations"`
	Stats        Stats             `json:"stats"`
	Activities   []ActivityView    `json:"activities"`
}

// Dashboard builds read-only views of the ledger. It never writes.
type Dashboard struct {
	store     storage.Store
	activity  *ActivityLog
	feedLimit int
}

// NewDashboard creates a Dashboard. A non-positive feedLimit means DefaultFeedLimit.
func NewDashboard(store storage.Store, activity *ActivityLog, feedLimit int) *Dashboard {
	if feedLimit <= 0 {
		feedLimit = DefaultFeedLimit
	}
	return &Dashboard{store: store, activity: activity, feedLimit: feedLimit}
}

// Compute assembles the dashboard for userID: every reservation the user owns
// or belongs to, aggregate stats, and the most recent activities.
func (d *Dashboard) Compute(ctx context.Context, userID string) (*DashboardView, error) {
	if userID == "" {
		return nil, validationError("user ID is required")
	}

	reservations, err := d.reservationsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &DashboardView{
		Reservations: make([]ReservationView, 0, len(reservations)),
		Activities:   make([]ActivityView, 0),
	}

	totals := make([]money.Cents, 0, len(reservations))
	counts := make([]int, 0, len(reservations))
	for _, res := range reservations {
		rv, err := d.reservationView(ctx, res)
		if err != nil {
			return nil, err
		}
		view.Reservations = append(view.Reservations, *rv)

		if res.Status == models.ReservationActive {
			view.Stats.ActiveReservations++
		}
		view.Stats.GroupMembers += len(rv.Members)
		totals = append(totals, res.TotalCost)
		counts = append(counts, len(rv.Members))
	}
	view.Stats.TotalSaved = calculator.TotalSavings(totals, counts)

	activities, err := d.Activities(ctx, userID, d.feedLimit)
	if err != nil {
		return nil, err
	}
	view.Activities = activities

	return view, nil
}

// reservationsFor merges owned and joined reservations, newest first, each
// reservation once.
func (d *Dashboard) reservationsFor(ctx context.Context, userID string) ([]*models.Reservation, error) {
	owned, err := d.store.ListReservationsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned reservations: %w", classify(err))
	}
	joined, err := d.store.ListReservationsByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined reservations: %w", classify(err))
	}

	seen := make(map[string]bool, len(owned)+len(joined))
	merged := make([]*models.Reservation, 0, len(owned)+len(joined))
	for _, res := range append(owned, joined...) {
		if seen[res.ID] {
			continue
		}
		seen[res.ID] = true
		merged = append(merged, res)
	}

	slices.SortStableFunc(merged, func(a, b *models.Reservation) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		}
		return 0
	})
	return merged, nil
}

func (d *Dashboard) reservationView(ctx context.Context, res *models.Reservation) (*ReservationView, error) {
	group, err := d.store.GetGroupByReservationID(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", classify(err))
	}
	members, err := d.store.ListGroupMembers(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", classify(err))
	}
	payments, err := d.store.ListPaymentsByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", classify(err))
	}

	userIDs := make([]string, len(members))
	for i, m := range members {
		userIDs[i] = m.UserID
	}
	users, err := d.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load member profiles: %w", classify(err))
	}

	byMember := make(map[string][]*models.Payment)
	for _, p := range payments {
		byMember[p.GroupMemberID] = append(byMember[p.GroupMemberID], p)
	}

	rv := &ReservationView{
		Reservation: res,
		Group:       group,
		Members:     make([]MemberView, len(members)),
	}
	for i, m := range members {
		history := byMember[m.ID]
		if history == nil {
			history = []*models.Payment{}
		}
		rv.Members[i] = MemberView{Member: m, User: users[m.UserID], Payments: history}
	}
	return rv, nil
}

// Reservation returns one reservation as seen by userID, who must own it or
// belong to its group.
func (d *Dashboard) Reservation(ctx context.Context, userID, reservationID string) (*ReservationView, error) {
	res, err := d.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, classify(err)
	}

	rv, err := d.reservationView(ctx, res)
	if err != nil {
		return nil, err
	}
	if res.OwnerID == userID {
		return rv, nil
	}
	for _, m := range rv.Members {
		if m.Member.UserID == userID {
			return rv, nil
		}
	}
	return nil, fmt.Errorf("%w: not a member of this reservation", ErrForbidden)
}

// Activities returns up to limit of the user's activities, most recent first,
// with actor profiles and reservations attached.
func (d *Dashboard) Activities(ctx context.Context, userID string, limit int) ([]ActivityView, error) {
	activities, err := d.activity.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	var userIDs []string
	seenUser := make(map[string]bool)
	for _, a := range activities {
		if !seenUser[a.UserID] {
			seenUser[a.UserID] = true
			userIDs = append(userIDs, a.UserID)
		}
	}
	users, err := d.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity profiles: %w", classify(err))
	}

	reservations := make(map[string]*models.Reservation)
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		v := ActivityView{Activity: a, User: users[a.UserID]}
		if a.ReservationID != "" {
			res, ok := reservations[a.ReservationID]
			if !ok {
				res, err = d.store.GetReservation(ctx, a.ReservationID)
				if err != nil {
					res = nil
				}
				reservations[a.ReservationID] = res
			}
			v.Reservation = res
		}
		views = append(views, v)
	}
	return views, nil
}

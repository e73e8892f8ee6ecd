package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/ledger"
	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store     storage.Store
	split     *ledger.SplitEngine
	reconcile *ledger.Reconciler
	dashboard *ledger.Dashboard
}

// NewLedgerService creates a LedgerService backed by the given ledger components.
func NewLedgerService(store storage.Store, split *ledger.SplitEngine, reconcile *ledger.Reconciler, dashboard *ledger.Dashboard) *LedgerService {
	return &LedgerService{
		store:     store,
		split:     split,
		reconcile: reconcile,
		dashboard: dashboard,
	}
}

// caller returns the authenticated user put in the context by RequireAuth.
func caller(ctx context.Context) (*models.User, error) {
	user := middleware.GetUser(ctx)
	if user == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return user, nil
}

// GetCurrentUser refreshes and returns the caller's stored profile.
func (s *LedgerService) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpsertUser(ctx, user); err != nil {
		slog.Error("GetCurrentUser failed", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	stored, err := s.store.GetUser(ctx, user.ID)
	if err != nil {
		slog.Error("GetCurrentUser failed", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetCurrentUserResponse{User: stored}), nil
}

// CreateReservation creates a reservation and its group, owned by the caller.
func (s *LedgerService) CreateReservation(ctx context.Context, req *connect.Request[CreateReservationRequest]) (*connect.Response[CreateReservationResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("CreateReservation request received",
		"user_id", user.ID,
		"venue", req.Msg.VenueName,
		"total_cost", req.Msg.TotalCost.String(),
	)

	res, group, member, err := s.split.CreateReservation(ctx, user, ledger.ReservationInput{
		VenueName:   req.Msg.VenueName,
		VenueImage:  req.Msg.VenueImage,
		EventDate:   req.Msg.EventDate,
		TotalCost:   req.Msg.TotalCost,
		Description: req.Msg.Description,
	})
	if err != nil {
		slog.Error("CreateReservation failed", "user_id", user.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("CreateReservation successful", "reservation_id", res.ID, "invite_code", group.InviteCode)

	return connect.NewResponse(&CreateReservationResponse{
		Reservation: res,
		Group:       group,
		Member:      member,
	}), nil
}

// GetReservation returns a reservation the caller owns or belongs to.
func (s *LedgerService) GetReservation(ctx context.Context, req *connect.Request[GetReservationRequest]) (*connect.Response[GetReservationResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("GetReservation request received", "reservation_id", req.Msg.ReservationID)

	view, err := s.dashboard.Reservation(ctx, user.ID, req.Msg.ReservationID)
	if err != nil {
		slog.Error("GetReservation failed", "reservation_id", req.Msg.ReservationID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetReservationResponse{Reservation: view}), nil
}

// UpdateReservationStatus changes the status of a reservation the caller owns.
func (s *LedgerService) UpdateReservationStatus(ctx context.Context, req *connect.Request[UpdateReservationStatusRequest]) (*connect.Response[UpdateReservationStatusResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("UpdateReservationStatus request received",
		"reservation_id", req.Msg.ReservationID,
		"status", req.Msg.Status,
	)

	res, err := s.split.UpdateReservationStatus(ctx, user.ID, req.Msg.ReservationID, req.Msg.Status)
	if err != nil {
		slog.Error("UpdateReservationStatus failed", "reservation_id", req.Msg.ReservationID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&UpdateReservationStatusResponse{Reservation: res}), nil
}

// JoinGroup adds the caller to the group behind an invite code.
func (s *LedgerService) JoinGroup(ctx context.Context, req *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("JoinGroup request received", "user_id", user.ID, "invite_code", req.Msg.InviteCode)

	member, err := s.split.JoinGroup(ctx, req.Msg.InviteCode, user)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyMember) {
			slog.Warn("JoinGroup rejected", "user_id", user.ID, "error", err)
		} else {
			slog.Error("JoinGroup failed", "user_id", user.ID, "error", err)
		}
		return nil, toConnectError(err)
	}

	shares, err := s.split.Shares(ctx, member.GroupID)
	if err != nil {
		slog.Error("JoinGroup failed to read shares", "group_id", member.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("JoinGroup successful", "group_id", member.GroupID, "member_id", member.ID)

	return connect.NewResponse(&JoinGroupResponse{Member: member, Shares: shares}), nil
}

// OpenPayment opens a processor charge for the caller's share.
func (s *LedgerService) OpenPayment(ctx context.Context, req *connect.Request[OpenPaymentRequest]) (*connect.Response[OpenPaymentResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("OpenPayment request received", "user_id", user.ID, "member_id", req.Msg.GroupMemberID)

	opened, err := s.reconcile.OpenPayment(ctx, req.Msg.GroupMemberID, user.ID)
	if err != nil {
		slog.Error("OpenPayment failed", "member_id", req.Msg.GroupMemberID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("OpenPayment successful", "payment_id", opened.Payment.ID, "amount", opened.Amount.String())

	return connect.NewResponse(&OpenPaymentResponse{
		Payment:      opened.Payment,
		Amount:       opened.Amount,
		Currency:     opened.Currency,
		ClientSecret: opened.ClientSecret,
	}), nil
}

// ConfirmPayment asks the processor for a payment's status and applies it.
func (s *LedgerService) ConfirmPayment(ctx context.Context, req *connect.Request[ConfirmPaymentRequest]) (*connect.Response[ConfirmPaymentResponse], error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}

	slog.Info("ConfirmPayment request received", "external_ref", req.Msg.ExternalRef)

	result, err := s.reconcile.ConfirmFromProcessor(ctx, req.Msg.ExternalRef)
	if err != nil {
		slog.Error("ConfirmPayment failed", "external_ref", req.Msg.ExternalRef, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("ConfirmPayment successful",
		"external_ref", req.Msg.ExternalRef,
		"applied", result.Applied,
		"deferred", result.Deferred,
	)

	return connect.NewResponse(&ConfirmPaymentResponse{Result: result}), nil
}

// GetDashboard returns the caller's dashboard.
func (s *LedgerService) GetDashboard(ctx context.Context, req *connect.Request[GetDashboardRequest]) (*connect.Response[GetDashboardResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.dashboard.Compute(ctx, user.ID)
	if err != nil {
		slog.Error("GetDashboard failed", "user_id", user.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetDashboard successful",
		"user_id", user.ID,
		"reservations", len(view.Reservations),
		"activities", len(view.Activities),
	)

	return connect.NewResponse(&GetDashboardResponse{Dashboard: view}), nil
}

// ListActivities returns the caller's activity feed.
func (s *LedgerService) ListActivities(ctx context.Context, req *connect.Request[ListActivitiesRequest]) (*connect.Response[ListActivitiesResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	limit := req.Msg.Limit
	if limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}
	if limit == 0 {
		limit = ledger.DefaultFeedLimit
	}

	activities, err := s.dashboard.Activities(ctx, user.ID, limit)
	if err != nil {
		slog.Error("ListActivities failed", "user_id", user.ID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&ListActivitiesResponse{Activities: activities}), nil
}

// SendReminder nudges the unpaid members of a reservation the caller owns.
func (s *LedgerService) SendReminder(ctx context.Context, req *connect.Request[SendReminderRequest]) (*connect.Response[SendReminderResponse], error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("SendReminder request received", "user_id", user.ID, "reservation_id", req.Msg.ReservationID)

	sent, err := s.split.Remind(ctx, user, req.Msg.ReservationID)
	if err != nil {
		slog.Error("SendReminder failed", "reservation_id", req.Msg.ReservationID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&SendReminderResponse{Sent: sent}), nil
}

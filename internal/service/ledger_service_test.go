package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mmynk/groupsplit/internal/auth"
	"github.com/mmynk/groupsplit/internal/ledger"
	"github.com/mmynk/groupsplit/internal/lock"
	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/processor"
	"github.com/mmynk/groupsplit/internal/storage/sqlite"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "whsec_test"
)

type testServer struct {
	client    *LedgerServiceClient
	processor *processor.Fake
	url       string
	jwt       *auth.JWTManager
}

// setupTestServer starts a LedgerService and Stripe webhook backed by a temp database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	locker := lock.NewLocal()
	fake := processor.NewFake()
	activity := ledger.NewActivityLog(store, nil)
	reconcile := ledger.NewReconciler(store, fake, locker, activity, nil, ledger.ReconcilerConfig{
		Currency:   "usd",
		FeePercent: decimal.NewFromInt(3),
	})
	svc := NewLedgerService(store,
		ledger.NewSplitEngine(store, locker, activity, nil),
		reconcile,
		ledger.NewDashboard(store, activity, 0),
	)

	jwtManager := auth.NewJWTManager(testJWTSecret)
	path, handler := NewLedgerServiceHandler(svc, connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.Handle("/webhooks/stripe", NewStripeWebhook(reconcile, testWebhookSecret))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		client:    NewLedgerServiceClient(http.DefaultClient, server.URL),
		processor: fake,
		url:       server.URL,
		jwt:       jwtManager,
	}
}

// as builds a request authenticated as the user with the given ID.
func as[T any](t *testing.T, s *testServer, userID string, msg *T) *connect.Request[T] {
	t.Helper()
	token, err := s.jwt.Generate(&models.User{ID: userID, FirstName: userID}, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("expected code %v, got %v (%v)", code, got, err)
	}
}

func TestLedgerServiceFlow(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	created, err := s.client.CreateReservation(ctx, as(t, s, "alice", &CreateReservationRequest{
		VenueName: "Blue Note",
		EventDate: 1735689600,
		TotalCost: 15000,
	}))
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}
	if created.Msg.Group.Name != "Blue Note Group" {
		t.Errorf("group name: expected 'Blue Note Group', got '%s'", created.Msg.Group.Name)
	}
	if created.Msg.Member.ShareAmount != 15000 {
		t.Errorf("owner share: expected 150.00, got %s", created.Msg.Member.ShareAmount)
	}
	code := created.Msg.Group.InviteCode

	bob, err := s.client.JoinGroup(ctx, as(t, s, "bob", &JoinGroupRequest{InviteCode: code}))
	if err != nil {
		t.Fatalf("JoinGroup(bob) failed: %v", err)
	}
	if bob.Msg.Member.ShareAmount != 7500 {
		t.Errorf("bob share: expected 75.00, got %s", bob.Msg.Member.ShareAmount)
	}

	carol, err := s.client.JoinGroup(ctx, as(t, s, "carol", &JoinGroupRequest{InviteCode: code}))
	if err != nil {
		t.Fatalf("JoinGroup(carol) failed: %v", err)
	}
	if len(carol.Msg.Shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(carol.Msg.Shares))
	}
	var total money.Cents
	for _, share := range carol.Msg.Shares {
		if share != 5000 {
			t.Errorf("expected every share to be 50.00, got %s", share)
		}
		total += share
	}
	if total != 15000 {
		t.Errorf("shares sum to %s, want 150.00", total)
	}

	opened, err := s.client.OpenPayment(ctx, as(t, s, "carol", &OpenPaymentRequest{GroupMemberID: carol.Msg.Member.ID}))
	if err != nil {
		t.Fatalf("OpenPayment failed: %v", err)
	}
	if opened.Msg.Amount != 5150 {
		t.Errorf("amount: expected 51.50, got %s", opened.Msg.Amount)
	}
	ref := opened.Msg.Payment.ExternalRef

	s.processor.SetStatus(ref, processor.StatusSucceeded)
	confirmed, err := s.client.ConfirmPayment(ctx, as(t, s, "carol", &ConfirmPaymentRequest{ExternalRef: ref}))
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if !confirmed.Msg.Result.Applied {
		t.Error("expected first confirmation to apply")
	}

	again, err := s.client.ConfirmPayment(ctx, as(t, s, "carol", &ConfirmPaymentRequest{ExternalRef: ref}))
	if err != nil {
		t.Fatalf("second ConfirmPayment failed: %v", err)
	}
	if again.Msg.Result.Applied || !again.Msg.Result.AlreadyApplied {
		t.Errorf("expected second confirmation to be a no-op, got %+v", again.Msg.Result)
	}

	dash, err := s.client.GetDashboard(ctx, as(t, s, "alice", &GetDashboardRequest{}))
	if err != nil {
		t.Fatalf("GetDashboard failed: %v", err)
	}
	stats := dash.Msg.Dashboard.Stats
	if stats.ActiveReservations != 1 || stats.GroupMembers != 3 || stats.TotalSaved != 100 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	feed, err := s.client.ListActivities(ctx, as(t, s, "carol", &ListActivitiesRequest{}))
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(feed.Msg.Activities) != 2 {
		t.Fatalf("expected join and payment activities, got %d", len(feed.Msg.Activities))
	}
	if msg := feed.Msg.Activities[0].Activity.Message; msg != "Payment completed for 51.50 USD" {
		t.Errorf("unexpected latest activity: %q", msg)
	}

	reminded, err := s.client.SendReminder(ctx, as(t, s, "alice", &SendReminderRequest{ReservationID: created.Msg.Reservation.ID}))
	if err != nil {
		t.Fatalf("SendReminder failed: %v", err)
	}
	if reminded.Msg.Sent != 1 {
		t.Errorf("expected 1 reminder (bob), got %d", reminded.Msg.Sent)
	}

	view, err := s.client.GetReservation(ctx, as(t, s, "bob", &GetReservationRequest{ReservationID: created.Msg.Reservation.ID}))
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if len(view.Msg.Reservation.Members) != 3 {
		t.Errorf("expected 3 members, got %d", len(view.Msg.Reservation.Members))
	}
}

func TestLedgerServiceErrors(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	created, err := s.client.CreateReservation(ctx, as(t, s, "alice", &CreateReservationRequest{
		VenueName: "Jazz Bar",
		EventDate: 1735689600,
		TotalCost: 10000,
	}))
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}
	code := created.Msg.Group.InviteCode
	resID := created.Msg.Reservation.ID

	bob, err := s.client.JoinGroup(ctx, as(t, s, "bob", &JoinGroupRequest{InviteCode: code}))
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	t.Run("missing token", func(t *testing.T) {
		_, err := s.client.GetDashboard(ctx, connect.NewRequest(&GetDashboardRequest{}))
		wantCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("invalid reservation", func(t *testing.T) {
		_, err := s.client.CreateReservation(ctx, as(t, s, "alice", &CreateReservationRequest{VenueName: "X", EventDate: 1}))
		wantCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("join twice", func(t *testing.T) {
		_, err := s.client.JoinGroup(ctx, as(t, s, "bob", &JoinGroupRequest{InviteCode: code}))
		wantCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("unknown invite code", func(t *testing.T) {
		_, err := s.client.JoinGroup(ctx, as(t, s, "carol", &JoinGroupRequest{InviteCode: "nope"}))
		wantCode(t, err, connect.CodeNotFound)
	})

	t.Run("paying someone else's share", func(t *testing.T) {
		_, err := s.client.OpenPayment(ctx, as(t, s, "alice", &OpenPaymentRequest{GroupMemberID: bob.Msg.Member.ID}))
		wantCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("second pending payment", func(t *testing.T) {
		if _, err := s.client.OpenPayment(ctx, as(t, s, "bob", &OpenPaymentRequest{GroupMemberID: bob.Msg.Member.ID})); err != nil {
			t.Fatalf("OpenPayment failed: %v", err)
		}
		_, err := s.client.OpenPayment(ctx, as(t, s, "bob", &OpenPaymentRequest{GroupMemberID: bob.Msg.Member.ID}))
		wantCode(t, err, connect.CodeFailedPrecondition)
	})

	t.Run("processor down", func(t *testing.T) {
		carol, err := s.client.JoinGroup(ctx, as(t, s, "carol", &JoinGroupRequest{InviteCode: code}))
		if err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}
		s.processor.CreateErr = errors.New("connection refused")
		defer func() { s.processor.CreateErr = nil }()

		_, err = s.client.OpenPayment(ctx, as(t, s, "carol", &OpenPaymentRequest{GroupMemberID: carol.Msg.Member.ID}))
		wantCode(t, err, connect.CodeUnavailable)
	})

	t.Run("non-owner reminder", func(t *testing.T) {
		_, err := s.client.SendReminder(ctx, as(t, s, "bob", &SendReminderRequest{ReservationID: resID}))
		wantCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("non-member reservation", func(t *testing.T) {
		_, err := s.client.GetReservation(ctx, as(t, s, "mallory", &GetReservationRequest{ReservationID: resID}))
		wantCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("unknown payment reference", func(t *testing.T) {
		_, err := s.client.ConfirmPayment(ctx, as(t, s, "bob", &ConfirmPaymentRequest{ExternalRef: "pi_missing"}))
		wantCode(t, err, connect.CodeNotFound)
	})

	t.Run("cancel then join", func(t *testing.T) {
		_, err := s.client.UpdateReservationStatus(ctx, as(t, s, "alice", &UpdateReservationStatusRequest{
			ReservationID: resID,
			Status:        models.ReservationCancelled,
		}))
		if err != nil {
			t.Fatalf("UpdateReservationStatus failed: %v", err)
		}
		_, err = s.client.JoinGroup(ctx, as(t, s, "dave", &JoinGroupRequest{InviteCode: code}))
		wantCode(t, err, connect.CodeFailedPrecondition)
	})
}

func TestGetCurrentUser(t *testing.T) {
	s := setupTestServer(t)

	resp, err := s.client.GetCurrentUser(context.Background(), as(t, s, "alice", &GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.ID != "alice" || resp.Msg.User.FirstName != "alice" {
		t.Errorf("unexpected user: %+v", resp.Msg.User)
	}
	if resp.Msg.User.CreatedAt == 0 {
		t.Error("expected stored user to have CreatedAt")
	}
}

func postWebhook(t *testing.T, s *testServer, payload []byte, secret string) int {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret})

	req, err := http.NewRequest(http.MethodPost, s.url+"/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

// memberView returns userID's entry in the reservation, as seen by userID.
func memberView(t *testing.T, s *testServer, reservationID, userID string) ledger.MemberView {
	t.Helper()
	view, err := s.client.GetReservation(context.Background(), as(t, s, userID, &GetReservationRequest{ReservationID: reservationID}))
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	for _, m := range view.Msg.Reservation.Members {
		if m.Member.UserID == userID {
			return m
		}
	}
	t.Fatalf("user %s is not a member of %s", userID, reservationID)
	return ledger.MemberView{}
}

func paymentIntentEvent(eventType, ref, status string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test",
		"object": "event",
		"type": %q,
		"data": {"object": {"id": %q, "object": "payment_intent", "status": %q}}
	}`, eventType, ref, status))
}

func TestStripeWebhook(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	created, err := s.client.CreateReservation(ctx, as(t, s, "alice", &CreateReservationRequest{
		VenueName: "Blue Note", EventDate: 1735689600, TotalCost: 10000,
	}))
	if err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}
	bob, err := s.client.JoinGroup(ctx, as(t, s, "bob", &JoinGroupRequest{InviteCode: created.Msg.Group.InviteCode}))
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	opened, err := s.client.OpenPayment(ctx, as(t, s, "bob", &OpenPaymentRequest{GroupMemberID: bob.Msg.Member.ID}))
	if err != nil {
		t.Fatalf("OpenPayment failed: %v", err)
	}
	ref := opened.Msg.Payment.ExternalRef

	t.Run("bad signature is rejected", func(t *testing.T) {
		status := postWebhook(t, s, paymentIntentEvent("payment_intent.succeeded", ref, "succeeded"), "whsec_wrong")
		if status != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
	})

	t.Run("cancellation fails the payment", func(t *testing.T) {
		carol, err := s.client.JoinGroup(ctx, as(t, s, "carol", &JoinGroupRequest{InviteCode: created.Msg.Group.InviteCode}))
		if err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}
		opened, err := s.client.OpenPayment(ctx, as(t, s, "carol", &OpenPaymentRequest{GroupMemberID: carol.Msg.Member.ID}))
		if err != nil {
			t.Fatalf("OpenPayment failed: %v", err)
		}

		status := postWebhook(t, s, paymentIntentEvent("payment_intent.canceled", opened.Msg.Payment.ExternalRef, "canceled"), testWebhookSecret)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		m := memberView(t, s, created.Msg.Reservation.ID, "carol")
		if m.Member.IsPaid || len(m.Payments) != 1 || m.Payments[0].Status != models.PaymentFailed {
			t.Errorf("expected an unpaid member with one failed payment, got %+v %+v", m.Member, m.Payments)
		}
	})

	t.Run("unrelated events are acknowledged", func(t *testing.T) {
		status := postWebhook(t, s, paymentIntentEvent("payment_intent.created", ref, "requires_payment_method"), testWebhookSecret)
		if status != http.StatusOK {
			t.Errorf("expected 200, got %d", status)
		}
	})

	t.Run("unknown payment is acknowledged", func(t *testing.T) {
		status := postWebhook(t, s, paymentIntentEvent("payment_intent.succeeded", "pi_elsewhere", "succeeded"), testWebhookSecret)
		if status != http.StatusOK {
			t.Errorf("expected 200, got %d", status)
		}
	})

	t.Run("declined attempt keeps the payment open", func(t *testing.T) {
		status := postWebhook(t, s, paymentIntentEvent("payment_intent.payment_failed", ref, "requires_payment_method"), testWebhookSecret)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if p := memberView(t, s, created.Msg.Reservation.ID, "bob").Payments; len(p) != 1 || p[0].Status != models.PaymentPending {
			t.Errorf("expected one pending payment, got %+v", p)
		}
	})

	t.Run("success completes the payment once", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			status := postWebhook(t, s, paymentIntentEvent("payment_intent.succeeded", ref, "succeeded"), testWebhookSecret)
			if status != http.StatusOK {
				t.Fatalf("delivery %d: expected 200, got %d", i, status)
			}
		}

		m := memberView(t, s, created.Msg.Reservation.ID, "bob")
		if !m.Member.IsPaid {
			t.Error("expected bob to be marked paid after a declined attempt and a retry")
		}
		if len(m.Payments) != 1 || m.Payments[0].Status != models.PaymentCompleted {
			t.Errorf("expected one completed payment, got %+v", m.Payments)
		}

		feed, err := s.client.ListActivities(ctx, as(t, s, "bob", &ListActivitiesRequest{}))
		if err != nil {
			t.Fatalf("ListActivities failed: %v", err)
		}
		payments := 0
		for _, a := range feed.Msg.Activities {
			if a.Activity.Type == models.ActivityPayment {
				payments++
			}
		}
		if payments != 1 {
			t.Errorf("expected exactly one payment activity, got %d", payments)
		}
	})
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/lock"
	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/processor"
	"github.com/mmynk/groupsplit/internal/storage"
)

// ReconcilerConfig holds the charge settings applied to every payment.
type ReconcilerConfig struct {
	// Currency is the ISO code charged in, e.g. "usd".
	Currency string

	// FeePercent is added on top of the share, e.g. 3 for 3%.
	FeePercent decimal.Decimal
}

// Reconciler settles member shares through a payment processor and applies
// the processor's confirmations to the ledger.
type Reconciler struct {
	store     storage.Store
	processor processor.Processor
	locker    lock.Locker
	activity  *ActivityLog
	metrics   *metrics.Ledger
	cfg       ReconcilerConfig
}

func NewReconciler(store storage.Store, proc processor.Processor, locker lock.Locker, activity *ActivityLog, m *metrics.Ledger, cfg ReconcilerConfig) *Reconciler {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Reconciler{
		store:     store,
		processor: proc,
		locker:    locker,
		activity:  activity,
		metrics:   m,
		cfg:       cfg,
	}
}

// OpenedPayment is a pending payment together with what the payer needs to
// complete it on the processor's side.
type OpenedPayment struct {
	Payment      *models.Payment `json:"payment"`
	Amount       money.Cents     `json:"amount"`
	Currency     string          `json:"currency"`
	ClientSecret string          `json:"client_secret"`
}

// ReconciliationResult describes what a confirmation did.
type ReconciliationResult struct {
	Payment *models.Payment `json:"payment"`

	// Applied is true when this call moved the payment out of pending.
	Applied bool `json:"applied"`

	// AlreadyApplied is true when the payment had already reached the
	// confirmed state and nothing changed.
	AlreadyApplied bool `json:"already_applied"`

	// Deferred is true when the processor status is not final yet.
	Deferred bool `json:"deferred"`
}

// Amount returns the charge for a share: the share plus the processing fee,
// rounded half away from zero to the cent.
func (r *Reconciler) Amount(share money.Cents) money.Cents {
	return share.WithFee(r.cfg.FeePercent)
}

// OpenPayment starts settling the member's share. payerID must be the member's
// own user. The pending payment is stored before the processor is called so a
// crash never leaves an untracked charge.
func (r *Reconciler) OpenPayment(ctx context.Context, memberID, payerID string) (*OpenedPayment, error) {
	if memberID == "" {
		return nil, validationError("group member ID is required")
	}

	member, err := r.store.GetGroupMember(ctx, memberID)
	if err != nil {
		return nil, classify(err)
	}
	if member.UserID != payerID {
		return nil, fmt.Errorf("%w: payer does not own this share", ErrForbidden)
	}

	// Joins rebalance shares under the group lock. Holding it until the
	// pending payment exists freezes the share that is charged.
	start := time.Now()
	release, err := r.locker.Lock(ctx, lock.GroupKey(member.GroupID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}
	r.metrics.ObserveLockWait("group", time.Since(start))
	payment, err := r.reservePayment(ctx, memberID)
	release()
	if err != nil {
		return nil, err
	}
	amount := payment.Amount

	charge, err := r.processor.CreateCharge(ctx, processor.ChargeRequest{
		Amount:   amount,
		Currency: r.cfg.Currency,
		Metadata: map[string]string{
			"groupMemberId": memberID,
			"paymentId":     payment.ID,
			"userId":        payerID,
		},
		IdempotencyKey: payment.ID,
	})
	if err != nil {
		r.abandon(ctx, payment)
		r.metrics.PaymentOpened(metrics.OpenResultProcessorError)
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	if err := r.store.SetPaymentExternalRef(ctx, payment.ID, charge.Ref); err != nil {
		r.abandon(ctx, payment)
		return nil, fmt.Errorf("failed to attach processor reference: %w", classify(err))
	}
	payment.ExternalRef = charge.Ref
	r.metrics.PaymentOpened(metrics.OpenResultOpened)

	slog.Info("Payment opened",
		"payment_id", payment.ID,
		"member_id", memberID,
		"external_ref", charge.Ref,
		"amount", amount.String(),
	)

	return &OpenedPayment{
		Payment:      payment,
		Amount:       amount,
		Currency:     r.cfg.Currency,
		ClientSecret: charge.ClientSecret,
	}, nil
}

// reservePayment re-reads the member and stores a pending payment for the
// current share. Callers hold the group lock.
func (r *Reconciler) reservePayment(ctx context.Context, memberID string) (*models.Payment, error) {
	member, err := r.store.GetGroupMember(ctx, memberID)
	if err != nil {
		return nil, classify(err)
	}
	if member.IsPaid {
		return nil, ErrAlreadyPaid
	}

	history, err := r.store.ListPaymentsByMember(ctx, memberID)
	if err != nil {
		return nil, classify(err)
	}
	for _, p := range history {
		switch p.Status {
		case models.PaymentPending:
			return nil, ErrPendingPayment
		case models.PaymentCompleted:
			return nil, ErrAlreadyPaid
		}
	}

	amount := r.Amount(member.ShareAmount)
	if amount <= 0 {
		return nil, validationError("nothing to pay for this share")
	}

	payment := &models.Payment{
		GroupMemberID: memberID,
		Amount:        amount,
		Status:        models.PaymentPending,
	}
	if err := r.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrPendingPayment
		}
		return nil, fmt.Errorf("failed to record payment: %w", classify(err))
	}
	return payment, nil
}

// abandon marks a payment failed after its charge could not be opened, which
// also releases the member's pending slot.
func (r *Reconciler) abandon(ctx context.Context, payment *models.Payment) {
	if _, err := r.store.FailPayment(ctx, payment.ID); err != nil {
		slog.Error("Failed to mark payment failed", "payment_id", payment.ID, "error", err)
	}
	payment.Status = models.PaymentFailed
}

// ConfirmPayment applies a processor outcome for externalRef. Succeeded moves
// the payment to completed and marks the member paid; failed moves it to
// failed. Repeating a confirmation changes nothing.
func (r *Reconciler) ConfirmPayment(ctx context.Context, externalRef string, status processor.Status) (*ReconciliationResult, error) {
	if externalRef == "" {
		return nil, validationError("external reference is required")
	}

	start := time.Now()
	release, err := r.locker.Lock(ctx, lock.PaymentKey(externalRef))
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	defer release()
	r.metrics.ObserveLockWait("payment", time.Since(start))

	payment, err := r.store.GetPaymentByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, classify(err)
	}

	result := &ReconciliationResult{Payment: payment}

	switch status {
	case processor.StatusSucceeded:
		applied, err := r.store.CompletePayment(ctx, payment.ID, time.Now().Unix())
		if err != nil {
			return nil, fmt.Errorf("failed to complete payment: %w", err)
		}
		if result.Payment, err = r.store.GetPayment(ctx, payment.ID); err != nil {
			return nil, classify(err)
		}
		if !applied {
			if result.Payment.Status == models.PaymentCompleted {
				result.AlreadyApplied = true
				r.metrics.PaymentConfirmed(metrics.ConfirmOutcomeAlreadyApplied)
			} else {
				slog.Warn("Ignoring success for payment that is no longer pending",
					"payment_id", payment.ID,
					"external_ref", externalRef,
					"status", result.Payment.Status,
				)
			}
			return result, nil
		}

		result.Applied = true
		r.metrics.PaymentConfirmed(metrics.ConfirmOutcomeApplied)
		slog.Info("Payment completed", "payment_id", payment.ID, "external_ref", externalRef)
		r.recordPayment(ctx, result.Payment)

	case processor.StatusFailed:
		applied, err := r.store.FailPayment(ctx, payment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fail payment: %w", err)
		}
		if result.Payment, err = r.store.GetPayment(ctx, payment.ID); err != nil {
			return nil, classify(err)
		}
		result.Applied = applied
		result.AlreadyApplied = !applied && result.Payment.Status == models.PaymentFailed
		if applied {
			r.metrics.PaymentConfirmed(metrics.ConfirmOutcomeFailed)
			slog.Info("Payment failed", "payment_id", payment.ID, "external_ref", externalRef)
		} else {
			r.metrics.PaymentConfirmed(metrics.ConfirmOutcomeAlreadyApplied)
		}

	default:
		result.Deferred = true
		r.metrics.PaymentConfirmed(metrics.ConfirmOutcomeDeferred)
	}

	return result, nil
}

// recordPayment writes the payment activity for the member who paid.
func (r *Reconciler) recordPayment(ctx context.Context, payment *models.Payment) {
	member, err := r.store.GetGroupMember(ctx, payment.GroupMemberID)
	if err != nil {
		slog.Error("Failed to load member for payment activity", "payment_id", payment.ID, "error", err)
		return
	}
	group, err := r.store.GetGroup(ctx, member.GroupID)
	if err != nil {
		slog.Error("Failed to load group for payment activity", "payment_id", payment.ID, "error", err)
		return
	}

	r.activity.Record(ctx, &models.Activity{
		UserID:        member.UserID,
		ReservationID: group.ReservationID,
		Type:          models.ActivityPayment,
		Message:       fmt.Sprintf("Payment completed for %s %s", payment.Amount, strings.ToUpper(r.cfg.Currency)),
	})
}

// ConfirmFromProcessor asks the processor for the current status of
// externalRef and applies it.
func (r *Reconciler) ConfirmFromProcessor(ctx context.Context, externalRef string) (*ReconciliationResult, error) {
	if externalRef == "" {
		return nil, validationError("external reference is required")
	}

	charge, err := r.processor.GetCharge(ctx, externalRef)
	if err != nil {
		if errors.Is(err, processor.ErrUnknownCharge) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	return r.ConfirmPayment(ctx, externalRef, charge.Status)
}

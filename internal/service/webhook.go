package service

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mmynk/groupsplit/internal/ledger"
	"github.com/mmynk/groupsplit/internal/processor"
)

// maxWebhookBody bounds the size of a webhook payload.
const maxWebhookBody = 65536

// StripeWebhook receives Stripe events and feeds PaymentIntent outcomes into
// reconciliation. Stripe retries any delivery that does not get a 2xx.
type StripeWebhook struct {
	reconcile *ledger.Reconciler
	secret    string
}

func NewStripeWebhook(reconcile *ledger.Reconciler, secret string) *StripeWebhook {
	return &StripeWebhook{reconcile: reconcile, secret: secret}
}

func (h *StripeWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("Failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		slog.Warn("Failed to verify webhook signature", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var status processor.Status
	switch event.Type {
	case "payment_intent.succeeded":
		status = processor.StatusSucceeded
	case "payment_intent.payment_failed":
		// The intent returns to requires_payment_method and the payer may
		// retry with the same client secret, so the payment stays pending.
		status = processor.StatusPending
	case "payment_intent.canceled":
		status = processor.StatusFailed
	default:
		slog.Debug("Ignoring webhook event", "event_id", event.ID, "type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		slog.Error("Failed to parse PaymentIntent", "event_id", event.ID, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result, err := h.reconcile.ConfirmPayment(r.Context(), pi.ID, status)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		// Not opened by this ledger; acknowledge so Stripe stops retrying.
		slog.Warn("Webhook for unknown payment", "event_id", event.ID, "external_ref", pi.ID)
	case err != nil:
		slog.Error("Failed to apply webhook", "event_id", event.ID, "external_ref", pi.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	default:
		slog.Info("Webhook applied",
			"event_id", event.ID,
			"type", event.Type,
			"external_ref", pi.ID,
			"applied", result.Applied,
			"deferred", result.Deferred,
		)
	}

	w.WriteHeader(http.StatusOK)
}

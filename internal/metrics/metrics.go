// Package metrics holds the Prometheus instruments of the ledger. A nil
// *Ledger is valid and records nothing, so tests can skip metrics entirely.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	JoinResultJoined        = "joined"
	JoinResultAlreadyMember = "already_member"

	OpenResultOpened         = "opened"
	OpenResultProcessorError = "processor_error"

	ConfirmOutcomeApplied        = "applied"
	ConfirmOutcomeAlreadyApplied = "already_applied"
	ConfirmOutcomeFailed         = "failed"
	ConfirmOutcomeDeferred       = "deferred"
)

// Ledger groups the counters incremented by the split engine, reconciler and
// activity log.
type Ledger struct {
	reservationsCreated prometheus.Counter
	groupJoins          *prometheus.CounterVec
	paymentsOpened      *prometheus.CounterVec
	confirmations       *prometheus.CounterVec
	activityFailures    *prometheus.CounterVec
	lockWait            *prometheus.HistogramVec
}

// New creates the ledger instruments and registers them with registerer.
// A nil registerer means prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer) *Ledger {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Ledger{
		reservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupsplit_reservations_created_total",
			Help: "Reservations created together with their group.",
		}),
		groupJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupsplit_group_joins_total",
			Help: "Join attempts by result.",
		}, []string{"result"}),
		paymentsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupsplit_payments_opened_total",
			Help: "Payment intents opened with the processor by result.",
		}, []string{"result"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupsplit_payment_confirmations_total",
			Help: "Processor confirmations by reconciliation outcome.",
		}, []string{"outcome"}),
		activityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupsplit_activity_write_failures_total",
			Help: "Activity log writes that failed and were dropped.",
		}, []string{"type"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "groupsplit_lock_wait_seconds",
			Help:    "Time spent waiting for a ledger lock.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"resource"}),
	}

	registerer.MustRegister(
		m.reservationsCreated,
		m.groupJoins,
		m.paymentsOpened,
		m.confirmations,
		m.activityFailures,
		m.lockWait,
	)
	return m
}

func (m *Ledger) ReservationCreated() {
	if m == nil {
		return
	}
	m.reservationsCreated.Inc()
}

func (m *Ledger) GroupJoin(result string) {
	if m == nil {
		return
	}
	m.groupJoins.WithLabelValues(result).Inc()
}

func (m *Ledger) PaymentOpened(result string) {
	if m == nil {
		return
	}
	m.paymentsOpened.WithLabelValues(result).Inc()
}

func (m *Ledger) PaymentConfirmed(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Ledger) ActivityDropped(activityType string) {
	if m == nil {
		return
	}
	m.activityFailures.WithLabelValues(activityType).Inc()
}

// ObserveLockWait records how long acquiring a lock on resource took.
func (m *Ledger) ObserveLockWait(resource string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(d.Seconds())
}

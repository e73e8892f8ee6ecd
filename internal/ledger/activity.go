package ledger

import (
	"context"
	"log/slog"

	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
)

// ActivityStore is the slice of storage.Store the activity log needs.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error)
}

// ActivityLog appends ledger events for the feed. Writes are best effort: a
// failed write never fails the operation that produced it.
type ActivityLog struct {
	store   ActivityStore
	metrics *metrics.Ledger
}

func NewActivityLog(store ActivityStore, m *metrics.Ledger) *ActivityLog {
	return &ActivityLog{store: store, metrics: m}
}

// Record appends activity. Failures are logged and counted.
func (l *ActivityLog) Record(ctx context.Context, activity *models.Activity) {
	if err := l.store.CreateActivity(ctx, activity); err != nil {
		slog.Error("Failed to record activity",
			"type", activity.Type,
			"user_id", activity.UserID,
			"reservation_id", activity.ReservationID,
			"error", err,
		)
		l.metrics.ActivityDropped(string(activity.Type))
	}
}

// ListForUser returns the user's activities, most recent first. A
// non-positive limit returns all of them.
func (l *ActivityLog) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Activity, error) {
	if userID == "" {
		return nil, validationError("user ID is required")
	}
	activities, err := l.store.ListActivitiesByUser(ctx, userID, limit)
	if err != nil {
		return nil, classify(err)
	}
	return activities, nil
}

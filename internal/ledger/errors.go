package ledger

import (
	"errors"
	"fmt"

	"github.com/mmynk/groupsplit/internal/storage"
)

// Error kinds. Callers match them with errors.Is; the transport maps each
// kind to a status code.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrExternalService = errors.New("external service error")

	// ErrAlreadyMember is returned when a user joins a group twice.
	ErrAlreadyMember = fmt.Errorf("%w: already a member of this group", ErrConflict)

	// ErrPendingPayment is returned when a member opens a second payment
	// while one is still pending.
	ErrPendingPayment = fmt.Errorf("%w: a payment is already pending for this member", ErrConflict)

	// ErrAlreadyPaid is returned when a member whose share is settled tries to pay again.
	ErrAlreadyPaid = fmt.Errorf("%w: share already paid", ErrConflict)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classify re-labels storage errors with the ledger's kinds. Other errors are
// returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}

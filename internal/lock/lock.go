// Package lock serialises ledger writes that must not interleave, such as two
// people joining the same group at once.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// context ended or the retry budget ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive locks by key. The returned release func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// GroupKey is the lock key guarding a group's membership and shares.
func GroupKey(groupID string) string {
	return "groupsplit:group:" + groupID
}

// PaymentKey is the lock key guarding confirmation of one processor reference.
func PaymentKey(externalRef string) string {
	return "groupsplit:payment:" + externalRef
}

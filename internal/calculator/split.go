package calculator

import (
	"fmt"

	"github.com/mmynk/groupsplit/internal/money"
)

// Participant is one existing group member as seen by the rebalancer.
type Participant struct {
	ID    string
	Share money.Cents
	// Frozen members keep their share: they have paid or have a payment in flight.
	Frozen bool
}

// EqualShares divides total into n shares that sum exactly to total.
// Leftover cents go one each to the first shares, so callers that pass
// participants in join order give the remainder to the earliest joiners.
func EqualShares(total money.Cents, n int) ([]money.Cents, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if total < 0 {
		return nil, fmt.Errorf("total cannot be negative")
	}

	base := total / money.Cents(n)
	remainder := int(total % money.Cents(n))

	shares := make([]money.Cents, n)
	for i := range shares {
		shares[i] = base
		if i < remainder {
			shares[i]++
		}
	}
	return shares, nil
}

// Rebalance computes new shares after one more person joins a group.
//
// members must be in join order. Frozen members keep their current share; the
// rest of the total is split equally among the unfrozen members and the
// joiner, with remainder cents assigned in join order (joiner last).
// The returned shares line up with members; joiner is the new member's share.
func Rebalance(total money.Cents, members []Participant) (shares []money.Cents, joiner money.Cents, err error) {
	var frozen money.Cents
	open := 0
	for _, m := range members {
		if m.Frozen {
			frozen += m.Share
			continue
		}
		open++
	}

	remaining := total - frozen
	if remaining < 0 {
		return nil, 0, fmt.Errorf("committed shares %s exceed total %s", frozen, total)
	}

	split, err := EqualShares(remaining, open+1)
	if err != nil {
		return nil, 0, err
	}

	shares = make([]money.Cents, len(members))
	next := 0
	for i, m := range members {
		if m.Frozen {
			shares[i] = m.Share
			continue
		}
		shares[i] = split[next]
		next++
	}
	return shares, split[next], nil
}

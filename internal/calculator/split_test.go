package calculator

import (
	"testing"

	"github.com/mmynk/groupsplit/internal/money"
)

func TestEqualShares(t *testing.T) {
	tests := []struct {
		name    string
		total   money.Cents
		n       int
		want    []money.Cents
		wantErr bool
	}{
		{
			name:  "single member takes the full cost",
			total: 15000,
			n:     1,
			want:  []money.Cents{15000},
		},
		{
			name:  "even split",
			total: 15000,
			n:     3,
			want:  []money.Cents{5000, 5000, 5000},
		},
		{
			name:  "remainder goes to earliest members",
			total: 10000,
			n:     3,
			want:  []money.Cents{3334, 3333, 3333},
		},
		{
			name:  "two cent remainder",
			total: 1001,
			n:     3,
			want:  []money.Cents{334, 334, 333},
		},
		{
			name:  "zero cost",
			total: 0,
			n:     4,
			want:  []money.Cents{0, 0, 0, 0},
		},
		{
			name:    "no participants should error",
			total:   100,
			n:       0,
			wantErr: true,
		},
		{
			name:    "negative total should error",
			total:   -1,
			n:       2,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EqualShares(tt.total, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EqualShares() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("EqualShares() returned %d shares, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("share[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
			if sum := money.Sum(got...); sum != tt.total {
				t.Errorf("sum of shares = %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestRebalance(t *testing.T) {
	tests := []struct {
		name       string
		total      money.Cents
		members    []Participant
		wantShares []money.Cents
		wantJoiner money.Cents
		wantErr    bool
	}{
		{
			name:       "second member halves the owner's share",
			total:      15000,
			members:    []Participant{{ID: "owner", Share: 15000}},
			wantShares: []money.Cents{7500},
			wantJoiner: 7500,
		},
		{
			name:  "third member",
			total: 15000,
			members: []Participant{
				{ID: "a", Share: 7500},
				{ID: "b", Share: 7500},
			},
			wantShares: []money.Cents{5000, 5000},
			wantJoiner: 5000,
		},
		{
			name:  "joiner never gets the remainder",
			total: 10000,
			members: []Participant{
				{ID: "a", Share: 5000},
				{ID: "b", Share: 5000},
			},
			wantShares: []money.Cents{3334, 3333},
			wantJoiner: 3333,
		},
		{
			name:  "frozen member keeps their share",
			total: 15000,
			members: []Participant{
				{ID: "a", Share: 7500, Frozen: true},
				{ID: "b", Share: 7500},
			},
			wantShares: []money.Cents{7500, 3750},
			wantJoiner: 3750,
		},
		{
			name:  "everyone frozen leaves the joiner with nothing",
			total: 15000,
			members: []Participant{
				{ID: "a", Share: 15000, Frozen: true},
			},
			wantShares: []money.Cents{15000},
			wantJoiner: 0,
		},
		{
			name:  "frozen shares above total should error",
			total: 100,
			members: []Participant{
				{ID: "a", Share: 200, Frozen: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, joiner, err := Rebalance(tt.total, tt.members)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Rebalance() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for i := range shares {
				if shares[i] != tt.wantShares[i] {
					t.Errorf("share[%d] = %s, want %s", i, shares[i], tt.wantShares[i])
				}
			}
			if joiner != tt.wantJoiner {
				t.Errorf("joiner share = %s, want %s", joiner, tt.wantJoiner)
			}
			if sum := money.Sum(shares...) + joiner; sum != tt.total {
				t.Errorf("sum of shares = %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestRebalance_SharesNeverGrow(t *testing.T) {
	for _, total := range []money.Cents{15000, 10000, 9999, 1, 0} {
		members := []Participant{{ID: "m0", Share: total}}
		for n := 1; n < 12; n++ {
			previous := members[len(members)-1].Share
			shares, joiner, err := Rebalance(total, members)
			if err != nil {
				t.Fatalf("Rebalance(%s, %d members) failed: %v", total, n, err)
			}
			if joiner > previous {
				t.Errorf("total %s: share grew from %s to %s at %d members", total, previous, joiner, n+1)
			}
			for i := range members {
				members[i].Share = shares[i]
			}
			members = append(members, Participant{ID: "m", Share: joiner})
		}
	}
}

func TestSavings(t *testing.T) {
	if got := Savings(30000, 3).StringFixed(2); got != "200.00" {
		t.Errorf("Savings(300.00, 3) = %s, want 200.00", got)
	}
	if got := Savings(30000, 1).StringFixed(2); got != "0.00" {
		t.Errorf("Savings(300.00, 1) = %s, want 0.00", got)
	}
	if got := Savings(30000, 0).StringFixed(2); got != "0.00" {
		t.Errorf("Savings(300.00, 0) = %s, want 0.00", got)
	}
}

func TestTotalSavings(t *testing.T) {
	// 200.00 + 66.666... = 266.67 -> 267
	got := TotalSavings([]money.Cents{30000, 10000}, []int{3, 3})
	if got != 267 {
		t.Errorf("TotalSavings() = %d, want 267", got)
	}
	if got := TotalSavings(nil, nil); got != 0 {
		t.Errorf("TotalSavings(nil) = %d, want 0", got)
	}
}

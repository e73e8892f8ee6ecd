package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/money"
)

// Savings is what one person saves by splitting total among memberCount people
// instead of paying alone: total - total/memberCount. A member count below one
// is treated as one.
func Savings(total money.Cents, memberCount int) decimal.Decimal {
	if memberCount < 1 {
		memberCount = 1
	}
	t := total.Decimal()
	return t.Sub(t.Div(decimal.NewFromInt(int64(memberCount))))
}

// TotalSavings sums Savings over several reservations and rounds the result
// to a whole currency unit.
func TotalSavings(totals []money.Cents, memberCounts []int) int64 {
	sum := decimal.Zero
	for i, total := range totals {
		count := 0
		if i < len(memberCounts) {
			count = memberCounts[i]
		}
		sum = sum.Add(Savings(total, count))
	}
	return sum.Round(0).IntPart()
}

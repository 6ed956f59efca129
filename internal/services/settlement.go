package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionRate is the platform's share of every captured payment. The split
// is computed once at capture and frozen on the payment row.
var CommissionRate = decimal.NewFromFloat(0.15)

// Split divides a gross amount into platform commission and mentor payout.
// The payout is rounded half-up to 2 decimal places and the commission is the
// exact remainder, so commission + payout == gross always holds, including for
// non-terminating splits like 33.33.
func Split(gross decimal.Decimal) (commission, payout decimal.Decimal) {
	payout = gross.Mul(decimal.NewFromInt(1).Sub(CommissionRate)).Round(2)
	commission = gross.Sub(payout)
	return commission, payout
}

// RefundTier returns the refund percentage for a cancellation made the given
// number of hours before the scheduled start. Boundaries at exactly 24 and 48
// hours resolve to the lower tier.
func RefundTier(hoursUntilStart float64) int {
	switch {
	case hoursUntilStart > 48:
		return 100
	case hoursUntilStart >= 24:
		return 50
	default:
		return 0
	}
}

// RefundAmount applies a tier percentage to a session price, rounded half-up
// to 2 decimal places.
func RefundAmount(price decimal.Decimal, tier int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(tier))).Div(decimal.NewFromInt(100)).Round(2)
}

// SessionPrice derives the frozen booking price from the mentor's hourly rate
// and the slot duration.
func SessionPrice(hourlyRate decimal.Decimal, durationMin int) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(int64(durationMin))).Div(decimal.NewFromInt(60)).Round(2)
}

func hoursUntil(start, now time.Time) float64 {
	return start.Sub(now).Hours()
}

package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSplitKeepsGrossExact(t *testing.T) {
	cases := []struct {
		gross      string
		commission string
		payout     string
	}{
		{"60.00", "9.00", "51.00"},
		{"100.00", "15.00", "85.00"},
		{"33.33", "5.00", "28.33"},
		{"0.01", "0.00", "0.01"},
		{"99.99", "15.00", "84.99"},
	}

	for _, tc := range cases {
		gross := decimal.RequireFromString(tc.gross)
		commission, payout := Split(gross)

		if !commission.Add(payout).Equal(gross) {
			t.Fatalf("Split(%s): commission %s + payout %s != gross", tc.gross, commission, payout)
		}
		if commission.StringFixed(2) != tc.commission {
			t.Fatalf("Split(%s): expected commission %s, got %s", tc.gross, tc.commission, commission.StringFixed(2))
		}
		if payout.StringFixed(2) != tc.payout {
			t.Fatalf("Split(%s): expected payout %s, got %s", tc.gross, tc.payout, payout.StringFixed(2))
		}
	}
}

func TestRefundTierBoundaries(t *testing.T) {
	cases := []struct {
		hours float64
		tier  int
	}{
		{72, 100},
		{48.01, 100},
		{48, 50},
		{24.5, 50},
		{24, 50},
		{23.99, 0},
		{1, 0},
		{-2, 0},
	}

	for _, tc := range cases {
		if got := RefundTier(tc.hours); got != tc.tier {
			t.Fatalf("RefundTier(%v): expected %d, got %d", tc.hours, tc.tier, got)
		}
	}
}

func TestRefundAmount(t *testing.T) {
	price := decimal.RequireFromString("60.00")

	if got := RefundAmount(price, 100); got.StringFixed(2) != "60.00" {
		t.Fatalf("full refund: got %s", got.StringFixed(2))
	}
	if got := RefundAmount(price, 50); got.StringFixed(2) != "30.00" {
		t.Fatalf("half refund: got %s", got.StringFixed(2))
	}
	if got := RefundAmount(price, 0); !got.IsZero() {
		t.Fatalf("zero refund: got %s", got.StringFixed(2))
	}

	odd := decimal.RequireFromString("33.33")
	if got := RefundAmount(odd, 50); got.StringFixed(2) != "16.67" {
		t.Fatalf("half of 33.33: got %s", got.StringFixed(2))
	}
}

func TestSessionPrice(t *testing.T) {
	rate := decimal.RequireFromString("120.00")

	if got := SessionPrice(rate, 60); got.StringFixed(2) != "120.00" {
		t.Fatalf("hour session: got %s", got.StringFixed(2))
	}
	if got := SessionPrice(rate, 30); got.StringFixed(2) != "60.00" {
		t.Fatalf("half-hour session: got %s", got.StringFixed(2))
	}

	odd := decimal.RequireFromString("99.99")
	if got := SessionPrice(odd, 30); got.StringFixed(2) != "50.00" {
		t.Fatalf("rounded half-hour: got %s", got.StringFixed(2))
	}
}

func TestHoursUntil(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(36 * time.Hour)

	if got := hoursUntil(start, now); got != 36 {
		t.Fatalf("expected 36 hours, got %v", got)
	}
	if got := hoursUntil(now.Add(-time.Hour), now); got != -1 {
		t.Fatalf("expected -1 hours, got %v", got)
	}
}

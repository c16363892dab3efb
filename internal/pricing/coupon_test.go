package pricing

import (
	"errors"
	"testing"
	"time"
)

func TestCouponUsageLimitExhausted(t *testing.T) {
	limit := int32(1)
	c := Coupon{Code: "ONCE", Kind: CouponFixedAmount, Value: 5_000, IsActive: true, UsageLimit: &limit, UsedCount: 1}
	err := c.Validate(time.Now(), 100_000)
	if !errors.Is(err, ErrCouponUsageLimitReached) {
		t.Fatalf("expected usage limit error, got %v", err)
	}
}

func TestCouponWindow(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	notYet := Coupon{Code: "SOON", IsActive: true, StartDate: &future}
	if err := notYet.Validate(now, 100_000); !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("expected inactive before window, got %v", err)
	}
	gone := Coupon{Code: "GONE", IsActive: true, EndDate: &past}
	if err := gone.Validate(now, 100_000); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected expired after window, got %v", err)
	}
}

func TestCouponMinOrder(t *testing.T) {
	c := Coupon{Code: "BIG", Kind: CouponPercentage, Value: 10, IsActive: true, MinOrderValue: 100_000}
	if err := c.Validate(time.Now(), 90_000); !errors.Is(err, ErrCouponMinOrderUnmet) {
		t.Fatalf("expected min order error, got %v", err)
	}
	if err := c.Validate(time.Now(), 100_000); err != nil {
		t.Fatalf("expected eligible at threshold, got %v", err)
	}
}

func TestCouponDiscount(t *testing.T) {
	percent := Coupon{Kind: CouponPercentage, Value: 10}
	if got := CouponDiscount(percent, 120_000); got != 12_000 {
		t.Fatalf("percentage discount = %d, want 12000", got)
	}
	fixed := Coupon{Kind: CouponFixedAmount, Value: 50_000}
	if got := CouponDiscount(fixed, 30_000); got != 30_000 {
		t.Fatalf("fixed discount must cap at total, got %d", got)
	}
	unknown := Coupon{Kind: "bogus", Value: 10}
	if got := CouponDiscount(unknown, 30_000); got != 0 {
		t.Fatalf("unknown kind must discount 0, got %d", got)
	}
}

func TestFinalTotalFloor(t *testing.T) {
	if got := FinalTotal(10_000, 8_000, 5_000); got != 0 {
		t.Fatalf("final total must floor at zero, got %d", got)
	}
	if got := FinalTotal(120_000, 12_000, 0); got != 108_000 {
		t.Fatalf("final total = %d, want 108000", got)
	}
}

func TestUnitPrice(t *testing.T) {
	if got := UnitPrice(SizeA4, nil); got != 9_900 {
		t.Fatalf("A4 base price = %d", got)
	}
	frame := &FrameOption{Size: SizeA3, Finish: FinishNatural}
	if got := UnitPrice(SizeA3, frame); got != 14_900+39_900 {
		t.Fatalf("A3 framed price = %d", got)
	}
	// Unrecognised size silently prices at zero; catalogue validation is
	// the caller's job.
	if got := UnitPrice("A1", nil); got != 0 {
		t.Fatalf("unknown size should price at 0, got %d", got)
	}
}

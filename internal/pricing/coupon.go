package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCouponInactive is returned when the coupon is disabled or not yet valid.
	ErrCouponInactive = errors.New("coupon not active")
	// ErrCouponExpired is returned when the coupon window has closed.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached indicates the coupon has exhausted its quota.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrCouponMinOrderUnmet indicates the cart total is below the coupon threshold.
	ErrCouponMinOrderUnmet = errors.New("coupon minimum order value not met")
)

// CouponKind enumerates coupon discount types.
type CouponKind string

// Coupon discount types.
const (
	CouponPercentage  CouponKind = "percentage"
	CouponFixedAmount CouponKind = "fixed_amount"
)

// Coupon is a user-entered, usage-limited discount code.
type Coupon struct {
	ID            uuid.UUID  `json:"id"`
	Code          string     `json:"code"`
	Kind          CouponKind `json:"kind"`
	Value         int64      `json:"value"`
	MinOrderValue Money      `json:"minOrderValue"`
	UsageLimit    *int32     `json:"usageLimit,omitempty"`
	UsedCount     int32      `json:"usedCount"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	IsActive      bool       `json:"isActive"`
}

// Validate ensures the coupon can be redeemed at the provided instant and
// cart total.
func (c Coupon) Validate(now time.Time, cartTotal Money) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return ErrCouponInactive
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return ErrCouponExpired
	}
	if c.UsageLimit != nil && *c.UsageLimit >= 0 && c.UsedCount >= *c.UsageLimit {
		return ErrCouponUsageLimitReached
	}
	if c.MinOrderValue > 0 && cartTotal < c.MinOrderValue {
		return ErrCouponMinOrderUnmet
	}
	return nil
}

// CouponDiscount computes the coupon's contribution against the cart
// total, capped so a fixed coupon never exceeds the total.
func CouponDiscount(c Coupon, cartTotal Money) Money {
	if cartTotal <= 0 || c.Value <= 0 {
		return 0
	}
	var discount Money
	switch c.Kind {
	case CouponPercentage:
		discount = cartTotal * c.Value / 100
	case CouponFixedAmount:
		discount = c.Value
	default:
		return 0
	}
	if discount > cartTotal {
		discount = cartTotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// FinalTotal composes the payable amount from the cart total and the two
// discount layers, floored at zero.
func FinalTotal(total, ruleDiscount, couponDiscount Money) Money {
	final := total - ruleDiscount - couponDiscount
	if final < 0 {
		return 0
	}
	return final
}

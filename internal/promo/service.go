package promo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/framecraft/backend-store/internal/pricing"
)

// RuleSource lists the rules the engine should consider.
type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]pricing.Rule, error)
}

// CouponSource resolves coupon codes.
type CouponSource interface {
	GetCouponByCode(ctx context.Context, code string) (pricing.Coupon, error)
}

// CouponResult is the outcome of resolving a user-supplied code. The
// coupon record may be present with a zero discount when eligibility
// failed; Reason carries the failure for display.
type CouponResult struct {
	Coupon   *pricing.Coupon `json:"coupon,omitempty"`
	Discount pricing.Money   `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
}

// Resolver evaluates store-wide rules and coupon codes against cart
// totals. It is stateless per call and safe for concurrent use: rules and
// coupons are read-only from this path.
type Resolver struct {
	Rules   RuleSource
	Coupons CouponSource
	Logger  *zerolog.Logger
	Now     func() time.Time
}

func (s *Resolver) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ApplyRules evaluates every active rule against the cart total. A data
// access failure degrades to zero rule discount: a quote must always be
// producible.
func (s *Resolver) ApplyRules(ctx context.Context, cartTotal pricing.Money) ([]pricing.AppliedRule, pricing.Money) {
	if s == nil || s.Rules == nil {
		return nil, 0
	}
	rules, err := s.Rules.ListActiveRules(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error().Err(err).Msg("list active pricing rules")
		}
		return nil, 0
	}
	return pricing.EvaluateRules(s.now(), cartTotal, rules)
}

// ResolveCoupon validates a code against the cart total. Lookup failures
// and ineligibility both resolve to a zero discount rather than failing
// the calculation; only the reason differs.
func (s *Resolver) ResolveCoupon(ctx context.Context, code string, cartTotal pricing.Money) CouponResult {
	if s == nil || s.Coupons == nil || code == "" {
		return CouponResult{}
	}
	coupon, err := s.Coupons.GetCouponByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrCouponNotFound) && s.Logger != nil {
			s.Logger.Error().Err(err).Str("code", code).Msg("coupon lookup failed")
		}
		return CouponResult{Reason: "coupon not found"}
	}
	if err := coupon.Validate(s.now(), cartTotal); err != nil {
		return CouponResult{Coupon: &coupon, Reason: err.Error()}
	}
	return CouponResult{
		Coupon:   &coupon,
		Discount: pricing.CouponDiscount(coupon, cartTotal),
	}
}

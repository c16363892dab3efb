package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/framecraft/backend-store/internal/pricing"
)

type fakeRules struct {
	rules []pricing.Rule
	err   error
}

func (f fakeRules) ListActiveRules(context.Context) ([]pricing.Rule, error) {
	return f.rules, f.err
}

type fakeCoupons struct {
	coupon pricing.Coupon
	err    error
}

func (f fakeCoupons) GetCouponByCode(context.Context, string) (pricing.Coupon, error) {
	return f.coupon, f.err
}

func TestApplyRulesSums(t *testing.T) {
	resolver := &Resolver{Rules: fakeRules{rules: []pricing.Rule{
		{Name: "10%", Kind: pricing.RulePercentageDiscount, Value: 10, IsActive: true, SortOrder: 1},
		{Name: "flat 50", Kind: pricing.RuleFixedAmount, Value: 5_000, IsActive: true, SortOrder: 2},
	}}}
	applied, discount := resolver.ApplyRules(context.Background(), 100_000)
	require.Len(t, applied, 2)
	require.Equal(t, pricing.Money(15_000), discount)
}

func TestApplyRulesDegradesOnError(t *testing.T) {
	resolver := &Resolver{Rules: fakeRules{err: errors.New("db down")}}
	applied, discount := resolver.ApplyRules(context.Background(), 100_000)
	require.Empty(t, applied)
	require.Zero(t, discount, "rule failures must not block pricing")
}

func TestResolveCouponHappyPath(t *testing.T) {
	resolver := &Resolver{Coupons: fakeCoupons{coupon: pricing.Coupon{
		Code: "WELCOME10", Kind: pricing.CouponPercentage, Value: 10, IsActive: true,
	}}}
	res := resolver.ResolveCoupon(context.Background(), "WELCOME10", 120_000)
	require.NotNil(t, res.Coupon)
	require.Equal(t, pricing.Money(12_000), res.Discount)
	require.Empty(t, res.Reason)
}

func TestResolveCouponIneligibleReturnsRecordZeroDiscount(t *testing.T) {
	limit := int32(1)
	resolver := &Resolver{Coupons: fakeCoupons{coupon: pricing.Coupon{
		Code: "ONCE", Kind: pricing.CouponFixedAmount, Value: 5_000,
		IsActive: true, UsageLimit: &limit, UsedCount: 1,
	}}}
	res := resolver.ResolveCoupon(context.Background(), "ONCE", 120_000)
	require.NotNil(t, res.Coupon, "record is still returned for display")
	require.Zero(t, res.Discount)
	require.Equal(t, pricing.ErrCouponUsageLimitReached.Error(), res.Reason)
}

func TestResolveCouponLookupErrorDegrades(t *testing.T) {
	resolver := &Resolver{Coupons: fakeCoupons{err: errors.New("timeout")}}
	res := resolver.ResolveCoupon(context.Background(), "ANY", 120_000)
	require.Nil(t, res.Coupon)
	require.Zero(t, res.Discount)
}

func TestResolveCouponNotFound(t *testing.T) {
	resolver := &Resolver{Coupons: fakeCoupons{err: ErrCouponNotFound}}
	res := resolver.ResolveCoupon(context.Background(), "NOPE", 120_000)
	require.Nil(t, res.Coupon)
	require.Zero(t, res.Discount)
	require.Equal(t, "coupon not found", res.Reason)
}

func TestResolverFrozenClock(t *testing.T) {
	frozen := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start := frozen.Add(time.Hour)
	resolver := &Resolver{
		Now: func() time.Time { return frozen },
		Rules: fakeRules{rules: []pricing.Rule{{
			Name: "future", Kind: pricing.RuleFixedAmount, Value: 1_000,
			IsActive: true, StartDate: &start,
		}}},
	}
	_, discount := resolver.ApplyRules(context.Background(), 50_000)
	require.Zero(t, discount)
}

package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/backend-store/internal/cart"
	"github.com/framecraft/backend-store/internal/pricing"
	"github.com/framecraft/backend-store/internal/promo"
)

type fakeRules struct {
	rules []pricing.Rule
}

func (f fakeRules) ListActiveRules(context.Context) ([]pricing.Rule, error) {
	return f.rules, nil
}

type fakeCoupons struct {
	coupon pricing.Coupon
	err    error
}

func (f fakeCoupons) GetCouponByCode(context.Context, string) (pricing.Coupon, error) {
	return f.coupon, f.err
}

func newQuoteFixture(t *testing.T, resolver *promo.Resolver) (*Service, *cart.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	carts := &cart.Service{
		Store: cart.RedisStore{R: client, TTL: time.Hour},
		Now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * time.Millisecond)
		},
	}
	return &Service{Carts: carts, Resolver: resolver, Currency: "INR"}, carts
}

func TestQuoteComposesRuleAndCouponDiscounts(t *testing.T) {
	resolver := &promo.Resolver{
		Rules: fakeRules{rules: []pricing.Rule{
			{Name: "monsoon 10%", Kind: pricing.RulePercentageDiscount, Value: 10, IsActive: true},
		}},
		Coupons: fakeCoupons{coupon: pricing.Coupon{
			Code: "WELCOME", Kind: pricing.CouponFixedAmount, Value: 5_000, IsActive: true,
		}},
	}
	svc, carts := newQuoteFixture(t, resolver)
	ctx := context.Background()

	state, err := carts.Create(ctx)
	require.NoError(t, err)
	state, err = carts.AddBundle(ctx, state.ID, []cart.Selection{{ProductID: "p1", Qty: 10}}, pricing.SizeA4, nil)
	require.NoError(t, err)

	q, err := svc.Quote(ctx, state.ID, "WELCOME")
	require.NoError(t, err)

	// 10 units of A4 at 9900: subtotal 99000, buy-10 tier frees 4 units.
	require.Equal(t, pricing.Money(99_000), q.Subtotal)
	require.Equal(t, pricing.Money(39_600), q.BundleDiscount)
	require.Equal(t, pricing.Money(59_400), q.Total)
	require.Equal(t, pricing.Money(5_940), q.RuleDiscount)
	require.True(t, q.CouponApplied)
	require.Equal(t, pricing.Money(5_000), q.CouponDiscount)
	require.Equal(t, pricing.Money(59_400-5_940-5_000), q.FinalTotal)
	require.Len(t, q.AppliedDeals, 1)
}

func TestQuoteEmptyCartEvaluatesNothing(t *testing.T) {
	resolver := &promo.Resolver{
		Rules: fakeRules{rules: []pricing.Rule{
			{Name: "should not apply", Kind: pricing.RuleFixedAmount, Value: 1_000, IsActive: true},
		}},
	}
	svc, carts := newQuoteFixture(t, resolver)
	ctx := context.Background()

	state, err := carts.Create(ctx)
	require.NoError(t, err)

	q, err := svc.Quote(ctx, state.ID, "")
	require.NoError(t, err)
	require.Zero(t, q.Subtotal)
	require.Zero(t, q.Total)
	require.Zero(t, q.RuleDiscount)
	require.Zero(t, q.FinalTotal)
	require.Empty(t, q.AppliedRules)
}

func TestQuoteIneligibleCouponStillPrices(t *testing.T) {
	resolver := &promo.Resolver{
		Coupons: fakeCoupons{coupon: pricing.Coupon{
			Code: "BIGSPEND", Kind: pricing.CouponPercentage, Value: 15,
			MinOrderValue: 1_000_000, IsActive: true,
		}},
	}
	svc, carts := newQuoteFixture(t, resolver)
	ctx := context.Background()

	state, err := carts.Create(ctx)
	require.NoError(t, err)
	state, err = carts.AddBundle(ctx, state.ID, []cart.Selection{{ProductID: "p1", Qty: 10}}, pricing.SizeA4, nil)
	require.NoError(t, err)

	q, err := svc.Quote(ctx, state.ID, "BIGSPEND")
	require.NoError(t, err)
	require.False(t, q.CouponApplied)
	require.Zero(t, q.CouponDiscount)
	require.NotEmpty(t, q.CouponReason)
	require.Equal(t, q.Total, q.FinalTotal, "quote survives an ineligible coupon")
}

func TestQuoteMissingCart(t *testing.T) {
	svc, _ := newQuoteFixture(t, nil)
	_, err := svc.Quote(context.Background(), "missing", "")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestQuoteFloorAtZero(t *testing.T) {
	resolver := &promo.Resolver{
		Rules: fakeRules{rules: []pricing.Rule{
			{Name: "mega", Kind: pricing.RuleFixedAmount, Value: 10_000_000, IsActive: true},
		}},
	}
	svc, carts := newQuoteFixture(t, resolver)
	ctx := context.Background()

	state, err := carts.Create(ctx)
	require.NoError(t, err)
	state, err = carts.AddBundle(ctx, state.ID, []cart.Selection{{ProductID: "p1", Qty: 2}}, pricing.SizeA4, nil)
	require.NoError(t, err)

	q, err := svc.Quote(ctx, state.ID, "")
	require.NoError(t, err)
	require.Zero(t, q.FinalTotal, "final total never goes negative")
}

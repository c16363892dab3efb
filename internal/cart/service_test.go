package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/backend-store/internal/pricing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	return &Service{
		Store: RedisStore{R: client, TTL: time.Hour},
		Now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * time.Millisecond)
		},
	}
}

func TestAddBundleComputesInvariants(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)

	selections := []Selection{
		{ProductID: "p1", Title: "Fern Study", Qty: 4},
		{ProductID: "p2", Title: "Harbour Dusk", Qty: 6},
	}
	state, err = svc.AddBundle(ctx, state.ID, selections, pricing.SizeA4, nil)
	require.NoError(t, err)
	require.Len(t, state.Bundles, 1)

	b := state.Bundles[0]
	require.Equal(t, b.Subtotal-b.Total, b.Discount)
	require.GreaterOrEqual(t, b.Discount, pricing.Money(0))
	require.NotNil(t, b.AppliedDeal)
	require.Equal(t, 10, b.AppliedDeal.Buy)
	require.Equal(t, 10, state.ItemsCount())
}

func TestAddBundleBelowMinimumNoDeal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)

	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 3}}, pricing.SizeA3, nil)
	require.NoError(t, err)
	b := state.Bundles[0]
	require.Nil(t, b.AppliedDeal)
	for _, it := range b.Items {
		require.False(t, it.IsFree)
	}
	require.Zero(t, b.Discount)
}

func TestUpdateBundleReplacesAndReallocates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 12}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	bundleID := state.Bundles[0].ID
	require.Equal(t, 12, state.Bundles[0].AppliedDeal.Buy)

	state, found, err := svc.UpdateBundle(ctx, state.ID, bundleID, []Selection{{ProductID: "p1", Qty: 4}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	require.True(t, found)
	require.Nil(t, state.Bundles[0].AppliedDeal)
	require.Equal(t, 4, state.ItemsCount())
}

func TestUpdateBundleMissingIsNoop(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 2}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	before := state.Bundles[0]

	state, found, err := svc.UpdateBundle(ctx, state.ID, "no-such-bundle", []Selection{{ProductID: "p2", Qty: 9}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	require.False(t, found)
	require.Len(t, state.Bundles, 1)
	require.Equal(t, before.ID, state.Bundles[0].ID)
	require.Equal(t, before.Subtotal, state.Bundles[0].Subtotal)
}

func TestUpdateBundleRejectsEmptySelections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 2}}, pricing.SizeA4, nil)
	require.NoError(t, err)

	_, _, err = svc.UpdateBundle(ctx, state.ID, state.Bundles[0].ID, nil, pricing.SizeA4, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNoopMutationsSkipSave(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 2}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	stamp := state.UpdatedAt

	state, found, err := svc.UpdateBundle(ctx, state.ID, "no-such-bundle", []Selection{{ProductID: "p2", Qty: 9}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	require.False(t, found)
	require.WithinDuration(t, stamp, state.UpdatedAt, 0, "no-op update must not re-save")

	state, err = svc.RemoveBundle(ctx, state.ID, "no-such-bundle")
	require.NoError(t, err)
	require.WithinDuration(t, stamp, state.UpdatedAt, 0, "no-op remove must not re-save")
}

func TestRemoveAndClear(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 2}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p2", Qty: 3}}, pricing.SizeA3, nil)
	require.NoError(t, err)
	require.Len(t, state.Bundles, 2)

	state, err = svc.RemoveBundle(ctx, state.ID, state.Bundles[0].ID)
	require.NoError(t, err)
	require.Len(t, state.Bundles, 1)

	state, err = svc.Clear(ctx, state.ID)
	require.NoError(t, err)
	require.Empty(t, state.Bundles)
	require.Zero(t, state.Subtotal())
	require.Zero(t, state.Total())
	require.Zero(t, state.ItemsCount())
}

func TestAddCustomBundlePricesLikeCatalog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	frame := &pricing.FrameOption{Size: pricing.SizeA4, Finish: pricing.FinishBlack}
	state, err = svc.AddCustomBundle(ctx, state.ID, []CustomSelection{
		{PreviewURL: "https://cdn.example/u/1.png", Qty: 2},
	}, pricing.SizeA4, frame)
	require.NoError(t, err)

	it := state.Bundles[0].Items[0]
	require.Equal(t, pricing.UnitPrice(pricing.SizeA4, frame), it.UnitPrice)
	require.Contains(t, it.ProductID, "custom-")
}

func TestAppliedDealsCollection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p1", Qty: 15}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p2", Qty: 10}}, pricing.SizeA4, nil)
	require.NoError(t, err)
	state, err = svc.AddBundle(ctx, state.ID, []Selection{{ProductID: "p3", Qty: 2}}, pricing.SizeA4, nil)
	require.NoError(t, err)

	deals := state.AppliedDeals()
	require.Len(t, deals, 2, "one deal per qualifying bundle")
	require.Equal(t, 15, deals[0].Buy)
	require.Equal(t, 10, deals[1].Buy)
}

func TestStoreRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddBundle(ctx, created.ID, []Selection{{ProductID: "p1", Qty: 12}}, pricing.SizeA3, nil)
	require.NoError(t, err)

	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Bundles, 1)
	require.NotNil(t, loaded.Bundles[0].AppliedDeal)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

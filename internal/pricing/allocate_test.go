package pricing

import "testing"

func item(id string, qty int, price Money) BundleItem {
	return BundleItem{ID: id, Qty: qty, Size: SizeA4, UnitPrice: price}
}

func TestAllocateBelowMinimumNoDeal(t *testing.T) {
	items := []BundleItem{item("a", 2, 9_900), item("b", 3, 14_900)}
	deal, totals := Allocate(items)
	if deal != nil {
		t.Fatalf("expected no deal for 5 units, got %+v", deal)
	}
	for _, it := range items {
		if it.IsFree {
			t.Fatalf("item %s marked free without a deal", it.ID)
		}
	}
	want := Money(2*9_900 + 3*14_900)
	if totals.Subtotal != want || totals.Total != want || totals.Discount != 0 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestAllocateCheapestItemsFree(t *testing.T) {
	prices := []Money{5_000, 7_000, 9_000, 5_000, 6_000, 8_000, 9_500, 7_500, 6_500, 5_500}
	items := make([]BundleItem, 0, len(prices))
	for i, p := range prices {
		items = append(items, item(string(rune('a'+i)), 1, p))
	}
	deal, totals := Allocate(items)
	if deal == nil || deal.Buy != 10 || deal.Get != 4 {
		t.Fatalf("expected buy 10 get 4, got %+v", deal)
	}
	// Cheapest four unit prices: 5000, 5000, 5500, 6000.
	var freeSum Money
	freeCount := 0
	for _, it := range items {
		if it.IsFree {
			freeCount++
			freeSum += it.UnitPrice
		}
	}
	if freeCount != 4 {
		t.Fatalf("expected 4 free items, got %d", freeCount)
	}
	if freeSum != 5_000+5_000+5_500+6_000 {
		t.Fatalf("wrong items granted free, discount sum %d", freeSum)
	}
	if totals.Discount != freeSum {
		t.Fatalf("discount %d does not match free item sum %d", totals.Discount, freeSum)
	}
	if totals.Subtotal-totals.Total != totals.Discount {
		t.Fatalf("totals invariant broken: %+v", totals)
	}
}

func TestAllocateBestFitTier(t *testing.T) {
	items := []BundleItem{item("a", 15, 9_900)}
	deal, _ := Allocate(items)
	if deal == nil || deal.Buy != 15 || deal.Get != 8 {
		t.Fatalf("expected the buy-15 tier at 15 units, got %+v", deal)
	}
}

func TestAllocateWholeItemMarking(t *testing.T) {
	// A quantity-3 line holding the cheapest units goes entirely free even
	// though the tier only grants 4 units: marking is per item.
	items := []BundleItem{
		item("cheap", 3, 4_000),
		item("mid", 4, 8_000),
		item("dear", 3, 12_000),
	}
	deal, totals := Allocate(items)
	if deal == nil || deal.Get != 4 {
		t.Fatalf("expected buy 10 get 4, got %+v", deal)
	}
	if !items[0].IsFree || !items[1].IsFree {
		t.Fatalf("expected cheap and mid lines free, got %+v", items)
	}
	if items[2].IsFree {
		t.Fatal("dear line should stay paid")
	}
	// Entire cheap (3x4000) and mid (4x8000) lines leave the bill.
	if totals.Discount != 3*4_000+4*8_000 {
		t.Fatalf("unexpected discount %d", totals.Discount)
	}
}

func TestAllocateIdempotent(t *testing.T) {
	items := []BundleItem{
		item("a", 5, 6_000), item("b", 5, 6_000), item("c", 2, 9_000),
	}
	deal1, totals1 := Allocate(items)
	flags := make([]bool, len(items))
	for i, it := range items {
		flags[i] = it.IsFree
	}
	deal2, totals2 := Allocate(items)
	if totals1 != totals2 {
		t.Fatalf("totals changed across runs: %+v vs %+v", totals1, totals2)
	}
	if (deal1 == nil) != (deal2 == nil) || (deal1 != nil && *deal1 != *deal2) {
		t.Fatalf("deal changed across runs")
	}
	for i, it := range items {
		if it.IsFree != flags[i] {
			t.Fatalf("free flag for %s changed across runs", it.ID)
		}
	}
}

func TestAllocateEmpty(t *testing.T) {
	deal, totals := Allocate(nil)
	if deal != nil || totals.Subtotal != 0 || totals.Total != 0 || totals.Discount != 0 {
		t.Fatalf("expected zeroes for empty bundle, got %+v %+v", deal, totals)
	}
}

func TestBestDealBetweenTiers(t *testing.T) {
	cases := []struct {
		units int
		buy   int
	}{
		{units: 6, buy: 0},
		{units: 9, buy: 0},
		{units: 10, buy: 10},
		{units: 11, buy: 10},
		{units: 12, buy: 12},
		{units: 14, buy: 12},
		{units: 15, buy: 15},
		{units: 40, buy: 15},
	}
	for _, tc := range cases {
		deal := BestDeal(tc.units)
		if tc.buy == 0 {
			if deal != nil {
				t.Fatalf("units=%d: expected no deal, got %+v", tc.units, deal)
			}
			continue
		}
		if deal == nil || deal.Buy != tc.buy {
			t.Fatalf("units=%d: expected buy=%d, got %+v", tc.units, tc.buy, deal)
		}
	}
}

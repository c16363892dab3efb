package cart

import (
	"time"

	"github.com/framecraft/backend-store/internal/pricing"
)

// Bundle is one shopper-assembled group of poster items priced and
// discounted together. Totals and free flags are recomputed wholesale by
// the allocator on every mutation; there is no partial item update.
type Bundle struct {
	ID          string               `json:"id"`
	Items       []pricing.BundleItem `json:"items"`
	Subtotal    pricing.Money        `json:"subtotal"`
	Total       pricing.Money        `json:"total"`
	Discount    pricing.Money        `json:"discount"`
	AppliedDeal *pricing.Deal        `json:"appliedDeal,omitempty"`
}

// State is the full serialisable cart owned by one shopper session. It is
// a plain value: the service loads it from the store, mutates it, and
// saves it back.
type State struct {
	ID        string    `json:"id"`
	Bundles   []Bundle  `json:"bundles"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Subtotal sums bundle subtotals across the cart.
func (s State) Subtotal() pricing.Money {
	var sum pricing.Money
	for _, b := range s.Bundles {
		sum += b.Subtotal
	}
	return sum
}

// Total sums payable bundle totals across the cart.
func (s State) Total() pricing.Money {
	var sum pricing.Money
	for _, b := range s.Bundles {
		sum += b.Total
	}
	return sum
}

// TotalDiscount sums bundle-deal discounts across the cart.
func (s State) TotalDiscount() pricing.Money {
	var sum pricing.Money
	for _, b := range s.Bundles {
		sum += b.Discount
	}
	return sum
}

// ItemsCount counts units across every bundle.
func (s State) ItemsCount() int {
	count := 0
	for _, b := range s.Bundles {
		for _, it := range b.Items {
			if it.Qty > 0 {
				count += it.Qty
			}
		}
	}
	return count
}

// AppliedDeals returns the deal applied by each bundle that has one. A
// multi-bundle cart carries one deal per bundle, so this is a collection
// rather than a single cart-wide deal.
func (s State) AppliedDeals() []pricing.Deal {
	var deals []pricing.Deal
	for _, b := range s.Bundles {
		if b.AppliedDeal != nil {
			deals = append(deals, *b.AppliedDeal)
		}
	}
	return deals
}

func (s State) findBundle(id string) int {
	for i := range s.Bundles {
		if s.Bundles[i].ID == id {
			return i
		}
	}
	return -1
}

package pricing

// Deal is one buy-N-get-M-free tier: buy Buy units, get Get of them free,
// for Total units in the bundle.
type Deal struct {
	Buy   int `json:"buy"`
	Get   int `json:"get"`
	Total int `json:"total"`
}

// MinBundleQuantity is the smallest bundle size eligible for any deal.
const MinBundleQuantity = 6

// Deals lists the available tiers. BestDeal scans them by descending Buy,
// so order here is not significant.
var Deals = []Deal{
	{Buy: 10, Get: 4, Total: 14},
	{Buy: 12, Get: 6, Total: 18},
	{Buy: 15, Get: 8, Total: 23},
}

// BestDeal returns the highest tier whose threshold the unit count meets,
// or nil when the bundle is below the minimum quantity or no tier fits.
func BestDeal(totalUnits int) *Deal {
	if totalUnits < MinBundleQuantity {
		return nil
	}
	var best *Deal
	for i := range Deals {
		d := Deals[i]
		if d.Buy > totalUnits {
			continue
		}
		if best == nil || d.Buy > best.Buy {
			best = &Deals[i]
		}
	}
	if best == nil {
		return nil
	}
	copied := *best
	return &copied
}

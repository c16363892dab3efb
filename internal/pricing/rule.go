package pricing

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RuleKind enumerates the store-wide pricing rule types. The set is closed:
// ruleDiscount switches over every kind so a new kind fails to compile
// until it is handled.
type RuleKind string

// Rule kinds.
const (
	RulePercentageDiscount RuleKind = "percentage_discount"
	RuleFixedAmount        RuleKind = "fixed_amount"
	RuleBuyXGetY           RuleKind = "buy_x_get_y"
	RuleFreeShipping       RuleKind = "free_shipping"
)

// Valid reports whether the kind is one of the known rule kinds.
func (k RuleKind) Valid() bool {
	switch k {
	case RulePercentageDiscount, RuleFixedAmount, RuleBuyXGetY, RuleFreeShipping:
		return true
	}
	return false
}

// Rule is an admin-configured store-wide discount condition. Evaluation
// never mutates a rule.
type Rule struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Kind          RuleKind   `json:"kind"`
	Value         int64      `json:"value"`
	TargetType    string     `json:"targetType"`
	MinOrderValue Money      `json:"minOrderValue"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	IsActive      bool       `json:"isActive"`
	SortOrder     int        `json:"sortOrder"`
}

// Eligible reports whether the rule applies at the given instant and cart
// total.
func (r Rule) Eligible(now time.Time, cartTotal Money) bool {
	if !r.IsActive {
		return false
	}
	if r.StartDate != nil && now.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false
	}
	if r.MinOrderValue > 0 && cartTotal < r.MinOrderValue {
		return false
	}
	return true
}

// AppliedRule records a rule that contributed a non-zero discount, for
// receipt display.
type AppliedRule struct {
	Rule     Rule  `json:"rule"`
	Discount Money `json:"discount"`
}

// EvaluateRules runs every eligible rule against the cart total in
// sortOrder and sums their discounts. Rules are independently additive:
// each eligible rule contributes regardless of the others, and there is no
// best-rule-only selection.
func EvaluateRules(now time.Time, cartTotal Money, rules []Rule) ([]AppliedRule, Money) {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].SortOrder < ordered[b].SortOrder })

	var applied []AppliedRule
	var sum Money
	for _, r := range ordered {
		if !r.Eligible(now, cartTotal) {
			continue
		}
		d := ruleDiscount(r, cartTotal)
		if d <= 0 {
			continue
		}
		applied = append(applied, AppliedRule{Rule: r, Discount: d})
		sum += d
	}
	return applied, sum
}

func ruleDiscount(r Rule, cartTotal Money) Money {
	switch r.Kind {
	case RulePercentageDiscount:
		if r.Value <= 0 {
			return 0
		}
		return cartTotal * r.Value / 100
	case RuleFixedAmount:
		if r.Value <= 0 {
			return 0
		}
		if r.Value > cartTotal {
			return cartTotal
		}
		return r.Value
	case RuleBuyXGetY:
		// Realised inside the bundle allocator; the rule row is
		// configuration only at this layer.
		return 0
	case RuleFreeShipping:
		// Shipping cost adjustment happens in the shipping quote, not as
		// a monetary discount here.
		return 0
	}
	return 0
}

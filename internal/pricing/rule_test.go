package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateRulesAdditive(t *testing.T) {
	now := time.Now()
	rules := []Rule{
		{Name: "10% off", Kind: RulePercentageDiscount, Value: 10, IsActive: true, SortOrder: 1},
		{Name: "flat 50", Kind: RuleFixedAmount, Value: 5_000, IsActive: true, SortOrder: 2},
	}
	applied, discount := EvaluateRules(now, 100_000, rules)
	require.Len(t, applied, 2)
	require.Equal(t, Money(15_000), discount, "both rules must sum, not compete")
}

func TestEvaluateRulesMinOrderThreshold(t *testing.T) {
	now := time.Now()
	rules := []Rule{{
		Name: "10% over 1000", Kind: RulePercentageDiscount, Value: 10,
		MinOrderValue: 100_000, IsActive: true,
	}}
	applied, discount := EvaluateRules(now, 120_000, rules)
	require.Len(t, applied, 1)
	require.Equal(t, Money(12_000), discount)

	applied, discount = EvaluateRules(now, 90_000, rules)
	require.Empty(t, applied)
	require.Zero(t, discount)
}

func TestEvaluateRulesWindowAndActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	rules := []Rule{
		{Name: "inactive", Kind: RuleFixedAmount, Value: 1_000},
		{Name: "not started", Kind: RuleFixedAmount, Value: 1_000, IsActive: true, StartDate: &future},
		{Name: "ended", Kind: RuleFixedAmount, Value: 1_000, IsActive: true, EndDate: &past},
	}
	applied, discount := EvaluateRules(now, 50_000, rules)
	require.Empty(t, applied)
	require.Zero(t, discount)
}

func TestEvaluateRulesInformationalKinds(t *testing.T) {
	now := time.Now()
	rules := []Rule{
		{Name: "bundle deal", Kind: RuleBuyXGetY, Value: 4, IsActive: true},
		{Name: "free ship", Kind: RuleFreeShipping, IsActive: true},
	}
	applied, discount := EvaluateRules(now, 50_000, rules)
	require.Empty(t, applied, "buy_x_get_y and free_shipping contribute no monetary discount")
	require.Zero(t, discount)
}

func TestEvaluateRulesFixedCappedAtTotal(t *testing.T) {
	now := time.Now()
	rules := []Rule{{Name: "flat 500", Kind: RuleFixedAmount, Value: 50_000, IsActive: true}}
	_, discount := EvaluateRules(now, 30_000, rules)
	require.Equal(t, Money(30_000), discount)
}

func TestEvaluateRulesSortOrder(t *testing.T) {
	now := time.Now()
	rules := []Rule{
		{Name: "second", Kind: RuleFixedAmount, Value: 2_000, IsActive: true, SortOrder: 20},
		{Name: "first", Kind: RulePercentageDiscount, Value: 5, IsActive: true, SortOrder: 10},
	}
	applied, _ := EvaluateRules(now, 100_000, rules)
	require.Len(t, applied, 2)
	require.Equal(t, "first", applied[0].Rule.Name)
	require.Equal(t, "second", applied[1].Rule.Name)
}

func TestEvaluateRulesMalformedValue(t *testing.T) {
	now := time.Now()
	rules := []Rule{{Name: "broken", Kind: RulePercentageDiscount, IsActive: true}}
	applied, discount := EvaluateRules(now, 100_000, rules)
	require.Empty(t, applied, "a rule without a value contributes zero, not an error")
	require.Zero(t, discount)
}

package rules

import "github.com/opensource-finance/finsight/internal/domain"

// BuiltinRules returns the default insight rules in evaluation order.
func BuiltinRules() []*domain.InsightRule {
	return []*domain.InsightRule{
		{
			ID:          "trend",
			Name:        "Spending trend",
			Description: "Second half of the window outspends the first by more than 20%",
			Scope:       domain.ScopeSummary,
			Expression:  "second_half > first_half * 1.2",
			InsightType: domain.InsightSpendingIncrease,
			Priority:    domain.PriorityHigh,
			Enabled:     true,
		},
		{
			ID:          "savings",
			Name:        "Savings rate",
			Description: "Savings rate below 20% of income",
			Scope:       domain.ScopeSummary,
			Expression:  "income > 0.0 && savings_rate < 20.0",
			InsightType: domain.InsightLowSavings,
			Priority:    domain.PriorityHigh,
			Enabled:     true,
		},
		{
			ID:          "top",
			Name:        "Top category",
			Description: "Largest expense category of the window",
			Scope:       domain.ScopeCategory,
			Expression:  "category_rank == 1 && category_total > 0.0",
			InsightType: domain.InsightTopCategory,
			Priority:    domain.PriorityMedium,
			Enabled:     true,
		},
		{
			ID:          "category",
			Name:        "Category spending",
			Description: "Average transaction in a top category above 100",
			Scope:       domain.ScopeCategory,
			Expression:  "category_average > 100.0",
			InsightType: domain.InsightHighCategorySpending,
			Priority:    domain.PriorityMedium,
			Enabled:     true,
		},
		{
			ID:          "subscription",
			Name:        "Expensive subscription",
			Description: "Recurring monthly cost above 50",
			Scope:       domain.ScopePattern,
			Expression:  "pattern_average > 50.0",
			InsightType: domain.InsightExpensiveSubscription,
			Priority:    domain.PriorityHigh,
			Enabled:     true,
		},
		{
			ID:          "weekend",
			Name:        "Weekend spending",
			Description: "More than 40% of expenses on Saturdays and Sundays",
			Scope:       domain.ScopeSummary,
			Expression:  "expenses > 0.0 && weekend_share > 40.0",
			InsightType: domain.InsightWeekendSpending,
			Priority:    domain.PriorityMedium,
			Enabled:     true,
		},
	}
}

// NewBuiltinEngine returns an engine loaded with BuiltinRules.
func NewBuiltinEngine(maxWorkers int) (*Engine, error) {
	engine, err := NewEngine(maxWorkers)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadRules(BuiltinRules()); err != nil {
		return nil, err
	}
	return engine, nil
}

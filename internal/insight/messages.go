package insight

import (
	"fmt"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/money"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

var (
	savingsTarget       = decimal.NewFromFloat(0.2)
	subscriptionSavings = decimal.NewFromFloat(0.3)
	categorySavings     = decimal.NewFromFloat(0.15)
)

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func spendingIncrease(rule *domain.InsightRule, f Facts) domain.Insight {
	return domain.Insight{
		Type:           rule.InsightType,
		Priority:       rule.Priority,
		Message:        "Your spending increased significantly in the second half of the period.",
		Recommendation: "Review your expenses and identify areas to cut back.",
		Details: map[string]any{
			"trend":         "increasing",
			"changePercent": stats.Round2(stats.GrowthRate(f.SecondHalf, f.FirstHalf)),
			"firstHalf":     round(f.FirstHalf),
			"secondHalf":    round(f.SecondHalf),
		},
	}
}

func lowSavings(rule *domain.InsightRule, f Facts) domain.Insight {
	amountToSave := f.Income.Mul(savingsTarget).Sub(f.Income.Sub(f.Expenses))
	return domain.Insight{
		Type:           rule.InsightType,
		Priority:       rule.Priority,
		Message:        fmt.Sprintf("Savings rate: %s (target: 20%%)", money.Percent(f.SavingsRate)),
		Recommendation: "Set up automatic transfers to save at least 20% of your income.",
		Details: map[string]any{
			"currentRate":  stats.Round2(f.SavingsRate),
			"targetRate":   20,
			"amountToSave": round(amountToSave),
		},
	}
}

func weekendSpending(rule *domain.InsightRule, f Facts) domain.Insight {
	return domain.Insight{
		Type:           rule.InsightType,
		Priority:       rule.Priority,
		Message:        fmt.Sprintf("Weekend spending: %s of expenses", money.Percent(f.WeekendShare)),
		Recommendation: "Plan cheaper leisure activities for the weekends.",
		Details: map[string]any{
			"percentage": stats.Round2(f.WeekendShare),
			"amount":     round(f.WeekendSpend),
		},
	}
}

func topCategory(rule *domain.InsightRule, c stats.CategoryTotal, f Facts) domain.Insight {
	return domain.Insight{
		Type:           rule.InsightType,
		Priority:       rule.Priority,
		Category:       c.Category,
		Message:        fmt.Sprintf("Top spending category: %s (%s)", money.Title(c.Category), money.Format(c.Total)),
		Recommendation: fmt.Sprintf("Consider cutting back on %s to save more.", money.Title(c.Category)),
		Details: map[string]any{
			"amount":     round(c.Total),
			"percentage": stats.Round2(stats.Percentage(c.Total, f.Expenses)),
		},
	}
}

func highCategorySpending(rule *domain.InsightRule, c stats.CategoryTotal) domain.Insight {
	savings := c.Total.Mul(categorySavings)
	return domain.Insight{
		Type:           rule.InsightType,
		Priority:       rule.Priority,
		Category:       c.Category,
		Message:        fmt.Sprintf("Average %s transaction is %s", money.Title(c.Category), money.Format(categoryAverage(c))),
		Recommendation: fmt.Sprintf("Reduce spending on %s to save about %s.", money.Title(c.Category), money.Format(savings)),
		Details: map[string]any{
			"totalSpent":         round(c.Total),
			"averageTransaction": round(categoryAverage(c)),
			"estimatedSavings":   round(savings),
		},
	}
}

func expensiveSubscription(rule *domain.InsightRule, p domain.RecurringPattern) domain.Insight {
	return domain.Insight{
		Type:           rule.InsightType,
		Priority:       rule.Priority,
		Category:       p.Category,
		Message:        fmt.Sprintf("Recurring %s expense of %s per month", money.Title(p.Category), money.Format(p.AverageAmount)),
		Recommendation: fmt.Sprintf("Review the subscription in %s.", money.Title(p.Category)),
		Details: map[string]any{
			"monthlyCost":      round(p.AverageAmount),
			"occurrences":      p.OccurrenceCount,
			"estimatedSavings": round(p.AverageAmount.Mul(subscriptionSavings)),
		},
	}
}

// generic renders a rule whose type has no dedicated message.
func generic(rule *domain.InsightRule, subject string) domain.Insight {
	msg := rule.Description
	if msg == "" {
		msg = rule.Name
	}
	return domain.Insight{
		Type:     rule.InsightType,
		Priority: rule.Priority,
		Category: subject,
		Message:  msg,
	}
}

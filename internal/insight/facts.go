package insight

import (
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

// topCategories is how many expense categories category rules look at.
const topCategories = 3

// Facts are the numeric aggregates insight rules are evaluated against.
type Facts struct {
	Income          decimal.Decimal
	Expenses        decimal.Decimal
	SavingsRate     float64
	FirstHalf       decimal.Decimal
	SecondHalf      decimal.Decimal
	WeekendSpend    decimal.Decimal
	WeekendShare    float64
	Transactions    int
	CategoriesCount int
	Categories      []stats.CategoryTotal

	// RecurringMonthly is the monthly cost of the detected recurring
	// expenses. Set by the formatter from the window's patterns.
	RecurringMonthly decimal.Decimal
}

// ComputeFacts aggregates a transaction window.
func ComputeFacts(txs []domain.Transaction) Facts {
	f := Facts{
		Income:       stats.SumByType(txs, domain.TypeIncome),
		Expenses:     stats.SumByType(txs, domain.TypeExpense),
		FirstHalf:    decimal.Zero,
		SecondHalf:   decimal.Zero,
		WeekendSpend: decimal.Zero,
		Transactions: len(txs),
		Categories:   stats.CategoryTotals(txs, domain.TypeExpense),

		RecurringMonthly: decimal.Zero,
	}

	if f.Income.IsPositive() {
		f.SavingsRate = stats.Percentage(f.Income.Sub(f.Expenses), f.Income)
	}

	seen := make(map[string]struct{})
	var expenses []domain.Transaction
	for _, tx := range txs {
		if tx.HasCategory() {
			seen[tx.Category] = struct{}{}
		}
		if !tx.IsExpense() {
			continue
		}
		expenses = append(expenses, tx)
		if tx.IsWeekend() {
			f.WeekendSpend = f.WeekendSpend.Add(tx.Amount)
		}
	}
	f.CategoriesCount = len(seen)
	f.WeekendShare = stats.Percentage(f.WeekendSpend, f.Expenses)

	if len(expenses) > 0 {
		first, last := expenses[0].Date, expenses[0].Date
		for _, tx := range expenses[1:] {
			if tx.Date.Before(first) {
				first = tx.Date
			}
			if tx.Date.After(last) {
				last = tx.Date
			}
		}
		mid := first.Add(last.Sub(first) / 2)
		for _, tx := range expenses {
			if tx.Date.After(mid) {
				f.SecondHalf = f.SecondHalf.Add(tx.Amount)
			} else {
				f.FirstHalf = f.FirstHalf.Add(tx.Amount)
			}
		}
	}

	return f
}

// SummaryVars binds the summary-scope rule variables.
func (f Facts) SummaryVars() map[string]any {
	return map[string]any{
		"income":            f.Income.InexactFloat64(),
		"expenses":          f.Expenses.InexactFloat64(),
		"savings_rate":      f.SavingsRate,
		"first_half":        f.FirstHalf.InexactFloat64(),
		"second_half":       f.SecondHalf.InexactFloat64(),
		"weekend_share":     f.WeekendShare,
		"transaction_count": int64(f.Transactions),

		"recurring_monthly_cost": f.RecurringMonthly.InexactFloat64(),
	}
}

// CategoryVars binds the category-scope variables of the category at rank
// (1-based).
func CategoryVars(c stats.CategoryTotal, rank int) map[string]any {
	return map[string]any{
		"category":         c.Category,
		"category_total":   c.Total.InexactFloat64(),
		"category_average": categoryAverage(c).InexactFloat64(),
		"category_rank":    int64(rank),
	}
}

// PatternVars binds the pattern-scope variables.
func PatternVars(p domain.RecurringPattern) map[string]any {
	return map[string]any{
		"pattern_category": p.Category,
		"pattern_average":  p.AverageAmount.InexactFloat64(),
		"pattern_count":    int64(p.OccurrenceCount),
	}
}

func categoryAverage(c stats.CategoryTotal) decimal.Decimal {
	if c.Count == 0 {
		return decimal.Zero
	}
	return c.Total.Div(decimal.NewFromInt(int64(c.Count)))
}

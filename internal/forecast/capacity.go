// Package forecast estimates savings-goal outcomes from a user's monthly
// capacity. The estimates are deterministic band lookups, not models.
package forecast

import (
	"math"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

// NeverMonths is the sentinel horizon for goals that cannot be reached with
// the current capacity.
const NeverMonths = 999.0

const daysPerMonth = 30

// Capacity is the average monthly cash flow of a transaction window.
type Capacity struct {
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
	Available       decimal.Decimal
}

// ComputeCapacity averages income and expenses over the months spanned by
// txs, counting at least one month.
func ComputeCapacity(txs []domain.Transaction) Capacity {
	c := Capacity{
		MonthlyIncome:   decimal.Zero,
		MonthlyExpenses: decimal.Zero,
		Available:       decimal.Zero,
	}
	if len(txs) == 0 {
		return c
	}

	first, last := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(first) {
			first = tx.Date
		}
		if tx.Date.After(last) {
			last = tx.Date
		}
	}

	spanDays := math.Floor(last.Sub(first).Hours() / 24)
	months := decimal.NewFromFloat(math.Max(1, spanDays/daysPerMonth))

	c.MonthlyIncome = stats.SumByType(txs, domain.TypeIncome).Div(months)
	c.MonthlyExpenses = stats.SumByType(txs, domain.TypeExpense).Div(months)
	c.Available = c.MonthlyIncome.Sub(c.MonthlyExpenses)
	return c
}

// daysUntil returns whole days from now to t, rounded towards negative
// infinity.
func daysUntil(now, t time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}

// monthsUntil converts remaining days to months, never less than one.
func monthsUntil(days int) float64 {
	return math.Max(1, float64(days)/daysPerMonth)
}

// monthsToFund returns amount/monthly, or NeverMonths when monthly is not
// positive.
func monthsToFund(amount, monthly decimal.Decimal) float64 {
	if !monthly.IsPositive() {
		return NeverMonths
	}
	return math.Min(NeverMonths, amount.Div(monthly).InexactFloat64())
}

// dateAfter returns now plus months expressed as 30-day blocks.
func dateAfter(now time.Time, months float64) time.Time {
	months = math.Min(months, NeverMonths)
	return now.AddDate(0, 0, int(months*daysPerMonth))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func ratio(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Package stats computes category-level aggregates over a transaction window.
//
// All money math is done in decimal. Functions never return NaN: empty
// inputs, zero means and zero deviations resolve to zero values or to an
// explicit "undefined" flag.
package stats

import (
	"math"
	"sort"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// SumByType totals the amounts of transactions of the given type.
func SumByType(txs []domain.Transaction, t domain.TransactionType) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Type == t {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// GroupBy partitions transactions by key, keeping keys in first-appearance
// order. Transactions for which key reports false are left out.
func GroupBy[K comparable](txs []domain.Transaction, key func(domain.Transaction) (K, bool)) ([]K, map[K][]domain.Transaction) {
	var order []K
	groups := make(map[K][]domain.Transaction)
	for _, tx := range txs {
		k, ok := key(tx)
		if !ok {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], tx)
	}
	return order, groups
}

// ExpenseCategory keys categorised expenses by category name.
func ExpenseCategory(tx domain.Transaction) (string, bool) {
	return tx.Category, tx.IsExpense() && tx.HasCategory()
}

// CategoryTotals sums transactions of type t per category, largest first.
// Uncategorised rows are excluded.
func CategoryTotals(txs []domain.Transaction, t domain.TransactionType) []CategoryTotal {
	order, groups := GroupBy(txs, func(tx domain.Transaction) (string, bool) {
		return tx.Category, tx.Type == t && tx.HasCategory()
	})

	totals := make([]CategoryTotal, 0, len(order))
	for _, cat := range order {
		totals = append(totals, CategoryTotal{
			Category: cat,
			Total:    Sum(Amounts(groups[cat])),
			Count:    len(groups[cat]),
		})
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// CategoryStats returns one entry per categorised expense category, largest
// total first. Percentage is relative to all expenses in txs.
func CategoryStats(txs []domain.Transaction) []domain.CategoryStats {
	order, groups := GroupBy(txs, ExpenseCategory)
	totalExpense := SumByType(txs, domain.TypeExpense)

	out := make([]domain.CategoryStats, 0, len(order))
	for _, cat := range order {
		amounts := Amounts(groups[cat])
		total := Sum(amounts)
		out = append(out, domain.CategoryStats{
			Category:   cat,
			Count:      len(amounts),
			Mean:       Mean(amounts),
			StdDev:     StdDev(amounts),
			Total:      total,
			Percentage: Percentage(total, totalExpense),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Amounts extracts the amounts of txs.
func Amounts(txs []domain.Transaction) []decimal.Decimal {
	out := make([]decimal.Decimal, len(txs))
	for i, tx := range txs {
		out[i] = tx.Amount
	}
	return out
}

// Sum adds values.
func Sum(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum
}

// Mean is the arithmetic mean; 0 for no values.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return Sum(values).Div(decimal.NewFromInt(int64(len(values))))
}

// StdDev is the population standard deviation; 0 for fewer than two values.
func StdDev(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}

	mean := Mean(values)
	sq := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		sq = sq.Add(d.Mul(d))
	}
	variance := sq.Div(decimal.NewFromInt(int64(len(values))))
	if !variance.IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
}

// ZScore returns (value-mean)/stddev. The second result is false when stddev
// is zero and the score is undefined.
func ZScore(value, mean, stddev decimal.Decimal) (decimal.Decimal, bool) {
	if stddev.IsZero() {
		return decimal.Zero, false
	}
	return value.Sub(mean).Div(stddev), true
}

// CoefficientOfVariation returns stddev/mean. The second result is false
// when the mean is not positive.
func CoefficientOfVariation(values []decimal.Decimal) (float64, bool) {
	mean := Mean(values)
	if !mean.IsPositive() {
		return 0, false
	}
	return StdDev(values).Div(mean).InexactFloat64(), true
}

// Percentage returns part/whole*100, or 0 when whole is zero.
func Percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

// GrowthRate returns the percentage change from previous to current.
// A zero previous value gives 100 when current is positive, else 0.
func GrowthRate(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	return current.Sub(previous).Div(previous).Mul(hundred).InexactFloat64()
}

// Round2 rounds a float to two decimals for output.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

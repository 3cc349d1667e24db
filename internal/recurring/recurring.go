// Package recurring groups expenses into candidate recurring series.
//
// Membership is a coefficient-of-variation test over a grouping key. It does
// not verify date spacing; Cadence only describes what the dates show.
package recurring

import (
	"sort"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

// Cadence labels derived from the mean interval between occurrences.
const (
	CadenceWeekly      = "weekly"
	CadenceFortnightly = "fortnightly"
	CadenceMonthly     = "monthly"
	CadenceQuarterly   = "quarterly"
	CadenceAnnual      = "annual"
	CadenceIrregular   = "irregular"
)

// FrequencyMonthly is asserted for day-of-month patterns.
const FrequencyMonthly = "monthly"

type cadenceBand struct {
	name     string
	min, max float64
}

// Ordered interval bands in days.
var cadenceBands = []cadenceBand{
	{CadenceWeekly, 5, 9},
	{CadenceFortnightly, 12, 16},
	{CadenceMonthly, 27, 34},
	{CadenceQuarterly, 85, 95},
	{CadenceAnnual, 355, 375},
}

type amountKey struct {
	category string
	rounded  string
}

type dayKey struct {
	category string
	day      int
}

// Detect groups expenses by (category, amount rounded to whole units) and
// keeps the groups with at least minOccurrences members whose
// stddev/mean is below tolerance.
func Detect(txs []domain.Transaction, minOccurrences int, tolerance float64) []domain.RecurringPattern {
	order, groups := stats.GroupBy(txs, func(tx domain.Transaction) (amountKey, bool) {
		if !tx.IsExpense() || !tx.HasCategory() {
			return amountKey{}, false
		}
		return amountKey{category: tx.Category, rounded: tx.Amount.RoundBank(0).String()}, true
	})

	patterns := make([]domain.RecurringPattern, 0)
	for _, key := range order {
		if p, ok := evaluate(key.category, groups[key], minOccurrences, tolerance); ok {
			patterns = append(patterns, p)
		}
	}

	sortPatterns(patterns)
	return patterns
}

// DetectByDayOfMonth applies the same test to (category, day-of-month)
// groups and tags accepted groups as monthly.
func DetectByDayOfMonth(txs []domain.Transaction, minOccurrences int, tolerance float64) []domain.RecurringPattern {
	order, groups := stats.GroupBy(txs, func(tx domain.Transaction) (dayKey, bool) {
		if !tx.IsExpense() || !tx.HasCategory() {
			return dayKey{}, false
		}
		return dayKey{category: tx.Category, day: tx.Date.Day()}, true
	})

	patterns := make([]domain.RecurringPattern, 0)
	for _, key := range order {
		p, ok := evaluate(key.category, groups[key], minOccurrences, tolerance)
		if !ok {
			continue
		}
		p.DayOfMonth = key.day
		p.Frequency = FrequencyMonthly
		patterns = append(patterns, p)
	}

	sortPatterns(patterns)
	return patterns
}

func evaluate(category string, members []domain.Transaction, minOccurrences int, tolerance float64) (domain.RecurringPattern, bool) {
	if len(members) < minOccurrences || len(members) == 0 {
		return domain.RecurringPattern{}, false
	}

	amounts := stats.Amounts(members)
	cv, ok := stats.CoefficientOfVariation(amounts)
	// a NaN tolerance accepts nothing
	if !ok || !(cv < tolerance) {
		return domain.RecurringPattern{}, false
	}

	dates := make([]time.Time, len(members))
	for i, tx := range members {
		dates[i] = tx.Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return domain.RecurringPattern{
		Category:        category,
		AverageAmount:   stats.Mean(amounts),
		OccurrenceCount: len(members),
		Confidence:      domain.RecurringConfidence,
		Cadence:         Cadence(dates),
		LastSeen:        dates[len(dates)-1],
	}, true
}

// Cadence classifies ascending dates by their mean interval. Fewer than two
// dates give an empty cadence.
func Cadence(dates []time.Time) string {
	if len(dates) < 2 {
		return ""
	}

	total := 0.0
	for i := 1; i < len(dates); i++ {
		total += dates[i].Sub(dates[i-1]).Hours() / 24
	}
	avg := total / float64(len(dates)-1)

	for _, b := range cadenceBands {
		if avg >= b.min && avg <= b.max {
			return b.name
		}
	}
	return CadenceIrregular
}

// sortPatterns orders by average amount descending, then category, then day.
func sortPatterns(patterns []domain.RecurringPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if c := a.AverageAmount.Cmp(b.AverageAmount); c != 0 {
			return c > 0
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.DayOfMonth < b.DayOfMonth
	})
}

// MonthlyCost sums the average amounts of monthly-cadence patterns.
func MonthlyCost(patterns []domain.RecurringPattern) decimal.Decimal {
	total := decimal.Zero
	for _, p := range patterns {
		if p.Cadence == CadenceMonthly || p.Frequency == FrequencyMonthly {
			total = total.Add(p.AverageAmount)
		}
	}
	return total
}

package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2 June 2025 is a Monday.
var monday = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type stubGenerator struct {
	available bool
	lines     []string
	err       error
	calls     int
	prompt    string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, maxLines int) ([]string, error) {
	s.calls++
	s.prompt = prompt
	if s.err != nil {
		return nil, s.err
	}
	if len(s.lines) > maxLines {
		return s.lines[:maxLines], nil
	}
	return s.lines, nil
}

func (s *stubGenerator) Available() bool { return s.available }

func newFormatter(t *testing.T, gen domain.TextGenerator) *Formatter {
	t.Helper()
	engine, err := rules.NewBuiltinEngine(4)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewFormatter(engine, gen, domain.DefaultAnalyticsConfig())
}

func txn(typ domain.TransactionType, category string, amount int64, date time.Time) domain.Transaction {
	return domain.Transaction{
		ID:       fmt.Sprintf("%s-%s-%d-%d", typ, category, amount, date.Unix()),
		Type:     typ,
		Category: category,
		Amount:   decimal.NewFromInt(amount),
		Status:   domain.StatusCompleted,
		Date:     date,
	}
}

func types(insights []domain.Insight) []domain.InsightType {
	out := make([]domain.InsightType, len(insights))
	for i, in := range insights {
		out[i] = in.Type
	}
	return out
}

func TestReportInsufficientData(t *testing.T) {
	f := newFormatter(t, nil)

	report, err := f.Report(context.Background(), nil, nil, 30)
	require.NoError(t, err)
	assert.True(t, report.InsufficientData)
	assert.Equal(t, InsufficientDataMessage, report.Message)
	assert.NotNil(t, report.Insights)
	assert.Empty(t, report.Insights)
	assert.Nil(t, report.Summary)
}

func TestReportRules(t *testing.T) {
	ctx := context.Background()

	t.Run("LowSavingsAndTopCategory", func(t *testing.T) {
		txs := []domain.Transaction{txn(domain.TypeIncome, "salary", 1000, monday)}
		for i := 0; i < 9; i++ {
			txs = append(txs, txn(domain.TypeExpense, "food", 100, monday))
		}

		report, err := newFormatter(t, nil).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		assert.Equal(t, []domain.InsightType{domain.InsightLowSavings, domain.InsightTopCategory}, types(report.Insights))

		low := report.Insights[0]
		assert.Equal(t, domain.PriorityHigh, low.Priority)
		assert.Equal(t, 10.0, low.Details["currentRate"])
		assert.Equal(t, 100.0, low.Details["amountToSave"])

		top := report.Insights[1]
		assert.Equal(t, "food", top.Category)
		assert.Equal(t, "Top spending category: Food (900.00)", top.Message)

		require.NotNil(t, report.Summary)
		assert.Equal(t, 10, report.Summary.TotalTransactions)
		assert.Equal(t, 2, report.Summary.CategoriesCount)
		assert.Equal(t, 10.0, report.Summary.SavingsRate)
	})

	t.Run("NoIncomeNoSavingsInsight", func(t *testing.T) {
		txs := []domain.Transaction{txn(domain.TypeExpense, "food", 50, monday)}

		report, err := newFormatter(t, nil).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		assert.NotContains(t, types(report.Insights), domain.InsightLowSavings)
	})

	t.Run("HealthySavings", func(t *testing.T) {
		txs := []domain.Transaction{
			txn(domain.TypeIncome, "salary", 1000, monday),
			txn(domain.TypeExpense, "food", 800, monday),
		}
		report, err := newFormatter(t, nil).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		// exactly 20% saved is not low
		assert.NotContains(t, types(report.Insights), domain.InsightLowSavings)
	})

	t.Run("SpendingIncrease", func(t *testing.T) {
		txs := []domain.Transaction{
			txn(domain.TypeExpense, "food", 100, monday),
			txn(domain.TypeExpense, "food", 300, monday.AddDate(0, 0, 28)),
		}

		report, err := newFormatter(t, nil).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		require.NotEmpty(t, report.Insights)
		assert.Equal(t, domain.InsightSpendingIncrease, report.Insights[0].Type)
		assert.Equal(t, 200.0, report.Insights[0].Details["changePercent"])
	})

	t.Run("WeekendSpending", func(t *testing.T) {
		saturday := monday.AddDate(0, 0, 5)
		txs := []domain.Transaction{
			txn(domain.TypeExpense, "fun", 50, saturday),
			txn(domain.TypeExpense, "fun", 50, saturday),
			txn(domain.TypeExpense, "food", 40, monday),
		}

		report, err := newFormatter(t, nil).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		got := types(report.Insights)
		assert.Contains(t, got, domain.InsightWeekendSpending)
		// weekend rule is declared last
		assert.Equal(t, domain.InsightWeekendSpending, got[len(got)-1])
	})

	t.Run("ExpensiveSubscription", func(t *testing.T) {
		txs := []domain.Transaction{txn(domain.TypeExpense, "streaming", 60, monday)}
		patterns := []domain.RecurringPattern{
			{Category: "streaming", AverageAmount: decimal.NewFromInt(60), OccurrenceCount: 3, Confidence: domain.RecurringConfidence},
			{Category: "news", AverageAmount: decimal.NewFromInt(10), OccurrenceCount: 3, Confidence: domain.RecurringConfidence},
		}

		report, err := newFormatter(t, nil).Report(ctx, txs, patterns, 30)
		require.NoError(t, err)

		var subs []domain.Insight
		for _, in := range report.Insights {
			if in.Type == domain.InsightExpensiveSubscription {
				subs = append(subs, in)
			}
		}
		require.Len(t, subs, 1)
		assert.Equal(t, "streaming", subs[0].Category)
		assert.Equal(t, 18.0, subs[0].Details["estimatedSavings"])
	})
}

func TestReportAdvisor(t *testing.T) {
	ctx := context.Background()
	txs := []domain.Transaction{txn(domain.TypeExpense, "food", 50, monday)}

	t.Run("AppendsLines", func(t *testing.T) {
		gen := &stubGenerator{available: true, lines: []string{"Cook at home", "Cancel one app", "Track groceries", "Extra"}}

		report, err := newFormatter(t, gen).Report(ctx, txs, nil, 30)
		require.NoError(t, err)

		var advisor []string
		for _, in := range report.Insights {
			if in.Type == domain.InsightAdvisor {
				advisor = append(advisor, in.Message)
			}
		}
		assert.Equal(t, []string{"Cook at home", "Cancel one app", "Track groceries"}, advisor)
		assert.True(t, strings.Contains(gen.prompt, "Expenses: 50.00"))
	})

	t.Run("FailureDegradesSilently", func(t *testing.T) {
		gen := &stubGenerator{available: true, err: errors.New("quota exceeded")}

		report, err := newFormatter(t, gen).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		assert.NotContains(t, types(report.Insights), domain.InsightAdvisor)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("UnavailableNotCalled", func(t *testing.T) {
		gen := &stubGenerator{available: false}

		_, err := newFormatter(t, gen).Report(ctx, txs, nil, 30)
		require.NoError(t, err)
		assert.Zero(t, gen.calls)
	})
}

func TestOpportunities(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		report, err := newFormatter(t, nil).Opportunities(ctx, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, report.Opportunities)
		assert.True(t, report.PotentialSavings.IsZero())
	})

	t.Run("SubscriptionsThenCategories", func(t *testing.T) {
		txs := []domain.Transaction{
			txn(domain.TypeExpense, "rent", 1000, monday),
			txn(domain.TypeExpense, "rent", 1000, monday.AddDate(0, 0, 1)),
			txn(domain.TypeExpense, "food", 20, monday),
		}
		patterns := []domain.RecurringPattern{
			{Category: "rent", AverageAmount: decimal.NewFromInt(1000), OccurrenceCount: 2},
		}

		report, err := newFormatter(t, nil).Opportunities(ctx, txs, patterns)
		require.NoError(t, err)
		require.Len(t, report.Opportunities, 2)

		sub := report.Opportunities[0]
		assert.Equal(t, domain.InsightExpensiveSubscription, sub.Type)
		require.NotNil(t, sub.MonthlyCost)
		assert.True(t, sub.EstimatedSavings.Equal(decimal.NewFromInt(300)))

		cat := report.Opportunities[1]
		assert.Equal(t, domain.InsightHighCategorySpending, cat.Type)
		assert.Equal(t, "rent", cat.Category)
		assert.True(t, cat.EstimatedSavings.Equal(decimal.NewFromInt(300)))

		assert.True(t, report.PotentialSavings.Equal(decimal.NewFromInt(600)))
	})

	t.Run("CappedAtFive", func(t *testing.T) {
		var patterns []domain.RecurringPattern
		for i := 0; i < 7; i++ {
			patterns = append(patterns, domain.RecurringPattern{
				Category:      fmt.Sprintf("sub-%d", i),
				AverageAmount: decimal.NewFromInt(100),
			})
		}
		txs := []domain.Transaction{txn(domain.TypeExpense, "food", 20, monday)}

		report, err := newFormatter(t, nil).Opportunities(ctx, txs, patterns)
		require.NoError(t, err)
		assert.Len(t, report.Opportunities, 5)
		assert.True(t, report.PotentialSavings.Equal(decimal.NewFromInt(150)))
	})
}

func TestReportRecurringMonthlyCost(t *testing.T) {
	gen := &stubGenerator{available: true, lines: []string{"ok"}}
	txs := []domain.Transaction{txn(domain.TypeExpense, "streaming", 15, monday)}
	patterns := []domain.RecurringPattern{
		{Category: "streaming", AverageAmount: decimal.NewFromInt(15), Cadence: "monthly"},
		{Category: "gym", AverageAmount: decimal.NewFromInt(40), Frequency: "monthly"},
		{Category: "coffee", AverageAmount: decimal.NewFromInt(4), Cadence: "weekly"},
	}

	report, err := newFormatter(t, gen).Report(context.Background(), txs, patterns, 30)
	require.NoError(t, err)
	require.NotNil(t, report.Summary)
	assert.True(t, report.Summary.RecurringMonthly.Equal(decimal.NewFromInt(55)))
	assert.Contains(t, gen.prompt, "Recurring monthly charges: 55.00")
}

func TestFormatterConcurrentReports(t *testing.T) {
	f := newFormatter(t, nil)
	patterns := []domain.RecurringPattern{
		{Category: "streaming service", AverageAmount: decimal.NewFromInt(80), OccurrenceCount: 3},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			txs := []domain.Transaction{
				txn(domain.TypeIncome, "salary", 1000, monday),
				txn(domain.TypeExpense, fmt.Sprintf("dining out %d", g), 900, monday.AddDate(0, 0, 1)),
			}
			for i := 0; i < 50; i++ {
				report, err := f.Report(context.Background(), txs, patterns, 30)
				if err != nil {
					errs <- err
					return
				}
				want := fmt.Sprintf("Dining Out %d", g)
				found := false
				for _, in := range report.Insights {
					if strings.Contains(in.Message, want) {
						found = true
					}
				}
				if !found {
					errs <- fmt.Errorf("goroutine %d: no insight mentions %q", g, want)
					return
				}
			}
		}(g)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

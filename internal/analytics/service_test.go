package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/fetcher"
	"github.com/opensource-finance/finsight/internal/insight"
	"github.com/opensource-finance/finsight/internal/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type stubAdvisor struct {
	lines []string
	calls int
}

func (s *stubAdvisor) Generate(ctx context.Context, prompt string, maxLines int) ([]string, error) {
	s.calls++
	return s.lines, nil
}

func (s *stubAdvisor) Available() bool { return s.lines != nil }

func newService(t *testing.T, gen domain.TextGenerator) (*Service, *domain.MockLedger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ledger := domain.NewMockLedger(ctrl)

	engine, err := rules.NewBuiltinEngine(4)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	cfg := domain.DefaultAnalyticsConfig()
	f := fetcher.New(ledger).WithClock(func() time.Time { return now })
	formatter := insight.NewFormatter(engine, gen, cfg).WithClock(func() time.Time { return now })
	return NewService(f, formatter, cfg), ledger
}

func txn(id string, kind domain.TransactionType, category string, amount string, daysAgo int) *domain.Transaction {
	return &domain.Transaction{
		ID:       id,
		UserID:   "u1",
		Type:     kind,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Date:     now.AddDate(0, 0, -daysAgo),
		Status:   domain.StatusCompleted,
	}
}

func salaryAndRent() []*domain.Transaction {
	return []*domain.Transaction{
		txn("i2", domain.TypeIncome, "salary", "3000", 0),
		txn("e2", domain.TypeExpense, "rent", "1000", 10),
		txn("e1", domain.TypeExpense, "rent", "1000", 50),
		txn("i1", domain.TypeIncome, "salary", "3000", 60),
	}
}

func TestGenerateInsights(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyWindow", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -30)).Return(nil, nil)

		report, err := s.GenerateInsights(ctx, "u1", 0)
		require.NoError(t, err)
		assert.True(t, report.InsufficientData)
		assert.Equal(t, 30, report.PeriodDays)
		assert.Empty(t, report.Insights)
	})

	t.Run("Summary", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -90)).Return(salaryAndRent(), nil)

		report, err := s.GenerateInsights(ctx, "u1", 90)
		require.NoError(t, err)
		require.NotNil(t, report.Summary)
		assert.Equal(t, 4, report.Summary.TotalTransactions)
		assert.True(t, report.Summary.TotalIncome.Equal(decimal.NewFromInt(6000)))
		assert.NotEmpty(t, report.Insights)
	})

	t.Run("SubscriptionsFromOpportunityWindow", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -30)).Return([]*domain.Transaction{
			txn("g2", domain.TypeExpense, "gym", "60", 5),
		}, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -90)).Return([]*domain.Transaction{
			txn("g2", domain.TypeExpense, "gym", "60", 5),
			txn("g1", domain.TypeExpense, "gym", "60", 35),
		}, nil)

		report, err := s.GenerateInsights(ctx, "u1", 0)
		require.NoError(t, err)

		var types []domain.InsightType
		for _, in := range report.Insights {
			types = append(types, in.Type)
		}
		assert.Contains(t, types, domain.InsightExpensiveSubscription)
		assert.True(t, report.Summary.RecurringMonthly.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, 1, report.Summary.TotalTransactions)
	})

	t.Run("StoreFailure", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(nil, errors.New("db down"))

		_, err := s.GenerateInsights(ctx, "u1", 30)
		assert.ErrorIs(t, err, domain.ErrDataSource)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		s, _ := newService(t, nil)

		_, err := s.GenerateInsights(ctx, "", 30)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = s.GenerateInsights(ctx, "u1", -5)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestDetectAnomalies(t *testing.T) {
	s, ledger := newService(t, nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -60)).Return(salaryAndRent(), nil)

	report, err := s.DetectAnomalies(context.Background(), "u1", 0)
	require.NoError(t, err)

	assert.Equal(t, 2.0, report.Sensitivity)
	assert.Equal(t, 60, report.WindowDays)
	assert.Equal(t, 0, report.Count)
	assert.NotNil(t, report.Anomalies)
}

func TestDetectAnomaliesRejectsInvalidSensitivity(t *testing.T) {
	s, _ := newService(t, nil)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1} {
		_, err := s.DetectAnomalies(context.Background(), "u1", v)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "sensitivity %v", v)
	}
}

func TestDetectRecurring(t *testing.T) {
	s, ledger := newService(t, nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -180)).Return([]*domain.Transaction{
		txn("s3", domain.TypeExpense, "streaming", "15.99", 10),
		txn("g1", domain.TypeExpense, "groceries", "82.10", 20),
		txn("s2", domain.TypeExpense, "streaming", "15.99", 40),
		txn("s1", domain.TypeExpense, "streaming", "15.99", 70),
	}, nil)

	report, err := s.DetectRecurring(context.Background(), "u1", 0, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, report.AnalyzedTransactions)
	assert.Equal(t, 3, report.MinOccurrences)
	assert.Equal(t, 0.05, report.Tolerance)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, "streaming", report.Patterns[0].Category)
	assert.Equal(t, 3, report.Patterns[0].OccurrenceCount)
	assert.Equal(t, "monthly", report.Patterns[0].Cadence)

	_, err = s.DetectRecurring(context.Background(), "u1", 0, -1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	for _, tol := range []float64{math.NaN(), math.Inf(1), -0.1} {
		_, err = s.DetectRecurring(context.Background(), "u1", 0, 0, tol)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "tolerance %v", tol)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	s, ledger := newService(t, nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return([]*domain.Transaction{
		txn("a", domain.TypeExpense, "rent", "900", 1),
		txn("b", domain.TypeExpense, "food", "60", 2),
		txn("c", domain.TypeExpense, "food", "40", 3),
		txn("d", domain.TypeIncome, "salary", "2000", 4),
	}, nil)

	b, err := s.CategoryBreakdown(context.Background(), "u1", 0)
	require.NoError(t, err)

	assert.Equal(t, 30, b.WindowDays)
	assert.True(t, b.TotalExpenses.Equal(decimal.NewFromInt(1000)))
	require.Len(t, b.Categories, 2)
	assert.Equal(t, "rent", b.Categories[0].Category)
	assert.Equal(t, 90.0, b.Categories[0].Percentage)
	assert.Equal(t, 2, b.Categories[1].Count)
}

func TestSpendingPatterns(t *testing.T) {
	s, ledger := newService(t, nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -180)).Return(nil, nil)

	report, err := s.SpendingPatterns(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPatternMonths, report.PeriodMonths)
	assert.Empty(t, report.Patterns)
	assert.Empty(t, report.Insights)
}

func TestSavingsOpportunities(t *testing.T) {
	s, ledger := newService(t, nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -90)).Return([]*domain.Transaction{
		txn("g2", domain.TypeExpense, "gym", "60", 5),
		txn("g1", domain.TypeExpense, "gym", "60", 35),
	}, nil)

	report, err := s.SavingsOpportunities(context.Background(), "u1")
	require.NoError(t, err)

	require.NotEmpty(t, report.Opportunities)
	assert.Equal(t, domain.InsightExpensiveSubscription, report.Opportunities[0].Type)
	assert.True(t, report.Opportunities[0].EstimatedSavings.Equal(decimal.NewFromInt(18)))
}

func TestPredictGoal(t *testing.T) {
	ctx := context.Background()
	deadline := now.AddDate(0, 0, 300)
	goal := &domain.Goal{
		ID:            "g1",
		UserID:        "u1",
		Name:          "Car",
		TargetAmount:  decimal.NewFromInt(10000),
		CurrentAmount: decimal.NewFromInt(4000),
		TargetDate:    &deadline,
		Status:        domain.GoalActive,
		CreatedAt:     now.AddDate(0, -1, 0),
	}

	t.Run("WithAdvisor", func(t *testing.T) {
		gen := &stubAdvisor{lines: []string{"Automate a monthly transfer"}}
		s, ledger := newService(t, gen)
		ledger.EXPECT().GetGoal(gomock.Any(), "g1").Return(goal, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -90)).Return(salaryAndRent(), nil)

		p, err := s.PredictGoal(ctx, "u1", "g1")
		require.NoError(t, err)

		assert.Equal(t, 85.0, p.Prediction.Probability)
		assert.Equal(t, domain.RiskLow, p.Prediction.RiskLevel)
		assert.True(t, p.Prediction.OnTrack)
		assert.True(t, p.Financial.AvailableMonthly.Equal(decimal.NewFromInt(2000)))

		require.Len(t, p.Insights, 1)
		assert.Equal(t, domain.InsightAdvisor, p.Insights[0].Type)
		assert.Equal(t, "Automate a monthly transfer", p.Insights[0].Message)
	})

	t.Run("OtherUsersGoal", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().GetGoal(gomock.Any(), "g1").Return(goal, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u2", gomock.Any()).Return(nil, nil).AnyTimes()

		_, err := s.PredictGoal(ctx, "u2", "g1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Missing", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().GetGoal(gomock.Any(), "nope").Return(nil, domain.ErrNotFound)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(nil, nil).AnyTimes()

		_, err := s.RecommendContributions(ctx, "u1", "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGoalOperations(t *testing.T) {
	ctx := context.Background()
	soon := now.AddDate(0, 0, 10)
	later := now.AddDate(0, 0, 300)
	goals := []*domain.Goal{
		{ID: "soon", UserID: "u1", Name: "Trip", TargetAmount: decimal.NewFromInt(5000), CurrentAmount: decimal.NewFromInt(100), TargetDate: &soon, Status: domain.GoalActive, CreatedAt: now.AddDate(0, -6, 0)},
		{ID: "later", UserID: "u1", Name: "Car", TargetAmount: decimal.NewFromInt(10000), CurrentAmount: decimal.NewFromInt(4000), TargetDate: &later, Status: domain.GoalActive, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "done", UserID: "u1", Name: "Laptop", TargetAmount: decimal.NewFromInt(1500), CurrentAmount: decimal.NewFromInt(1500), Status: domain.GoalCompleted, CreatedAt: now.AddDate(-1, 0, 0)},
	}

	t.Run("AtRisk", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().ListGoals(gomock.Any(), "u1").Return(goals, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(salaryAndRent(), nil)

		report, err := s.AtRiskGoals(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 1, report.Count)
		assert.Equal(t, "soon", report.AtRiskGoals[0].GoalID)
		assert.Equal(t, domain.RiskHigh, report.AtRiskGoals[0].RiskLevel)
	})

	t.Run("Dashboard", func(t *testing.T) {
		gen := &stubAdvisor{lines: []string{"Focus on the trip first"}}
		s, ledger := newService(t, gen)
		ledger.EXPECT().ListGoals(gomock.Any(), "u1").Return(goals, nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(salaryAndRent(), nil)

		d, err := s.GoalsDashboard(ctx, "u1")
		require.NoError(t, err)

		assert.Equal(t, 3, d.Summary.TotalGoals)
		assert.Equal(t, 2, d.Summary.ActiveGoals)
		assert.Equal(t, 1, d.Summary.CompletedGoals)
		assert.Equal(t, 1, d.Summary.AtRiskCount)
		require.Len(t, d.Insights, 2)
		assert.Equal(t, domain.InsightWarning, d.Insights[0].Type)
		assert.Equal(t, domain.InsightAdvisor, d.Insights[1].Type)
	})

	t.Run("Optimize", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().GetGoal(gomock.Any(), "later").Return(goals[1], nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(salaryAndRent(), nil)

		o, err := s.OptimizeGoal(ctx, "u1", "later")
		require.NoError(t, err)
		assert.True(t, o.Optimal.MonthlyContribution.Equal(decimal.NewFromInt(400)))
		require.Len(t, o.Suggestions, 1)
		assert.Equal(t, "deadline_extension", o.Suggestions[0].Type)
	})

	t.Run("Plans", func(t *testing.T) {
		s, ledger := newService(t, nil)
		ledger.EXPECT().GetGoal(gomock.Any(), "later").Return(goals[1], nil)
		ledger.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(salaryAndRent(), nil)

		r, err := s.RecommendContributions(ctx, "u1", "later")
		require.NoError(t, err)
		assert.Len(t, r.Plans, 3)
		assert.Equal(t, "moderate", r.Recommended)
	})
}

func TestDigest(t *testing.T) {
	s, ledger := newService(t, nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -30)).Return(salaryAndRent(), nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -90)).Return(salaryAndRent(), nil)
	ledger.EXPECT().ListTransactions(gomock.Any(), "u1", now.AddDate(0, 0, -60)).Return(salaryAndRent(), nil)

	d := s.Digest(context.Background(), domain.DigestRequest{RequestID: "r1", UserID: "u1"})

	assert.Equal(t, "r1", d.RequestID)
	assert.Empty(t, d.Error)
	require.NotNil(t, d.Insights)
	require.NotNil(t, d.Anomalies)

	failed := s.Digest(context.Background(), domain.DigestRequest{RequestID: "r2"})
	assert.NotEmpty(t, failed.Error)
	assert.Nil(t, failed.Insights)
}

func TestStatus(t *testing.T) {
	s, _ := newService(t, &stubAdvisor{lines: []string{}})

	st := s.Status()
	assert.True(t, st.Advisor)
	assert.Equal(t, len(rules.BuiltinRules()), st.Rules)
	assert.Contains(t, st.Features, "goals")
}

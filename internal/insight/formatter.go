// Package insight turns aggregates into structured insight records.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/recurring"
	"github.com/opensource-finance/finsight/internal/rules"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

// maxOpportunities caps a savings-opportunity report.
const maxOpportunities = 5

// InsufficientDataMessage is returned with an empty window.
const InsufficientDataMessage = "Not enough transactions to analyse."

// Formatter evaluates insight rules and shapes their output.
type Formatter struct {
	engine   *rules.Engine
	textgen  domain.TextGenerator
	maxLines int
	now      func() time.Time
}

// NewFormatter creates a formatter. textgen may be nil.
func NewFormatter(engine *rules.Engine, textgen domain.TextGenerator, cfg domain.AnalyticsConfig) *Formatter {
	maxLines := cfg.MaxAdvisorLines
	if maxLines <= 0 {
		maxLines = 3
	}
	return &Formatter{
		engine:   engine,
		textgen:  textgen,
		maxLines: maxLines,
		now:      time.Now,
	}
}

// WithClock overrides the report timestamp clock.
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	f.now = now
	return f
}

// AdvisorAvailable reports whether a text generator is configured.
func (f *Formatter) AdvisorAvailable() bool {
	return f.textgen != nil && f.textgen.Available()
}

// Rules returns the loaded insight rules in evaluation order.
func (f *Formatter) Rules() []*domain.InsightRule {
	return f.engine.GetLoadedRules()
}

// Report builds the insight report of a window. An empty window is reported
// as insufficient data, not as an error.
func (f *Formatter) Report(ctx context.Context, txs []domain.Transaction, patterns []domain.RecurringPattern, periodDays int) (*domain.InsightReport, error) {
	report := &domain.InsightReport{
		GeneratedAt: f.now().UTC(),
		PeriodDays:  periodDays,
		Insights:    []domain.Insight{},
	}

	if len(txs) == 0 {
		report.InsufficientData = true
		report.Message = InsufficientDataMessage
		return report, nil
	}

	insights, facts, err := f.Insights(ctx, txs, patterns)
	if err != nil {
		return nil, err
	}

	report.Summary = &domain.InsightSummary{
		TotalTransactions: facts.Transactions,
		TotalIncome:       facts.Income,
		TotalExpenses:     facts.Expenses,
		CategoriesCount:   facts.CategoriesCount,
		SavingsRate:       stats.Round2(facts.SavingsRate),
		RecurringMonthly:  facts.RecurringMonthly.Round(2),
	}

	report.Insights = append(insights, f.Advise(ctx, InsightsPrompt(facts, insights))...)
	return report, nil
}

// Insights evaluates every rule scope over a window and returns the matched
// insights ordered by rule, then by subject rank.
func (f *Formatter) Insights(ctx context.Context, txs []domain.Transaction, patterns []domain.RecurringPattern) ([]domain.Insight, Facts, error) {
	facts := ComputeFacts(txs)
	facts.RecurringMonthly = recurring.MonthlyCost(patterns)
	insights := make([]domain.Insight, 0)
	if len(txs) == 0 {
		return insights, facts, nil
	}

	var matches []domain.RuleMatch

	summary, err := f.engine.EvaluateAll(ctx, &rules.EvaluateInput{
		Scope: domain.ScopeSummary,
		Vars:  facts.SummaryVars(),
	})
	if err != nil {
		return nil, facts, fmt.Errorf("failed to evaluate summary rules: %w", err)
	}
	matches = append(matches, summary...)

	categoryMatches, err := f.categoryMatches(ctx, facts)
	if err != nil {
		return nil, facts, err
	}
	matches = append(matches, categoryMatches...)

	patternMatches, err := f.patternMatches(ctx, patterns)
	if err != nil {
		return nil, facts, err
	}
	matches = append(matches, patternMatches...)

	f.sortMatches(matches)

	for _, m := range matches {
		insights = append(insights, render(m, facts, patterns))
	}
	return insights, facts, nil
}

// Opportunities maps the subscription and category rules to savings
// opportunities: subscriptions first, then the top categories, capped at 5.
func (f *Formatter) Opportunities(ctx context.Context, txs []domain.Transaction, patterns []domain.RecurringPattern) (*domain.OpportunityReport, error) {
	report := &domain.OpportunityReport{
		Opportunities:    []domain.SavingsOpportunity{},
		PotentialSavings: decimal.Zero,
	}
	if len(txs) == 0 {
		return report, nil
	}

	patternMatches, err := f.patternMatches(ctx, patterns)
	if err != nil {
		return nil, err
	}
	facts := ComputeFacts(txs)
	categoryMatches, err := f.categoryMatches(ctx, facts)
	if err != nil {
		return nil, err
	}

	for _, m := range patternMatches {
		if m.Rule.InsightType != domain.InsightExpensiveSubscription {
			continue
		}
		p := patterns[m.Index]
		cost := p.AverageAmount
		ins := expensiveSubscription(m.Rule, p)
		report.Opportunities = append(report.Opportunities, domain.SavingsOpportunity{
			Type:             domain.InsightExpensiveSubscription,
			Category:         p.Category,
			Priority:         m.Rule.Priority,
			MonthlyCost:      &cost,
			EstimatedSavings: p.AverageAmount.Mul(subscriptionSavings).Round(2),
			Recommendation:   ins.Recommendation,
		})
	}

	for _, m := range categoryMatches {
		if m.Rule.InsightType != domain.InsightHighCategorySpending {
			continue
		}
		c := facts.Categories[m.Index]
		total := c.Total
		avg := categoryAverage(c).Round(2)
		ins := highCategorySpending(m.Rule, c)
		report.Opportunities = append(report.Opportunities, domain.SavingsOpportunity{
			Type:               domain.InsightHighCategorySpending,
			Category:           c.Category,
			Priority:           m.Rule.Priority,
			TotalSpent:         &total,
			AverageTransaction: &avg,
			EstimatedSavings:   c.Total.Mul(categorySavings).Round(2),
			Recommendation:     ins.Recommendation,
		})
	}

	if len(report.Opportunities) > maxOpportunities {
		report.Opportunities = report.Opportunities[:maxOpportunities]
	}
	for _, o := range report.Opportunities {
		report.PotentialSavings = report.PotentialSavings.Add(o.EstimatedSavings)
	}
	return report, nil
}

// Advise asks the text generator for up to maxLines advisor insights.
// Any failure is logged and yields no insights.
func (f *Formatter) Advise(ctx context.Context, prompt string) []domain.Insight {
	if !f.AdvisorAvailable() {
		return nil
	}

	lines, err := f.textgen.Generate(ctx, prompt, f.maxLines)
	if err != nil {
		slog.Warn("advisor unavailable, returning rule insights only", "error", err)
		return nil
	}

	out := make([]domain.Insight, 0, len(lines))
	for i, line := range lines {
		if i >= f.maxLines {
			break
		}
		out = append(out, domain.Insight{
			Type:     domain.InsightAdvisor,
			Priority: domain.PriorityMedium,
			Message:  line,
		})
	}
	return out
}

func (f *Formatter) categoryMatches(ctx context.Context, facts Facts) ([]domain.RuleMatch, error) {
	var matches []domain.RuleMatch
	for i, c := range facts.Categories {
		if i >= topCategories {
			break
		}
		m, err := f.engine.EvaluateAll(ctx, &rules.EvaluateInput{
			Scope:   domain.ScopeCategory,
			Subject: c.Category,
			Index:   i,
			Vars:    CategoryVars(c, i+1),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate category rules: %w", err)
		}
		matches = append(matches, m...)
	}
	return matches, nil
}

func (f *Formatter) patternMatches(ctx context.Context, patterns []domain.RecurringPattern) ([]domain.RuleMatch, error) {
	var matches []domain.RuleMatch
	for i, p := range patterns {
		m, err := f.engine.EvaluateAll(ctx, &rules.EvaluateInput{
			Scope:   domain.ScopePattern,
			Subject: p.Category,
			Index:   i,
			Vars:    PatternVars(p),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate pattern rules: %w", err)
		}
		matches = append(matches, m...)
	}
	return matches, nil
}

// sortMatches orders matches by rule load order, then subject index.
func (f *Formatter) sortMatches(matches []domain.RuleMatch) {
	position := make(map[string]int)
	for i, r := range f.engine.GetLoadedRules() {
		position[r.ID] = i
	}
	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := position[matches[i].Rule.ID], position[matches[j].Rule.ID]
		if pi != pj {
			return pi < pj
		}
		return matches[i].Index < matches[j].Index
	})
}

func render(m domain.RuleMatch, facts Facts, patterns []domain.RecurringPattern) domain.Insight {
	switch m.Scope {
	case domain.ScopeCategory:
		c := facts.Categories[m.Index]
		switch m.Rule.InsightType {
		case domain.InsightTopCategory:
			return topCategory(m.Rule, c, facts)
		case domain.InsightHighCategorySpending:
			return highCategorySpending(m.Rule, c)
		}
	case domain.ScopePattern:
		if m.Rule.InsightType == domain.InsightExpensiveSubscription {
			return expensiveSubscription(m.Rule, patterns[m.Index])
		}
	default:
		switch m.Rule.InsightType {
		case domain.InsightSpendingIncrease:
			return spendingIncrease(m.Rule, facts)
		case domain.InsightLowSavings:
			return lowSavings(m.Rule, facts)
		case domain.InsightWeekendSpending:
			return weekendSpending(m.Rule, facts)
		}
	}
	return generic(m.Rule, m.Subject)
}

package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/money"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

const (
	// onTrackProbability is the lowest probability reported as on track.
	onTrackProbability = 70.0
	// atRiskProbability triggers the "goal at risk" warning.
	atRiskProbability = 50.0

	// behindScheduleMargin is how far, in percentage points, progress may
	// trail elapsed time before a goal is flagged.
	behindScheduleMargin = 20.0

	urgentDays = 30
	planMonths = 12.0
)

// Shares of available money used by the estimates.
var (
	undeadlinedShare  = ratio(0.10)
	projectionShare   = ratio(0.20)
	recommendedShare  = ratio(0.30)
	aggressiveShare   = ratio(0.35)
	stretchShare      = ratio(0.50)
	targetHeadroom    = ratio(1.2)
	conservativeShare = undeadlinedShare
	moderateShare     = projectionShare
	optimalShare      = projectionShare
)

// Predict estimates whether goal will be reached with capacity c.
func Predict(goal domain.Goal, c Capacity, now time.Time) domain.GoalPrediction {
	remaining := goal.Remaining()
	available := c.Available

	var days int
	var months float64
	if goal.TargetDate != nil {
		days = daysUntil(now, *goal.TargetDate)
		months = monthsUntil(days)
	} else {
		months = monthsToFund(remaining, available.Mul(undeadlinedShare))
		days = int(months * daysPerMonth)
	}

	required := remaining
	if months > 0 {
		required = remaining.Div(decimal.NewFromFloat(months))
	}

	band := Classify(required, available)

	var projected *time.Time
	if available.IsPositive() {
		d := dateAfter(now, monthsToFund(remaining, available.Mul(projectionShare)))
		projected = &d
	}

	recommended := decimal.Min(required, available.Mul(recommendedShare))
	if recommended.IsNegative() {
		recommended = decimal.Zero
	}

	var insights []domain.Insight
	if band.Probability < atRiskProbability {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightWarning,
			Priority: domain.PriorityHigh,
			Message:  "Goal at risk! Adjustments needed to reach it.",
		})
	}
	if required.GreaterThan(available.Mul(recommendedShare)) {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightRecommendation,
			Priority: domain.PriorityMedium,
			Message:  "Consider extending the deadline or reducing the target.",
		})
	}
	if goal.TargetDate != nil && days < urgentDays && remaining.GreaterThan(available) {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightUrgent,
			Priority: domain.PriorityCritical,
			Message:  fmt.Sprintf("Only %d days left and %s still missing.", days, money.Format(remaining)),
		})
	}
	if insights == nil {
		insights = []domain.Insight{}
	}

	return domain.GoalPrediction{
		GoalID: goal.ID,
		Prediction: domain.Prediction{
			Probability:             band.Probability,
			RiskLevel:               band.Risk,
			ProjectedCompletionDate: projected,
			OnTrack:                 band.Probability >= onTrackProbability,
		},
		Financial: domain.GoalFinancials{
			Remaining:          remaining.Round(2),
			RequiredMonthly:    required.Round(2),
			AvailableMonthly:   available.Round(2),
			RecommendedMonthly: recommended.Round(2),
			MonthsRemaining:    round1(months),
		},
		Insights:  insights,
		Timestamp: now.UTC(),
	}
}

// Plans builds the conservative, moderate and aggressive contribution plans
// for goal.
func Plans(goal domain.Goal, c Capacity, now time.Time) domain.ContributionRecommendation {
	remaining := goal.Remaining()
	available := c.Available

	months := planMonths
	if goal.TargetDate != nil {
		months = monthsUntil(daysUntil(now, *goal.TargetDate))
	}
	required := remaining.Div(decimal.NewFromFloat(months))

	aggressive := decimal.Min(required, available.Mul(aggressiveShare))
	aggressiveImpact := "0%"
	if available.IsPositive() {
		aggressiveImpact = fmt.Sprintf("%.1f%%", stats.Percentage(aggressive, available))
	}

	plans := []domain.ContributionPlan{
		plan(now, remaining, "Conservative", "conservative", available.Mul(conservativeShare), "10%",
			"Sets aside 10% of the monthly balance with little impact on the budget."),
		plan(now, remaining, "Moderate", "moderate", available.Mul(moderateShare), "20%",
			"Balances goal progress against day to day spending."),
		plan(now, remaining, "Aggressive", "aggressive", aggressive, aggressiveImpact,
			"Reaches the goal fastest but leaves less room in the budget."),
	}

	recommended := "moderate"
	switch {
	case required.LessThanOrEqual(available.Mul(conservativeShare)):
		recommended = "conservative"
	case required.GreaterThan(available.Mul(recommendedShare)):
		recommended = "aggressive"
	}

	return domain.ContributionRecommendation{
		GoalID:      goal.ID,
		Plans:       plans,
		Recommended: recommended,
		Context: domain.ContributionContext{
			MonthlyIncome:    c.MonthlyIncome.Round(2),
			MonthlyExpenses:  c.MonthlyExpenses.Round(2),
			Available:        available.Round(2),
			Remaining:        remaining.Round(2),
			MonthsToDeadline: round1(months),
		},
		Timestamp: now.UTC(),
	}
}

func plan(now time.Time, remaining decimal.Decimal, name, kind string, monthly decimal.Decimal, impact, description string) domain.ContributionPlan {
	if monthly.IsNegative() {
		monthly = decimal.Zero
	}
	months := monthsToFund(remaining, monthly)
	return domain.ContributionPlan{
		Name:             name,
		Type:             kind,
		Monthly:          monthly.Round(2),
		Weekly:           monthly.Div(decimal.NewFromInt(4)).Round(2),
		Daily:            monthly.Div(decimal.NewFromInt(daysPerMonth)).Round(2),
		CompletionMonths: round1(months),
		CompletionDate:   dateAfter(now, months).UTC(),
		ImpactOnBudget:   impact,
		Description:      description,
	}
}

// AtRisk lists the active goals with a deadline that are unlikely to be met,
// most severe first.
func AtRisk(goals []domain.Goal, c Capacity, now time.Time) domain.AtRiskReport {
	report := domain.AtRiskReport{
		AtRiskGoals: []domain.AtRiskGoal{},
		Summary: map[domain.RiskLevel]int{
			domain.RiskCritical: 0,
			domain.RiskHigh:     0,
			domain.RiskMedium:   0,
			domain.RiskLow:      0,
		},
	}

	for _, g := range goals {
		if g.Status != domain.GoalActive || g.TargetDate == nil {
			continue
		}
		if r, ok := assessRisk(g, c, now); ok {
			report.AtRiskGoals = append(report.AtRiskGoals, r)
		}
	}

	sort.SliceStable(report.AtRiskGoals, func(i, j int) bool {
		return report.AtRiskGoals[i].RiskLevel.Rank() < report.AtRiskGoals[j].RiskLevel.Rank()
	})

	report.Count = len(report.AtRiskGoals)
	for _, r := range report.AtRiskGoals {
		report.Summary[r.RiskLevel]++
	}
	return report
}

func assessRisk(g domain.Goal, c Capacity, now time.Time) (domain.AtRiskGoal, bool) {
	days := daysUntil(now, *g.TargetDate)
	remaining := g.Remaining()
	available := c.Available

	r := domain.AtRiskGoal{
		GoalID:        g.ID,
		Name:          g.Name,
		RiskLevel:     domain.RiskLow,
		Progress:      stats.Round2(stats.Percentage(g.CurrentAmount, g.TargetAmount)),
		DaysRemaining: days,
	}

	if days <= 0 {
		r.RiskLevel = domain.RiskCritical
		r.Reasons = []string{"Deadline has passed"}
		r.DaysRemaining = 0
		r.DaysOverdue = -days
		r.Recommendation = recommendation(r.RiskLevel, decimal.Zero)
		return r, true
	}

	required := remaining.Div(decimal.NewFromFloat(monthsUntil(days)))
	rounded := required.Round(2)
	r.RequiredMonthly = &rounded

	switch {
	case !available.IsPositive():
		if required.IsPositive() {
			r.RiskLevel = domain.RiskHigh
			r.Reasons = append(r.Reasons, "No monthly balance available for contributions")
		}
	case required.GreaterThan(available.Mul(stretchShare)):
		r.RiskLevel = domain.RiskHigh
		r.Reasons = append(r.Reasons, fmt.Sprintf("Requires %s of your monthly balance", money.Percent(stats.Percentage(required, available))))
	case required.GreaterThan(available.Mul(recommendedShare)):
		r.RiskLevel = domain.RiskMedium
		r.Reasons = append(r.Reasons, fmt.Sprintf("Requires %s of your monthly balance", money.Percent(stats.Percentage(required, available))))
	}

	if days < urgentDays {
		r.RiskLevel = domain.RiskHigh
		r.Reasons = append(r.Reasons, fmt.Sprintf("Only %d days left", days))
	}

	if r.Progress < timeProgress(g, now)-behindScheduleMargin {
		r.Reasons = append(r.Reasons, fmt.Sprintf("Progress (%s) behind schedule", money.Percent(r.Progress)))
		if r.RiskLevel == domain.RiskLow {
			r.RiskLevel = domain.RiskMedium
		}
	}

	if len(r.Reasons) == 0 {
		return r, false
	}
	r.Recommendation = recommendation(r.RiskLevel, required.Sub(available.Mul(recommendedShare)))
	return r, true
}

// timeProgress is the share of the goal's lifetime already elapsed, clamped
// to [0, 100].
func timeProgress(g domain.Goal, now time.Time) float64 {
	total := g.TargetDate.Sub(g.CreatedAt)
	if total <= 0 {
		return 100
	}
	p := float64(now.Sub(g.CreatedAt)) / float64(total) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func recommendation(risk domain.RiskLevel, shortfall decimal.Decimal) string {
	switch risk {
	case domain.RiskCritical:
		return "Urgent: extend the deadline or reduce the target"
	case domain.RiskHigh:
		if shortfall.IsPositive() {
			return fmt.Sprintf("Consider extending the deadline or raising income by %s/month", money.Format(shortfall.Round(2)))
		}
		return "Consider extending the deadline"
	case domain.RiskMedium:
		return "Increase monthly contributions or adjust the deadline"
	default:
		return "Keep up regular contributions"
	}
}

// Optimize suggests deadline and target adjustments that fit a comfortable
// contribution of 20% of the monthly balance.
func Optimize(goal domain.Goal, c Capacity, now time.Time) domain.GoalOptimization {
	remaining := goal.Remaining()
	optimal := c.Available.Mul(optimalShare)
	if optimal.IsNegative() {
		optimal = decimal.Zero
	}

	months := monthsToFund(remaining, optimal)
	optimalDeadline := dateAfter(now, months).UTC()

	suggestions := []domain.GoalSuggestion{}
	if goal.TargetDate != nil {
		current := goal.TargetDate.UTC()
		suggested := optimalDeadline
		switch {
		case optimalDeadline.After(current):
			suggestions = append(suggestions, domain.GoalSuggestion{
				Type:          "deadline_extension",
				CurrentDate:   &current,
				SuggestedDate: &suggested,
				Reason:        "The current deadline requires more than a comfortable monthly contribution.",
				Impact:        fmt.Sprintf("Reduces the required monthly contribution to %s", money.Format(optimal.Round(2))),
			})
		case optimalDeadline.Before(current):
			earlier := round1(float64(daysUntil(optimalDeadline, current)) / daysPerMonth)
			suggestions = append(suggestions, domain.GoalSuggestion{
				Type:          "deadline_acceleration",
				CurrentDate:   &current,
				SuggestedDate: &suggested,
				Reason:        "The goal can be reached before the deadline.",
				Impact:        fmt.Sprintf("Finishes %.1f months earlier", earlier),
			})
		}
	}

	yearEnd := goal.CurrentAmount.Add(optimal.Mul(decimal.NewFromInt(12)))
	if yearEnd.GreaterThan(goal.TargetAmount.Mul(targetHeadroom)) {
		current := goal.TargetAmount.Round(2)
		suggested := yearEnd.Round(2)
		suggestions = append(suggestions, domain.GoalSuggestion{
			Type:            "target_increase",
			CurrentAmount:   &current,
			SuggestedAmount: &suggested,
			Reason:          "A year of comfortable contributions exceeds the target.",
			Impact:          fmt.Sprintf("Raises the target by %s", money.Format(suggested.Sub(current))),
		})
	}

	return domain.GoalOptimization{
		GoalID:      goal.ID,
		Suggestions: suggestions,
		Optimal: domain.OptimalPlan{
			MonthlyContribution: optimal.Round(2),
			Deadline:            optimalDeadline,
			Timeframe:           fmt.Sprintf("%.1f months", months),
		},
		Timestamp: now.UTC(),
	}
}

// Dashboard aggregates goals and their risk report.
func Dashboard(goals []domain.Goal, risk domain.AtRiskReport, now time.Time) domain.GoalDashboard {
	summary := domain.GoalSummary{
		TotalGoals:   len(goals),
		AtRiskCount:  risk.Count,
		TotalTarget:  decimal.Zero,
		TotalCurrent: decimal.Zero,
	}

	for _, g := range goals {
		switch g.Status {
		case domain.GoalActive:
			summary.ActiveGoals++
			summary.TotalTarget = summary.TotalTarget.Add(g.TargetAmount)
			summary.TotalCurrent = summary.TotalCurrent.Add(g.CurrentAmount)
		case domain.GoalCompleted:
			summary.CompletedGoals++
		}
	}
	summary.OverallProgress = round1(stats.Percentage(summary.TotalCurrent, summary.TotalTarget))

	top := risk.AtRiskGoals
	if len(top) > 3 {
		top = top[:3]
	}
	if top == nil {
		top = []domain.AtRiskGoal{}
	}

	insights := []domain.Insight{}
	if risk.Count > 0 {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightWarning,
			Priority: domain.PriorityHigh,
			Message:  fmt.Sprintf("You have %d goal(s) at risk", risk.Count),
		})
	}
	if summary.ActiveGoals > 3 {
		insights = append(insights, domain.Insight{
			Type:     domain.InsightRecommendation,
			Priority: domain.PriorityMedium,
			Message:  "Many active goals. Consider focusing on the most important ones.",
		})
	}

	return domain.GoalDashboard{
		Summary:     summary,
		AtRiskGoals: top,
		Insights:    insights,
		Timestamp:   now.UTC(),
	}
}

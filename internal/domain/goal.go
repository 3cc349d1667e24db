package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalStatus is the lifecycle status of a savings goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalPaused    GoalStatus = "PAUSED"
	GoalCancelled GoalStatus = "CANCELLED"
)

// Goal is a savings goal owned by a user.
type Goal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	TargetDate    *time.Time      `json:"targetDate,omitempty"`
	Status        GoalStatus      `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Remaining returns the amount still missing, never negative.
func (g *Goal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// RiskLevel labels how likely a goal is to be missed.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskVeryLow  RiskLevel = "very_low"
)

// Rank orders risk levels from most to least severe.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 0
	case RiskHigh:
		return 1
	case RiskMedium:
		return 2
	case RiskLow:
		return 3
	default:
		return 4
	}
}

// GoalPrediction is the achievement forecast for a single goal.
type GoalPrediction struct {
	GoalID     string         `json:"goalId"`
	Prediction Prediction     `json:"prediction"`
	Financial  GoalFinancials `json:"financial"`
	Insights   []Insight      `json:"insights"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Prediction holds the band outcome for a goal.
type Prediction struct {
	Probability             float64    `json:"probability"`
	RiskLevel               RiskLevel  `json:"riskLevel"`
	ProjectedCompletionDate *time.Time `json:"projectedCompletionDate"`
	OnTrack                 bool       `json:"onTrack"`
}

// GoalFinancials are the money figures behind a prediction.
type GoalFinancials struct {
	Remaining          decimal.Decimal `json:"remaining"`
	RequiredMonthly    decimal.Decimal `json:"requiredMonthly"`
	AvailableMonthly   decimal.Decimal `json:"availableMonthly"`
	RecommendedMonthly decimal.Decimal `json:"recommendedMonthly"`
	MonthsRemaining    float64         `json:"monthsRemaining"`
}

// ContributionPlan is one way of funding a goal.
type ContributionPlan struct {
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	Monthly          decimal.Decimal `json:"monthly"`
	Weekly           decimal.Decimal `json:"weekly"`
	Daily            decimal.Decimal `json:"daily"`
	CompletionMonths float64         `json:"completionMonths"`
	CompletionDate   time.Time       `json:"completionDate"`
	ImpactOnBudget   string          `json:"impactOnBudget"`
	Description      string          `json:"description"`
}

// ContributionRecommendation groups the plans for a goal.
type ContributionRecommendation struct {
	GoalID      string              `json:"goalId"`
	Plans       []ContributionPlan  `json:"plans"`
	Recommended string              `json:"recommended"`
	Context     ContributionContext `json:"context"`
	Timestamp   time.Time           `json:"timestamp"`
}

// ContributionContext is the financial capacity used to build the plans.
type ContributionContext struct {
	MonthlyIncome    decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpenses  decimal.Decimal `json:"monthlyExpenses"`
	Available        decimal.Decimal `json:"available"`
	Remaining        decimal.Decimal `json:"remaining"`
	MonthsToDeadline float64         `json:"monthsToDeadline"`
}

// AtRiskGoal describes why a goal is unlikely to be met.
type AtRiskGoal struct {
	GoalID          string           `json:"goalId"`
	Name            string           `json:"name"`
	RiskLevel       RiskLevel        `json:"riskLevel"`
	Reasons         []string         `json:"reasons"`
	Progress        float64          `json:"progress"`
	DaysRemaining   int              `json:"daysRemaining"`
	DaysOverdue     int              `json:"daysOverdue,omitempty"`
	RequiredMonthly *decimal.Decimal `json:"requiredMonthly,omitempty"`
	Recommendation  string           `json:"recommendation"`
}

// AtRiskReport lists at-risk goals ordered by severity.
type AtRiskReport struct {
	AtRiskGoals []AtRiskGoal      `json:"atRiskGoals"`
	Count       int               `json:"count"`
	Summary     map[RiskLevel]int `json:"summary"`
}

// GoalSuggestion is one optimisation suggestion for a goal.
type GoalSuggestion struct {
	Type            string           `json:"type"`
	CurrentDate     *time.Time       `json:"currentDate,omitempty"`
	SuggestedDate   *time.Time       `json:"suggestedDate,omitempty"`
	CurrentAmount   *decimal.Decimal `json:"currentAmount,omitempty"`
	SuggestedAmount *decimal.Decimal `json:"suggestedAmount,omitempty"`
	Reason          string           `json:"reason"`
	Impact          string           `json:"impact"`
}

// GoalOptimization holds suggestions and the optimal contribution.
type GoalOptimization struct {
	GoalID      string           `json:"goalId"`
	Suggestions []GoalSuggestion `json:"suggestions"`
	Optimal     OptimalPlan      `json:"optimal"`
	Timestamp   time.Time        `json:"timestamp"`
}

// OptimalPlan is the comfortable contribution for a goal.
type OptimalPlan struct {
	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
	Deadline            time.Time       `json:"deadline"`
	Timeframe           string          `json:"timeframe"`
}

// GoalDashboard aggregates all goals of a user.
type GoalDashboard struct {
	Summary     GoalSummary  `json:"summary"`
	AtRiskGoals []AtRiskGoal `json:"atRiskGoals"`
	Insights    []Insight    `json:"insights"`
	Timestamp   time.Time    `json:"timestamp"`
}

// GoalSummary counts and totals goals.
type GoalSummary struct {
	TotalGoals      int             `json:"totalGoals"`
	ActiveGoals     int             `json:"activeGoals"`
	CompletedGoals  int             `json:"completedGoals"`
	AtRiskCount     int             `json:"atRiskCount"`
	TotalTarget     decimal.Decimal `json:"totalTarget"`
	TotalCurrent    decimal.Decimal `json:"totalCurrent"`
	OverallProgress float64         `json:"overallProgress"`
}

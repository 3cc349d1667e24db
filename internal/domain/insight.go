package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InsightType names the kind of insight.
type InsightType string

const (
	InsightSpendingIncrease      InsightType = "spending_increase"
	InsightLowSavings            InsightType = "low_savings"
	InsightTopCategory           InsightType = "top_category"
	InsightHighCategorySpending  InsightType = "high_category_spending"
	InsightExpensiveSubscription InsightType = "expensive_subscription"
	InsightWeekendSpending       InsightType = "weekend_spending"

	// Goal and dashboard insights.
	InsightWarning        InsightType = "warning"
	InsightRecommendation InsightType = "recommendation"
	InsightUrgent         InsightType = "urgent"

	// InsightAdvisor marks free text produced by the text generator.
	InsightAdvisor InsightType = "advisor"
)

// Priority is an ordinal label used by clients for sorting.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Insight is a structured, human readable finding.
type Insight struct {
	Type           InsightType    `json:"type"`
	Priority       Priority       `json:"priority"`
	Message        string         `json:"message"`
	Recommendation string         `json:"recommendation,omitempty"`
	Category       string         `json:"category,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// InsightSummary is the numeric overview of an analysed window.
type InsightSummary struct {
	TotalTransactions int             `json:"totalTransactions"`
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	CategoriesCount   int             `json:"categoriesCount"`
	SavingsRate       float64         `json:"savingsRate"`
	RecurringMonthly  decimal.Decimal `json:"recurringMonthlyCost"`
}

// InsightReport is the result of insight generation for a window.
type InsightReport struct {
	GeneratedAt      time.Time       `json:"generatedAt"`
	PeriodDays       int             `json:"periodDays"`
	InsufficientData bool            `json:"insufficientData"`
	Message          string          `json:"message,omitempty"`
	Insights         []Insight       `json:"insights"`
	Summary          *InsightSummary `json:"summary,omitempty"`
}

// SavingsOpportunity is a concrete place where money could be saved.
type SavingsOpportunity struct {
	Type               InsightType      `json:"type"`
	Category           string           `json:"category"`
	Priority           Priority         `json:"priority"`
	MonthlyCost        *decimal.Decimal `json:"monthlyCost,omitempty"`
	TotalSpent         *decimal.Decimal `json:"totalSpent,omitempty"`
	AverageTransaction *decimal.Decimal `json:"averageTransaction,omitempty"`
	EstimatedSavings   decimal.Decimal  `json:"estimatedSavings"`
	Recommendation     string           `json:"recommendation"`
}

// OpportunityReport lists savings opportunities.
type OpportunityReport struct {
	Opportunities    []SavingsOpportunity `json:"opportunities"`
	PotentialSavings decimal.Decimal      `json:"potentialSavings"`
}

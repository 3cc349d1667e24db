package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStats are the dispersion statistics of one expense category.
type CategoryStats struct {
	Category   string          `json:"category"`
	Count      int             `json:"count"`
	Mean       decimal.Decimal `json:"mean"`
	StdDev     decimal.Decimal `json:"stddev"`
	Total      decimal.Decimal `json:"total"`
	Percentage float64         `json:"percentage"`
}

// CategoryBreakdown is the per-category view of an expense window.
type CategoryBreakdown struct {
	WindowDays    int             `json:"windowDays"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Categories    []CategoryStats `json:"categories"`
}

// Severity grades an anomaly.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ExpectedRange is the band a category's amounts normally fall in.
type ExpectedRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Anomaly is an expense that is an outlier within its own category.
type Anomaly struct {
	TransactionID string          `json:"transactionId"`
	Date          time.Time       `json:"date"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	ExpectedRange ExpectedRange   `json:"expectedRange"`
	ZScore        decimal.Decimal `json:"zScore"`
	Severity      Severity        `json:"severity"`
	Description   string          `json:"description"`
}

// AnomalyReport is the result of an anomaly scan.
type AnomalyReport struct {
	Anomalies   []Anomaly `json:"anomalies"`
	Count       int       `json:"count"`
	Sensitivity float64   `json:"sensitivity"`
	WindowDays  int       `json:"windowDays"`
}

// RecurringConfidence is the fixed confidence attached to recurring patterns.
const RecurringConfidence = 0.9

// RecurringPattern is a group of expenses that repeat with low variance.
// Frequency is asserted by the grouping that produced it; Cadence is what the
// dates actually show.
type RecurringPattern struct {
	Category        string          `json:"category"`
	AverageAmount   decimal.Decimal `json:"averageAmount"`
	OccurrenceCount int             `json:"occurrenceCount"`
	Confidence      float64         `json:"confidence"`
	DayOfMonth      int             `json:"dayOfMonth,omitempty"`
	Frequency       string          `json:"frequency,omitempty"`
	Cadence         string          `json:"cadence,omitempty"`
	LastSeen        time.Time       `json:"lastSeen"`
}

// RecurringReport is the result of recurring-pattern detection.
type RecurringReport struct {
	Patterns             []RecurringPattern `json:"patterns"`
	AnalyzedTransactions int                `json:"analyzedTransactions"`
	WindowDays           int                `json:"windowDays"`
	MinOccurrences       int                `json:"minOccurrences"`
	Tolerance            float64            `json:"tolerance"`
}

// SpendingPatternReport combines day-of-month patterns with rule insights.
type SpendingPatternReport struct {
	Patterns             []RecurringPattern `json:"patterns"`
	Insights             []Insight          `json:"insights"`
	AnalyzedTransactions int                `json:"analyzedTransactions"`
	PeriodMonths         int                `json:"periodMonths"`
}

package domain

// RuleScope selects the facts an insight rule is evaluated against.
type RuleScope string

const (
	// ScopeSummary rules run once per window.
	ScopeSummary RuleScope = "summary"

	// ScopeCategory rules run once per top expense category.
	ScopeCategory RuleScope = "category"

	// ScopePattern rules run once per recurring pattern.
	ScopePattern RuleScope = "pattern"
)

// InsightRule is a CEL condition that produces an insight when true.
type InsightRule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Scope       RuleScope   `json:"scope"`
	Expression  string      `json:"expression"`
	InsightType InsightType `json:"insightType"`
	Priority    Priority    `json:"priority"`
	Enabled     bool        `json:"enabled"`
}

// RuleMatch is a rule that fired for a particular subject.
// Subject is the category name for category and pattern rules.
type RuleMatch struct {
	Rule    *InsightRule
	Scope   RuleScope
	Subject string
	Index   int
}

// Package rules provides the CEL-Go based insight rule engine.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/finsight/internal/domain"
)

// Engine evaluates insight rules compiled from CEL expressions.
// Rules keep their load order; evaluation results follow it.
type Engine struct {
	mu         sync.RWMutex
	env        *cel.Env
	rules      []*CompiledRule
	maxWorkers int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.InsightRule
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	env, err := cel.NewEnv(
		// summary scope
		cel.Variable("income", cel.DoubleType),
		cel.Variable("expenses", cel.DoubleType),
		cel.Variable("savings_rate", cel.DoubleType),
		cel.Variable("first_half", cel.DoubleType),
		cel.Variable("second_half", cel.DoubleType),
		cel.Variable("weekend_share", cel.DoubleType),
		cel.Variable("transaction_count", cel.IntType),
		cel.Variable("recurring_monthly_cost", cel.DoubleType),
		// category scope
		cel.Variable("category", cel.StringType),
		cel.Variable("category_total", cel.DoubleType),
		cel.Variable("category_average", cel.DoubleType),
		cel.Variable("category_rank", cel.IntType),
		// pattern scope
		cel.Variable("pattern_category", cel.StringType),
		cel.Variable("pattern_average", cel.DoubleType),
		cel.Variable("pattern_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:        env,
		maxWorkers: maxWorkers,
	}, nil
}

// LoadRule compiles a rule and appends it, or replaces a loaded rule with the
// same ID in place.
func (e *Engine) LoadRule(rule *domain.InsightRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	for i, r := range e.rules {
		if r.Rule.ID == rule.ID {
			e.rules[i] = compiled
			return nil
		}
	}
	e.rules = append(e.rules, compiled)
	return nil
}

// LoadRules compiles and loads the enabled rules.
func (e *Engine) LoadRules(rules []*domain.InsightRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateInput is the set of facts one scope is evaluated against.
type EvaluateInput struct {
	Scope   domain.RuleScope
	Subject string
	Index   int
	Vars    map[string]any
}

// EvaluateAll evaluates the rules of the input's scope in parallel and
// returns the ones that matched, in load order. A rule that fails to
// evaluate is logged and treated as not matched.
func (e *Engine) EvaluateAll(ctx context.Context, input *EvaluateInput) ([]domain.RuleMatch, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Rule.Scope == input.Scope {
			rules = append(rules, r)
		}
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	activation := defaultActivation()
	for k, v := range input.Vars {
		activation[k] = v
	}

	matched := make([]bool, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if ctx.Err() != nil {
				return
			}
			matched[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []domain.RuleMatch
	for i, ok := range matched {
		if ok {
			matches = append(matches, domain.RuleMatch{
				Rule:    rules[i].Rule,
				Scope:   input.Scope,
				Subject: input.Subject,
				Index:   input.Index,
			})
		}
	}
	return matches, nil
}

func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) bool {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		slog.Warn("insight rule evaluation failed",
			"rule_id", rule.Rule.ID,
			"error", err,
		)
		return false
	}

	b, ok := out.(types.Bool)
	return ok && bool(b)
}

// defaultActivation binds every declared variable so rules of one scope never
// fail on attributes of another.
func defaultActivation() map[string]any {
	return map[string]any{
		"income":            0.0,
		"expenses":          0.0,
		"savings_rate":      0.0,
		"first_half":        0.0,
		"second_half":       0.0,
		"weekend_share":     0.0,
		"transaction_count": int64(0),
		"category":          "",
		"category_total":    0.0,
		"category_average":  0.0,
		"category_rank":     int64(0),
		"pattern_category":  "",
		"pattern_average":   0.0,
		"pattern_count":     int64(0),

		"recurring_monthly_cost": 0.0,
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// GetLoadedRules returns the currently loaded rules in load order.
func (e *Engine) GetLoadedRules() []*domain.InsightRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.InsightRule, 0, len(e.rules))
	for _, compiled := range e.rules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = nil
	return nil
}

func (e *Engine) compileRule(rule *domain.InsightRule) (*CompiledRule, error) {
	switch rule.Scope {
	case domain.ScopeSummary, domain.ScopeCategory, domain.ScopePattern:
	default:
		return nil, fmt.Errorf("%w: rule %s has unknown scope %q", domain.ErrInvalidInput, rule.ID, rule.Scope)
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}

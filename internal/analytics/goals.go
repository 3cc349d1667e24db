package analytics

import (
	"context"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/forecast"
	"github.com/opensource-finance/finsight/internal/insight"
	"github.com/opensource-finance/finsight/internal/stats"
	"golang.org/x/sync/errgroup"
)

// goalWindow is a goal, or all goals, of a user with the capacity computed
// from the goal window.
type goalWindow struct {
	goal     *domain.Goal
	goals    []domain.Goal
	txs      []domain.Transaction
	capacity forecast.Capacity
}

// loadGoal fetches one goal and the goal window concurrently.
func (s *Service) loadGoal(ctx context.Context, userID, goalID string) (*goalWindow, error) {
	w := &goalWindow{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		goal, err := s.fetcher.Goal(gctx, userID, goalID)
		w.goal = goal
		return err
	})
	g.Go(func() error {
		txs, err := s.fetcher.Fetch(gctx, userID, s.cfg.GoalWindowDays)
		w.txs = txs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	w.capacity = forecast.ComputeCapacity(w.txs)
	return w, nil
}

// loadGoals fetches every goal and the goal window concurrently.
func (s *Service) loadGoals(ctx context.Context, userID string) (*goalWindow, error) {
	w := &goalWindow{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		goals, err := s.fetcher.Goals(gctx, userID)
		w.goals = goals
		return err
	})
	g.Go(func() error {
		txs, err := s.fetcher.Fetch(gctx, userID, s.cfg.GoalWindowDays)
		w.txs = txs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	w.capacity = forecast.ComputeCapacity(w.txs)
	return w, nil
}

// PredictGoal forecasts whether a goal will be reached.
func (s *Service) PredictGoal(ctx context.Context, userID, goalID string) (prediction *domain.GoalPrediction, err error) {
	ctx, span := s.start(ctx, "PredictGoal", userID, s.cfg.GoalWindowDays)
	defer func() { finish(span, err) }()

	w, err := s.loadGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	p := forecast.Predict(*w.goal, w.capacity, s.fetcher.Now())
	prompt := insight.GoalPrompt(*w.goal, w.capacity.MonthlyIncome, w.capacity.MonthlyExpenses, stats.CategoryTotals(w.txs, domain.TypeExpense))
	p.Insights = append(p.Insights, s.formatter.Advise(ctx, prompt)...)
	return &p, nil
}

// RecommendContributions builds contribution plans for a goal.
func (s *Service) RecommendContributions(ctx context.Context, userID, goalID string) (rec *domain.ContributionRecommendation, err error) {
	ctx, span := s.start(ctx, "RecommendContributions", userID, s.cfg.GoalWindowDays)
	defer func() { finish(span, err) }()

	w, err := s.loadGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	r := forecast.Plans(*w.goal, w.capacity, s.fetcher.Now())
	return &r, nil
}

// AtRiskGoals lists the user's goals that are unlikely to be met.
func (s *Service) AtRiskGoals(ctx context.Context, userID string) (report *domain.AtRiskReport, err error) {
	ctx, span := s.start(ctx, "AtRiskGoals", userID, s.cfg.GoalWindowDays)
	defer func() { finish(span, err) }()

	w, err := s.loadGoals(ctx, userID)
	if err != nil {
		return nil, err
	}

	r := forecast.AtRisk(w.goals, w.capacity, s.fetcher.Now())
	return &r, nil
}

// OptimizeGoal suggests deadline and target adjustments for a goal.
func (s *Service) OptimizeGoal(ctx context.Context, userID, goalID string) (opt *domain.GoalOptimization, err error) {
	ctx, span := s.start(ctx, "OptimizeGoal", userID, s.cfg.GoalWindowDays)
	defer func() { finish(span, err) }()

	w, err := s.loadGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	o := forecast.Optimize(*w.goal, w.capacity, s.fetcher.Now())
	return &o, nil
}

// GoalsDashboard aggregates all goals of the user.
func (s *Service) GoalsDashboard(ctx context.Context, userID string) (dashboard *domain.GoalDashboard, err error) {
	ctx, span := s.start(ctx, "GoalsDashboard", userID, s.cfg.GoalWindowDays)
	defer func() { finish(span, err) }()

	w, err := s.loadGoals(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.fetcher.Now()
	d := forecast.Dashboard(w.goals, forecast.AtRisk(w.goals, w.capacity, now), now)
	if len(w.goals) > 0 {
		d.Insights = append(d.Insights, s.formatter.Advise(ctx, insight.DashboardPrompt(d.Summary, len(w.txs)))...)
	}
	return &d, nil
}

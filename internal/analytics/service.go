// Package analytics exposes the read-only analytics operations over a
// user's ledger.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opensource-finance/finsight/internal/anomaly"
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/fetcher"
	"github.com/opensource-finance/finsight/internal/insight"
	"github.com/opensource-finance/finsight/internal/recurring"
	"github.com/opensource-finance/finsight/internal/stats"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPatternMonths is the spending-pattern window when none is given.
const DefaultPatternMonths = 6

var tracer = otel.Tracer("finsight-analytics")

// Service runs the analytics operations. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	fetcher   *fetcher.Fetcher
	detector  *anomaly.Detector
	formatter *insight.Formatter
	cfg       domain.AnalyticsConfig
}

// NewService creates an analytics service.
func NewService(f *fetcher.Fetcher, formatter *insight.Formatter, cfg domain.AnalyticsConfig) *Service {
	return &Service{
		fetcher:   f,
		detector:  anomaly.NewDetector(cfg),
		formatter: formatter,
		cfg:       cfg,
	}
}

// Status describes the features the service has available.
type Status struct {
	Advisor  bool     `json:"advisor"`
	Rules    int      `json:"rules"`
	Features []string `json:"features"`
}

// Status reports which features are enabled.
func (s *Service) Status() Status {
	return Status{
		Advisor: s.formatter.AdvisorAvailable(),
		Rules:   len(s.formatter.Rules()),
		Features: []string{
			"insights",
			"savings_opportunities",
			"anomalies",
			"recurring",
			"spending_patterns",
			"categories",
			"goals",
			"digests",
		},
	}
}

// GenerateInsights builds the insight report of the last periodDays days.
// Zero selects the configured window.
func (s *Service) GenerateInsights(ctx context.Context, userID string, periodDays int) (report *domain.InsightReport, err error) {
	if periodDays == 0 {
		periodDays = s.cfg.InsightWindowDays
	}

	ctx, span := s.start(ctx, "GenerateInsights", userID, periodDays)
	defer func() { finish(span, err) }()
	start := time.Now()

	txs, err := s.fetcher.Fetch(ctx, userID, periodDays)
	if err != nil {
		return nil, err
	}

	patterns, err := s.subscriptionPatterns(ctx, userID, txs, periodDays)
	if err != nil {
		return nil, err
	}
	report, err = s.formatter.Report(ctx, txs, patterns, periodDays)
	if err != nil {
		return nil, fmt.Errorf("failed to build insight report: %w", err)
	}

	slog.Debug("insights generated",
		"user_id", userID,
		"window_days", periodDays,
		"transactions", len(txs),
		"insights", len(report.Insights),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// subscriptionPatterns detects the recurring expenses the subscription rule
// is evaluated against, with the thresholds of the savings scan. Insight
// windows shorter than the opportunity window read the opportunity window.
func (s *Service) subscriptionPatterns(ctx context.Context, userID string, txs []domain.Transaction, periodDays int) ([]domain.RecurringPattern, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	window := s.cfg.OpportunityWindowDays
	if periodDays < window {
		var err error
		txs, err = s.fetcher.Fetch(ctx, userID, window)
		if err != nil {
			return nil, err
		}
	}

	rc := s.cfg.OpportunityRecurring
	return recurring.Detect(txs, rc.MinOccurrences, rc.Tolerance), nil
}

// DetectAnomalies scans the anomaly window for per-category outliers.
// Zero selects the configured sensitivity.
func (s *Service) DetectAnomalies(ctx context.Context, userID string, sensitivity float64) (report *domain.AnomalyReport, err error) {
	if !finite(sensitivity) || sensitivity < 0 {
		return nil, fmt.Errorf("%w: sensitivity must be a non-negative number", domain.ErrInvalidInput)
	}
	if sensitivity == 0 {
		sensitivity = s.cfg.AnomalySensitivity
	}
	window := s.cfg.AnomalyWindowDays

	ctx, span := s.start(ctx, "DetectAnomalies", userID, window)
	span.SetAttributes(attribute.Float64("anomaly.sensitivity", sensitivity))
	defer func() { finish(span, err) }()

	txs, err := s.fetcher.Fetch(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	anomalies := s.detector.Detect(txs, sensitivity)
	return &domain.AnomalyReport{
		Anomalies:   anomalies,
		Count:       len(anomalies),
		Sensitivity: sensitivity,
		WindowDays:  window,
	}, nil
}

// DetectRecurring finds recurring expenses grouped by category and rounded
// amount. Zero arguments select the configured values.
func (s *Service) DetectRecurring(ctx context.Context, userID string, windowDays, minOccurrences int, tolerance float64) (report *domain.RecurringReport, err error) {
	if windowDays == 0 {
		windowDays = s.cfg.RecurringWindowDays
	}
	if minOccurrences == 0 {
		minOccurrences = s.cfg.Recurring.MinOccurrences
	}
	if tolerance == 0 {
		tolerance = s.cfg.Recurring.Tolerance
	}
	if minOccurrences < 1 || tolerance < 0 || !finite(tolerance) {
		return nil, fmt.Errorf("%w: minOccurrences must be positive and tolerance non-negative", domain.ErrInvalidInput)
	}

	ctx, span := s.start(ctx, "DetectRecurring", userID, windowDays)
	defer func() { finish(span, err) }()

	txs, err := s.fetcher.Fetch(ctx, userID, windowDays)
	if err != nil {
		return nil, err
	}

	return &domain.RecurringReport{
		Patterns:             recurring.Detect(txs, minOccurrences, tolerance),
		AnalyzedTransactions: len(txs),
		WindowDays:           windowDays,
		MinOccurrences:       minOccurrences,
		Tolerance:            tolerance,
	}, nil
}

// SpendingPatterns reports day-of-month recurring expenses over the last
// months together with the rule insights of the same window.
func (s *Service) SpendingPatterns(ctx context.Context, userID string, months int) (report *domain.SpendingPatternReport, err error) {
	if months == 0 {
		months = DefaultPatternMonths
	}
	window := months * 30

	ctx, span := s.start(ctx, "SpendingPatterns", userID, window)
	defer func() { finish(span, err) }()

	txs, err := s.fetcher.Fetch(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	patterns := recurring.DetectByDayOfMonth(txs, s.cfg.Recurring.MinOccurrences, s.cfg.Recurring.Tolerance)
	insights, _, err := s.formatter.Insights(ctx, txs, patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate spending insights: %w", err)
	}

	return &domain.SpendingPatternReport{
		Patterns:             patterns,
		Insights:             insights,
		AnalyzedTransactions: len(txs),
		PeriodMonths:         months,
	}, nil
}

// CategoryBreakdown returns per-category expense statistics.
func (s *Service) CategoryBreakdown(ctx context.Context, userID string, windowDays int) (breakdown *domain.CategoryBreakdown, err error) {
	if windowDays == 0 {
		windowDays = s.cfg.InsightWindowDays
	}

	ctx, span := s.start(ctx, "CategoryBreakdown", userID, windowDays)
	defer func() { finish(span, err) }()

	txs, err := s.fetcher.Fetch(ctx, userID, windowDays)
	if err != nil {
		return nil, err
	}

	return &domain.CategoryBreakdown{
		WindowDays:    windowDays,
		TotalExpenses: stats.SumByType(txs, domain.TypeExpense),
		Categories:    stats.CategoryStats(txs),
	}, nil
}

// SavingsOpportunities lists concrete places where the user could save.
func (s *Service) SavingsOpportunities(ctx context.Context, userID string) (report *domain.OpportunityReport, err error) {
	window := s.cfg.OpportunityWindowDays

	ctx, span := s.start(ctx, "SavingsOpportunities", userID, window)
	defer func() { finish(span, err) }()

	txs, err := s.fetcher.Fetch(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	rc := s.cfg.OpportunityRecurring
	report, err = s.formatter.Opportunities(ctx, txs, recurring.Detect(txs, rc.MinOccurrences, rc.Tolerance))
	if err != nil {
		return nil, fmt.Errorf("failed to find savings opportunities: %w", err)
	}
	return report, nil
}

// Digest answers an asynchronous digest request with the insight report and
// anomaly scan of the user. Failures are reported inside the digest.
func (s *Service) Digest(ctx context.Context, req domain.DigestRequest) *domain.Digest {
	digest := &domain.Digest{
		RequestID: req.RequestID,
		UserID:    req.UserID,
	}

	insights, err := s.GenerateInsights(ctx, req.UserID, req.PeriodDays)
	if err != nil {
		digest.Error = err.Error()
		return digest
	}
	digest.Insights = insights

	anomalies, err := s.DetectAnomalies(ctx, req.UserID, 0)
	if err != nil {
		digest.Error = err.Error()
		return digest
	}
	digest.Anomalies = anomalies
	return digest
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *Service) start(ctx context.Context, op, userID string, windowDays int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "analytics."+op,
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("window.days", windowDays),
		),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Package anomaly flags expenses that are outliers within their own category.
package anomaly

import (
	"fmt"
	"math"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/money"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

// DefaultSensitivity is the z-score threshold used when none is given.
const DefaultSensitivity = 2.0

// highSeverityZ is the |z| above which an anomaly is graded high.
var highSeverityZ = decimal.NewFromInt(3)

// Detector runs a per-category z-score test.
type Detector struct {
	// MinSample is the window size below which nothing is reported.
	MinSample int

	// MinCategorySize is the smallest category that is tested.
	MinCategorySize int
}

// NewDetector creates a detector from analytics configuration.
func NewDetector(cfg domain.AnalyticsConfig) *Detector {
	d := &Detector{
		MinSample:       cfg.AnomalyMinSample,
		MinCategorySize: cfg.AnomalyMinCategorySize,
	}
	if d.MinSample <= 0 {
		d.MinSample = 10
	}
	if d.MinCategorySize < 3 {
		d.MinCategorySize = 3
	}
	return d
}

// Detect returns the expenses whose |z| within their category exceeds
// sensitivity. A non-positive or non-finite sensitivity selects
// DefaultSensitivity. Categories are visited in first-appearance order and
// transactions keep their input order within a category.
func (d *Detector) Detect(txs []domain.Transaction, sensitivity float64) []domain.Anomaly {
	anomalies := make([]domain.Anomaly, 0)
	if len(txs) < d.MinSample {
		return anomalies
	}
	if sensitivity <= 0 || math.IsNaN(sensitivity) || math.IsInf(sensitivity, 0) {
		sensitivity = DefaultSensitivity
	}
	threshold := decimal.NewFromFloat(sensitivity)

	order, groups := stats.GroupBy(txs, stats.ExpenseCategory)
	for _, category := range order {
		members := groups[category]
		if len(members) < d.MinCategorySize {
			continue
		}

		amounts := stats.Amounts(members)
		mean := stats.Mean(amounts)
		std := stats.StdDev(amounts)
		if std.IsZero() {
			continue
		}

		band := threshold.Mul(std)
		expected := domain.ExpectedRange{
			Min: mean.Sub(band).Round(2),
			Max: mean.Add(band).Round(2),
		}

		for _, tx := range members {
			z, ok := stats.ZScore(tx.Amount, mean, std)
			if !ok || z.Abs().LessThanOrEqual(threshold) {
				continue
			}

			severity := domain.SeverityMedium
			if z.Abs().GreaterThan(highSeverityZ) {
				severity = domain.SeverityHigh
			}

			anomalies = append(anomalies, domain.Anomaly{
				TransactionID: tx.ID,
				Date:          tx.Date,
				Category:      category,
				Amount:        tx.Amount,
				ExpectedRange: expected,
				ZScore:        z.Round(4),
				Severity:      severity,
				Description:   fmt.Sprintf("Unusual transaction: %s (average: %s)", money.Format(tx.Amount), money.Format(mean)),
			})
		}
	}

	return anomalies
}

package forecast

import (
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/shopspring/decimal"
)

// Band maps a required/available share to a fixed outcome.
type Band struct {
	// Above is the share of available money the requirement must exceed.
	Above       float64
	Probability float64
	Risk        domain.RiskLevel
}

// Bands are checked in order; the first match wins.
var Bands = []Band{
	{Above: 0.5, Probability: 20, Risk: domain.RiskHigh},
	{Above: 0.3, Probability: 60, Risk: domain.RiskMedium},
	{Above: 0.1, Probability: 85, Risk: domain.RiskLow},
}

// Fallback outcomes outside the band table.
var (
	NoCapacity  = Band{Probability: 0, Risk: domain.RiskCritical}
	Comfortable = Band{Probability: 95, Risk: domain.RiskVeryLow}
)

// Classify looks up the outcome of needing required per month out of
// available per month.
func Classify(required, available decimal.Decimal) Band {
	if !available.IsPositive() {
		return NoCapacity
	}
	for _, b := range Bands {
		if required.GreaterThan(available.Mul(ratio(b.Above))) {
			return b
		}
	}
	return Comfortable
}

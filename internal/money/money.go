// Package money formats amounts and labels for insight messages.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders an amount with two decimals and thousands separators.
func Format(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Percent renders a percentage with one decimal.
func Percent(p float64) string {
	return printer.Sprintf("%.1f%%", p)
}

// Title renders a category name for display. A Caser holds state, so each
// call builds its own.
func Title(category string) string {
	if category == "" {
		return "Uncategorized"
	}
	return cases.Title(language.English).String(category)
}

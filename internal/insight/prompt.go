package insight

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/money"
	"github.com/opensource-finance/finsight/internal/stats"
	"github.com/shopspring/decimal"
)

// InsightsPrompt seeds advisor lines from the numeric summary of a window.
func InsightsPrompt(f Facts, insights []domain.Insight) string {
	var b strings.Builder
	b.WriteString("Review this spending summary and give 2-3 short, practical insights.\n\n")
	fmt.Fprintf(&b, "Income: %s\n", money.Format(f.Income))
	fmt.Fprintf(&b, "Expenses: %s\n", money.Format(f.Expenses))
	fmt.Fprintf(&b, "Savings rate: %s\n", money.Percent(f.SavingsRate))
	fmt.Fprintf(&b, "Weekend share of expenses: %s\n", money.Percent(f.WeekendShare))
	if f.RecurringMonthly.IsPositive() {
		fmt.Fprintf(&b, "Recurring monthly charges: %s\n", money.Format(f.RecurringMonthly))
	}
	writeTopCategories(&b, f.Categories)

	if len(insights) > 0 {
		b.WriteString("\nAlready flagged:\n")
		for _, in := range insights {
			fmt.Fprintf(&b, "- %s\n", in.Message)
		}
	}
	b.WriteString("\nAnswer as a list, at most two lines per item.\n")
	return b.String()
}

// GoalPrompt seeds advisor lines for a single goal.
func GoalPrompt(goal domain.Goal, monthlyIncome, monthlyExpenses decimal.Decimal, categories []stats.CategoryTotal) string {
	progress := stats.Percentage(goal.CurrentAmount, goal.TargetAmount)
	deadline := "none"
	if goal.TargetDate != nil {
		deadline = goal.TargetDate.Format("2006-01-02")
	}

	var b strings.Builder
	b.WriteString("Analyse this savings goal and give 2-3 practical, personal insights.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", goal.Name)
	fmt.Fprintf(&b, "Target: %s\n", money.Format(goal.TargetAmount))
	fmt.Fprintf(&b, "Saved: %s\n", money.Format(goal.CurrentAmount))
	fmt.Fprintf(&b, "Progress: %s\n", money.Percent(progress))
	fmt.Fprintf(&b, "Deadline: %s\n\n", deadline)
	fmt.Fprintf(&b, "Monthly income: %s\n", money.Format(monthlyIncome))
	fmt.Fprintf(&b, "Monthly expenses: %s\n", money.Format(monthlyExpenses))
	fmt.Fprintf(&b, "Available: %s\n", money.Format(monthlyIncome.Sub(monthlyExpenses)))
	writeTopCategories(&b, categories)
	b.WriteString("\nCover how to speed up progress, where to cut spending and realistic tips.\n")
	b.WriteString("Answer as a list, at most two lines per item.\n")
	return b.String()
}

// DashboardPrompt seeds advisor lines for the goals dashboard.
func DashboardPrompt(summary domain.GoalSummary, transactions int) string {
	var b strings.Builder
	b.WriteString("Analyse this financial summary and give 2-3 strategic insights.\n\n")
	fmt.Fprintf(&b, "Goals: %d\n", summary.TotalGoals)
	fmt.Fprintf(&b, "Active goals: %d\n", summary.ActiveGoals)
	fmt.Fprintf(&b, "Completed goals: %d\n", summary.CompletedGoals)
	fmt.Fprintf(&b, "Overall progress: %s\n", money.Percent(summary.OverallProgress))
	fmt.Fprintf(&b, "Transactions analysed: %d\n\n", transactions)
	b.WriteString("Cover goal prioritisation, spending patterns and optimisation ideas.\n")
	b.WriteString("Be specific, at most two lines per item.\n")
	return b.String()
}

func writeTopCategories(b *strings.Builder, categories []stats.CategoryTotal) {
	if len(categories) == 0 {
		return
	}
	b.WriteString("\nLargest expense categories:\n")
	for i, c := range categories {
		if i >= topCategories {
			break
		}
		fmt.Fprintf(b, "- %s: %s\n", money.Title(c.Category), money.Format(c.Total))
	}
}

package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// readLedgerCSV reads transactions from CSV. Required columns are date,
// amount and type; description, category, status and user_id are optional.
// Column names are case-insensitive. Rows without a user_id belong to
// defaultUser.
func readLedgerCSV(r io.Reader, defaultUser string, limit int) ([]*domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"date", "amount", "type"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var txs []*domain.Transaction
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		tx, err := parseRow(field, record, defaultUser)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)

		if limit > 0 && len(txs) >= limit {
			break
		}
	}

	return txs, nil
}

func parseRow(field func([]string, string) string, record []string, defaultUser string) (*domain.Transaction, error) {
	date, err := time.Parse(dateLayout, field(record, "date"))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", field(record, "date"))
	}

	amount, err := decimal.NewFromString(field(record, "amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", field(record, "amount"))
	}

	kind, ok := domain.ParseTransactionType(strings.ToUpper(field(record, "type")))
	if !ok {
		return nil, fmt.Errorf("invalid type %q", field(record, "type"))
	}

	status := domain.StatusCompleted
	if s := field(record, "status"); s != "" {
		status = domain.TransactionStatus(strings.ToUpper(s))
	}

	userID := field(record, "user_id")
	if userID == "" {
		userID = defaultUser
	}

	return &domain.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Description: field(record, "description"),
		Date:        date.UTC(),
		Amount:      amount.Abs(),
		Type:        kind,
		Category:    field(record, "category"),
		Status:      status,
	}, nil
}

// fixedExpense is a monthly bill paid on the same day every month.
type fixedExpense struct {
	description string
	category    string
	amount      string
	day         int
}

var monthlyBills = []fixedExpense{
	{"Rent", "Housing", "1200", 3},
	{"Gym membership", "Health", "45", 5},
	{"Streaming subscription", "Entertainment", "15.99", 12},
	{"Phone plan", "Utilities", "39.90", 18},
}

// synthesizeLedger generates months of activity for a user ending at now:
// a monthly salary, fixed bills, weekly groceries, weekend dining and one
// unusually large purchase.
func synthesizeLedger(rng *rand.Rand, userID string, months int, now time.Time) []*domain.Transaction {
	var txs []*domain.Transaction
	add := func(desc, category string, kind domain.TransactionType, amount decimal.Decimal, date time.Time) {
		if date.After(now) {
			return
		}
		txs = append(txs, &domain.Transaction{
			ID:          uuid.New().String(),
			UserID:      userID,
			Description: desc,
			Date:        date,
			Amount:      amount,
			Type:        kind,
			Category:    category,
			Status:      domain.StatusCompleted,
		})
	}

	start := time.Date(now.Year(), now.Month(), 1, 9, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	for m := 0; m < months; m++ {
		month := start.AddDate(0, m, 0)

		add("Salary", "Salary", domain.TypeIncome, decimal.NewFromInt(3200), month)
		for _, bill := range monthlyBills {
			add(bill.description, bill.category, domain.TypeExpense, decimal.RequireFromString(bill.amount), month.AddDate(0, 0, bill.day-1))
		}

		for week := 0; week < 4; week++ {
			groceries := decimal.NewFromFloat(60 + rng.Float64()*40).Round(2)
			add("Groceries", "Food", domain.TypeExpense, groceries, month.AddDate(0, 0, 7*week+1))
		}

		for day := 0; day < 28; day++ {
			date := month.AddDate(0, 0, day)
			if wd := date.Weekday(); (wd == time.Saturday || wd == time.Sunday) && rng.IntN(2) == 0 {
				dining := decimal.NewFromFloat(20 + rng.Float64()*30).Round(2)
				add("Restaurant", "Dining", domain.TypeExpense, dining, date.Add(11*time.Hour))
			}
		}
	}

	last := start.AddDate(0, months-1, 0)
	add("New laptop", "Shopping", domain.TypeExpense, decimal.NewFromInt(1899), last.AddDate(0, 0, 9))

	return txs
}

// sampleGoals returns two savings goals for a user.
func sampleGoals(userID string, now time.Time) []*domain.Goal {
	emergency := now.AddDate(1, 0, 0)
	vacation := now.AddDate(0, 4, 0)
	return []*domain.Goal{
		{
			ID:            uuid.New().String(),
			UserID:        userID,
			Name:          "Emergency fund",
			TargetAmount:  decimal.NewFromInt(10000),
			CurrentAmount: decimal.NewFromInt(2500),
			TargetDate:    &emergency,
			Status:        domain.GoalActive,
			CreatedAt:     now.AddDate(0, -3, 0),
		},
		{
			ID:            uuid.New().String(),
			UserID:        userID,
			Name:          "Summer vacation",
			TargetAmount:  decimal.NewFromInt(3000),
			CurrentAmount: decimal.NewFromInt(400),
			TargetDate:    &vacation,
			Status:        domain.GoalActive,
			CreatedAt:     now.AddDate(0, -1, 0),
		},
	}
}

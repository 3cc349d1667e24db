package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType carries the direction of a transaction.
// Amounts are always magnitudes; direction lives here.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// TransactionStatus is the ledger status of a transaction.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusPending   TransactionStatus = "PENDING"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Transaction is a ledger row as seen by the analytics core.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Description string            `json:"description,omitempty"`
	Date        time.Time         `json:"date"`
	Amount      decimal.Decimal   `json:"amount"`
	Type        TransactionType   `json:"type"`
	Category    string            `json:"category,omitempty"` // empty when the row has no category
	Status      TransactionStatus `json:"status"`
}

// HasCategory reports whether the transaction is categorised.
func (t Transaction) HasCategory() bool {
	return t.Category != ""
}

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// IsWeekend reports whether the transaction happened on a Saturday or Sunday.
func (t Transaction) IsWeekend() bool {
	wd := t.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseTransactionType validates a type string.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case TypeIncome, TypeExpense:
		return TransactionType(s), true
	}
	return "", false
}

// Package fetcher reads a user's ledger window for the analytics core.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
)

// Fetcher retrieves completed transactions and goals from the ledger.
type Fetcher struct {
	ledger domain.Ledger
	now    func() time.Time
}

// New creates a new Fetcher over the given ledger.
func New(ledger domain.Ledger) *Fetcher {
	return &Fetcher{
		ledger: ledger,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to compute window starts.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Now returns the fetcher's current time.
func (f *Fetcher) Now() time.Time {
	return f.now()
}

// Fetch returns the completed transactions of a user dated within the last
// windowDays, newest first. No matching rows gives an empty slice.
func (f *Fetcher) Fetch(ctx context.Context, userID string, windowDays int) ([]domain.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", domain.ErrInvalidInput)
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidInput, windowDays)
	}

	since := f.now().AddDate(0, 0, -windowDays)

	rows, err := f.ledger.ListTransactions(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w: %w", domain.ErrDataSource, err)
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Status != domain.StatusCompleted {
			continue
		}
		tx := *row
		if tx.Amount.IsNegative() {
			slog.Debug("normalising negative amount",
				"transaction_id", tx.ID,
				"user_id", userID,
				"amount", tx.Amount.String(),
			)
			tx.Amount = tx.Amount.Abs()
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

// Goal returns a goal owned by userID.
func (f *Fetcher) Goal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	if userID == "" || goalID == "" {
		return nil, fmt.Errorf("%w: userID and goalID are required", domain.ErrInvalidInput)
	}

	goal, err := f.ledger.GetGoal(ctx, goalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("goal %s: %w", goalID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w: %w", domain.ErrDataSource, err)
	}
	// goals of other users are indistinguishable from missing ones
	if goal.UserID != userID {
		return nil, fmt.Errorf("goal %s: %w", goalID, domain.ErrNotFound)
	}
	return goal, nil
}

// Goals returns every goal of a user.
func (f *Fetcher) Goals(ctx context.Context, userID string) ([]domain.Goal, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", domain.ErrInvalidInput)
	}

	rows, err := f.ledger.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w: %w", domain.ErrDataSource, err)
	}

	goals := make([]domain.Goal, 0, len(rows))
	for _, g := range rows {
		if g != nil {
			goals = append(goals, *g)
		}
	}
	return goals, nil
}

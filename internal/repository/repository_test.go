package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "finsight-test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndListTransactions", func(t *testing.T) {
		txs := []*domain.Transaction{
			{ID: "tx-001", UserID: "user-1", Description: "Groceries", Amount: decimal.RequireFromString("42.50"),
				Type: domain.TypeExpense, Category: "Food", Status: domain.StatusCompleted, Date: now.Add(-48 * time.Hour)},
			{ID: "tx-002", UserID: "user-1", Description: "Salary", Amount: decimal.RequireFromString("3000"),
				Type: domain.TypeIncome, Category: "Salary", Status: domain.StatusCompleted, Date: now.Add(-24 * time.Hour)},
			{ID: "tx-003", UserID: "user-1", Description: "Cash", Amount: decimal.RequireFromString("20"),
				Type: domain.TypeExpense, Status: domain.StatusCompleted, Date: now.Add(-12 * time.Hour)},
			{ID: "tx-004", UserID: "user-1", Description: "Pending", Amount: decimal.RequireFromString("99"),
				Type: domain.TypeExpense, Category: "Food", Status: domain.StatusPending, Date: now.Add(-1 * time.Hour)},
			{ID: "tx-005", UserID: "user-1", Description: "Old", Amount: decimal.RequireFromString("10"),
				Type: domain.TypeExpense, Category: "Food", Status: domain.StatusCompleted, Date: now.Add(-90 * 24 * time.Hour)},
			{ID: "tx-006", UserID: "user-2", Description: "Other user", Amount: decimal.RequireFromString("10"),
				Type: domain.TypeExpense, Category: "Food", Status: domain.StatusCompleted, Date: now.Add(-1 * time.Hour)},
		}
		for _, tx := range txs {
			if err := repo.SaveTransaction(ctx, tx); err != nil {
				t.Fatalf("SaveTransaction(%s) failed: %v", tx.ID, err)
			}
		}

		got, err := repo.ListTransactions(ctx, "user-1", now.Add(-30*24*time.Hour))
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}

		if len(got) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(got))
		}
		// newest first
		if got[0].ID != "tx-003" || got[2].ID != "tx-001" {
			t.Errorf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
		}
		if got[0].HasCategory() {
			t.Errorf("expected null category for tx-003, got %q", got[0].Category)
		}
		if !got[2].Amount.Equal(decimal.RequireFromString("42.50")) {
			t.Errorf("expected amount 42.50, got %s", got[2].Amount)
		}
		if got[1].Type != domain.TypeIncome {
			t.Errorf("expected INCOME, got %s", got[1].Type)
		}
	})

	t.Run("UpsertTransaction", func(t *testing.T) {
		tx := &domain.Transaction{ID: "tx-001", UserID: "user-1", Amount: decimal.NewFromInt(50),
			Type: domain.TypeExpense, Category: "Food", Status: domain.StatusCompleted, Date: now.Add(-48 * time.Hour)}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		got, err := repo.ListTransactions(ctx, "user-1", now.Add(-72*time.Hour))
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 transactions after upsert, got %d", len(got))
		}
		if !got[2].Amount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("expected updated amount 50, got %s", got[2].Amount)
		}
	})

	t.Run("EmptyResultIsNotNil", func(t *testing.T) {
		got, err := repo.ListTransactions(ctx, "nobody", now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("SaveAndGetGoal", func(t *testing.T) {
		deadline := now.Add(180 * 24 * time.Hour)
		goal := &domain.Goal{
			ID:            "goal-001",
			UserID:        "user-1",
			Name:          "Emergency fund",
			TargetAmount:  decimal.NewFromInt(5000),
			CurrentAmount: decimal.RequireFromString("1250.75"),
			TargetDate:    &deadline,
			Status:        domain.GoalActive,
			CreatedAt:     now.Add(-30 * 24 * time.Hour),
		}
		if err := repo.SaveGoal(ctx, goal); err != nil {
			t.Fatalf("SaveGoal failed: %v", err)
		}

		got, err := repo.GetGoal(ctx, "goal-001")
		if err != nil {
			t.Fatalf("GetGoal failed: %v", err)
		}
		if got.UserID != "user-1" || got.Name != "Emergency fund" {
			t.Errorf("unexpected goal: %+v", got)
		}
		if !got.CurrentAmount.Equal(goal.CurrentAmount) {
			t.Errorf("expected current amount %s, got %s", goal.CurrentAmount, got.CurrentAmount)
		}
		if got.TargetDate == nil || !got.TargetDate.Equal(deadline) {
			t.Errorf("expected target date %v, got %v", deadline, got.TargetDate)
		}
	})

	t.Run("GoalWithoutDeadline", func(t *testing.T) {
		goal := &domain.Goal{ID: "goal-002", UserID: "user-1", Name: "Vacation",
			TargetAmount: decimal.NewFromInt(2000), CreatedAt: now}
		if err := repo.SaveGoal(ctx, goal); err != nil {
			t.Fatalf("SaveGoal failed: %v", err)
		}

		goals, err := repo.ListGoals(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListGoals failed: %v", err)
		}
		if len(goals) != 2 {
			t.Fatalf("expected 2 goals, got %d", len(goals))
		}
		if goals[0].ID != "goal-002" {
			t.Errorf("expected newest goal first, got %s", goals[0].ID)
		}
		if goals[0].TargetDate != nil {
			t.Errorf("expected nil target date, got %v", goals[0].TargetDate)
		}
		if goals[0].Status != domain.GoalActive {
			t.Errorf("expected default status ACTIVE, got %s", goals[0].Status)
		}
	})

	t.Run("RequiresUserID", func(t *testing.T) {
		err := repo.SaveTransaction(ctx, &domain.Transaction{ID: "tx-x", Type: domain.TypeExpense})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}

		_, err = repo.ListTransactions(ctx, "", now)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}

		_, err = repo.ListGoals(ctx, "")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		err := repo.SaveTransaction(ctx, &domain.Transaction{ID: "tx-y", UserID: "user-1", Type: "TRANSFER"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetGoal(ctx, "nonexistent")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestPgxRequiresURL(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "pgx"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got: %v", err)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver   string
		input    string
		expected string
	}{
		{"postgres", "SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"pgx", "INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"postgres", "SELECT * FROM t", "SELECT * FROM t"},
		{"sqlite", "SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = ?"},
	}

	for _, tt := range tests {
		repo := &SQLRepository{driver: tt.driver}
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestNormalizeDatabaseURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"postgresql://u:p@host:5432/db", "postgres://u:p@host:5432/db?sslmode=disable"},
		{"postgres://u:p@host/db?connect_timeout=5", "postgres://u:p@host/db?connect_timeout=5&sslmode=disable"},
		{"postgres://u:p@host/db?sslmode=require", "postgres://u:p@host/db?sslmode=require"},
		{"host=localhost dbname=db", "host=localhost dbname=db"},
	}

	for _, tt := range tests {
		if got := NormalizeDatabaseURL(tt.input); got != tt.expected {
			t.Errorf("NormalizeDatabaseURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

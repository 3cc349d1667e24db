// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-finance/finsight/internal/domain"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = domain.ErrInvalidInput
)

// SQLRepository implements domain.Store using database/sql.
// Works with SQLite, lib/pq and pgx drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	case "pgx":
		db, err = openPgx(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction inserts or replaces a ledger row.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.ID == "" || tx.UserID == "" {
		return fmt.Errorf("%w: transaction id and user id are required", ErrInvalidInput)
	}
	if _, ok := domain.ParseTransactionType(string(tx.Type)); !ok {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, tx.Type)
	}

	status := tx.Status
	if status == "" {
		status = domain.StatusCompleted
	}

	query := `
		INSERT INTO transactions (
			id, user_id, description, amount, type, category, status, date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			amount = excluded.amount,
			type = excluded.type,
			category = excluded.category,
			status = excluded.status,
			date = excluded.date
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.UserID, tx.Description,
		tx.Amount.String(), string(tx.Type),
		nullString(tx.Category), string(status),
		tx.Date.UTC(),
	)
	return err
}

// ListTransactions returns completed transactions of a user dated at or after
// since, newest first.
func (r *SQLRepository) ListTransactions(ctx context.Context, userID string, since time.Time) ([]*domain.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, user_id, description, amount, type, category, status, date
		FROM transactions
		WHERE user_id = ?
		  AND status = ?
		  AND date >= ?
		ORDER BY date DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, string(domain.StatusCompleted), since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		var tx domain.Transaction
		var category sql.NullString
		var txType, status string

		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Description,
			&tx.Amount, &txType, &category, &status,
			&tx.Date,
		); err != nil {
			return nil, err
		}

		tx.Type = domain.TransactionType(txType)
		tx.Status = domain.TransactionStatus(status)
		tx.Category = category.String
		tx.Date = tx.Date.UTC()
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

// SaveGoal inserts or replaces a goal.
func (r *SQLRepository) SaveGoal(ctx context.Context, goal *domain.Goal) error {
	if goal == nil || goal.ID == "" || goal.UserID == "" {
		return fmt.Errorf("%w: goal id and user id are required", ErrInvalidInput)
	}

	status := goal.Status
	if status == "" {
		status = domain.GoalActive
	}
	createdAt := goal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var targetDate sql.NullTime
	if goal.TargetDate != nil {
		targetDate = sql.NullTime{Time: goal.TargetDate.UTC(), Valid: true}
	}

	query := `
		INSERT INTO goals (
			id, user_id, name, target_amount, current_amount, target_date, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			target_amount = excluded.target_amount,
			current_amount = excluded.current_amount,
			target_date = excluded.target_date,
			status = excluded.status
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		goal.ID, goal.UserID, goal.Name,
		goal.TargetAmount.String(), goal.CurrentAmount.String(),
		targetDate, string(status), createdAt.UTC(),
	)
	return err
}

// GetGoal retrieves a goal by ID.
func (r *SQLRepository) GetGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	if goalID == "" {
		return nil, fmt.Errorf("%w: goalID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, user_id, name, target_amount, current_amount, target_date, status, created_at
		FROM goals
		WHERE id = ?
	`

	goal, err := scanGoal(r.db.QueryRowContext(ctx, r.rebind(query), goalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// ListGoals retrieves all goals of a user, newest first.
func (r *SQLRepository) ListGoals(ctx context.Context, userID string) ([]*domain.Goal, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, user_id, name, target_amount, current_amount, target_date, status, created_at
		FROM goals
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]*domain.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	return goals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var g domain.Goal
	var targetDate sql.NullTime
	var status string

	if err := row.Scan(
		&g.ID, &g.UserID, &g.Name,
		&g.TargetAmount, &g.CurrentAmount,
		&targetDate, &status, &g.CreatedAt,
	); err != nil {
		return nil, err
	}

	g.Status = domain.GoalStatus(status)
	g.CreatedAt = g.CreatedAt.UTC()
	if targetDate.Valid {
		t := targetDate.Time.UTC()
		g.TargetDate = &t
	}
	return &g, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL drivers.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" && r.driver != "pgx" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domain.Store = (*SQLRepository)(nil)

// Package domain defines the core interfaces and types for Finsight.
package domain

//go:generate mockgen -source=ledger.go -destination=ledger_mock.go -package=domain

import (
	"context"
	"time"
)

// Ledger is the read-only view of the transaction store used by the
// analytics core.
type Ledger interface {
	// ListTransactions returns COMPLETED transactions of a user dated at or
	// after since, newest first.
	ListTransactions(ctx context.Context, userID string, since time.Time) ([]*Transaction, error)

	// GetGoal returns ErrNotFound when the goal does not exist.
	GetGoal(ctx context.Context, goalID string) (*Goal, error)

	// ListGoals returns the goals of a user, newest first.
	ListGoals(ctx context.Context, userID string) ([]*Goal, error)

	Ping(ctx context.Context) error
	Close() error
}

// Store adds the write side used by seeding and tests.
type Store interface {
	Ledger

	SaveTransaction(ctx context.Context, tx *Transaction) error
	SaveGoal(ctx context.Context, goal *Goal) error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite", "postgres" or "pgx"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific (lib/pq)
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// DatabaseURL is used by the pgx driver.
	DatabaseURL string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

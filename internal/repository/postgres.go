package repository

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/opensource-finance/finsight/internal/domain"
)

// openPostgres opens a PostgreSQL database connection from discrete settings.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}

	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}

	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "financedb"
	}

	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		port,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		dbname,
		getSSLMode(cfg.PostgresSSLMode),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

// openPgx opens a PostgreSQL connection from a DATABASE_URL using the pgx
// database/sql adapter.
func openPgx(cfg domain.RepositoryConfig) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: database url is required for the pgx driver", domain.ErrInvalidInput)
	}

	db, err := sql.Open("pgx", NormalizeDatabaseURL(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open pgx database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping pgx database: %w", err)
	}

	return db, nil
}

// NormalizeDatabaseURL rewrites postgresql:// to postgres:// and adds
// sslmode=disable when the URL does not set an sslmode.
func NormalizeDatabaseURL(url string) string {
	if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
		return url
	}

	url = strings.Replace(url, "postgresql://", "postgres://", 1)
	if !strings.Contains(url, "sslmode=") {
		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}
		url = url + separator + "sslmode=disable"
	}
	return url
}

func getSSLMode(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}

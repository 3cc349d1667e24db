// Seed tool for loading a ledger into the Finsight database.
//
// Usage:
//
//	go run ./cmd/seed -user demo-user -months 6
//	go run ./cmd/seed -csv /path/to/ledger.csv -user demo-user
//
// Without -csv a synthetic ledger is generated. The database is selected
// like the server selects it: DATABASE_URL (pgx), otherwise
// FINSIGHT_SQLITE_PATH or ./finsight.db.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/repository"
)

// Metrics tracks seeding results.
type Metrics struct {
	Saved  int64
	Failed int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to a ledger CSV file (synthetic data when empty)")
	userID := flag.String("user", "demo-user", "User owning rows without a user_id column")
	months := flag.Int("months", 6, "Months of synthetic activity")
	limit := flag.Int("limit", 0, "Maximum CSV rows to load (0 = all)")
	workers := flag.Int("workers", 4, "Number of concurrent writers")
	seed := flag.Uint64("seed", 1, "Random seed for synthetic data")
	goals := flag.Bool("goals", true, "Also create sample savings goals")
	envFile := flag.String("env", ".env", "Environment file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load environment file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	store, err := repository.New(repositoryConfig(os.Getenv))
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	now := time.Now().UTC()

	var txs []*domain.Transaction
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			slog.Error("failed to open CSV", "path", *csvPath, "error", err)
			os.Exit(1)
		}
		txs, err = readLedgerCSV(f, *userID, *limit)
		f.Close()
		if err != nil {
			slog.Error("failed to read CSV", "path", *csvPath, "error", err)
			os.Exit(1)
		}
	} else {
		rng := rand.New(rand.NewPCG(*seed, *seed))
		txs = synthesizeLedger(rng, *userID, *months, now)
	}

	fmt.Printf("Seeding %d transactions with %d workers...\n", len(txs), *workers)

	ctx := context.Background()
	start := time.Now()
	metrics := seedTransactions(ctx, store, txs, *workers)

	if *goals {
		for _, g := range sampleGoals(*userID, now) {
			if err := store.SaveGoal(ctx, g); err != nil {
				slog.Error("failed to save goal", "goal", g.Name, "error", err)
				continue
			}
			fmt.Printf("Goal %q created (%s)\n", g.Name, g.ID)
		}
	}

	fmt.Printf("Saved:    %d\n", metrics.Saved)
	fmt.Printf("Failed:   %d\n", metrics.Failed)
	fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Millisecond))

	if metrics.Failed > 0 {
		os.Exit(1)
	}
}

// repositoryConfig selects the database from the environment.
func repositoryConfig(getenv func(string) string) domain.RepositoryConfig {
	if url := getenv("DATABASE_URL"); url != "" {
		return domain.RepositoryConfig{Driver: "pgx", DatabaseURL: url}
	}
	path := getenv("FINSIGHT_SQLITE_PATH")
	if path == "" {
		path = "./finsight.db"
	}
	return domain.RepositoryConfig{Driver: "sqlite", SQLitePath: path}
}

// seedTransactions saves txs through a pool of writers.
func seedTransactions(ctx context.Context, store domain.Store, txs []*domain.Transaction, numWorkers int) *Metrics {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	metrics := &Metrics{}

	work := make(chan *domain.Transaction, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tx := range work {
				if err := store.SaveTransaction(ctx, tx); err != nil {
					atomic.AddInt64(&metrics.Failed, 1)
					slog.Error("failed to save transaction", "id", tx.ID, "error", err)
					continue
				}
				atomic.AddInt64(&metrics.Saved, 1)
			}
		}()
	}

	for _, tx := range txs {
		work <- tx
	}
	close(work)

	wg.Wait()
	return metrics
}

// Finsight - Personal finance analytics over your own ledger.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/finsight/internal/advisor"
	"github.com/opensource-finance/finsight/internal/analytics"
	"github.com/opensource-finance/finsight/internal/api"
	"github.com/opensource-finance/finsight/internal/bus"
	"github.com/opensource-finance/finsight/internal/cache"
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/fetcher"
	"github.com/opensource-finance/finsight/internal/insight"
	"github.com/opensource-finance/finsight/internal/repository"
	"github.com/opensource-finance/finsight/internal/rules"
	"github.com/opensource-finance/finsight/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	slog.SetDefault(newLogger(domain.LoggingConfig{Level: "info", Format: "json"}))

	if err := loadEnvFile(".env"); err != nil {
		slog.Error("failed to load environment file", "error", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting finsight",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"worker", cfg.Worker.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	textgen, err := advisor.New(ctx, cfg.Advisor, cacheImpl)
	if err != nil {
		slog.Error("failed to initialize advisor", "error", err)
		os.Exit(1)
	}
	advisorOn := textgen != nil && textgen.Available()
	slog.Info("advisor initialized",
		"provider", cfg.Advisor.Provider,
		"model", cfg.Advisor.Model,
		"available", advisorOn,
	)

	engine, err := rules.NewBuiltinEngine(100)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	formatter := insight.NewFormatter(engine, textgen, cfg.Analytics)
	service := analytics.NewService(fetcher.New(repo), formatter, cfg.Analytics)

	var digestWorker *worker.DigestWorker
	if cfg.Worker.Enabled {
		digestWorker = worker.NewDigestWorker(busImpl, service)
		if err := digestWorker.Start(cfg.Worker); err != nil {
			slog.Error("failed to start digest worker", "error", err)
			digestWorker = nil
		}
	}

	srv := api.NewServer(cfg.Server, service, repo, cacheImpl, busImpl, Version)
	if digestWorker != nil {
		srv.WithDigestWorker(digestWorker)
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("finsight is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version, advisorOn)

	<-ctx.Done()
	slog.Info("shutting down...")

	if digestWorker != nil {
		if err := digestWorker.Stop(); err != nil {
			slog.Error("failed to stop digest worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("finsight shutdown complete")
}

func printBanner(cfg *domain.Config, version string, advisorOn bool) {
	fmt.Println()
	fmt.Println("  FINSIGHT - personal finance analytics")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Advisor:  %t\n", advisorOn)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /analytics/insights                       - Insight report")
	fmt.Println("    GET  /analytics/insights/savings-opportunities - Savings opportunities")
	fmt.Println("    GET  /analytics/insights/anomalies             - Unusual expenses")
	fmt.Println("    GET  /analytics/reports/recurring              - Recurring expenses")
	fmt.Println("    GET  /analytics/reports/spending-patterns      - Monthly patterns")
	fmt.Println("    GET  /analytics/reports/categories             - Category breakdown")
	fmt.Println("    GET  /analytics/goals/dashboard                - Goals dashboard")
	fmt.Println("    POST /analytics/digests                        - Queue a digest")
	fmt.Println("    GET  /health                                   - Health check")
	fmt.Println()
}

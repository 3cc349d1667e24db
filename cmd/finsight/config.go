package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/finsight/internal/domain"
)

// loadEnvFile loads a .env file into the process environment. Variables
// already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Info("environment file loaded", "path", path)
	return nil
}

// loadConfig builds the configuration for the selected tier and overlays
// the environment.
func loadConfig(getenv func(string) string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	switch tier := getenv("FINSIGHT_TIER"); tier {
	case "", string(domain.TierCommunity):
	case string(domain.TierPro):
		cfg = domain.ProConfig()
	default:
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	if v := getenv("FINSIGHT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("FINSIGHT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid FINSIGHT_PORT %q", v)
		}
		cfg.Server.Port = port
	}
	if v := getenv("FINSIGHT_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Repository = domain.RepositoryConfig{
			Driver:      "pgx",
			DatabaseURL: v,
		}
	} else if v := getenv("FINSIGHT_SQLITE_PATH"); v != "" {
		cfg.Repository = domain.RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: v,
		}
	}

	if v := getenv("REDIS_URL"); v != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisURL = v
		cfg.Cache.EnableTwoPhase = true
		if cfg.Cache.LocalMaxSize == 0 {
			cfg.Cache.LocalMaxSize = 1000
		}
	}

	if v := getenv("NATS_URL"); v != "" {
		cfg.EventBus.Type = "nats"
		cfg.EventBus.NATSUrl = v
	}

	cfg.Advisor.APIKey = getenv("GEMINI_API_KEY")
	if cfg.Advisor.APIKey == "" {
		cfg.Advisor.APIKey = getenv("GOOGLE_API_KEY")
	}
	if v := getenv("FINSIGHT_ADVISOR_MODEL"); v != "" {
		cfg.Advisor.Model = v
	}

	if v := getenv("FINSIGHT_ASYNC_WORKER"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FINSIGHT_ASYNC_WORKER %q", v)
		}
		cfg.Worker.Enabled = enabled
	}
	if v := getenv("FINSIGHT_DIGEST_SCOPES"); v != "" {
		cfg.Worker.Scopes = splitList(v)
	}

	if getenv("FINSIGHT_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}
	if v := getenv("FINSIGHT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// newLogger returns the process logger for the logging configuration.
func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

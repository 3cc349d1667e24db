package domain

import "time"

// Config holds the complete Finsight configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which backends are used
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Advisor    AdvisorConfig    `json:"advisor"`

	// Analytics thresholds and windows
	Analytics AnalyticsConfig `json:"analytics"`

	// Worker settings
	Worker WorkerConfig `json:"worker"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	ReadTimeout  int      `json:"readTimeout"`  // seconds
	WriteTimeout int      `json:"writeTimeout"` // seconds
	CORSOrigins  []string `json:"corsOrigins"`
}

// RecurringConfig holds the membership thresholds of a recurring-pattern scan.
type RecurringConfig struct {
	MinOccurrences int     `json:"minOccurrences"`
	Tolerance      float64 `json:"tolerance"`
}

// AnalyticsConfig holds windows and thresholds of the analytics operations.
type AnalyticsConfig struct {
	InsightWindowDays     int `json:"insightWindowDays"`
	OpportunityWindowDays int `json:"opportunityWindowDays"`
	AnomalyWindowDays     int `json:"anomalyWindowDays"`
	RecurringWindowDays   int `json:"recurringWindowDays"`
	GoalWindowDays        int `json:"goalWindowDays"`

	AnomalySensitivity     float64 `json:"anomalySensitivity"`
	AnomalyMinSample       int     `json:"anomalyMinSample"`
	AnomalyMinCategorySize int     `json:"anomalyMinCategorySize"`

	// Recurring is used by the recurring and spending-pattern reports;
	// OpportunityRecurring by the savings-opportunity scan.
	Recurring            RecurringConfig `json:"recurring"`
	OpportunityRecurring RecurringConfig `json:"opportunityRecurring"`

	// MaxAdvisorLines caps advisor insights added to a report.
	MaxAdvisorLines int `json:"maxAdvisorLines"`
}

// WorkerConfig holds async digest worker settings.
type WorkerConfig struct {
	Enabled bool `json:"enabled"`

	// Scopes to subscribe to. Empty means the global scope.
	Scopes []string `json:"scopes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-memory cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultAnalyticsConfig returns the windows and thresholds used when nothing
// is overridden.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		InsightWindowDays:      30,
		OpportunityWindowDays:  90,
		AnomalyWindowDays:      60,
		RecurringWindowDays:    180,
		GoalWindowDays:         90,
		AnomalySensitivity:     2.0,
		AnomalyMinSample:       10,
		AnomalyMinCategorySize: 3,
		Recurring: RecurringConfig{
			MinOccurrences: 3,
			Tolerance:      0.05,
		},
		OpportunityRecurring: RecurringConfig{
			MinOccurrences: 2,
			Tolerance:      0.10,
		},
		MaxAdvisorLines: 3,
	}
}

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30,
			WriteTimeout: 60,
			CORSOrigins:  []string{"http://localhost:5173", "http://localhost:5174"},
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./finsight.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Advisor: AdvisorConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			MaxOutputTokens: 300,
			Temperature:     0.7,
			TimeoutSecs:     20,
			MaxLines:        3,
			CacheTTLSecs:    3600,
			QuotaPerHour:    120,
		},
		Analytics: DefaultAnalyticsConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "finsight",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "financedb",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Worker.Enabled = true
	cfg.Tracing.Enabled = true
	return cfg
}

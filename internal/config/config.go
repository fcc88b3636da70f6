package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Sequence backends.
const (
	SequenceBackendPostgres = "postgres"
	SequenceBackendRedis    = "redis"
	SequenceBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Sequence     SequenceConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Classifier   ClassifierConfig
	Pagination   PaginationConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	LandingPath           string
}

// StorageConfig selects where tickets live.
type StorageConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SequenceConfig selects the ticket id allocator.
type SequenceConfig struct {
	Backend     string
	CounterName string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	RoleCacheTTLSeconds   int
}

// ClassifierConfig configures the upstream text-generation provider.
type ClassifierConfig struct {
	BaseURL            string
	APIKey             string
	Model              string
	TimeoutMillis      int
	RetryBackoffMillis int
	RatePerSecond      float64
	RateBurst          int
	ContextURL         string
	ContextMaxChars    int
	ContextTTLMinutes  int
}

// PaginationConfig bounds list page sizes.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ratePerSecond, err := strconv.ParseFloat(getEnv("CLASSIFIER_RATE_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_RATE_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "legal-intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			LandingPath:           getEnv("APP_LANDING_PATH", "/"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Sequence: SequenceConfig{
			Backend:     getEnv("SEQUENCE_BACKEND", SequenceBackendPostgres),
			CounterName: getEnv("SEQUENCE_COUNTER_NAME", "ticketId"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RoleCacheTTLSeconds:   getEnvAsInt("AUTH_ROLE_CACHE_TTL_SECONDS", 30),
		},
		Classifier: ClassifierConfig{
			BaseURL:            getEnv("CLASSIFIER_BASE_URL", "https://api.mistral.ai/v1"),
			APIKey:             getEnv("CLASSIFIER_API_KEY", os.Getenv("MISTRAL_API_KEY")),
			Model:              getEnv("CLASSIFIER_MODEL", "mistral-medium"),
			TimeoutMillis:      getEnvAsInt("CLASSIFIER_TIMEOUT_MS", 4000),
			RetryBackoffMillis: getEnvAsInt("CLASSIFIER_RETRY_BACKOFF_MS", 500),
			RatePerSecond:      ratePerSecond,
			RateBurst:          getEnvAsInt("CLASSIFIER_RATE_BURST", 10),
			ContextURL:         os.Getenv("CLASSIFIER_CONTEXT_URL"),
			ContextMaxChars:    getEnvAsInt("CLASSIFIER_CONTEXT_MAX_CHARS", 1000),
			ContextTTLMinutes:  getEnvAsInt("CLASSIFIER_CONTEXT_TTL_MINUTES", 60),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getEnvAsInt("PAGINATION_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvAsInt("PAGINATION_MAX_LIMIT", 100),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Sequence.Backend {
	case SequenceBackendPostgres, SequenceBackendRedis, SequenceBackendMemory:
	default:
		return fmt.Errorf("invalid SEQUENCE_BACKEND %q", c.Sequence.Backend)
	}
	if c.Sequence.Backend == SequenceBackendPostgres && c.Storage.Driver != StorageDriverPostgres {
		return fmt.Errorf("SEQUENCE_BACKEND=postgres requires STORAGE_DRIVER=postgres")
	}
	if c.Pagination.DefaultLimit <= 0 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("invalid pagination bounds %d/%d", c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// RoleCacheTTL bounds how long a resolved role may be reused.
func (a AuthConfig) RoleCacheTTL() time.Duration {
	if a.RoleCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RoleCacheTTLSeconds) * time.Second
}

// Timeout is the per-attempt deadline for a provider call.
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// RetryBackoff is the pause before the single retry.
func (c ClassifierConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

// ContextTTL is how long a fetched reference excerpt is reused.
func (c ClassifierConfig) ContextTTL() time.Duration {
	return time.Duration(c.ContextTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

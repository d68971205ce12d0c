package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the salesboard server and importer.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Upload    UploadConfig
	Seed      SeedConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
	MetricsEnabled  bool
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL        string
	SummaryTTL time.Duration
}

type UploadConfig struct {
	MaxBytes    int64
	AliasesFile string
}

type SeedConfig struct {
	File      string
	OnStartup bool
}

type ReconcileConfig struct {
	Schedule string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var validDrivers = map[string]bool{
	DriverPostgres: true,
	DriverSQLite:   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("SALESBOARD_PORT", 8080),
			Env:             envString("SALESBOARD_ENV", "development"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 120),
			MetricsEnabled:  envBool("METRICS_ENABLED", true),
		},
		Database: DatabaseConfig{
			Driver:          envString("STORE_DRIVER", DriverPostgres),
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL:        os.Getenv("REDIS_URL"),
			SummaryTTL: envDuration("CACHE_SUMMARY_TTL", 5*time.Minute),
		},
		Upload: UploadConfig{
			MaxBytes:    int64(envInt("UPLOAD_MAX_BYTES", 32<<20)),
			AliasesFile: os.Getenv("ALIASES_FILE"),
		},
		Seed: SeedConfig{
			File:      envString("SEED_FILE", "supermarket_sales.csv"),
			OnStartup: envBool("SEED_ON_STARTUP", false),
		},
		Reconcile: ReconcileConfig{
			Schedule: envString("RECONCILE_SCHEDULE", "*/15 * * * *"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("STORE_DRIVER must be one of postgres, sqlite; got %q", c.Database.Driver)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.Driver == DriverPostgres &&
		!strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql:// for the postgres driver, got %q", c.Database.URL)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-invoice/internal/currency"
)

// Storage drivers understood by Load.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv                 string
	Port                   string
	StorageDriver          string
	DatabaseURL            string
	RedisURL               string
	CORSAllowedOrigins     []string
	DefaultCurrency        string
	DashboardCacheTTL      time.Duration
	DashboardRecentLimit   int
	IdempotencyTTL         time.Duration
	BodyLimitBytes         int64
	RateLimitWindow        time.Duration
	RateLimitMax           int
	SecurityHeadersEnabled bool
	ListDefaultLimit       int
	ListMaxLimit           int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                 valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                   valueOrDefault(k.String("PORT"), "8080"),
		StorageDriver:          strings.ToLower(valueOrDefault(k.String("STORAGE_DRIVER"), StorageMemory)),
		DatabaseURL:            strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:               strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:     splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DefaultCurrency:        strings.ToUpper(valueOrDefault(k.String("DEFAULT_CURRENCY"), "USD")),
		DashboardCacheTTL:      parseDuration(k.String("DASHBOARD_CACHE_TTL"), "30s"),
		DashboardRecentLimit:   parseInt(k.String("DASHBOARD_RECENT_LIMIT"), 5),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		BodyLimitBytes:         int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 5<<20)),
		RateLimitWindow:        parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:           parseInt(k.String("RATE_LIMIT_MAX"), 120),
		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		ListDefaultLimit:       parseInt(k.String("LIST_DEFAULT_LIMIT"), 20),
		ListMaxLimit:           parseInt(k.String("LIST_MAX_LIMIT"), 100),
	}

	switch cfg.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if _, ok := currency.Parse(cfg.DefaultCurrency); !ok {
		return nil, fmt.Errorf("unsupported DEFAULT_CURRENCY %q", cfg.DefaultCurrency)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// UsePostgres reports whether the Postgres stores should be wired.
func (c *Config) UsePostgres() bool {
	return c.StorageDriver == StoragePostgres
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

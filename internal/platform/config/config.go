package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL        string
	Port               string
	IsProduction       bool
	EnableDBCheck      bool
	JWTSecret          string
	MigrationsPath     string
	RateLimit          string // ulule/limiter format, e.g. "300-M"
	CORSAllowedOrigins []string

	// Concurrency and idempotency knobs for the fiscal allocator and the ledger.
	FiscalAllocationMaxRetries int
	LedgerPostMaxRetries       int
	IdempotencyKeyMaxLength    int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("FISCAL_ALLOCATION_MAX_RETRIES", 10)
	viper.SetDefault("LEDGER_POST_MAX_RETRIES", 3)
	viper.SetDefault("IDEMPOTENCY_KEY_MAX_LENGTH", 255)

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
		cfg.JWTSecret = defaultJWTSecret // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.FiscalAllocationMaxRetries = nonNegative("FISCAL_ALLOCATION_MAX_RETRIES", 10)
	cfg.LedgerPostMaxRetries = nonNegative("LEDGER_POST_MAX_RETRIES", 3)
	cfg.IdempotencyKeyMaxLength = viper.GetInt("IDEMPOTENCY_KEY_MAX_LENGTH")
	if cfg.IdempotencyKeyMaxLength <= 0 {
		cfg.IdempotencyKeyMaxLength = 255
		log.Printf("Warning: invalid IDEMPOTENCY_KEY_MAX_LENGTH. Defaulting to %d.\n", cfg.IdempotencyKeyMaxLength)
	}

	return cfg, nil
}

func nonNegative(key string, fallback int) int {
	v := viper.GetInt(key)
	if v < 0 {
		log.Printf("Warning: invalid value for %s (%d). Defaulting to %d.\n", key, v, fallback)
		return fallback
	}
	return v
}

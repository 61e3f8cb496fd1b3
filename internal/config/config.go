package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Pricing rates as fractions, e.g. 0.12 for a 12% service fee.
	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal

	// Retry of transient storage failures.
	DBRetryMaxAttempts     int
	DBRetryInitialInterval time.Duration

	// Booking events. Publishing is disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string

	// Property photo storage.
	StoragePath    string
	MaxUploadBytes int64

	MetricsEnabled bool
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	if err := loadPricing(cfg); err != nil {
		return nil, err
	}

	cfg.DBRetryMaxAttempts, err = getEnvAsInt("DB_RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_RETRY_MAX_ATTEMPTS: %w", err)
	}
	if cfg.DBRetryMaxAttempts < 1 {
		return nil, fmt.Errorf("DB_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	cfg.DBRetryInitialInterval, err = getEnvAsDuration("DB_RETRY_INITIAL_INTERVAL", 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_RETRY_INITIAL_INTERVAL: %w", err)
	}

	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", "bookings")

	cfg.StoragePath = getEnv("STORAGE_PATH", "./data")
	maxUpload, err := getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.MetricsEnabled, err = getEnvAsBool("METRICS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	return cfg, nil
}

// LoadPricing reads only the pricing rates. Used by tools that do not need the full config.
func LoadPricing() (decimal.Decimal, decimal.Decimal, error) {
	cfg := &Config{}
	if err := loadPricing(cfg); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return cfg.ServiceFeeRate, cfg.TaxRate, nil
}

func loadPricing(cfg *Config) error {
	var err error
	cfg.ServiceFeeRate, err = getEnvAsRate("SERVICE_FEE_PERCENT", "0.12")
	if err != nil {
		return fmt.Errorf("invalid SERVICE_FEE_PERCENT: %w", err)
	}
	cfg.TaxRate, err = getEnvAsRate("TAX_RATE", "0.08")
	if err != nil {
		return fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	return nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(valStr)
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(valStr)
}

// getEnvAsRate reads a fraction in [0, 1].
func getEnvAsRate(key, defaultValue string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("env %s must be a fraction between 0 and 1, got %s", key, d)
	}
	return d, nil
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/stay_test")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, "0.12", cfg.ServiceFeeRate.String())
	assert.Equal(t, "0.08", cfg.TaxRate.String())
	assert.Equal(t, 3, cfg.DBRetryMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.DBRetryInitialInterval)
	assert.Equal(t, "", cfg.AMQPURL)
	assert.Equal(t, "bookings", cfg.AMQPExchange)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.IsProduction)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SERVICE_FEE_PERCENT", "0.15")
	t.Setenv("TAX_RATE", "0.1")
	t.Setenv("DB_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction)
	assert.Equal(t, "0.15", cfg.ServiceFeeRate.String())
	assert.Equal(t, "0.1", cfg.TaxRate.String())
	assert.Equal(t, 5, cfg.DBRetryMaxAttempts)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing dsn", "DB_DSN", ""},
		{"bad ttl", "JWT_ACCESS_TOKEN_TTL", "forever"},
		{"bad bcrypt cost", "BCRYPT_COST", "twelve"},
		{"fee above one", "SERVICE_FEE_PERCENT", "12"},
		{"negative tax", "TAX_RATE", "-0.08"},
		{"zero retry attempts", "DB_RETRY_MAX_ATTEMPTS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

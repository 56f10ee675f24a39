package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset uses fallback", "", time.Minute},
		{"duration string", "90s", 90 * time.Second},
		{"compound duration", "1h30m", 90 * time.Minute},
		{"bare seconds", "45", 45 * time.Second},
		{"garbage uses fallback", "soon", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestGetEnvDecimal(t *testing.T) {
	fallback := decimal.RequireFromString("0.05")

	t.Setenv("TEST_DECIMAL", " 0.125 ")
	assert.True(t, decimal.RequireFromString("0.125").Equal(getEnvDecimal("TEST_DECIMAL", fallback)))

	t.Setenv("TEST_DECIMAL", "lots")
	assert.True(t, fallback.Equal(getEnvDecimal("TEST_DECIMAL", fallback)))

	t.Setenv("TEST_DECIMAL", "")
	assert.True(t, fallback.Equal(getEnvDecimal("TEST_DECIMAL", fallback)))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("TEST_INT", 7))

	t.Setenv("TEST_INT", "4.2")
	assert.Equal(t, 7, getEnvInt("TEST_INT", 7))
}

func TestLoad(t *testing.T) {
	t.Setenv("PAYMENT_MODE", "LEDGER")
	t.Setenv("REVIEW_PERIOD", "48h")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("RATE_LIMIT_BACKEND", "")

	cfg := Load()

	assert.Equal(t, PaymentModeLedger, cfg.PaymentMode)
	assert.False(t, cfg.IsFiatMode())
	assert.Equal(t, 48*time.Hour, cfg.ReviewPeriod)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
}

func TestIsFiatMode(t *testing.T) {
	for mode, want := range map[string]bool{
		PaymentModeFiat:   true,
		PaymentModeLedger: false,
		"barter":          true,
	} {
		cfg := &Config{PaymentMode: mode}
		assert.Equal(t, want, cfg.IsFiatMode(), mode)
	}
}

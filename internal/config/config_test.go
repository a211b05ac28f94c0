package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("SESSION_TIMEOUT", "")
	t.Setenv("TOP_REPUTATION_TIER", "")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "")

	cfg := Load()
	assert.Equal(t, time.Hour, cfg.ExpirySweep)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTimeout)
	assert.Equal(t, uint(1), cfg.TopReputationTier)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SESSION_TIMEOUT", "5h")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("TOP_REPUTATION_TIER", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 5*time.Hour, cfg.SessionTimeout)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, uint(1), cfg.TopReputationTier)
}

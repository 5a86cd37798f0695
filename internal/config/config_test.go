package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_PORT":             "8080",
		"DB_USER":              "auth",
		"DB_HOST":              "127.0.0.1",
		"DB_PORT":              "3306",
		"DB_NAME":              "auth",
		"ACCESS_TOKEN_SECRET":  "access-secret",
		"REFRESH_TOKEN_SECRET": "refresh-secret",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, 365*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "localhost", cfg.CookieDomain)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURI)
	assert.Equal(t, "@hourly", cfg.TokenSweepSpec)
	assert.True(t, cfg.EventsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("EVENTS_ENABLED", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.EventsEnabled)
}

func TestLoad_ReportsAllMissingKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_SECRET")
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_SECRET")
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("BCRYPT_COST", "ten")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestLoad_AdminNeedsPassword(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}

func TestRateLimitConfig_Normalize(t *testing.T) {
	rl := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: 0}.normalize()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, time.Second, rl.RefillInterval)
	assert.Equal(t, 5*time.Second, rl.TTL)
}

func TestLoadRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")

	assert.Equal(t, "redis:6380", LoadRedisConfig().Addr)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "example-platform.com", cfg.Platform.ShopSuffix)
	assert.Equal(t, "2025-10", cfg.Platform.APIVersion)
	assert.Equal(t, []string{"read_orders"}, cfg.Platform.Scopes)
	assert.Equal(t, 5*time.Minute, cfg.SessionSweepInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("PLATFORM_API_KEY", "key")
	t.Setenv("PLATFORM_SCOPES", "read_orders, write_orders ,")
	t.Setenv("PLATFORM_WEBHOOK_TOPICS", "app/uninstalled")
	t.Setenv("SESSION_SWEEP_INTERVAL", "30s")

	cfg := Load()

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "key", cfg.Platform.APIKey)
	assert.Equal(t, []string{"read_orders", "write_orders"}, cfg.Platform.Scopes)
	assert.Equal(t, []string{"app/uninstalled"}, cfg.Platform.WebhookTopics)
	assert.Equal(t, 30*time.Second, cfg.SessionSweepInterval)
}

func TestLoadExplicitAddrWinsOverPort(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7777")
	t.Setenv("PORT", "9000")

	cfg := Load()
	assert.Equal(t, ":7777", cfg.HTTPAddr)
}

func TestEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SESSION_SWEEP_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.SessionSweepInterval)
}

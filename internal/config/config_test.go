package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "171717", cfg.Mpesa.ServiceProviderCode)
	assert.Empty(t, cfg.Mpesa.APIKey, "credentials have no baked-in default")
	assert.Equal(t, 32, cfg.OutboxBatchSize)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SELLER_HTTP_ADDR", ":9090")
	t.Setenv("SELLER_TOKEN_TTL", "15m")
	t.Setenv("SELLER_REDIS_DB", "3")
	t.Setenv("MPESA_API_KEY", "test-key")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "test-key", cfg.Mpesa.APIKey)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SELLER_TOKEN_TTL", "soon")
	t.Setenv("SELLER_OUTBOX_BATCH", "many")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 32, cfg.OutboxBatchSize)
}

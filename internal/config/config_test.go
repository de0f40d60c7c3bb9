package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Second, cfg.ThinkDelayMin)
	assert.Equal(t, 3*time.Second, cfg.ThinkDelayMax)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.ErrorIs(t, cfg.RequireSessionSecret(), ErrInvalidConfig)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test,https://b.test")
	t.Setenv("THINK_DELAY_MIN", "0s")
	t.Setenv("THINK_DELAY_MAX", "0s")
	t.Setenv("SESSION_SECRET", "s")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.ThinkDelayMax)
	assert.NoError(t, cfg.RequireSessionSecret())
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	_, err := Parse()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("STORE_DRIVER", "redis")
	_, err = Parse()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("THINK_DELAY_MIN", "5s")
	_, err = Parse()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT", "DEFAULT_LOCALE", "SHUTDOWN_TIMEOUT", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		unsetEnv(t, key)
	}
}

func TestNewServerConfig_Defaults(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/accounts")

	cfg, err := NewServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.OTelEnabled)
	assert.Empty(t, cfg.OTelEndpoint)
}

func TestNewServerConfig_Overrides(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/accounts")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("DEFAULT_LOCALE", "es")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	cfg, err := NewServerConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "es", cfg.DefaultLocale)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestNewServerConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database url", env: map[string]string{}},
		{name: "port out of range", env: map[string]string{"DATABASE_URL": "postgres://x", "PORT": "70000"}},
		{name: "bad log level", env: map[string]string{"DATABASE_URL": "postgres://x", "LOG_LEVEL": "loud"}},
		{name: "bad log format", env: map[string]string{"DATABASE_URL": "postgres://x", "LOG_FORMAT": "xml"}},
		{name: "bad timeout", env: map[string]string{"DATABASE_URL": "postgres://x", "SHUTDOWN_TIMEOUT": "never"}},
		{name: "zero timeout", env: map[string]string{"DATABASE_URL": "postgres://x", "SHUTDOWN_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearServerEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewServerConfig()
			assert.Error(t, err)
		})
	}
}

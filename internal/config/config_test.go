package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue/internal/config"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.True(t, cfg.TickSize.String() == "0.0001")
	assert.Equal(t, "0.0.0.0", cfg.ListenAddress)
	assert.Equal(t, 9001, cfg.ListenPort)
	assert.Equal(t, 10, cfg.WorkerPoolSize)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("VENUE_TICK_SIZE", "0.01")
	t.Setenv("VENUE_LISTEN_PORT", "9999")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.01", cfg.TickSize.String())
	assert.Equal(t, 9999, cfg.ListenPort)
}

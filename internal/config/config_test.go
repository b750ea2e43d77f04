package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Agent.APIKey = "sk-test"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "anthropic", cfg.Agent.Provider)
	assert.Equal(t, 1000, cfg.Agent.MaxTurns)
	assert.Equal(t, 3, cfg.Loop.AutoContinueDelaySeconds)
	assert.Equal(t, 30, cfg.Loop.FallbackSleepMinutes)
	assert.Equal(t, 60, cfg.Loop.ResetBufferSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	t.Run("missing api key", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key")
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Provider = "gemini"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid agent provider")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := validConfig()
		cfg.Agent.Model = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative loop timing", func(t *testing.T) {
		cfg := validConfig()
		cfg.Loop.FallbackSleepMinutes = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("metrics enabled without addr", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestStringMasksAPIKey(t *testing.T) {
	cfg := validConfig()
	rendered := cfg.String()

	assert.False(t, strings.Contains(rendered, "sk-test"), "API key leaked into String()")
	assert.Contains(t, rendered, "***")
	// Masking must not mutate the config itself.
	assert.Equal(t, "sk-test", cfg.Agent.APIKey)
}

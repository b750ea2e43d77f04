package config

import (
	"encoding/json"
	"fmt"

	"github.com/harun/vigil/pkg/browser"
)

// Config represents the main Vigil configuration
type Config struct {
	// Agent provider settings
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Loop timing
	Loop LoopConfig `json:"loop" mapstructure:"loop"`

	// Shell command execution guard
	Guard GuardConfig `json:"guard" mapstructure:"guard"`

	// Browser tools
	Browser browser.Config `json:"browser" mapstructure:"browser"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AgentConfig holds model provider settings
type AgentConfig struct {
	Provider     string  `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey       string  `json:"api_key" mapstructure:"api_key"`
	Model        string  `json:"model" mapstructure:"model"`
	MaxTurns     int     `json:"max_turns" mapstructure:"max_turns"`
	MaxTokens    int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
	SystemPrompt string  `json:"system_prompt" mapstructure:"system_prompt"`
}

// LoopConfig holds the session loop timing knobs
type LoopConfig struct {
	AutoContinueDelaySeconds int `json:"auto_continue_delay_seconds" mapstructure:"auto_continue_delay_seconds"`
	FallbackSleepMinutes     int `json:"fallback_sleep_minutes" mapstructure:"fallback_sleep_minutes"`
	ResetBufferSeconds       int `json:"reset_buffer_seconds" mapstructure:"reset_buffer_seconds"`
	ErrorRetryDelaySeconds   int `json:"error_retry_delay_seconds" mapstructure:"error_retry_delay_seconds"`
	MaxIterations            int `json:"max_iterations" mapstructure:"max_iterations"`
}

// GuardConfig holds execution guard settings
type GuardConfig struct {
	AllowlistPath string `json:"allowlist_path" mapstructure:"allowlist_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4",
			MaxTurns:    1000,
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		Loop: LoopConfig{
			AutoContinueDelaySeconds: 3,
			FallbackSleepMinutes:     30,
			ResetBufferSeconds:       60,
			ErrorRetryDelaySeconds:   10,
		},
		Browser: browser.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
	}
}

// String returns a JSON representation of the config with the API key
// masked.
func (c *Config) String() string {
	masked := *c
	if masked.Agent.APIKey != "" {
		masked.Agent.APIKey = "***"
	}
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Agent.Provider {
	case "anthropic", "openai":
	case "":
		return fmt.Errorf("agent provider is required")
	default:
		return fmt.Errorf("invalid agent provider %s (must be: anthropic, openai)", c.Agent.Provider)
	}

	if c.Agent.APIKey == "" {
		return fmt.Errorf("agent api_key is required (set it in the config file or via %s)", apiKeyEnvVar(c.Agent.Provider))
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent model is required")
	}
	if c.Agent.MaxTurns < 0 {
		return fmt.Errorf("agent max_turns must not be negative")
	}

	if c.Loop.AutoContinueDelaySeconds < 0 ||
		c.Loop.FallbackSleepMinutes < 0 ||
		c.Loop.ResetBufferSeconds < 0 ||
		c.Loop.ErrorRetryDelaySeconds < 0 ||
		c.Loop.MaxIterations < 0 {
		return fmt.Errorf("loop timing values must not be negative")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	return nil
}

func apiKeyEnvVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

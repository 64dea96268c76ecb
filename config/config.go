// Package config loads workflow configuration from YAML with environment
// variable fallbacks for credentials. A zero-value Config is usable: every
// field has a default applied at load time, so a config file only needs the
// settings it wants to override.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// API keys, falling back to OPENAI_API_KEY / ANTHROPIC_API_KEY.
	OpenAIKey    string `yaml:"openai_key"`
	AnthropicKey string `yaml:"anthropic_key"`

	// Model configuration.
	Provider    string  `yaml:"provider"` // openai or anthropic
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Workflow configuration.
	Workflow WorkflowConfig `yaml:"workflow"`

	// Session persistence. Provider "memory" (default) or "redis".
	Session SessionConfig `yaml:"session"`

	// ArtifactDir is where finalized documents are written. Empty keeps
	// artifacts in memory only.
	ArtifactDir string `yaml:"artifact_dir"`

	// Runtime configuration.
	Runtime RuntimeConfig `yaml:"runtime"`
}

// WorkflowConfig bounds the iterative document workflows.
type WorkflowConfig struct {
	MaxIterations int `yaml:"max_iterations"` // feedback loop revision cycles
	MaxRounds     int `yaml:"max_rounds"`     // group chat turns
}

// SessionConfig selects and parameterizes the session store backend.
type SessionConfig struct {
	Provider  string `yaml:"provider"` // memory or redis
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
}

// RuntimeConfig holds runner tuning knobs.
type RuntimeConfig struct {
	EventBufferSize int  `yaml:"event_buffer_size"`
	MaxModelCalls   int  `yaml:"max_model_calls"`
	EnableStreaming bool `yaml:"enable_streaming"`
}

// Default returns a configuration with all defaults applied and credentials
// read from the environment.
func Default() *Config {
	cfg := &Config{Runtime: RuntimeConfig{EnableStreaming: true}}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML configuration file, applies defaults and environment
// fallbacks, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Streaming defaults on; pre-seeding before unmarshal lets an explicit
	// enable_streaming: false in the file switch it off.
	cfg := Config{Runtime: RuntimeConfig{EnableStreaming: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Workflow.MaxIterations == 0 {
		c.Workflow.MaxIterations = 3
	}
	if c.Workflow.MaxRounds == 0 {
		c.Workflow.MaxRounds = 50
	}
	if c.Session.Provider == "" {
		c.Session.Provider = "memory"
	}
	if c.Session.RedisAddr == "" {
		c.Session.RedisAddr = "localhost:6379"
	}
	if c.Runtime.EventBufferSize == 0 {
		c.Runtime.EventBufferSize = 100
	}
	if c.Runtime.MaxModelCalls == 0 {
		c.Runtime.MaxModelCalls = 100
	}
}

func (c *Config) applyEnv() {
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.AnthropicKey == "" {
		c.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported provider %q (want openai or anthropic)", c.Provider)
	}

	switch strings.ToLower(c.Session.Provider) {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis session provider")
		}
	default:
		return fmt.Errorf("unsupported session provider %q (want memory or redis)", c.Session.Provider)
	}

	if c.Workflow.MaxIterations < 1 {
		return fmt.Errorf("workflow.max_iterations must be at least 1")
	}
	if c.Workflow.MaxRounds < 1 {
		return fmt.Errorf("workflow.max_rounds must be at least 1")
	}

	return nil
}

package openai

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/motern88/allen/internal/llm"
)

// Config holds OpenAI-compatible LLM configuration for one client.
// Each agent gets its own Config built from its role YAML's llm block
// (internal/config/role.go) — an agent's model choice is per-agent state.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  *float32
	MaxTokens    int
	MaxRetries   int
	HTTPTimeout  int
	ThinkingMode string // "auto", "native", or "app"
}

// FromAgentConfig builds a Config from an agent's state.LLMConfig
// block, filling in the same defaults historically pulled from
// environment variables.
func FromAgentConfig(baseURL, apiKey, model string, temperature float64, maxTokens int) *Config {
	cfg := &Config{
		APIKey:       apiKey,
		BaseURL:      baseURL,
		Model:        model,
		MaxTokens:    maxTokens,
		MaxRetries:   1,
		HTTPTimeout:  300,
		ThinkingMode: "auto",
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if temperature > 0 {
		t := float32(temperature)
		cfg.Temperature = &t
	}
	return cfg
}

// NewConfigFromEnv creates a Config from environment variables, used
// by internal/mas for an OpenAI llm_config block that sets neither a
// model nor an API key (such as an empty default-LLM fallback).
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:       getEnvOrDefault("LLM_API_KEY", ""),
		BaseURL:      getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:        getEnvOrDefault("LLM_MODEL", "gpt-4o"),
		Temperature:  getEnvFloat32Ptr("LLM_TEMPERATURE"),
		MaxTokens:    getEnvIntOrDefault("LLM_MAX_TOKENS", 0),
		MaxRetries:   getEnvIntOrDefault("LLM_MAX_RETRIES", 1),
		HTTPTimeout:  getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
		ThinkingMode: getEnvOrDefault("LLM_THINKING_MODE", "auto"),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("LLM model cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0.0 || *c.Temperature > 2.0) {
		return fmt.Errorf("LLM temperature must be between 0.0 and 2.0, got %f", *c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("LLM max retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.ThinkingMode != "auto" && c.ThinkingMode != "native" && c.ThinkingMode != "app" {
		return fmt.Errorf("LLM thinking mode must be 'auto', 'native', or 'app', got %q", c.ThinkingMode)
	}
	return nil
}

// ResolveThinkingMode returns the effective thinking mode, auto-detecting
// from the model name when set to "auto".
func (c *Config) ResolveThinkingMode() string {
	if c.ThinkingMode == "native" || c.ThinkingMode == "app" {
		return c.ThinkingMode
	}
	capability := llm.DetectThinkingCapability(c.Model)
	if capability.SupportsNativeThinking {
		log.Printf("[llm/openai] auto-detected native thinking for model %q", c.Model)
		return "native"
	}
	return "app"
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvFloat32Ptr(key string) *float32 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(parsed)
			return &f
		}
		log.Printf("[llm/openai] WARNING: invalid value for %s=%q, ignoring", key, v)
	}
	return nil
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[llm/openai] WARNING: invalid value for %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}

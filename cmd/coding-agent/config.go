package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envConfig is the process configuration, parsed from the environment.
type envConfig struct {
	Provider     string `env:"LLM_PROVIDER" envDefault:"gemini"`
	Model        string `env:"LLM_MODEL" envDefault:"gemini-2.5-pro"`
	BaseURL      string `env:"LLM_BASE_URL"`
	SummaryModel string `env:"LLM_SUMMARY_MODEL"`
	DebugPrompts bool   `env:"DEBUG_PROMPTS"`
	LogDB        string `env:"AGENT_LOG_DB"`
}

func loadConfig() (*envConfig, error) {
	cfg := &envConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// apiKeyVars maps known provider names to their API-key variables. Any other
// provider uses <NAME>_API_KEY.
var apiKeyVars = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

func (c *envConfig) apiKeyVar() string {
	if v, ok := apiKeyVars[c.Provider]; ok {
		return v
	}
	return strings.ToUpper(c.Provider) + "_API_KEY"
}

// apiKey resolves the provider's API key. Placeholder values left over from
// .env templates ("your_key_here") count as unset.
func (c *envConfig) apiKey() string {
	key := os.Getenv(c.apiKeyVar())
	if strings.Contains(key, "your_") || strings.Contains(key, "YOUR_") {
		return ""
	}
	return key
}

// summaryModel picks the compact model used for history summarization.
// Empty means no summarizer; compaction falls back to truncation.
func (c *envConfig) summaryModel() string {
	if c.SummaryModel != "" {
		return c.SummaryModel
	}
	switch c.Provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "anthropic":
		return "claude-haiku-4-5"
	case "openai":
		return "gpt-4o-mini"
	default:
		return ""
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port        string
	ContextsDir string // directory holding per-workspace context collections
	DailyLimit  int    // generation requests per session per day

	// Completion capability (OpenAI-compatible)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Web search capability (Google Custom Search)
	GoogleAPIKey string
	GoogleCSEID  string

	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		ContextsDir: getEnv("CONTEXTS_DIR", "./user_contexts"),
		DailyLimit:  getIntEnv("DAILY_LIMIT", 250),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4"),

		GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
		GoogleCSEID:  getEnv("GOOGLE_CSE_ID", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
	}
}

// Validate checks that every required credential is present. Missing
// credentials are a fatal startup condition, not a silent degradation.
func (c *Config) Validate() error {
	missing := []string{}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if c.GoogleCSEID == "" {
		missing = append(missing, "GOOGLE_CSE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

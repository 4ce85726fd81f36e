// Package config provides configuration for the conversation engine.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the engine configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Provider settings. One OpenAI-compatible base URL serves all three
	// protocol surfaces.
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// DefaultModel is used when an execution does not name one.
	DefaultModel string
	// SimulatorModel drives the interlocutor's secondary calls.
	SimulatorModel string

	// MaxToolIterations bounds the function-call resolution loop.
	MaxToolIterations int

	// Thread/run polling
	RunPollTimeout  time.Duration
	RunPollInterval time.Duration

	// SimulatedMode answers tool and simulator calls from fixtures instead
	// of live calls.
	SimulatedMode bool

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "file:engine.db?cache=shared&mode=rwc"),
		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "https://api.openai.com"),
		ProviderAPIKey:    getEnv("PROVIDER_API_KEY", ""),
		ProviderTimeout:   time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 120000)) * time.Millisecond,
		DefaultModel:      getEnv("DEFAULT_MODEL", "gpt-4o-mini"),
		SimulatorModel:    getEnv("SIMULATOR_MODEL", "gpt-4o-mini"),
		MaxToolIterations: getEnvInt("MAX_TOOL_ITERATIONS", 10),
		RunPollTimeout:    time.Duration(getEnvInt("RUN_POLL_TIMEOUT_MS", 60000)) * time.Millisecond,
		RunPollInterval:   time.Duration(getEnvInt("RUN_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		SimulatedMode:     getEnvBool("SIMULATED_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

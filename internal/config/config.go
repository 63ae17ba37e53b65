package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port string

	// Storage backend: "sqlite", "redis", or "memory"
	StorageBackend string
	SQLitePath     string
	RedisURL       string
	StorageKey     string

	// Model provider (OpenAI-compatible endpoint)
	ProviderBaseURL string
	ProviderAPIKey  string
	DefaultModelID  string
	FallbackModels  []string

	// Engine tunables
	Enabled         bool
	AutoGenerate    bool
	UpdateThreshold float64
	CacheThreshold  float64
	MaxRecords      int
	ExpiryDuration  time.Duration
	DebounceWindow  time.Duration
	MinInputLength  int
	MaxInputLength  int
	GenerateTimeout time.Duration

	// CleanupInterval controls the periodic expired-record purge.
	CleanupInterval time.Duration

	// OverridesPath points at an optional YAML file with hot-reloadable
	// threshold overrides (watched at runtime).
	OverridesPath string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	// Parse fallback models (comma-separated)
	var fallbacks []string
	if raw := getEnv("FALLBACK_MODELS", ""); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				fallbacks = append(fallbacks, id)
			}
		}
	}

	return &Config{
		Port: getEnv("PORT", "3002"),

		StorageBackend: getEnv("STORAGE_BACKEND", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "contextd.db"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		StorageKey:     getEnv("STORAGE_KEY", "contextd:records"),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "http://localhost:11434/v1"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		DefaultModelID:  getEnv("DEFAULT_MODEL_ID", ""),
		FallbackModels:  fallbacks,

		Enabled:         getBoolEnv("CONTEXT_ENABLED", true),
		AutoGenerate:    getBoolEnv("CONTEXT_AUTO_GENERATE", true),
		UpdateThreshold: getFloatEnv("UPDATE_THRESHOLD", 0.8),
		CacheThreshold:  getFloatEnv("CACHE_THRESHOLD", 0.95),
		MaxRecords:      getIntEnv("MAX_RECORDS", 100),
		ExpiryDuration:  getDurationEnv("EXPIRY_DURATION", 7*24*time.Hour),
		DebounceWindow:  getDurationEnv("DEBOUNCE_WINDOW", 2*time.Second),
		MinInputLength:  getIntEnv("MIN_INPUT_LENGTH", 50),
		MaxInputLength:  getIntEnv("MAX_INPUT_LENGTH", 10000),
		GenerateTimeout: getDurationEnv("GENERATE_TIMEOUT", 30*time.Second),

		CleanupInterval: getDurationEnv("CLEANUP_INTERVAL", 1*time.Hour),

		OverridesPath: getEnv("OVERRIDES_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr     string
	LogLevel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	GoogleAIAPIKey   string
	GeminiBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	PlacesAPIKey string
	MapsBaseURL  string

	RedisURL     string
	CacheTTL     time.Duration
	RateLimitRPM int

	OTLPEndpoint string

	// Per-call deadlines. Maps calls are short lookups, LLM calls can
	// legitimately run for minutes.
	MapsTimeout time.Duration
	LLMTimeout  time.Duration

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:             getEnv("ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GoogleAIAPIKey:   getEnv("GOOGLE_API_KEY", ""),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
		PlacesAPIKey:     getEnv("GOOGLE_PLACES_API_KEY", ""),
		MapsBaseURL:      getEnv("MAPS_BASE_URL", "https://maps.googleapis.com"),
		RedisURL:         getEnv("REDIS_URL", ""),
		CacheTTL:         getDurationEnv("CACHE_TTL", 2*time.Minute),
		RateLimitRPM:     getIntEnv("RATE_LIMIT_RPM", 60),
		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", ""),
		MapsTimeout:      getDurationEnv("MAPS_TIMEOUT", 10*time.Second),
		LLMTimeout:       getDurationEnv("LLM_TIMEOUT", 120*time.Second),
		ShutdownTimeout:  getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

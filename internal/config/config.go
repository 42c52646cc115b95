// Package config loads service configuration from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the heat-score service.
type Config struct {
	AppName string

	// Server settings
	Host string
	Port int

	// Persistence
	DatabaseURL string
	RedisURL    string

	// Upstream feed API
	HeatlinkAPIURL  string
	HeatlinkTimeout time.Duration

	// CORS
	AllowedOrigins []string

	// Logging
	LogLevel string
	Debug    bool
}

// Load reads configuration from environment variables. DATABASE_URL,
// REDIS_URL and HEATLINK_API_URL are required; everything else has a
// default.
func Load() (Config, error) {
	cfg := Config{
		AppName:         "heatscore",
		Host:            getEnv("HOST", "0.0.0.0"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		HeatlinkAPIURL:  os.Getenv("HEATLINK_API_URL"),
		HeatlinkTimeout: 60 * time.Second,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return cfg, fmt.Errorf("config: REDIS_URL is required")
	}
	if cfg.HeatlinkAPIURL == "" {
		return cfg, fmt.Errorf("config: HEATLINK_API_URL is required")
	}

	port := getEnv("PORT", "8080")
	p, err := strconv.Atoi(port)
	if err != nil {
		return cfg, fmt.Errorf("config: invalid PORT %q: %w", port, err)
	}
	cfg.Port = p

	if raw := os.Getenv("HEATLINK_API_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid HEATLINK_API_TIMEOUT %q: %w", raw, err)
		}
		cfg.HeatlinkTimeout = time.Duration(secs) * time.Second
	}

	origins, err := parseOrigins(os.Getenv("ALLOWED_ORIGINS"))
	if err != nil {
		return cfg, err
	}
	cfg.AllowedOrigins = origins

	if raw := os.Getenv("DEBUG"); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid DEBUG %q: %w", raw, err)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

// parseOrigins accepts either a comma-separated list or a JSON array.
func parseOrigins(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var origins []string
		if err := json.Unmarshal([]byte(raw), &origins); err != nil {
			return nil, fmt.Errorf("config: invalid ALLOWED_ORIGINS JSON: %w", err)
		}
		return origins, nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package config holds client runtime configuration loaded from
// environment variables, with flag values taking precedence in main.
package config

import (
	"os"
	"time"
)

// Config собирает настройки клиента
type Config struct {
	ServerURL   string
	WSUrl       string
	DBPath      string
	CacheDBPath string
	IdleTimeout time.Duration
}

// Load reads configuration from environment variables.
// Missing values fall back to local-development defaults.
func Load() *Config {
	return &Config{
		ServerURL:   getEnv("FITZONE_SERVER_URL", "http://localhost:8080"),
		WSUrl:       getEnv("FITZONE_WS_URL", "ws://localhost:8080/ws-memberships"),
		DBPath:      getEnv("FITZONE_DB", "fitzone-client.db"),
		CacheDBPath: getEnv("FITZONE_CACHE_DB", "fitzone-cache.db"),
		IdleTimeout: getEnvDuration("FITZONE_IDLE_TIMEOUT", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

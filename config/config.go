/*
config.go - Runtime configuration

PURPOSE:
  Reads server settings from the environment. A .env file in the working
  directory is loaded first when present; real environment variables win.

KEYS:
  FORECAST_PORT                HTTP port (default: 8080)
  FORECAST_DB_PATH             SQLite database path (default: forecast.db)
  FORECAST_LOG_LEVEL           debug | info | warn | error (default: info)
  FORECAST_CORS_ORIGINS        Comma-separated allowed origins
  FORECAST_SCHEDULER_ENABLED   Apply due planned changes in the background (default: false)
  FORECAST_SCHEDULER_INTERVAL  Go duration between sweeps (default: 1h)

Malformed numbers, booleans and durations fall back to their defaults.

SEE ALSO:
  - cmd/server/main.go: Flags override Port and DBPath
*/
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port     int
	DBPath   string
	LogLevel string

	CORSOrigins []string

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
}

// Load reads .env (if any) and then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Port:              getEnvInt("FORECAST_PORT", 8080),
		DBPath:            getEnv("FORECAST_DB_PATH", "forecast.db"),
		LogLevel:          strings.ToLower(getEnv("FORECAST_LOG_LEVEL", "info")),
		CORSOrigins:       getEnvList("FORECAST_CORS_ORIGINS"),
		SchedulerEnabled:  getEnvBool("FORECAST_SCHEDULER_ENABLED", false),
		SchedulerInterval: getEnvDuration("FORECAST_SCHEDULER_INTERVAL", time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// getEnvList splits a comma list, dropping blanks. Nil when unset.
func getEnvList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

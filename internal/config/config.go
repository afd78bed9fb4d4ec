package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Redis (optional, only used to fan out live updates between instances)
	RedisURL string

	// JWT
	JWTSecret       string
	PlannerTokenTTL time.Duration

	// Planner
	PlannerTimezone string
	PlannerIdleTTL  time.Duration

	// Calendar export
	CalendarProduct string
	CalendarDomain  string

	// Rate limiting
	RateLimitPerMinute int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:          mustGetEnv("JWT_SECRET"),
		PlannerTokenTTL:    getEnvAsDurationOrDefault("PLANNER_TOKEN_TTL", 12*time.Hour),
		PlannerTimezone:    getEnvOrDefault("PLANNER_TIMEZONE", "Local"),
		PlannerIdleTTL:     getEnvAsDurationOrDefault("PLANNER_IDLE_TTL", 12*time.Hour),
		CalendarProduct:    getEnvOrDefault("CALENDAR_PRODUCT", "StudyFlow AI"),
		CalendarDomain:     getEnvOrDefault("CALENDAR_DOMAIN", "studyflow.ai"),
		RateLimitPerMinute: getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 120),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	// A token must not outlive its planner: once the sweep drops an idle
	// planner, a still-valid token would silently get a fresh empty one.
	if cfg.PlannerTokenTTL > cfg.PlannerIdleTTL {
		cfg.PlannerTokenTTL = cfg.PlannerIdleTTL
	}

	return cfg
}

// Location resolves PlannerTimezone. Unknown names fall back to time.Local.
func (c *Config) Location() *time.Location {
	if c.PlannerTimezone == "" || c.PlannerTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.PlannerTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

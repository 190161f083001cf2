// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Required values halt
// startup when missing; the tuning knobs fall back to defaults that
// suit a single-node deployment.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	DBUser       string        // database username
	DBPass       string        // database password (optional)
	DBHost       string        // database host address
	DBPort       string        // database port number
	DBName       string        // database name
	JWTSecret    string        // secret used to verify JWTs
	AmqpURL      string        // RabbitMQ URL (optional; events stay local when empty)
	HoldWindow   time.Duration // how long a PENDING order keeps its seats
	SweepEvery   time.Duration // interval between expiry sweep runs
	ReminderLead time.Duration // how far ahead of start a showtime reminder fires
	CacheTTL     time.Duration // availability snapshot lifetime in Redis
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AmqpURL:      os.Getenv("RABBITMQ_URL"),
		HoldWindow:   seconds("HOLD_WINDOW_SEC", 600),
		SweepEvery:   seconds("SWEEP_INTERVAL_SEC", 30),
		ReminderLead: seconds("REMINDER_LEAD_SEC", 3600),
		CacheTTL:     seconds("AVAILABILITY_CACHE_TTL_SEC", 5),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// seconds reads an integer number of seconds from the environment,
// falling back to def when the variable is unset.  A value that is
// present but malformed is a fatal configuration error.
func seconds(key string, def int) time.Duration {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		log.Fatalf("invalid value for %s: %q", key, s)
	}
	return time.Duration(n) * time.Second
}

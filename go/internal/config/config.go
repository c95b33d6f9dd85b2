package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port                 string
	LogLevel             zerolog.Level
	ActorsConfig         string
	TickInterval         time.Duration
	SessionIdleTimeout   time.Duration
	SessionReapInterval  time.Duration
	NATSURL              string
	ResultsStream        string
	ResultsSubjectPrefix string
}

// Load reads a .env file if present, then PIXELGUESS settings from the
// environment, falling back to defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	return FromEnv()
}

// FromEnv reads the configuration from the environment only.
func FromEnv() Config {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             level,
		ActorsConfig:         getEnv("ACTORS_CONFIG", ""),
		TickInterval:         getEnvAsDuration("TICK_INTERVAL", time.Second),
		SessionIdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionReapInterval:  getEnvAsDuration("SESSION_REAP_INTERVAL", time.Minute),
		NATSURL:              getEnv("NATS_URL", ""),
		ResultsStream:        getEnv("RESULTS_STREAM", "PIXELGUESS_RESULTS"),
		ResultsSubjectPrefix: getEnv("RESULTS_SUBJECT_PREFIX", "pixelguess.results"),
	}
}

// Registry loads the actor registry from ActorsConfig, or the built-in actors
// when no file is configured.
func (c Config) Registry() (*actors.Registry, error) {
	if c.ActorsConfig == "" {
		return actors.DefaultRegistry(), nil
	}
	return actors.LoadRegistry(c.ActorsConfig)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") or whole seconds ("2").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs := getEnvAsInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
	return defaultValue
}

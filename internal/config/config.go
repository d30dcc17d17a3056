// Package config reads runtime settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	insecureSecretPlaceholder = "change_me_in_production"
	minSecretKeyLength        = 32
)

var (
	ErrSecretKeyMissing  = errors.New("SECRET_KEY is required")
	ErrSecretKeyInsecure = errors.New("SECRET_KEY uses the insecure placeholder")
	ErrSecretKeyTooShort = fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	ErrUnknownDriver     = errors.New("unknown DB_DRIVER")
)

type Config struct {
	Port                  string
	DBDriver              string
	DBPath                string
	DatabaseURL           string
	SecretKey             string
	TokenTTL              time.Duration
	Location              *time.Location
	CORSOrigins           string
	LogMode               string
	GeminiAPIKey          string
	GeminiModel           string
	GeminiEndpoint        string
	KafkaBrokers          []string
	KafkaCompletionTopic  string
	GenerateRatePerMinute int
}

// LoadDotEnv populates the process environment from path when the file exists.
// Variables already present in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load() (Config, error) {
	secret, err := ResolveSecretKey()
	if err != nil {
		return Config{}, err
	}

	driver, err := resolveDriver()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		DBDriver:              driver,
		DBPath:                getEnv("DB_PATH", filepath.Join("data", "fittrack.db")),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		SecretKey:             secret,
		TokenTTL:              getDurationEnv("TOKEN_TTL", time.Hour),
		Location:              loadLocation(getEnv("TZ", "UTC")),
		CORSOrigins:           getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000,http://localhost:5174"),
		LogMode:               getEnv("LOG_MODE", "dev"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "models/gemini-2.0-flash"),
		GeminiEndpoint:        getEnv("GEMINI_ENDPOINT", ""),
		KafkaBrokers:          splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaCompletionTopic:  getEnv("KAFKA_COMPLETION_TOPIC", "challenge_completions"),
		GenerateRatePerMinute: getIntEnv("GENERATE_RATE_PER_MINUTE", 3),
	}
	if cfg.DBDriver == DriverPostgres && cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required for the postgres driver")
	}
	return cfg, nil
}

func ResolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	switch {
	case secret == "":
		return "", ErrSecretKeyMissing
	case secret == insecureSecretPlaceholder:
		return "", ErrSecretKeyInsecure
	case len(secret) < minSecretKeyLength:
		return "", ErrSecretKeyTooShort
	}
	return secret, nil
}

func resolveDriver() (string, error) {
	driver := strings.ToLower(getEnv("DB_DRIVER", ""))
	switch driver {
	case "":
		if getEnv("DATABASE_URL", "") != "" {
			return DriverPostgres, nil
		}
		return DriverSQLite, nil
	case DriverSQLite, DriverPostgres:
		return driver, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownDriver, driver)
	}
}

func loadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return location
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

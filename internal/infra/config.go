package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUpstreamBaseURL is the remote API serving generation and payment
// endpoints, used when UPSTREAM_API_URL is unset.
const DefaultUpstreamBaseURL = "https://seocontentgeneration.onrender.com"

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	UpstreamBaseURL string
	DatabaseURL     string
	QuotaDBPath     string
	JWTSecret       string
	GoogleClientID  string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string

	PaymentPollInterval time.Duration
	PaymentDeadline     time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. A .env file is honored when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		UpstreamBaseURL:  getEnv("UPSTREAM_API_URL", DefaultUpstreamBaseURL),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		QuotaDBPath:      getEnv("QUOTA_DB_PATH", "./data/quota.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GoogleClientID:   os.Getenv("GOOGLE_CLIENT_ID"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),

		PaymentPollInterval: time.Second * time.Duration(getEnvInt("PAYMENT_POLL_INTERVAL_SECONDS", 5)),
		PaymentDeadline:     time.Second * time.Duration(getEnvInt("PAYMENT_DEADLINE_SECONDS", 120)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

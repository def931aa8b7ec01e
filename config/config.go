package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIRONMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		// A missing .env file is fine in development
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV string
	PORT   int

	// Store selection: memory (default) or postgres
	STORE_DRIVER string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string

	// JWT Configuration
	JWT_ACCESS_SECRET  string
	JWT_REFRESH_SECRET string
	JWT_ISSUER         string
	JWT_ACCESS_TTL     time.Duration
	JWT_REFRESH_TTL    time.Duration
	BCRYPT_COST        int

	// Redis Configuration, optional
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       int

	// Stripe, sandbox gateway when the key is empty
	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	// S3-compatible object storage, in-memory when the bucket is empty
	STORAGE_BUCKET     string
	STORAGE_REGION     string
	STORAGE_ENDPOINT   string
	STORAGE_ACCESS_KEY string
	STORAGE_SECRET_KEY string
	STORAGE_PUBLIC_URL string

	// OpenAI-compatible language model
	AI_API_KEY  string
	AI_BASE_URL string
	AI_MODEL    string
	AI_TIMEOUT  time.Duration

	ALLOWED_ORIGINS string
	RATE_LIMIT_MAX  int
	CRON_ENABLED    bool
}

// IsProduction reports whether GO_ENV is production
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// DSN builds the Postgres connection string
func (e *EnvironmentVariable) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		e.DB_HOST,
		e.DB_USER_NAME,
		e.DB_PASSWORD,
		e.DB_NAME,
		e.DB_PORT,
		e.DB_SSL_MODE,
	)
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 15m: %w", key, err)
	}
	return v, nil
}

func Get() (*EnvironmentVariable, error) {
	env := &EnvironmentVariable{
		GO_ENV:       getString("GO_ENV", "development"),
		STORE_DRIVER: getString("STORE_DRIVER", "memory"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getString("DB_HOST", "localhost"),
		DB_PORT:      getString("DB_PORT", "5432"),
		DB_SSL_MODE:  getString("DB_SSL_MODE", "disable"),
		// JWT
		JWT_ACCESS_SECRET:  os.Getenv("JWT_ACCESS_SECRET"),
		JWT_REFRESH_SECRET: os.Getenv("JWT_REFRESH_SECRET"),
		JWT_ISSUER:         getString("JWT_ISSUER", "coursehub-api"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		// Stripe
		STRIPE_SECRET_KEY:     os.Getenv("STRIPE_SECRET_KEY"),
		STRIPE_WEBHOOK_SECRET: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		// Storage
		STORAGE_BUCKET:     os.Getenv("STORAGE_BUCKET"),
		STORAGE_REGION:     getString("STORAGE_REGION", "us-east-1"),
		STORAGE_ENDPOINT:   os.Getenv("STORAGE_ENDPOINT"),
		STORAGE_ACCESS_KEY: os.Getenv("STORAGE_ACCESS_KEY"),
		STORAGE_SECRET_KEY: os.Getenv("STORAGE_SECRET_KEY"),
		STORAGE_PUBLIC_URL: os.Getenv("STORAGE_PUBLIC_URL"),
		// AI
		AI_API_KEY:  os.Getenv("AI_API_KEY"),
		AI_BASE_URL: getString("AI_BASE_URL", "https://api.openai.com/v1"),
		AI_MODEL:    getString("AI_MODEL", "gpt-4o-mini"),

		ALLOWED_ORIGINS: getString("ALLOWED_ORIGINS", "*"),
		CRON_ENABLED:    os.Getenv("CRON_ENABLED") != "false",
	}

	var err error
	if env.PORT, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if env.REDIS_DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if env.BCRYPT_COST, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if env.RATE_LIMIT_MAX, err = getInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if env.JWT_ACCESS_TTL, err = getDuration("JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if env.JWT_REFRESH_TTL, err = getDuration("JWT_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if env.AI_TIMEOUT, err = getDuration("AI_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	if err := env.validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *EnvironmentVariable) validate() error {
	if e.STORE_DRIVER != "memory" && e.STORE_DRIVER != "postgres" {
		return fmt.Errorf("STORE_DRIVER must be memory or postgres, got %q", e.STORE_DRIVER)
	}
	if e.BCRYPT_COST < 4 || e.BCRYPT_COST > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", e.BCRYPT_COST)
	}

	if e.JWT_ACCESS_SECRET == "" || e.JWT_REFRESH_SECRET == "" {
		if e.IsProduction() {
			return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")
		}
		// Development fallbacks, never valid in production
		if e.JWT_ACCESS_SECRET == "" {
			e.JWT_ACCESS_SECRET = "dev-access-secret-change-me"
		}
		if e.JWT_REFRESH_SECRET == "" {
			e.JWT_REFRESH_SECRET = "dev-refresh-secret-change-me"
		}
	}
	if e.JWT_ACCESS_SECRET == e.JWT_REFRESH_SECRET {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if e.IsProduction() && e.STRIPE_SECRET_KEY != "" && e.STRIPE_WEBHOOK_SECRET == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return nil
}

// Package config loads application settings from the environment, with a
// .env file picked up in development via godotenv.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Images   ImageConfig
	Sweeper  SweeperConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type AuthConfig struct {
	// JWTSecret signs session tokens. Required.
	JWTSecret string
	// IdentitySecret and IdentityIssuer verify provider-issued ID tokens
	// posted to the external login endpoint. External login is disabled
	// when the secret is empty.
	IdentitySecret string
	IdentityIssuer string
	// Google OAuth (browser redirect flow). Disabled when the client ID
	// is empty.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool
}

type PaymentConfig struct {
	// ProviderURL and APIKey configure the payment gateway. Payments are
	// disabled when the URL is empty.
	ProviderURL string
	APIKey      string
}

type ImageConfig struct {
	// UploadURL and APIKey configure the cover image host. Inline image
	// uploads are disabled when the URL is empty.
	UploadURL string
	APIKey    string
}

type SweeperConfig struct {
	// Schedule is a cron expression for the stale-order sweep.
	Schedule string
	// MaxAge is how long an unpaid pending order lives before the sweep
	// cancels it.
	MaxAge time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment
// variables win over it.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "data/booknest.db"),
		},
		Auth: AuthConfig{
			JWTSecret:          os.Getenv("JWT_SECRET"),
			IdentitySecret:     os.Getenv("IDENTITY_PROVIDER_SECRET"),
			IdentityIssuer:     getEnv("IDENTITY_PROVIDER_ISSUER", "https://accounts.google.com"),
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
			SecureCookies:      getEnvBool("SECURE_COOKIES", false),
		},
		Payment: PaymentConfig{
			ProviderURL: os.Getenv("PAYMENT_PROVIDER_URL"),
			APIKey:      os.Getenv("PAYMENT_API_KEY"),
		},
		Images: ImageConfig{
			UploadURL: getEnv("IMAGE_UPLOAD_URL", ""),
			APIKey:    os.Getenv("IMAGE_API_KEY"),
		},
		Sweeper: SweeperConfig{
			Schedule: getEnv("ORDER_SWEEP_SCHEDULE", "*/30 * * * *"),
			MaxAge:   getEnvDuration("ORDER_SWEEP_MAX_AGE", 48*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

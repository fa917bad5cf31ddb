package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	JWTSecret         string
	AdminPassword     string
	AdminPasswordHash string

	MercadoPagoAccessToken   string
	MercadoPagoBaseURL       string
	MercadoPagoWebhookSecret string
	NotificationURL          string
	PayerEmailDomain         string
	ChargeExpiration         time.Duration

	SweepInterval time.Duration
	SweepMinAge   time.Duration

	CORSAllowOrigins string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

// Load reads the full configuration. It fails when a required value is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        GetEnv("PORT", "3000"),
		DatabaseURL: GetEnv("DATABASE_URL", ""),
		RedisURL:    GetEnv("REDIS_URL", ""),

		DBMaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),

		JWTSecret:         GetEnv("JWT_SECRET", ""),
		AdminPassword:     GetEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: GetEnv("ADMIN_PASSWORD_HASH", ""),

		MercadoPagoAccessToken:   GetEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
		MercadoPagoBaseURL:       GetEnv("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com"),
		MercadoPagoWebhookSecret: GetEnv("MERCADOPAGO_WEBHOOK_SECRET", ""),
		NotificationURL:          GetEnv("NOTIFICATION_URL", ""),
		PayerEmailDomain:         GetEnv("PAYER_EMAIL_DOMAIN", "smartcoffee.com"),
		ChargeExpiration:         GetDurationEnv("CHARGE_EXPIRATION", 30*time.Minute),

		SweepInterval: GetDurationEnv("SWEEP_INTERVAL", time.Minute),
		SweepMinAge:   GetDurationEnv("SWEEP_MIN_AGE", 2*time.Minute),

		CORSAllowOrigins: GetEnv("CORS_ALLOW_ORIGINS", "*"),
	}

	switch {
	case cfg.DatabaseURL == "":
		return nil, errors.New("DATABASE_URL is required")
	case cfg.JWTSecret == "":
		return nil, errors.New("JWT_SECRET is required")
	case cfg.AdminPassword == "" && cfg.AdminPasswordHash == "":
		return nil, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	case cfg.MercadoPagoAccessToken == "":
		return nil, errors.New("MERCADOPAGO_ACCESS_TOKEN is required")
	}

	return cfg, nil
}

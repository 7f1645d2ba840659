package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all environment-driven settings for the storefront backend.
type Config struct {
	Env  string
	Port string

	MongoURL string
	MongoDB  string

	RedisURL string

	KafkaBrokers string
	KafkaTopic   string

	JWTSecret string

	// SePay QR settings: receiving account, bank identifier and the
	// payment-code scheme prefix embedded into transfer memos.
	SepayAccount    string
	SepayBank       string
	SepayPrefix     string
	SepayWebhookKey string

	OTPExpiry time.Duration
	CacheTTL  time.Duration
}

// Load reads configuration from environment variables and validates the
// required fields.
func Load() (*Config, error) {
	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		MongoURL:        getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "freshfood"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "order.events"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		SepayAccount:    os.Getenv("SEPAY_QR_ACC"),
		SepayBank:       os.Getenv("SEPAY_QR_BANK"),
		SepayPrefix:     getEnv("SEPAY_QR_PREFIX", "SEVQR"),
		SepayWebhookKey: os.Getenv("SEPAY_WEBHOOK_KEY"),
		OTPExpiry:       5 * time.Minute,
		CacheTTL:        10 * time.Minute,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SepayAccount == "" {
		return nil, fmt.Errorf("SEPAY_QR_ACC is required")
	}
	if cfg.SepayBank == "" {
		return nil, fmt.Errorf("SEPAY_QR_BANK is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/status"
)

type Config struct {
	DatabaseURL         string
	RedisURL            string
	KafkaBrokers        string
	NatsURL             string
	JaegerEndpoint      string
	Port                string
	SiteURL             string
	NotificationPath    string
	SuccessPath         string
	StoreCurrency       string
	SheepyAPIURL        string
	GatewaySettingsFile string
	AdminToken          string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        os.Getenv("KAFKA_BROKERS"),
		NatsURL:             os.Getenv("NATS_URL"),
		JaegerEndpoint:      os.Getenv("JAEGER_ENDPOINT"),
		Port:                getEnv("PORT", "8084"),
		SiteURL:             getEnv("SITE_URL", "http://localhost:8084"),
		NotificationPath:    getEnv("NOTIFICATION_PATH", "/wp-json/sheepy-payments/gateway"),
		SuccessPath:         getEnv("SUCCESS_PATH", "/checkout/order-received/"),
		StoreCurrency:       getEnv("STORE_CURRENCY", "USD"),
		SheepyAPIURL:        getEnv("SHEEPY_API_URL", "https://api.sheepy.com"),
		GatewaySettingsFile: os.Getenv("GATEWAY_SETTINGS_FILE"),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadGatewaySettings reads a YAML seed of the gateway settings. Fields
// missing from the file keep their defaults; order state overrides naming an
// unknown status or state are dropped.
func LoadGatewaySettings(path string) (*models.GatewaySettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gateway settings: %w", err)
	}

	settings := models.DefaultGatewaySettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse gateway settings %s: %w", path, err)
	}
	settings.StatusOverrides = status.Sanitize(settings.StatusOverrides)

	return settings, nil
}

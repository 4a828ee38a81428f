package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string

	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	OpenAIAPIKey      string
	ElasticsearchNode string
	SlackWebhookURL   string
	WebhookURL        string

	MetricsPort string

	WatchedFolder     string
	BackfillWindow    time.Duration
	IdleTimeout       time.Duration
	KeepaliveInterval time.Duration
	PollInterval      time.Duration
}

func NewConfig() (*Config, error) {
	env := os.Getenv("LEADBOX_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	backfillDays, err := getEnvInt("LEADBOX_BACKFILL_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}

	idleSeconds, err := getEnvInt("LEADBOX_IDLE_TIMEOUT_SECONDS", 300)
	if err != nil {
		return nil, err
	}

	keepaliveSeconds, err := getEnvInt("LEADBOX_KEEPALIVE_INTERVAL_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	pollSeconds, err := getEnvInt("LEADBOX_POLL_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("LEADBOX_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("LEADBOX_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("LEADBOX_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("LEADBOX_DB_USER", "leadbox"),
		DBPassword:          os.Getenv("LEADBOX_DB_PASSWORD"),
		DBName:              getEnvOrDefault("LEADBOX_DB_NAME", "leadbox"),
		DBSSLMode:           getEnvOrDefault("LEADBOX_DB_SSLMODE", "disable"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		ElasticsearchNode:   getEnvOrDefault("ELASTICSEARCH_NODE", "http://localhost:9200"),
		SlackWebhookURL:     os.Getenv("SLACK_WEBHOOK_URL"),
		WebhookURL:          os.Getenv("WEBHOOK_URL"),
		MetricsPort:         getEnvOrDefault("LEADBOX_METRICS_PORT", "9091"),
		WatchedFolder:       getEnvOrDefault("LEADBOX_WATCHED_FOLDER", "INBOX"),
		BackfillWindow:      time.Duration(backfillDays) * 24 * time.Hour,
		IdleTimeout:         time.Duration(idleSeconds) * time.Second,
		KeepaliveInterval:   time.Duration(keepaliveSeconds) * time.Second,
		PollInterval:        time.Duration(pollSeconds) * time.Second,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("LEADBOX_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("LEADBOX_DB_PASSWORD is required")
	}

	if c.BackfillWindow <= 0 {
		return fmt.Errorf("LEADBOX_BACKFILL_WINDOW_DAYS must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

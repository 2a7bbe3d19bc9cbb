package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	Twilio   TwilioConfig
	Admin    AdminConfig
	OTP      OTPConfig
	Slack    SlackConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromPhone  string
}

type AdminConfig struct {
	APIKey        string
	SessionSecret string
	SessionExpiry time.Duration
}

type OTPConfig struct {
	Expiry      time.Duration
	MaxAttempts int
}

type SlackConfig struct {
	WebhookURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "AuraWebsiteTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromPhone:  getEnv("TWILIO_PHONE_NUMBER", ""),
		},
		Admin: AdminConfig{
			APIKey:        getEnv("ADMIN_API_KEY", ""),
			SessionSecret: getEnv("SESSION_SECRET_KEY", ""),
			SessionExpiry: getEnvAsDuration("SESSION_EXPIRY", 8*time.Hour),
		},
		OTP: OTPConfig{
			Expiry:      getEnvAsDuration("OTP_EXPIRY", 5*time.Minute),
			MaxAttempts: getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
		},
		Slack: SlackConfig{
			WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		},
	}

	if cfg.Admin.APIKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY environment variable is required")
	}

	if cfg.Admin.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET_KEY environment variable is required")
	}

	if len(cfg.Admin.SessionSecret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	return cfg, nil
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

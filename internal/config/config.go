package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Webhook   WebhookConfig
	Clerk     ClerkConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// WebhookConfig configures the inbound identity webhook endpoint.
// SigningSecret is the shared secret issued by the identity provider
// (Clerk Dashboard -> Webhooks). Without it inbound events cannot be
// authenticated, so its absence is a startup failure, not a per-request 500.
type WebhookConfig struct {
	SigningSecret string
	Tolerance     time.Duration
}

// ClerkConfig configures outbound calls to the identity provider API
// (metadata writeback) and session-token verification for the read API.
type ClerkConfig struct {
	APIURL      string
	SecretKey   string
	FrontendAPI string
	Timeout     time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5002")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "cineverse")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("WEBHOOK_TOLERANCE_SECONDS", 300)
	viper.SetDefault("CLERK_API_URL", "https://api.clerk.com")
	viper.SetDefault("CLERK_TIMEOUT_SECONDS", 10)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Webhook: WebhookConfig{
			SigningSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
			Tolerance:     time.Duration(viper.GetInt("WEBHOOK_TOLERANCE_SECONDS")) * time.Second,
		},
		Clerk: ClerkConfig{
			APIURL:      viper.GetString("CLERK_API_URL"),
			SecretKey:   os.Getenv("CLERK_SECRET_KEY"),
			FrontendAPI: viper.GetString("CLERK_FRONTEND_API"),
			Timeout:     time.Duration(viper.GetInt("CLERK_TIMEOUT_SECONDS")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// The signing secret authenticates every inbound event; refusing to
	// start beats serving a webhook endpoint that accepts anything.
	if cfg.Webhook.SigningSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SIGNING_SECRET is required")
	}

	return cfg, nil
}

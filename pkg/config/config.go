// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parleychat/sharegate/pkg/identity"
	"github.com/parleychat/sharegate/pkg/storage"
)

// GitHub is the default identity provider; its user-info payload matches
// the profile shape the identity package decodes.
const (
	defaultAuthURL     = "https://github.com/login/oauth/authorize"
	defaultTokenURL    = "https://github.com/login/oauth/access_token"
	defaultUserInfoURL = "https://api.github.com/user"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Provider      identity.Config
	Storage       storage.Config
	Observability ObservabilityConfig

	// TokenSecret signs every session token.
	TokenSecret string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
}

// LoadConfig loads and validates configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SHAREGATE_HOST", "0.0.0.0"),
			Port:            getEnv("SHAREGATE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SHAREGATE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SHAREGATE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SHAREGATE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SHAREGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Provider: identity.Config{
			ClientID:     getEnv("SHAREGATE_OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("SHAREGATE_OAUTH_CLIENT_SECRET", ""),
			AuthURL:      getEnv("SHAREGATE_OAUTH_AUTH_URL", defaultAuthURL),
			TokenURL:     getEnv("SHAREGATE_OAUTH_TOKEN_URL", defaultTokenURL),
			UserInfoURL:  getEnv("SHAREGATE_OAUTH_USER_INFO_URL", defaultUserInfoURL),
			RedirectURL:  getEnv("SHAREGATE_OAUTH_REDIRECT_URL", ""),
		},
		Storage:     loadStorageConfig(),
		TokenSecret: getEnv("SHAREGATE_TOKEN_SECRET", ""),
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("SHAREGATE_LOG_LEVEL", "info"),
			MetricsEnabled: getEnvBool("SHAREGATE_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if storageType := getEnv("SHAREGATE_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = storageType
	}
	if endpoint := getEnv("SHAREGATE_S3_ENDPOINT", ""); endpoint != "" {
		cfg.S3Endpoint = endpoint
	}
	if region := getEnv("SHAREGATE_S3_REGION", ""); region != "" {
		cfg.S3Region = region
	}
	if bucket := getEnv("SHAREGATE_S3_BUCKET", ""); bucket != "" {
		cfg.S3Bucket = bucket
	}
	if accessKey := getEnv("SHAREGATE_S3_ACCESS_KEY", ""); accessKey != "" {
		cfg.S3AccessKey = accessKey
	}
	if secretKey := getEnv("SHAREGATE_S3_SECRET_KEY", ""); secretKey != "" {
		cfg.S3SecretKey = secretKey
	}
	if pathStyle := getEnv("SHAREGATE_S3_USE_PATH_STYLE", ""); pathStyle != "" {
		cfg.S3UsePathStyle = strings.EqualFold(pathStyle, "true")
	}
	return cfg
}

// Validate checks the configuration is complete enough to start.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.TokenSecret == "" {
		return fmt.Errorf("SHAREGATE_TOKEN_SECRET is required")
	}
	if c.Provider.ClientID == "" {
		return fmt.Errorf("SHAREGATE_OAUTH_CLIENT_ID is required")
	}
	if c.Provider.ClientSecret == "" {
		return fmt.Errorf("SHAREGATE_OAUTH_CLIENT_SECRET is required")
	}

	switch c.Storage.Type {
	case "memory":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("SHAREGATE_S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be s3 or memory)", c.Storage.Type)
	}
	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

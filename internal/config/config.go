package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds GMO payment gateway configuration
type GatewayConfig struct {
	BaseURL  string // Base URL for the GMO API (e.g. https://pt01.mul-pay.jp)
	SiteID   string // Site-level credential pair, used for member/card operations
	SitePass string
	ShopID   string // Shop-level credential pair, used for transaction operations
	ShopPass string
	Timeout  int // Request timeout in seconds (default: 30)

	// OrderIDPrefix is the local-only prefix stripped from cart IDs before
	// use as gateway order references (e.g. "dev-").
	OrderIDPrefix string
}

// SecretsConfig selects where gateway credentials are resolved from.
type SecretsConfig struct {
	// Backend is one of "env", "aws", "vault".
	Backend string

	// AWS Secrets Manager settings
	AWSRegion   string
	AWSEndpoint string

	// Vault settings
	VaultAddress string
	VaultToken   string
	VaultMount   string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "card_vault"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("GMO_BASE_URL", "https://pt01.mul-pay.jp"),
			SiteID:        getEnv("GMO_SITE_ID", ""),
			SitePass:      getEnv("GMO_SITE_PASS", ""),
			ShopID:        getEnv("GMO_SHOP_ID", ""),
			ShopPass:      getEnv("GMO_SHOP_PASS", ""),
			Timeout:       getEnvAsInt("GMO_TIMEOUT", 30),
			OrderIDPrefix: getEnv("ORDER_ID_PREFIX", ""),
		},
		Secrets: SecretsConfig{
			Backend:      getEnv("SECRETS_BACKEND", "env"),
			AWSRegion:    getEnv("AWS_REGION", "ap-northeast-1"),
			AWSEndpoint:  getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress: getEnv("VAULT_ADDR", ""),
			VaultToken:   getEnv("VAULT_TOKEN", ""),
			VaultMount:   getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Gateway.SiteID == "" {
		return nil, fmt.Errorf("GMO_SITE_ID is required")
	}
	if cfg.Gateway.ShopID == "" {
		return nil, fmt.Errorf("GMO_SHOP_ID is required")
	}
	switch cfg.Secrets.Backend {
	case "env", "aws", "vault":
	default:
		return nil, fmt.Errorf("SECRETS_BACKEND must be one of env, aws, vault (got %q)", cfg.Secrets.Backend)
	}
	if cfg.Secrets.Backend == "vault" && cfg.Secrets.VaultAddress == "" {
		return nil, fmt.Errorf("VAULT_ADDR is required when SECRETS_BACKEND=vault")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

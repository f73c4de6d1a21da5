package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Campaign CampaignConfig `yaml:"campaign"`
	Reports  ReportsConfig  `yaml:"reports"`
	Site     SiteConfig     `yaml:"site"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis settings for the campaign intent lock. Optional:
// with no address the orchestrator falls back to a Postgres advisory lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SendGridConfig holds delivery provider API configuration
type SendGridConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SendGridConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WebhookConfig holds inbound callback verification settings. An empty
// signing key disables signature verification, for local development only.
type WebhookConfig struct {
	SigningKey       string `yaml:"signing_key"`
	MaxClockSkewSecs int    `yaml:"max_clock_skew_seconds"`
}

// CampaignConfig holds send pipeline tuning
type CampaignConfig struct {
	BatchSize      int `yaml:"batch_size"`
	BatchDelayMS   int `yaml:"batch_delay_ms"`
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

// BatchDelay returns the inter-batch pause as a duration
func (c CampaignConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// ReportsConfig holds analysis window defaults
type ReportsConfig struct {
	DeliverabilityWindowDays int `yaml:"deliverability_window_days"`
	SendTimeWindowDays       int `yaml:"send_time_window_days"`
}

// SiteConfig holds public website settings used when rendering email links
type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.SendGrid.TimeoutSeconds == 0 {
		cfg.SendGrid.TimeoutSeconds = 30
	}
	if cfg.SendGrid.BaseURL == "" {
		cfg.SendGrid.BaseURL = "https://api.sendgrid.com/v3"
	}
	if cfg.Webhook.MaxClockSkewSecs == 0 {
		cfg.Webhook.MaxClockSkewSecs = 600
	}
	if cfg.Campaign.BatchSize == 0 {
		cfg.Campaign.BatchSize = 10
	}
	if cfg.Campaign.BatchDelayMS == 0 {
		cfg.Campaign.BatchDelayMS = 1000
	}
	if cfg.Campaign.LockTTLSeconds == 0 {
		cfg.Campaign.LockTTLSeconds = 600
	}
	if cfg.Reports.DeliverabilityWindowDays == 0 {
		cfg.Reports.DeliverabilityWindowDays = 7
	}
	if cfg.Reports.SendTimeWindowDays == 0 {
		cfg.Reports.SendTimeWindowDays = 30
	}
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = "https://example.com"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// No config file: run on defaults plus env vars.
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.SendGrid.APIKey = v
	}
	if v := os.Getenv("SENDGRID_BASE_URL"); v != "" {
		cfg.SendGrid.BaseURL = v
	}
	if v := os.Getenv("SENDGRID_FROM_EMAIL"); v != "" {
		cfg.SendGrid.FromEmail = v
	}
	if v := os.Getenv("SENDGRID_FROM_NAME"); v != "" {
		cfg.SendGrid.FromName = v
	}
	if v := os.Getenv("WEBHOOK_SIGNING_KEY"); v != "" {
		cfg.Webhook.SigningKey = v
	}
	if v := os.Getenv("SITE_BASE_URL"); v != "" {
		cfg.Site.BaseURL = v
	}

	return cfg, nil
}

// Validate fails fast on configuration the server cannot start without.
func (cfg *Config) Validate() error {
	if cfg.Database.URL == "" {
		return errors.New("database url is required (database.url or DATABASE_URL)")
	}
	if cfg.SendGrid.APIKey == "" {
		return errors.New("sendgrid api key is required (sendgrid.api_key or SENDGRID_API_KEY)")
	}
	if cfg.SendGrid.FromEmail == "" {
		return errors.New("sendgrid from_email is required")
	}
	return nil
}

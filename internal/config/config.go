package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/report-card-viewer/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Lark      LarkConfig      `mapstructure:"lark"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Export    ExportConfig    `mapstructure:"export"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// GatewayConfig holds the backend gateway endpoints
type GatewayConfig struct {
	RESTURL      string        `mapstructure:"rest_url"`
	AuthURL      string        `mapstructure:"auth_url"`
	FunctionsURL string        `mapstructure:"functions_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the service account used when a request carries no token.
// AccessToken, when set, is used as-is instead of signing in.
type AuthConfig struct {
	Email       string `mapstructure:"email"`
	Password    string `mapstructure:"password"`
	AccessToken string `mapstructure:"access_token"`
}

// HasServiceAccount reports whether background jobs can authenticate
func (a AuthConfig) HasServiceAccount() bool {
	return a.AccessToken != "" || (a.Email != "" && a.Password != "")
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MigrationsDir overrides the migrations compiled into the binary
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// ReportingConfig holds calendar settings for periods and schedules
type ReportingConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// BatchConfig holds batch pacing
type BatchConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// ScheduleConfig holds the monthly report schedule
type ScheduleConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Hour          int           `mapstructure:"hour"`
}

// LarkConfig holds Lark notification configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	ChatID    string `mapstructure:"chat_id"`
	BaseURL   string `mapstructure:"base_url"`
}

// OpenAIConfig holds narrator configuration
type OpenAIConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	PromptsPath string `mapstructure:"prompts_path"`
}

// ExportConfig holds the export archive. An empty ArchiveDir disables it.
type ExportConfig struct {
	ArchiveDir     string   `mapstructure:"archive_dir"`
	ArchiveFormats []string `mapstructure:"archive_formats"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Load loads configuration from file and environment variables. A .env file
// next to the working directory is read first; variables already set win.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("gateway.timeout", 60*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/report_cards.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("reporting.timezone", "Local")

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.check_interval", 5*time.Minute)
	v.SetDefault("schedule.hour", 8)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("export.archive_formats", []string{"csv"})

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "report_cards")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	// Sensitive credentials from environment
	bindings := map[string]string{
		"gateway.rest_url":      "GATEWAY_REST_URL",
		"gateway.auth_url":      "GATEWAY_AUTH_URL",
		"gateway.functions_url": "GATEWAY_FUNCTIONS_URL",
		"gateway.api_key":       "GATEWAY_API_KEY",
		"auth.email":            "SERVICE_ACCOUNT_EMAIL",
		"auth.password":         "SERVICE_ACCOUNT_PASSWORD",
		"auth.access_token":     "SERVICE_ACCESS_TOKEN",
		"lark.app_id":           "LARK_APP_ID",
		"lark.app_secret":       "LARK_APP_SECRET",
		"lark.chat_id":          "LARK_CHAT_ID",
		"openai.api_key":        "OPENAI_API_KEY",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Gateway.RESTURL == "" {
		return fmt.Errorf("gateway.rest_url is required")
	}
	if c.Gateway.FunctionsURL == "" {
		return fmt.Errorf("gateway.functions_url is required")
	}
	if c.Gateway.APIKey == "" {
		return fmt.Errorf("gateway.api_key is required")
	}
	for key, raw := range map[string]string{
		"gateway.rest_url":      c.Gateway.RESTURL,
		"gateway.functions_url": c.Gateway.FunctionsURL,
		"gateway.auth_url":      c.Gateway.AuthURL,
	} {
		if raw == "" {
			continue
		}
		if err := utils.ValidateHTTPURL(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	if c.Auth.Email != "" {
		if err := utils.ValidateEmail(c.Auth.Email); err != nil {
			return fmt.Errorf("auth.email: %w", err)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("reporting.timezone: %w", err)
	}

	if c.Schedule.Enabled {
		if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
			return fmt.Errorf("schedule.hour must be between 0 and 23")
		}
		if !c.Auth.HasServiceAccount() {
			return fmt.Errorf("schedule requires auth.email and auth.password or auth.access_token")
		}
		if c.Auth.AccessToken == "" && c.Gateway.AuthURL == "" {
			return fmt.Errorf("gateway.auth_url is required for the service account")
		}
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
		if c.Lark.ChatID == "" {
			return fmt.Errorf("lark.chat_id is required")
		}
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	for _, f := range c.Export.ArchiveFormats {
		switch f {
		case "csv", "xlsx", "pdf":
		default:
			return fmt.Errorf("export.archive_formats: unknown format %q", f)
		}
	}

	return nil
}

// Location resolves the reporting timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Reporting.Timezone == "" || c.Reporting.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Reporting.Timezone)
}

// Package container provides dependency injection and lifecycle management
// for the report card service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/gateway"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/lark"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/openai"
	httpapi "github.com/garyjia/report-card-viewer/internal/interfaces/http"
)

// Config holds all configuration for the Container.
type Config struct {
	Server   httpapi.ServerConfig
	Gateway  gateway.Config
	Auth     AuthConfig
	Database DatabaseConfig

	// Location is the reporting calendar's timezone
	Location *time.Location

	Batch    BatchConfig
	Schedule ScheduleConfig
	Lark     LarkConfig
	OpenAI   OpenAIConfig
	Export   ExportConfig
	Metrics  MetricsConfig

	// Version is reported by /health
	Version string
}

// AuthConfig holds the service account credentials.
type AuthConfig struct {
	Email       string
	Password    string
	AccessToken string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir replaces the embedded migrations when set
	MigrationsDir string
}

// BatchConfig holds batch pacing.
type BatchConfig struct {
	MinInterval time.Duration
}

// ScheduleConfig holds the report schedule worker settings.
type ScheduleConfig struct {
	Enabled       bool
	CheckInterval time.Duration
	Hour          int
}

// LarkConfig holds Lark notification settings.
type LarkConfig struct {
	Enabled bool
	lark.Config
}

// OpenAIConfig holds narrator settings.
type OpenAIConfig struct {
	Enabled bool
	openai.Config

	// PromptsPath is a YAML prompt file; built-in prompts are used when empty
	PromptsPath string
}

// ExportConfig holds the export archive settings.
type ExportConfig struct {
	ArchiveDir     string
	ArchiveFormats []service.ExportFormat
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// DefaultConfig returns a Config with sensible defaults.
// Gateway URLs and keys must still be provided.
func DefaultConfig() *Config {
	return &Config{
		Server: httpapi.DefaultServerConfig(),
		Gateway: gateway.Config{
			Timeout: 60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         "data/report_cards.db",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Location: time.Local,
		Schedule: ScheduleConfig{
			CheckInterval: 5 * time.Minute,
			Hour:          8,
		},
		OpenAI: OpenAIConfig{
			Config: openai.Config{Model: "gpt-4o-mini"},
		},
		Export: ExportConfig{
			ArchiveFormats: []service.ExportFormat{service.ExportCSV},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "report_cards",
		},
		Version: "dev",
	}
}

// HasServiceAccount reports whether background jobs can authenticate.
func (c *Config) HasServiceAccount() bool {
	return c.Auth.AccessToken != "" || (c.Auth.Email != "" && c.Auth.Password != "")
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if err := c.validateGateway(); err != nil {
		return fmt.Errorf("gateway config: %w", err)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database config: path is required")
	}

	if c.Schedule.Enabled && !c.HasServiceAccount() {
		return fmt.Errorf("schedule config: a service account is required")
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "" || c.Lark.ChatID == "") {
		return fmt.Errorf("lark config: app_id, app_secret and chat_id are required")
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai config: api_key is required")
	}

	return nil
}

func (c *Config) validateGateway() error {
	if c.Gateway.RESTURL == "" {
		return fmt.Errorf("rest_url is required")
	}
	if c.Gateway.FunctionsURL == "" {
		return fmt.Errorf("functions_url is required")
	}
	if c.Gateway.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

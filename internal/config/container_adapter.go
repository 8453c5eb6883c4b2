package config

import (
	"fmt"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/container"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/gateway"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/lark"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/openai"
	httpapi "github.com/garyjia/report-card-viewer/internal/interfaces/http"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig(version string) (*container.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("reporting.timezone: %w", err)
	}

	formats := make([]service.ExportFormat, 0, len(c.Export.ArchiveFormats))
	for _, f := range c.Export.ArchiveFormats {
		format, err := service.ParseExportFormat(f)
		if err != nil {
			return nil, fmt.Errorf("export.archive_formats: %w", err)
		}
		formats = append(formats, format)
	}

	return &container.Config{
		Server: httpapi.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: c.Server.AllowedOrigins,
		},
		Gateway: gateway.Config{
			RESTURL:      c.Gateway.RESTURL,
			AuthURL:      c.Gateway.AuthURL,
			FunctionsURL: c.Gateway.FunctionsURL,
			APIKey:       c.Gateway.APIKey,
			Timeout:      c.Gateway.Timeout,
		},
		Auth: container.AuthConfig{
			Email:       c.Auth.Email,
			Password:    c.Auth.Password,
			AccessToken: c.Auth.AccessToken,
		},
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Location: loc,
		Batch: container.BatchConfig{
			MinInterval: c.Batch.MinInterval,
		},
		Schedule: container.ScheduleConfig{
			Enabled:       c.Schedule.Enabled,
			CheckInterval: c.Schedule.CheckInterval,
			Hour:          c.Schedule.Hour,
		},
		Lark: container.LarkConfig{
			Enabled: c.Lark.Enabled,
			Config: lark.Config{
				AppID:     c.Lark.AppID,
				AppSecret: c.Lark.AppSecret,
				ChatID:    c.Lark.ChatID,
				BaseURL:   c.Lark.BaseURL,
			},
		},
		OpenAI: container.OpenAIConfig{
			Enabled: c.OpenAI.Enabled,
			Config: openai.Config{
				APIKey:  c.OpenAI.APIKey,
				Model:   c.OpenAI.Model,
				BaseURL: c.OpenAI.BaseURL,
			},
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Export: container.ExportConfig{
			ArchiveDir:     c.Export.ArchiveDir,
			ArchiveFormats: formats,
		},
		Metrics: container.MetricsConfig{
			Enabled:   c.Metrics.Enabled,
			Namespace: c.Metrics.Namespace,
		},
		Version: version,
	}, nil
}

package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/garyjia/report-card-viewer/internal/application/dashboard"
	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/gateway"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/lark"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/openai"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/metrics"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/persistence/repository"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/storage"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/worker"
	httpapi "github.com/garyjia/report-card-viewer/internal/interfaces/http"
	"github.com/garyjia/report-card-viewer/migrations"
	"github.com/garyjia/report-card-viewer/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// GatewayBundle holds the gateway client and the service account token source.
// Tokens is nil when no service account is configured; requests must then
// bring their own bearer token.
type GatewayBundle struct {
	Client *gateway.Client
	Tokens oauth2.TokenSource
}

// ProvideDatabase opens the SQLite database and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		_, err = migrator.MigrateDir(ctx, cfg.MigrationsDir)
	} else {
		_, err = migrator.Migrate(ctx, migrations.FS)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &RepositoryBundle{
		BatchRuns: repository.NewBatchRunRepository(db.DB, logger.Named("repository")),
	}, nil
}

// ProvideGateway creates the gateway client and picks the service account
// token source: a static token wins over a password sign-in.
func ProvideGateway(cfg *Config, logger *zap.Logger) (*GatewayBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	client := gateway.NewClient(cfg.Gateway, logger.Named("gateway"))
	bundle := &GatewayBundle{Client: client}

	switch {
	case cfg.Auth.AccessToken != "":
		bundle.Tokens = gateway.BearerTokenSource(cfg.Auth.AccessToken)
	case cfg.Auth.Email != "" && cfg.Auth.Password != "":
		bundle.Tokens = client.PasswordTokenSource(cfg.Auth.Email, cfg.Auth.Password)
	default:
		logger.Info("No service account configured, requests must carry a bearer token")
	}

	return bundle, nil
}

// ProvideNarrator creates the OpenAI narrator, or returns nil when disabled.
func ProvideNarrator(cfg *OpenAIConfig, logger *zap.Logger) (port.Narrator, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	prompts := openai.DefaultPrompts()
	if cfg.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		prompts = loaded
	}

	return openai.NewNarrator(cfg.Config, prompts, logger.Named("narrator")), nil
}

// ProvideNotifier creates the Lark batch notifier, or returns nil when disabled.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) (port.BatchNotifier, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("lark app_id and app_secret are required")
	}

	sdk := lark.NewSDKClient(cfg.Config, logger.Named("lark"))
	return lark.NewNotifier(sdk, logger.Named("lark")), nil
}

// ProvideStorage creates the export archive, or returns nil when no
// archive directory is configured.
func ProvideStorage(cfg *ExportConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil || cfg.ArchiveDir == "" {
		return nil, nil
	}
	archive, err := storage.NewLocalFileStorage(cfg.ArchiveDir, logger.Named("storage"))
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// ProvideMetrics creates the Prometheus collector, or returns nil when disabled.
func ProvideMetrics(cfg *MetricsConfig) *metrics.Collector {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return metrics.NewCollector(cfg.Namespace)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Gateway     *GatewayBundle
	BatchRuns   port.BatchRunRepository
	Narrator    port.Narrator
	Dispatcher  dispatcher.Dispatcher
	BatchConfig BatchConfig
	Logger      *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Gateway == nil || deps.Gateway.Client == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}
	client := deps.Gateway.Client
	tokens := deps.Gateway.Tokens

	reportOpts := []service.ReportOption{service.WithReportEvents(deps.Dispatcher)}
	if deps.Narrator != nil {
		reportOpts = append(reportOpts, service.WithNarrator(deps.Narrator))
	}
	reports := service.NewReportService(client, tokens, logger, reportOpts...)

	batches := service.NewBatchService(reports, logger,
		service.WithBatchEvents(deps.Dispatcher),
		service.WithMinInterval(deps.BatchConfig.MinInterval),
	)

	return &ServiceBundle{
		Directory: service.NewDirectoryService(client, tokens, logger),
		Reports:   reports,
		Batches:   batches,
		Exports:   service.NewExportService(logger),
		Stats:     service.NewStatsService(client, deps.BatchRuns, tokens, logger),
	}, nil
}

// HandlerDeps holds dependencies for the batch event handlers.
type HandlerDeps struct {
	Dispatcher     dispatcher.Dispatcher
	BatchRuns      port.BatchRunRepository
	Transactions   port.TransactionManager
	Notifier       port.BatchNotifier
	Storage        port.FileStorage
	ArchiveFormats []service.ExportFormat
	Exports        service.ExportService
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// RegisterEventHandlers subscribes the side-effect handlers to batch events.
// The history recorder is registered first so the run is stored before it
// is announced.
func RegisterEventHandlers(deps *HandlerDeps) error {
	if deps == nil || deps.Dispatcher == nil {
		return fmt.Errorf("dispatcher is required")
	}
	logger := &zapLoggerAdapter{logger: deps.Logger}

	if deps.BatchRuns != nil {
		service.NewBatchHistoryRecorder(deps.BatchRuns, deps.Transactions, logger).Register(deps.Dispatcher)
	}
	if deps.Notifier != nil {
		service.NewBatchNotificationHandler(deps.Notifier).Register(deps.Dispatcher)
	}
	if deps.Storage != nil && len(deps.ArchiveFormats) > 0 {
		service.NewExportArchiver(deps.Exports, deps.Storage, deps.ArchiveFormats, logger).Register(deps.Dispatcher)
	}
	if deps.Metrics != nil {
		deps.Metrics.Register(deps.Dispatcher)
	}

	for _, sub := range deps.Dispatcher.Subscriptions() {
		deps.Logger.Debug("Event handler subscribed",
			zap.String("handler", sub.Name),
			zap.Int("event_types", len(sub.Types)))
	}
	return nil
}

// ProvideSessions creates the dashboard session registry.
func ProvideSessions(services *ServiceBundle, cfg *Config, logger *zap.Logger) *dashboard.Registry {
	return dashboard.NewRegistry(dashboard.Services{
		Directory: services.Directory,
		Reports:   services.Reports,
		Batches:   services.Batches,
		Exports:   services.Exports,
	}, cfg.Location, &zapLoggerAdapter{logger: logger.Named("dashboard")})
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Config    *ScheduleConfig
	Location  *time.Location
	Services  *ServiceBundle
	BatchRuns port.BatchRunRepository
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager. The schedule worker is only
// registered when enabled.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Config == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}

	manager := worker.NewWorkerManager(deps.Logger)
	if !deps.Config.Enabled {
		return manager, nil
	}
	if deps.BatchRuns == nil {
		return nil, fmt.Errorf("schedule worker requires batch run history")
	}

	cfg := worker.DefaultScheduleWorkerConfig()
	if deps.Config.CheckInterval > 0 {
		cfg.CheckInterval = deps.Config.CheckInterval
	}
	cfg.Hour = deps.Config.Hour
	if deps.Location != nil {
		cfg.Location = deps.Location
	}

	manager.Register(worker.NewScheduleWorker(
		cfg,
		deps.Services.Directory,
		deps.Services.Batches,
		deps.BatchRuns,
		deps.Logger.Named("schedule"),
	))
	return manager, nil
}

// ServerDeps holds dependencies for the HTTP server.
type ServerDeps struct {
	Config    *Config
	Sessions  *dashboard.Registry
	Services  *ServiceBundle
	BatchRuns port.BatchRunRepository
	Metrics   *metrics.Collector
	Health    httpapi.HealthFunc
	Logger    *zap.Logger
}

// ProvideHTTPServer creates the HTTP server and its handlers.
func ProvideHTTPServer(deps *ServerDeps) (*httpapi.Server, error) {
	if deps == nil || deps.Sessions == nil || deps.Services == nil {
		return nil, fmt.Errorf("server dependencies are required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger.Named("http")}
	handlers := httpapi.NewHandlers(
		deps.Sessions,
		deps.Services.Stats,
		deps.BatchRuns,
		deps.Config.Location,
		deps.Config.Version,
		logger,
	)
	if deps.Health != nil {
		handlers.SetHealthCheck(deps.Health)
	}

	var opts []httpapi.ServerOption
	if deps.Metrics != nil {
		opts = append(opts, httpapi.WithMetrics(deps.Metrics, deps.Metrics.Handler()))
	}

	return httpapi.NewServer(deps.Config.Server, handlers, logger, opts...), nil
}

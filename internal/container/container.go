package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/dashboard"
	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/metrics"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/worker"
	httpapi "github.com/garyjia/report-card-viewer/internal/interfaces/http"
	"github.com/garyjia/report-card-viewer/pkg/database"
)

const healthPingTimeout = 2 * time.Second

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	gateway  *GatewayBundle
	narrator port.Narrator
	notifier port.BatchNotifier

	// Infrastructure - Storage
	archive port.FileStorage

	metrics *metrics.Collector

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	sessions   *dashboard.Registry

	// Interfaces
	server *httpapi.Server

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	BatchRuns port.BatchRunRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Directory service.DirectoryService
	Reports   service.ReportService
	Batches   service.BatchService
	Exports   service.ExportService
	Stats     service.StatsService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (gateway, OpenAI, Lark)
// 3. Storage and metrics
// 4. Event dispatcher
// 5. Application services and event handlers
// 6. Dashboard sessions and HTTP server
// 7. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		done string
		fn   func() error
	}{
		{"database", "Database initialized", c.initDatabase},
		{"external clients", "External clients initialized", c.initExternalClients},
		{"storage", "Storage initialized", c.initStorage},
		{"dispatcher", "Dispatcher initialized", c.initDispatcher},
		{"services", "Application services initialized", c.initServices},
		{"interfaces", "Sessions and HTTP server initialized", c.initInterfaces},
		{"workers", "Workers initialized and started", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			c.cleanupLocked()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info(step.done)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	errs := c.cleanupLocked()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// cleanupLocked releases whatever has been initialized so far
func (c *Container) cleanupLocked() []error {
	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
		c.workers = nil
	}

	// Sessions cancel their running batches; terminal events still reach
	// the dispatcher before it closes.
	if c.sessions != nil {
		c.sessions.CloseAll()
		c.logger.Info("Dashboard sessions closed")
		c.sessions = nil
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.db = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	// Check database
	switch {
	case c.db == nil:
		set("database", ComponentHealth{Message: "not initialized"})
	default:
		ctx, cancel := context.WithTimeout(context.Background(), healthPingTimeout)
		err := c.db.Ping(ctx)
		cancel()
		if err != nil {
			set("database", ComponentHealth{Message: err.Error()})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	if c.workers != nil {
		for _, ws := range c.workers.Statuses() {
			set("worker:"+ws.Name, ComponentHealth{Healthy: ws.Running, Message: ws.StartError})
		}
		set("workers", ComponentHealth{
			Healthy: c.workers.GetWorkerCount() == 0 || c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		})
	} else {
		set("workers", ComponentHealth{Message: "not initialized"})
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("handlers: %d", len(c.dispatcher.Subscriptions())),
		})
	} else {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	}

	if c.sessions != nil {
		set("sessions", ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("open: %d", len(c.sessions.IDs())),
		})
	} else {
		set("sessions", ComponentHealth{Message: "not initialized"})
	}

	gatewayAuth := "service account"
	if c.gateway == nil || c.gateway.Tokens == nil {
		gatewayAuth = "request tokens only"
	}
	set("gateway", ComponentHealth{Healthy: c.gateway != nil, Message: gatewayAuth})

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(c.ctx, &c.config.Database, c.logger.Named("database"))
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

// initExternalClients initializes the gateway, narrator and notifier.
func (c *Container) initExternalClients() error {
	gw, err := ProvideGateway(c.config, c.logger)
	if err != nil {
		return err
	}
	c.gateway = gw

	narrator, err := ProvideNarrator(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.narrator = narrator

	notifier, err := ProvideNotifier(&c.config.Lark, c.logger)
	if err != nil {
		return err
	}
	c.notifier = notifier

	return nil
}

// initStorage initializes the export archive and metrics collector.
func (c *Container) initStorage() error {
	archive, err := ProvideStorage(&c.config.Export, c.logger)
	if err != nil {
		return err
	}
	c.archive = archive
	c.metrics = ProvideMetrics(&c.config.Metrics)
	return nil
}

func (c *Container) initDispatcher() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	return nil
}

// initServices initializes all application services and their event handlers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Gateway:     c.gateway,
		BatchRuns:   c.repositories.BatchRuns,
		Narrator:    c.narrator,
		Dispatcher:  c.dispatcher,
		BatchConfig: c.config.Batch,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	return RegisterEventHandlers(&HandlerDeps{
		Dispatcher:     c.dispatcher,
		BatchRuns:      c.repositories.BatchRuns,
		Transactions:   c.txManager,
		Notifier:       c.notifier,
		Storage:        c.archive,
		ArchiveFormats: c.config.Export.ArchiveFormats,
		Exports:        services.Exports,
		Metrics:        c.metrics,
		Logger:         c.logger,
	})
}

func (c *Container) initInterfaces() error {
	c.sessions = ProvideSessions(c.services, c.config, c.logger)

	server, err := ProvideHTTPServer(&ServerDeps{
		Config:    c.config,
		Sessions:  c.sessions,
		Services:  c.services,
		BatchRuns: c.repositories.BatchRuns,
		Metrics:   c.metrics,
		Health: func() (bool, interface{}) {
			h := c.Health()
			return h.Overall, h.Components
		},
		Logger: c.logger,
	})
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Config:    &c.config.Schedule,
		Location:  c.config.Location,
		Services:  c.services,
		BatchRuns: c.repositories.BatchRuns,
		Logger:    c.logger.Named("worker"),
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if c.workers.GetWorkerCount() == 0 {
		return nil
	}
	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.txManager
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Sessions returns the dashboard session registry.
func (c *Container) Sessions() *dashboard.Registry {
	return c.sessions
}

// HTTPServer returns the HTTP server. It is created but not started.
func (c *Container) HTTPServer() *httpapi.Server {
	return c.server
}

// Metrics returns the metrics collector, nil when disabled.
func (c *Container) Metrics() *metrics.Collector {
	return c.metrics
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, convertToZapFields(keysAndValues...)...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

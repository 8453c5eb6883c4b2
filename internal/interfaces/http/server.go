// Package http exposes the dashboard sessions and batch history over a JSON API.
// Handlers translate requests into controller and service calls.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/external/gateway"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RequestRecorder receives one observation per served request
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	recorder   RequestRecorder
	metrics    http.Handler
	logger     Logger
}

// ServerOption configures optional server features
type ServerOption func(*Server)

// WithMetrics records request metrics and serves handler on /metrics
func WithMetrics(recorder RequestRecorder, handler http.Handler) ServerOption {
	return func(s *Server) {
		s.recorder = recorder
		s.metrics = handler
	}
}

// NewServer creates a new HTTP server around handlers
func NewServer(config ServerConfig, handlers *Handlers, logger Logger, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: handlers,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.recorder != nil {
		s.router.Use(s.metricsMiddleware())
	}
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(corsMiddleware(s.config.AllowedOrigins))
	}
	s.router.Use(credentialsMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// metricsMiddleware labels requests by route template to keep cardinality bounded
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// credentialsMiddleware forwards a caller's bearer token to the gateway calls
// made on its behalf. Requests without one use the service account.
func credentialsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
			ctx := service.WithCredentials(c.Request.Context(), gateway.BearerTokenSource(strings.TrimSpace(token)))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.router.Group("/api")
	{
		api.GET("/periods", h.ListPeriods)
		api.GET("/dashboard", h.GetDashboard)
		api.GET("/batch-runs", h.ListBatchRuns)

		api.POST("/sessions", h.CreateSession)
		api.DELETE("/sessions/:id", h.CloseSession)
		api.PUT("/sessions/:id/selection", h.UpdateSelection)
		api.GET("/sessions/:id/employees", h.ListEmployees)
		api.POST("/sessions/:id/report", h.GenerateReport)
		api.GET("/sessions/:id/report/html", h.GetReportHTML)
		api.POST("/sessions/:id/batch", h.StartBatch)
		api.GET("/sessions/:id/batch", h.GetBatch)
		api.POST("/sessions/:id/batch/cancel", h.CancelBatch)
		api.POST("/sessions/:id/batch/cursor", h.MoveCursor)
		api.GET("/sessions/:id/batch/export", h.ExportBatch)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/report-card-viewer/internal/config"
	"github.com/garyjia/report-card-viewer/internal/container"
	"github.com/garyjia/report-card-viewer/pkg/utils"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Fields:     map[string]string{"service": "report-card-viewer", "version": version},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	containerCfg, err := cfg.ToContainerConfig(version)
	if err != nil {
		return err
	}

	app, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start container: %w", err)
	}

	logger.Info("Starting report card service",
		zap.String("address", app.HTTPServer().Address()),
		zap.Bool("schedule_enabled", containerCfg.Schedule.Enabled),
		zap.Bool("lark_enabled", containerCfg.Lark.Enabled),
		zap.Bool("narrator_enabled", containerCfg.OpenAI.Enabled),
		zap.String("timezone", containerCfg.Location.String()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.HTTPServer().Start(gctx)
	})

	// The container owns the workers; it stops them once the server is down
	// or a signal arrives.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return app.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

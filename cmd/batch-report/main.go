// Command batch-report generates report cards for every matching employee
// in one run and writes the batch export to a file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/config"
	"github.com/garyjia/report-card-viewer/internal/container"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/period"
	"github.com/garyjia/report-card-viewer/internal/domain/roster"
	"github.com/garyjia/report-card-viewer/pkg/utils"
)

type options struct {
	configPath string
	reportType string
	label      string
	start      string
	end        string
	stores     string
	tier       string
	sendEmail  bool
	format     string
	out        string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the YAML config file")
	flag.StringVar(&opts.reportType, "type", "csa", "report type: csa, greeter or manager")
	flag.StringVar(&opts.label, "period", "", `preset period label, e.g. "March 2026 (Final)"`)
	flag.StringVar(&opts.start, "start", "", "custom period start (YYYY-MM-DD)")
	flag.StringVar(&opts.end, "end", "", "custom period end (YYYY-MM-DD)")
	flag.StringVar(&opts.stores, "stores", "", "comma separated store numbers; empty means all")
	flag.StringVar(&opts.tier, "tier", "all", "qualification tier: all, visible or qualified")
	flag.BoolVar(&opts.sendEmail, "send-email", false, "email each report card")
	flag.StringVar(&opts.format, "format", "csv", "export format: csv, xlsx or pdf")
	flag.StringVar(&opts.out, "out", "", "output file; defaults to the export's own filename")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "batch-report: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	// One-shot runs never start the scheduler.
	cfg.Schedule.Enabled = false

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	containerCfg, err := cfg.ToContainerConfig("cli")
	if err != nil {
		return err
	}

	reportType, err := entity.ParseReportType(opts.reportType)
	if err != nil {
		return err
	}
	format, err := service.ParseExportFormat(opts.format)
	if err != nil {
		return err
	}
	criteria, err := buildCriteria(opts)
	if err != nil {
		return err
	}
	selected, err := resolvePeriod(opts, time.Now().In(containerCfg.Location))
	if err != nil {
		return err
	}

	app, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Close()

	services := app.Services()

	directory, err := services.Directory.Load(ctx, reportType, selected)
	if err != nil {
		return err
	}
	employees := roster.Apply(directory, criteria)
	logger.Info("Directory loaded",
		zap.String("report_type", string(reportType)),
		zap.String("period", selected.Label),
		zap.Int("loaded", len(directory)),
		zap.Int("selected", len(employees)))

	run, err := services.Batches.Run(ctx, service.BatchRequest{
		Employees:  employees,
		Period:     selected,
		ReportType: reportType,
		SendEmail:  opts.sendEmail,
		Trigger:    entity.BatchTriggerManual,
	}, func(run *entity.BatchRun, outcome entity.ItemOutcome) {
		if outcome.Err != nil {
			logger.Warn("Report failed",
				zap.String("employee", outcome.Employee.FullName()),
				zap.Int("current", run.Progress.Current),
				zap.Int("total", run.Progress.Total),
				zap.Error(outcome.Err))
			return
		}
		logger.Info("Report generated",
			zap.String("employee", outcome.Employee.FullName()),
			zap.Int("current", run.Progress.Current),
			zap.Int("total", run.Progress.Total))
	})
	if err != nil && !errors.Is(err, service.ErrNoReportsGenerated) {
		return err
	}
	if run == nil || run.Len() == 0 {
		return err
	}

	file, err := services.Exports.Export(run, format)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = file.Filename
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, file.Content, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	stats := run.Stats()
	logger.Info("Batch finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("succeeded", run.Len()),
		zap.Int("failed", len(run.Failures())),
		zap.String("total_bonus", stats.TotalBonus.StringFixed(2)),
		zap.String("output", out))
	return nil
}

func buildCriteria(opts options) (roster.Criteria, error) {
	criteria := roster.DefaultCriteria()

	tier, err := roster.ParseTier(opts.tier)
	if err != nil {
		return criteria, err
	}
	criteria.Tier = tier

	if parts := utils.SplitList(opts.stores); len(parts) > 0 {
		numbers := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return criteria, fmt.Errorf("invalid store number %q", p)
			}
			numbers = append(numbers, n)
		}
		criteria.Stores = roster.SpecificStores(numbers...)
	}
	return criteria, nil
}

func resolvePeriod(opts options, now time.Time) (entity.ReportPeriod, error) {
	if opts.start != "" || opts.end != "" {
		return period.Custom(opts.start, opts.end)
	}
	presets := period.Presets(now)
	if opts.label == "" {
		return presets[0], nil
	}
	p, ok := period.Find(presets, opts.label)
	if !ok {
		return entity.ReportPeriod{}, fmt.Errorf("unknown period %q", opts.label)
	}
	return p, nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/schedule"
)

// ScheduleWorkerConfig holds configuration for the schedule worker
type ScheduleWorkerConfig struct {
	CheckInterval time.Duration
	// Hour is the local hour from which a slot's day counts as due
	Hour     int
	Location *time.Location
	Calendar []schedule.Slot
}

// DefaultScheduleWorkerConfig returns default configuration
func DefaultScheduleWorkerConfig() ScheduleWorkerConfig {
	return ScheduleWorkerConfig{
		CheckInterval: 5 * time.Minute,
		Hour:          8,
		Location:      time.Local,
		Calendar:      schedule.Default,
	}
}

// ScheduleWorker runs the calendar's batches. Each slot runs at most once: the
// run history is checked before starting, and the history recorder stores
// the slot key once the batch finishes.
type ScheduleWorker struct {
	config    ScheduleWorkerConfig
	directory service.DirectoryService
	batches   service.BatchService
	runs      port.BatchRunRepository
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	fired     map[string]bool
}

// NewScheduleWorker creates a new schedule worker
func NewScheduleWorker(
	config ScheduleWorkerConfig,
	directory service.DirectoryService,
	batches service.BatchService,
	runs port.BatchRunRepository,
	logger *zap.Logger,
) *ScheduleWorker {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultScheduleWorkerConfig().CheckInterval
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Calendar == nil {
		config.Calendar = schedule.Default
	}
	return &ScheduleWorker{
		config:    config,
		directory: directory,
		batches:   batches,
		runs:      runs,
		logger:    logger,
		now:       time.Now,
		fired:     make(map[string]bool),
	}
}

// Name returns the worker name for identification
func (w *ScheduleWorker) Name() string {
	return "ScheduleWorker"
}

// Start checks the calendar immediately and then on every interval
func (w *ScheduleWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("schedule worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("ScheduleWorker started",
		zap.Duration("check_interval", w.config.CheckInterval),
		zap.Int("hour", w.config.Hour),
		zap.String("location", w.config.Location.String()))

	go w.loop(runCtx, w.done)
	return nil
}

// Stop cancels any running batch and waits for the loop to exit
func (w *ScheduleWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("ScheduleWorker stopped")
	return nil
}

func (w *ScheduleWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	for {
		w.RunDue(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunDue starts every due slot that has not run yet, one after another
func (w *ScheduleWorker) RunDue(ctx context.Context) {
	now := w.now().In(w.config.Location)
	for _, due := range schedule.DueAt(w.config.Calendar, now, w.config.Hour) {
		if ctx.Err() != nil {
			return
		}
		if err := w.runSlot(ctx, due); err != nil {
			w.logger.Error("Scheduled batch failed",
				zap.String("schedule_key", due.Key),
				zap.Error(err))
		}
	}
}

func (w *ScheduleWorker) runSlot(ctx context.Context, due schedule.Due) error {
	if w.alreadyFired(due.Key) {
		return nil
	}
	exists, err := w.runs.ExistsForSchedule(ctx, due.Key)
	if err != nil {
		return err
	}
	if exists {
		w.markFired(due.Key)
		return nil
	}

	employees, err := w.directory.Load(ctx, due.Slot.ReportType, due.Period)
	if err != nil {
		return err
	}
	w.markFired(due.Key)

	if len(employees) == 0 {
		w.logger.Info("Scheduled slot has no employees", zap.String("schedule_key", due.Key))
		return nil
	}

	w.logger.Info("Starting scheduled batch",
		zap.String("schedule_key", due.Key),
		zap.String("period", due.Period.Label),
		zap.Int("employees", len(employees)))

	run, err := w.batches.Run(ctx, service.BatchRequest{
		Employees:   employees,
		Period:      due.Period,
		ReportType:  due.Slot.ReportType,
		SendEmail:   true,
		Trigger:     entity.BatchTriggerSchedule,
		ScheduleKey: due.Key,
	}, nil)
	if errors.Is(err, service.ErrBatchCancelled) {
		w.clearFired(due.Key)
		w.logger.Info("Scheduled batch cancelled, slot stays open",
			zap.String("schedule_key", due.Key),
			zap.Int("completed", run.Progress.Current),
			zap.Int("requested", run.Progress.Total))
		return nil
	}
	if err != nil && !errors.Is(err, service.ErrNoReportsGenerated) {
		return err
	}

	w.logger.Info("Scheduled batch finished",
		zap.String("schedule_key", due.Key),
		zap.Int("succeeded", run.Len()),
		zap.Int("requested", run.Progress.Total))
	return err
}

func (w *ScheduleWorker) alreadyFired(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired[key]
}

func (w *ScheduleWorker) markFired(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fired[key] = true
}

func (w *ScheduleWorker) clearFired(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.fired, key)
}

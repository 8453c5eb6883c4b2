package service

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/event"
)

// BatchHistoryRecorder persists a summary of every finished batch run
type BatchHistoryRecorder struct {
	repo   port.BatchRunRepository
	tx     port.TransactionManager
	logger Logger
}

// NewBatchHistoryRecorder creates a recorder writing to repo. When tx is
// set, the scheduled-slot check and the insert share one transaction.
func NewBatchHistoryRecorder(repo port.BatchRunRepository, tx port.TransactionManager, logger Logger) *BatchHistoryRecorder {
	return &BatchHistoryRecorder{repo: repo, tx: tx, logger: logger}
}

// Handle stores the run carried by a completed or cancelled event.
// A scheduled slot that is already recorded is skipped.
func (r *BatchHistoryRecorder) Handle(ctx context.Context, evt *event.Event) error {
	if evt.Run == nil {
		return nil
	}
	record := entity.NewBatchRunRecord(evt.Run)

	stored := false
	store := func(ctx context.Context) error {
		if record.ScheduleKey != "" {
			exists, err := r.repo.ExistsForSchedule(ctx, record.ScheduleKey)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
		}
		if err := r.repo.Create(ctx, record); err != nil {
			return err
		}
		stored = true
		return nil
	}

	var err error
	if r.tx != nil {
		err = r.tx.WithTransaction(ctx, store)
	} else {
		err = store(ctx)
	}
	if err != nil {
		return fmt.Errorf("record batch run %s: %w", record.ID, err)
	}

	if !stored {
		r.logger.Info("Scheduled slot already recorded", "run_id", record.ID, "schedule_key", record.ScheduleKey)
		return nil
	}
	r.logger.Info("Batch run recorded", "run_id", record.ID, "status", record.Status, "succeeded", record.Succeeded)
	return nil
}

// Register subscribes the recorder to terminal batch events
func (r *BatchHistoryRecorder) Register(d dispatcher.Dispatcher) {
	d.Subscribe("batch-history", r.Handle, event.TypeBatchCompleted, event.TypeBatchCancelled)
}

// BatchNotificationHandler forwards finished runs to a chat notifier
type BatchNotificationHandler struct {
	notifier port.BatchNotifier
}

// NewBatchNotificationHandler creates a handler for notifier
func NewBatchNotificationHandler(notifier port.BatchNotifier) *BatchNotificationHandler {
	return &BatchNotificationHandler{notifier: notifier}
}

// Handle sends the run summary
func (h *BatchNotificationHandler) Handle(ctx context.Context, evt *event.Event) error {
	if evt.Run == nil {
		return nil
	}
	return h.notifier.NotifyBatchFinished(ctx, entity.NewBatchRunRecord(evt.Run))
}

// Register subscribes the handler to terminal batch events
func (h *BatchNotificationHandler) Register(d dispatcher.Dispatcher) {
	d.Subscribe("batch-notifier", h.Handle, event.TypeBatchCompleted, event.TypeBatchCancelled)
}

// ExportArchiver writes exports of every completed run into file storage,
// under <run start date>/<run id>/<filename>
type ExportArchiver struct {
	exports ExportService
	storage port.FileStorage
	formats []ExportFormat
	logger  Logger
}

// NewExportArchiver creates an archiver saving each of formats
func NewExportArchiver(exports ExportService, storage port.FileStorage, formats []ExportFormat, logger Logger) *ExportArchiver {
	return &ExportArchiver{exports: exports, storage: storage, formats: formats, logger: logger}
}

// Handle saves one file per configured format. Runs without results are
// skipped, as are files already archived for the run.
func (a *ExportArchiver) Handle(ctx context.Context, evt *event.Event) error {
	if evt.Run == nil || evt.Run.Len() == 0 {
		return nil
	}

	dir := path.Join(evt.Run.StartedAt.Format("2006-01-02"), evt.Run.ID)
	var errs []error
	for _, format := range a.formats {
		file, err := a.exports.Export(evt.Run, format)
		if err != nil {
			errs = append(errs, fmt.Errorf("export %s: %w", format, err))
			continue
		}
		p := path.Join(dir, file.Filename)
		if a.storage.Exists(ctx, p) {
			continue
		}
		if err := a.storage.Save(ctx, p, file.Content); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", p, err))
			continue
		}
		a.logger.Info("Batch export archived", "run_id", evt.Run.ID, "path", p)
	}
	return errors.Join(errs...)
}

// Register subscribes the archiver to completed runs
func (a *ExportArchiver) Register(d dispatcher.Dispatcher) {
	d.Subscribe("export-archiver", a.Handle, event.TypeBatchCompleted)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/persistence/sqlite"
)

// BatchRunRepository implements port.BatchRunRepository
type BatchRunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBatchRunRepository creates a new batch run repository
func NewBatchRunRepository(db *sql.DB, logger *zap.Logger) port.BatchRunRepository {
	return &BatchRunRepository{
		db:     db,
		logger: logger,
	}
}

const batchRunColumns = `
	id, trigger, schedule_key, report_type,
	period_start, period_end, period_kind,
	requested, succeeded, failed, qualified, total_bonus,
	status, started_at, finished_at
`

// Create stores a finished run summary
func (r *BatchRunRepository) Create(ctx context.Context, record *entity.BatchRunRecord) error {
	query := `INSERT INTO batch_runs (` + batchRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var scheduleKey sql.NullString
	if record.ScheduleKey != "" {
		scheduleKey = sql.NullString{String: record.ScheduleKey, Valid: true}
	}

	_, err := r.executor(ctx).ExecContext(ctx, query,
		record.ID,
		string(record.Trigger),
		scheduleKey,
		string(record.ReportType),
		record.PeriodStart,
		record.PeriodEnd,
		string(record.PeriodKind),
		record.Requested,
		record.Succeeded,
		record.Failed,
		record.Qualified,
		record.TotalBonus,
		string(record.Status),
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create batch run",
			zap.String("id", record.ID),
			zap.String("schedule_key", record.ScheduleKey),
			zap.Error(err))
		return fmt.Errorf("failed to create batch run: %w", err)
	}

	r.logger.Info("Batch run recorded",
		zap.String("id", record.ID),
		zap.String("status", string(record.Status)))
	return nil
}

// GetByID retrieves a run summary; returns nil, nil when absent
func (r *BatchRunRepository) GetByID(ctx context.Context, id string) (*entity.BatchRunRecord, error) {
	query := `SELECT ` + batchRunColumns + ` FROM batch_runs WHERE id = ?`

	record, err := scanBatchRun(r.executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get batch run", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get batch run: %w", err)
	}
	return record, nil
}

// List returns run summaries, newest first
func (r *BatchRunRepository) List(ctx context.Context, limit, offset int) ([]*entity.BatchRunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + batchRunColumns + ` FROM batch_runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.executor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list batch runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list batch runs: %w", err)
	}
	defer rows.Close()

	var records []*entity.BatchRunRecord
	for rows.Next() {
		record, err := scanBatchRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch run: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ExistsForSchedule reports whether a scheduled slot has already run.
// Cancelled runs do not count.
func (r *BatchRunRepository) ExistsForSchedule(ctx context.Context, scheduleKey string) (bool, error) {
	var exists bool
	err := r.executor(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM batch_runs WHERE schedule_key = ? AND status <> ?)`,
		scheduleKey, string(entity.BatchStatusCancelled),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check schedule key: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatchRun(row rowScanner) (*entity.BatchRunRecord, error) {
	var (
		record                                  entity.BatchRunRecord
		trigger, reportType, periodKind, status string
		scheduleKey                             sql.NullString
		startedAt, finishedAt                   time.Time
	)

	err := row.Scan(
		&record.ID,
		&trigger,
		&scheduleKey,
		&reportType,
		&record.PeriodStart,
		&record.PeriodEnd,
		&periodKind,
		&record.Requested,
		&record.Succeeded,
		&record.Failed,
		&record.Qualified,
		&record.TotalBonus,
		&status,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Trigger = entity.BatchTrigger(trigger)
	record.ScheduleKey = scheduleKey.String
	record.ReportType = entity.ReportType(reportType)
	record.PeriodKind = entity.PeriodKind(periodKind)
	record.Status = entity.BatchStatus(status)
	record.StartedAt = startedAt
	record.FinishedAt = finishedAt
	return &record, nil
}

func (r *BatchRunRepository) executor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

var _ port.BatchRunRepository = (*BatchRunRepository)(nil)

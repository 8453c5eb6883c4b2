package port

import (
	"context"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// BatchRunRepository persists batch run summaries
type BatchRunRepository interface {
	// Create stores a finished run summary
	Create(ctx context.Context, record *entity.BatchRunRecord) error

	// GetByID retrieves a run summary; returns nil, nil when absent
	GetByID(ctx context.Context, id string) (*entity.BatchRunRecord, error)

	// List returns run summaries, newest first
	List(ctx context.Context, limit, offset int) ([]*entity.BatchRunRecord, error)

	// ExistsForSchedule reports whether a scheduled slot has already run
	ExistsForSchedule(ctx context.Context, scheduleKey string) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

package port

import (
	"context"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// BatchNotifier announces finished batch runs to managers
type BatchNotifier interface {
	NotifyBatchFinished(ctx context.Context, record *entity.BatchRunRecord) error
}

// Narrator writes a short narrative for a report that arrived without one
type Narrator interface {
	Narrate(ctx context.Context, result *entity.ReportResult) (string, error)
}

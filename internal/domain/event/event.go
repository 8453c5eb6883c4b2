package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// Event is a batch or report lifecycle notification. Run is a snapshot taken
// when the event was raised; handlers must not modify it.
type Event struct {
	ID         string              `json:"id"`
	Type       Type                `json:"type"`
	RunID      string              `json:"run_id,omitempty"`
	ReportType entity.ReportType   `json:"report_type"`
	Progress   entity.Progress     `json:"progress"`
	Outcome    *entity.ItemOutcome `json:"outcome,omitempty"`
	Run        *entity.BatchRun    `json:"-"`
	Err        error               `json:"-"`
	Timestamp  time.Time           `json:"timestamp"`
}

// NewBatchEvent creates an event for a batch run
func NewBatchEvent(eventType Type, run *entity.BatchRun) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		RunID:      run.ID,
		ReportType: run.ReportType,
		Progress:   run.Progress,
		Run:        run,
		Timestamp:  time.Now(),
	}
}

// NewItemEvent creates an event for one attempted employee of a batch
func NewItemEvent(run *entity.BatchRun, outcome entity.ItemOutcome) *Event {
	eventType := TypeBatchItemSucceeded
	if !outcome.Succeeded() {
		eventType = TypeBatchItemFailed
	}
	evt := NewBatchEvent(eventType, run)
	evt.Outcome = &outcome
	evt.Err = outcome.Err
	return evt
}

// NewReportEvent creates an event for a single generated report
func NewReportEvent(reportType entity.ReportType, employee entity.Employee, result *entity.ReportResult) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       TypeReportGenerated,
		ReportType: reportType,
		Outcome:    &entity.ItemOutcome{Employee: employee, Result: result},
		Timestamp:  time.Now(),
	}
}

// NewReportFailedEvent creates an event for a report call that returned err
func NewReportFailedEvent(reportType entity.ReportType, employee entity.Employee, err error) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       TypeReportFailed,
		ReportType: reportType,
		Outcome:    &entity.ItemOutcome{Employee: employee, Err: err},
		Err:        err,
		Timestamp:  time.Now(),
	}
}

// WithError returns a copy of the event carrying err
func (e *Event) WithError(err error) *Event {
	copied := *e
	copied.Err = err
	return &copied
}

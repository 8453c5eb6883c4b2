package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/event"
	"github.com/garyjia/report-card-viewer/internal/domain/workflow"
)

// BatchRequest describes one batch run. Employees is the effective input,
// already resolved from the multi-selection or the visible directory.
type BatchRequest struct {
	RunID       string
	Employees   []entity.Employee
	Period      entity.ReportPeriod
	ReportType  entity.ReportType
	SendEmail   bool
	Trigger     entity.BatchTrigger
	ScheduleKey string
}

// ProgressObserver receives a snapshot of the run after every attempt
type ProgressObserver func(run *entity.BatchRun, outcome entity.ItemOutcome)

// BatchService runs report generation over many employees
type BatchService interface {
	// Run generates reports one employee at a time, in input order. It returns
	// the finished run with ErrNoReportsGenerated when nothing succeeded, or
	// ErrBatchCancelled when ctx ended first. observer may be nil.
	Run(ctx context.Context, req BatchRequest, observer ProgressObserver) (*entity.BatchRun, error)
}

type batchServiceImpl struct {
	reports    ReportService
	dispatcher dispatcher.Dispatcher
	limiter    *rate.Limiter
	logger     Logger
	now        func() time.Time
}

// BatchOption configures the batch service
type BatchOption func(*batchServiceImpl)

// WithMinInterval spaces consecutive report calls at least d apart
func WithMinInterval(d time.Duration) BatchOption {
	return func(s *batchServiceImpl) {
		if d > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithBatchEvents publishes lifecycle events to d
func WithBatchEvents(d dispatcher.Dispatcher) BatchOption {
	return func(s *batchServiceImpl) {
		s.dispatcher = d
	}
}

// NewBatchService creates a new BatchService
func NewBatchService(reports ReportService, logger Logger, opts ...BatchOption) BatchService {
	s := &batchServiceImpl{
		reports: reports,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *batchServiceImpl) Run(ctx context.Context, req BatchRequest, observer ProgressObserver) (*entity.BatchRun, error) {
	if len(req.Employees) == 0 {
		return nil, validationError("no employees to process")
	}
	if !req.ReportType.IsValid() {
		return nil, validationError("unknown report type %q", req.ReportType)
	}
	if req.Period.IsZero() {
		return nil, validationError("please select a period")
	}

	run := s.newRun(req)
	machine := workflow.NewBatchMachine()
	machine.OnTransition(func(from, to workflow.State, trigger workflow.Trigger) {
		run.Status = entity.BatchStatus(to)
	})
	if err := machine.Fire(ctx, workflow.TriggerStart); err != nil {
		return nil, err
	}

	s.logger.Info("Batch started",
		"run_id", run.ID,
		"report_type", run.ReportType,
		"total", run.Progress.Total,
		"trigger", run.Trigger,
	)
	s.publish(ctx, event.NewBatchEvent(event.TypeBatchStarted, run.Snapshot()))

	var stopErr error
	for i, employee := range req.Employees {
		if stopErr = s.wait(ctx); stopErr != nil {
			break
		}

		emp := employee
		result, err := s.reports.Generate(ctx, GenerateRequest{
			Employee:   &emp,
			Period:     req.Period,
			ReportType: req.ReportType,
			SendEmail:  req.SendEmail,
		})

		outcome := entity.ItemOutcome{Index: i, Employee: employee, Result: result, Err: err}
		run.Outcomes = append(run.Outcomes, outcome)
		if err == nil {
			run.Items = append(run.Items, entity.BatchItem{Employee: employee, Result: *result})
		} else {
			s.logger.Error("Batch item failed",
				"run_id", run.ID,
				"index", i,
				"user_id", employee.UserID,
				"error", err,
			)
		}
		run.Progress.Current = i + 1

		snapshot := run.Snapshot()
		s.publish(ctx, event.NewItemEvent(snapshot, outcome))
		if observer != nil {
			observer(snapshot, outcome)
		}
	}

	finished := s.now()
	run.FinishedAt = &finished

	if stopErr == nil {
		stopErr = ctx.Err()
	}
	if stopErr != nil {
		_ = machine.Fire(ctx, workflow.TriggerCancel)
		err := fmt.Errorf("%w after %d of %d: %w", ErrBatchCancelled, run.Progress.Current, run.Progress.Total, stopErr)
		s.logger.Info("Batch cancelled", "run_id", run.ID, "attempted", run.Progress.Current, "succeeded", run.Len())
		s.publish(context.WithoutCancel(ctx), event.NewBatchEvent(event.TypeBatchCancelled, run.Snapshot()).WithError(err))
		return run, err
	}

	_ = machine.Fire(ctx, workflow.TriggerComplete)

	var err error
	if run.Len() == 0 {
		err = ErrNoReportsGenerated
	}
	s.logger.Info("Batch completed",
		"run_id", run.ID,
		"requested", run.Progress.Total,
		"succeeded", run.Len(),
		"failed", run.Progress.Total-run.Len(),
	)
	evt := event.NewBatchEvent(event.TypeBatchCompleted, run.Snapshot())
	if err != nil {
		evt = evt.WithError(err)
	}
	s.publish(ctx, evt)
	return run, err
}

func (s *batchServiceImpl) newRun(req BatchRequest) *entity.BatchRun {
	id := req.RunID
	if id == "" {
		id = uuid.NewString()
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = entity.BatchTriggerManual
	}
	return &entity.BatchRun{
		ID:          id,
		ReportType:  req.ReportType,
		Period:      req.Period,
		SendEmail:   req.SendEmail,
		Trigger:     trigger,
		ScheduleKey: req.ScheduleKey,
		Status:      entity.BatchStatusIdle,
		Progress:    entity.Progress{Current: 0, Total: len(req.Employees)},
		Items:       make([]entity.BatchItem, 0, len(req.Employees)),
		Outcomes:    make([]entity.ItemOutcome, 0, len(req.Employees)),
		StartedAt:   s.now(),
	}
}

// wait applies pacing and reports cancellation before the next call
func (s *batchServiceImpl) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *batchServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil && !errors.Is(err, dispatcher.ErrClosed) {
		s.logger.Error("Batch event handler failed", "event_type", evt.Type, "run_id", evt.RunID, "error", err)
	}
}

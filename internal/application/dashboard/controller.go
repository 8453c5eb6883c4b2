package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/roster"
)

// Services are the collaborators a controller drives
type Services struct {
	Directory service.DirectoryService
	Reports   service.ReportService
	Batches   service.BatchService
	Exports   service.ExportService
}

// Selection is a partial update of the session's choices; nil fields are unchanged
type Selection struct {
	ReportType     *entity.ReportType
	Period         *entity.ReportPeriod
	Stores         *roster.StoreFilter
	Tier           *roster.Tier
	Sort           *roster.SortKey
	EmployeeID     *int64
	MultiSelection []int64
	ClearMulti     bool
}

// BatchHandle identifies a started batch run
type BatchHandle struct {
	RunID string
	Done  <-chan struct{}
}

// Controller owns one session's State
type Controller struct {
	id       string
	services Services
	logger   service.Logger

	mu    sync.Mutex
	state State

	// batch runs outlive the request that started them
	ctx         context.Context
	cancel      context.CancelFunc
	batchCancel context.CancelFunc
}

// NewController creates a controller for a new session
func NewController(id string, initial State, services Services, logger service.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:       id,
		services: services,
		logger:   logger,
		state:    initial,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ID returns the session id
func (c *Controller) ID() string {
	return c.id
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) dispatch(a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, a)
	return c.state
}

// Apply updates the selection and reloads the directory when the report type
// or period changed.
func (c *Controller) Apply(ctx context.Context, sel Selection) (State, error) {
	reload := false
	if sel.ReportType != nil {
		if !sel.ReportType.IsValid() {
			return c.State(), fmt.Errorf("%w: unknown report type %q", service.ErrValidation, *sel.ReportType)
		}
		c.dispatch(SetReportType{ReportType: *sel.ReportType})
		reload = true
	}
	if sel.Period != nil {
		c.dispatch(SelectPeriod{Period: *sel.Period})
		reload = true
	}
	if sel.Stores != nil {
		c.dispatch(SetStoreFilter{Stores: *sel.Stores})
	}
	if sel.Tier != nil {
		c.dispatch(SetTier{Tier: *sel.Tier})
	}
	if sel.Sort != nil {
		c.dispatch(SetSort{Sort: *sel.Sort})
	}
	if sel.EmployeeID != nil {
		c.dispatch(SelectEmployee{UserID: *sel.EmployeeID})
	}
	if sel.MultiSelection != nil || sel.ClearMulti {
		c.dispatch(SetMultiSelection{UserIDs: sel.MultiSelection})
	}

	if reload {
		if err := c.Reload(ctx); err != nil {
			return c.State(), err
		}
	}
	return c.State(), nil
}

// Reload fetches the directory for the current report type and period. Only
// the most recent load may update the state.
func (c *Controller) Reload(ctx context.Context) error {
	s := c.dispatch(DirectoryLoadStarted{})
	gen := s.DirectoryGen

	employees, err := c.services.Directory.Load(ctx, s.ReportType, s.Period)
	if err != nil {
		c.dispatch(DirectoryLoadFailed{Gen: gen, Err: err.Error()})
		return err
	}
	c.dispatch(DirectoryLoaded{Gen: gen, Employees: employees})
	return nil
}

// GenerateReport runs a single report for the selected employee
func (c *Controller) GenerateReport(ctx context.Context, sendEmail bool) (*entity.ReportResult, error) {
	s := c.dispatch(ReportStarted{})
	gen := s.ReportGen

	result, err := c.services.Reports.Generate(ctx, service.GenerateRequest{
		Employee:   SelectedEmployee(s),
		Period:     s.Period,
		ReportType: s.ReportType,
		SendEmail:  sendEmail,
	})
	if err != nil {
		c.dispatch(ReportFailed{Gen: gen, Err: err.Error()})
		return nil, err
	}

	notice := ""
	if sendEmail {
		notice = fmt.Sprintf("Report sent to %s", result.EmailRecipient)
	}
	c.dispatch(ReportSucceeded{Gen: gen, Result: result, Notice: notice})
	return result, nil
}

// StartBatch cancels any running batch and starts a new one over the
// effective input. Credentials carried by ctx are kept for the run.
func (c *Controller) StartBatch(ctx context.Context, sendEmail bool) (*BatchHandle, error) {
	c.mu.Lock()
	s := c.state
	input := BatchInput(s)
	if len(input) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no employees to process", service.ErrValidation)
	}

	if c.batchCancel != nil {
		c.batchCancel()
	}
	runCtx, cancel := context.WithCancel(c.ctx)
	if ts := service.CredentialsFrom(ctx); ts != nil {
		runCtx = service.WithCredentials(runCtx, ts)
	}
	c.batchCancel = cancel

	runID := uuid.NewString()
	c.state = Reduce(c.state, BatchStarted{RunID: runID, Total: len(input)})
	c.mu.Unlock()

	req := service.BatchRequest{
		RunID:      runID,
		Employees:  input,
		Period:     s.Period,
		ReportType: s.ReportType,
		SendEmail:  sendEmail,
		Trigger:    entity.BatchTriggerManual,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		run, err := c.services.Batches.Run(runCtx, req, func(run *entity.BatchRun, outcome entity.ItemOutcome) {
			c.dispatch(BatchProgressed{RunID: runID, Run: run})
		})
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		c.dispatch(BatchFinished{RunID: runID, Run: run, Err: msg})
		c.logger.Info("Session batch finished", "session_id", c.id, "run_id", runID, "error", msg)
	}()

	c.logger.Info("Session batch started", "session_id", c.id, "run_id", runID, "total", len(input))
	return &BatchHandle{RunID: runID, Done: done}, nil
}

// CancelBatch stops the running batch; returns false when none is running
func (c *Controller) CancelBatch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batchCancel == nil || c.state.Batch.Status != entity.BatchStatusRunning {
		return false
	}
	c.batchCancel()
	return true
}

// Navigate moves the batch cursor by delta and returns the item under it
func (c *Controller) Navigate(delta int) (BatchView, bool) {
	s := c.dispatch(NavigateBatch{Delta: delta})
	_, ok := s.Batch.Current()
	return s.Batch, ok
}

// Jump moves the batch cursor to index and returns the item under it
func (c *Controller) Jump(index int) (BatchView, bool) {
	s := c.dispatch(JumpBatch{Index: index})
	_, ok := s.Batch.Current()
	return s.Batch, ok
}

// Export serialises the latest batch run
func (c *Controller) Export(format service.ExportFormat) (*service.ExportFile, error) {
	return c.services.Exports.Export(c.State().Batch.Run, format)
}

// Close cancels any running batch
func (c *Controller) Close() {
	c.cancel()
}

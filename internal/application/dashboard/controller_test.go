package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type fakeDirectory struct {
	loadFunc func(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error)
}

func (f *fakeDirectory) Load(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error) {
	if f.loadFunc != nil {
		return f.loadFunc(ctx, reportType, period)
	}
	return testDirectory(), nil
}

type fakeReports struct {
	generateFunc func(ctx context.Context, req service.GenerateRequest) (*entity.ReportResult, error)
}

func (f *fakeReports) Generate(ctx context.Context, req service.GenerateRequest) (*entity.ReportResult, error) {
	if f.generateFunc != nil {
		return f.generateFunc(ctx, req)
	}
	return &entity.ReportResult{EmployeeName: req.Employee.FullName(), EmailRecipient: "ana@example.com"}, nil
}

type fakeBatches struct {
	runFunc func(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error)
}

func (f *fakeBatches) Run(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error) {
	return f.runFunc(ctx, req, observer)
}

func newTestController(services Services) *Controller {
	if services.Directory == nil {
		services.Directory = &fakeDirectory{}
	}
	if services.Reports == nil {
		services.Reports = &fakeReports{}
	}
	if services.Exports == nil {
		services.Exports = service.NewExportService(nopLogger{})
	}
	return NewController("session-1", NewState(entity.ReportTypeCSA, testPeriod()), services, nopLogger{})
}

func waitDone(t *testing.T, h *BatchHandle) {
	t.Helper()
	select {
	case <-h.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not finish")
	}
}

func TestController_ApplyReloadsDirectory(t *testing.T) {
	var loadedFor entity.ReportType
	c := newTestController(Services{Directory: &fakeDirectory{
		loadFunc: func(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error) {
			loadedFor = reportType
			return testDirectory(), nil
		},
	}})

	rt := entity.ReportTypeGreeter
	s, err := c.Apply(context.Background(), Selection{ReportType: &rt})

	require.NoError(t, err)
	assert.Equal(t, entity.ReportTypeGreeter, loadedFor)
	assert.Len(t, s.Directory, 3)
}

func TestController_ApplyFilterDoesNotReload(t *testing.T) {
	loads := 0
	c := newTestController(Services{Directory: &fakeDirectory{
		loadFunc: func(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error) {
			loads++
			return testDirectory(), nil
		},
	}})

	id := int64(2)
	_, err := c.Apply(context.Background(), Selection{EmployeeID: &id})

	require.NoError(t, err)
	assert.Equal(t, 0, loads)
	assert.Equal(t, int64(2), c.State().SelectedEmployeeID)
}

func TestController_ApplyRejectsUnknownType(t *testing.T) {
	c := newTestController(Services{})
	rt := entity.ReportType("driver")

	_, err := c.Apply(context.Background(), Selection{ReportType: &rt})

	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestController_ReloadFailure(t *testing.T) {
	c := newTestController(Services{Directory: &fakeDirectory{
		loadFunc: func(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error) {
			return nil, service.ErrDirectoryLoad
		},
	}})

	err := c.Reload(context.Background())

	assert.ErrorIs(t, err, service.ErrDirectoryLoad)
	assert.Empty(t, c.State().Directory)
	assert.NotEmpty(t, c.State().DirectoryErr)
}

func TestController_GenerateReport(t *testing.T) {
	c := newTestController(Services{})
	require.NoError(t, c.Reload(context.Background()))
	id := int64(1)
	_, _ = c.Apply(context.Background(), Selection{EmployeeID: &id})

	result, err := c.GenerateReport(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, "Ana Diaz", result.EmployeeName)
	s := c.State()
	assert.Same(t, result, s.Report)
	assert.Equal(t, "Report sent to ana@example.com", s.Notice)
}

func TestController_GenerateReportFailure(t *testing.T) {
	c := newTestController(Services{Reports: &fakeReports{
		generateFunc: func(ctx context.Context, req service.GenerateRequest) (*entity.ReportResult, error) {
			return nil, &service.ReportError{Message: "Employee not found"}
		},
	}})

	_, err := c.GenerateReport(context.Background(), false)

	require.Error(t, err)
	assert.Equal(t, "Employee not found", c.State().ReportErr)
	assert.Nil(t, c.State().Report)
}

func TestController_StartBatchEmpty(t *testing.T) {
	called := false
	c := newTestController(Services{Batches: &fakeBatches{
		runFunc: func(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error) {
			called = true
			return nil, nil
		},
	}})

	_, err := c.StartBatch(context.Background(), false)

	assert.ErrorIs(t, err, service.ErrValidation)
	assert.False(t, called)
}

func TestController_StartBatch(t *testing.T) {
	var gotReq service.BatchRequest
	c := newTestController(Services{Batches: &fakeBatches{
		runFunc: func(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error) {
			gotReq = req
			run := batchRun(req.RunID, len(req.Employees))
			observer(run, entity.ItemOutcome{})
			return run, nil
		},
	}})
	require.NoError(t, c.Reload(context.Background()))
	_, _ = c.Apply(context.Background(), Selection{MultiSelection: []int64{1, 2}})

	h, err := c.StartBatch(context.Background(), true)
	require.NoError(t, err)
	waitDone(t, h)

	assert.Len(t, gotReq.Employees, 2)
	assert.True(t, gotReq.SendEmail)
	assert.Equal(t, entity.BatchTriggerManual, gotReq.Trigger)

	s := c.State()
	assert.Equal(t, h.RunID, s.Batch.RunID)
	assert.Equal(t, entity.BatchStatusDone, s.Batch.Status)
	assert.Equal(t, 2, s.Batch.Run.Len())

	view, ok := c.Navigate(1)
	assert.True(t, ok)
	assert.Equal(t, 1, view.Cursor)

	file, err := c.Export(service.ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
}

func TestController_NewBatchCancelsPrevious(t *testing.T) {
	var mu sync.Mutex
	cancelled := map[string]bool{}
	release := make(chan struct{})

	c := newTestController(Services{Batches: &fakeBatches{
		runFunc: func(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error) {
			select {
			case <-ctx.Done():
				mu.Lock()
				cancelled[req.RunID] = true
				mu.Unlock()
				run := batchRun(req.RunID, 0)
				run.Status = entity.BatchStatusCancelled
				return run, service.ErrBatchCancelled
			case <-release:
				return batchRun(req.RunID, len(req.Employees)), nil
			}
		},
	}})
	require.NoError(t, c.Reload(context.Background()))

	first, err := c.StartBatch(context.Background(), false)
	require.NoError(t, err)
	second, err := c.StartBatch(context.Background(), false)
	require.NoError(t, err)

	waitDone(t, first)
	close(release)
	waitDone(t, second)

	mu.Lock()
	assert.True(t, cancelled[first.RunID])
	assert.False(t, cancelled[second.RunID])
	mu.Unlock()

	s := c.State()
	assert.Equal(t, second.RunID, s.Batch.RunID)
	assert.Equal(t, entity.BatchStatusDone, s.Batch.Status)
}

func TestController_CancelBatch(t *testing.T) {
	c := newTestController(Services{Batches: &fakeBatches{
		runFunc: func(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error) {
			<-ctx.Done()
			run := batchRun(req.RunID, 0)
			run.Status = entity.BatchStatusCancelled
			return run, errors.Join(service.ErrBatchCancelled, ctx.Err())
		},
	}})
	require.NoError(t, c.Reload(context.Background()))
	assert.False(t, c.CancelBatch(), "nothing running yet")

	h, err := c.StartBatch(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, c.CancelBatch())
	waitDone(t, h)

	assert.Equal(t, entity.BatchStatusCancelled, c.State().Batch.Status)
}

func TestController_CloseCancelsBatch(t *testing.T) {
	c := newTestController(Services{Batches: &fakeBatches{
		runFunc: func(ctx context.Context, req service.BatchRequest, observer service.ProgressObserver) (*entity.BatchRun, error) {
			<-ctx.Done()
			return batchRun(req.RunID, 0), service.ErrBatchCancelled
		},
	}})
	require.NoError(t, c.Reload(context.Background()))

	h, err := c.StartBatch(context.Background(), false)
	require.NoError(t, err)
	c.Close()
	waitDone(t, h)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Services{Directory: &fakeDirectory{}}, time.UTC, nopLogger{})

	c := r.Create(entity.ReportTypeManager)
	got, ok := r.Get(c.ID())
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, entity.ReportTypeManager, got.State().ReportType)
	assert.Equal(t, entity.PeriodKindPreview, got.State().Period.Kind)

	fallback := r.Create(entity.ReportType("bogus"))
	assert.Equal(t, entity.ReportTypeCSA, fallback.State().ReportType)
	assert.Len(t, r.IDs(), 2)

	assert.True(t, r.Close(c.ID()))
	assert.False(t, r.Close(c.ID()))
	_, ok = r.Get(c.ID())
	assert.False(t, ok)

	r.CloseAll()
	assert.Empty(t, r.IDs())
}

package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/roster"
)

func pct(v float64) *float64 { return &v }

func testPeriod() entity.ReportPeriod {
	return entity.ReportPeriod{
		Label: "February 2026 (Final)",
		Start: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		Kind:  entity.PeriodKindFinal,
	}
}

func testDirectory() []entity.Employee {
	return []entity.Employee{
		{UserID: 1, FirstName: "Ana", LastName: "Diaz", StoreNumber: 609, InvoicePercentage: pct(20)},
		{UserID: 2, FirstName: "Bo", LastName: "Eng", StoreNumber: 1257, InvoicePercentage: pct(5)},
		{UserID: 3, FirstName: "Cy", LastName: "Abel", StoreNumber: 609, InvoicePercentage: pct(12)},
	}
}

func loaded(s State) State {
	s = Reduce(s, DirectoryLoadStarted{})
	return Reduce(s, DirectoryLoaded{Gen: s.DirectoryGen, Employees: testDirectory()})
}

func TestReduce_DirectoryGeneration(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())

	s = Reduce(s, DirectoryLoadStarted{})
	stale := s.DirectoryGen
	s = Reduce(s, DirectoryLoadStarted{})
	current := s.DirectoryGen
	require.True(t, s.DirectoryLoading)

	s = Reduce(s, DirectoryLoaded{Gen: current, Employees: testDirectory()})
	assert.Len(t, s.Directory, 3)
	assert.False(t, s.DirectoryLoading)

	s = Reduce(s, DirectoryLoaded{Gen: stale, Employees: testDirectory()[:1]})
	assert.Len(t, s.Directory, 3, "stale load ignored")

	s = Reduce(s, DirectoryLoadFailed{Gen: stale, Err: "late failure"})
	assert.Empty(t, s.DirectoryErr, "stale failure ignored")
}

func TestReduce_DirectoryFailureLeavesEmpty(t *testing.T) {
	s := loaded(NewState(entity.ReportTypeCSA, testPeriod()))

	s = Reduce(s, DirectoryLoadStarted{})
	s = Reduce(s, DirectoryLoadFailed{Gen: s.DirectoryGen, Err: "failed to load employees"})

	assert.Empty(t, s.Directory)
	assert.Equal(t, "failed to load employees", s.DirectoryErr)
	assert.False(t, s.DirectoryLoading)
}

func TestReduce_ReportTypeClearsSelection(t *testing.T) {
	s := loaded(NewState(entity.ReportTypeCSA, testPeriod()))
	s = Reduce(s, SelectEmployee{UserID: 2})
	s = Reduce(s, SetMultiSelection{UserIDs: []int64{1, 3}})
	s = Reduce(s, ReportSucceeded{Gen: s.ReportGen, Result: &entity.ReportResult{}})

	s = Reduce(s, SetReportType{ReportType: entity.ReportTypeGreeter})

	assert.Equal(t, entity.ReportTypeGreeter, s.ReportType)
	assert.Zero(t, s.SelectedEmployeeID)
	assert.Nil(t, s.MultiSelection)
	assert.Nil(t, s.Report)
}

func TestReduce_DoesNotAliasInput(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())
	ids := []int64{1, 2}

	s = Reduce(s, SetMultiSelection{UserIDs: ids})
	ids[0] = 99

	assert.Equal(t, []int64{1, 2}, s.MultiSelection)
}

func TestReduce_ReportGeneration(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())
	s = Reduce(s, ReportSucceeded{Gen: s.ReportGen, Result: &entity.ReportResult{EmployeeName: "old"}})

	s = Reduce(s, ReportStarted{})
	assert.Nil(t, s.Report, "prior result cleared before the new request")
	assert.True(t, s.ReportLoading)
	gen := s.ReportGen

	s = Reduce(s, ReportFailed{Gen: gen - 1, Err: "stale"})
	assert.Empty(t, s.ReportErr)

	s = Reduce(s, ReportFailed{Gen: gen, Err: "Employee not found"})
	assert.Equal(t, "Employee not found", s.ReportErr)
	assert.False(t, s.ReportLoading)
}

func TestBatchInput(t *testing.T) {
	s := loaded(NewState(entity.ReportTypeCSA, testPeriod()))

	t.Run("visible list when nothing selected", func(t *testing.T) {
		got := BatchInput(s)
		require.Len(t, got, 3)
		assert.Equal(t, int64(3), got[0].UserID, "name_asc puts Abel first")
	})

	t.Run("multi-selection in visible order", func(t *testing.T) {
		ms := Reduce(s, SetMultiSelection{UserIDs: []int64{1, 3}})
		got := BatchInput(ms)
		require.Len(t, got, 2)
		assert.Equal(t, int64(3), got[0].UserID)
		assert.Equal(t, int64(1), got[1].UserID)
	})

	t.Run("filter applies to the visible list", func(t *testing.T) {
		fs := Reduce(s, SetTier{Tier: roster.TierVisible})
		fs = Reduce(fs, SetStoreFilter{Stores: roster.SpecificStores(609)})
		assert.Len(t, BatchInput(fs), 2)
	})

	t.Run("empty directory", func(t *testing.T) {
		assert.Empty(t, BatchInput(NewState(entity.ReportTypeCSA, testPeriod())))
	})
}

func batchRun(runID string, n int) *entity.BatchRun {
	run := &entity.BatchRun{ID: runID, Status: entity.BatchStatusDone, Progress: entity.Progress{Current: n, Total: n}}
	for i := 0; i < n; i++ {
		run.Items = append(run.Items, entity.BatchItem{Employee: entity.Employee{UserID: int64(i + 1)}})
	}
	return run
}

func TestReduce_BatchLifecycle(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())
	s = Reduce(s, BatchStarted{RunID: "a", Total: 3})
	assert.Equal(t, entity.BatchStatusRunning, s.Batch.Status)
	assert.Equal(t, entity.Progress{Current: 0, Total: 3}, s.Batch.Progress)

	partial := batchRun("a", 1)
	partial.Status = entity.BatchStatusRunning
	partial.Progress = entity.Progress{Current: 1, Total: 3}
	s = Reduce(s, BatchProgressed{RunID: "a", Run: partial})
	assert.Equal(t, 1, s.Batch.Progress.Current)

	s = Reduce(s, BatchStarted{RunID: "b", Total: 2})
	s = Reduce(s, BatchFinished{RunID: "a", Run: batchRun("a", 3)})
	assert.Equal(t, "b", s.Batch.RunID, "stale completion discarded")
	assert.Equal(t, entity.BatchStatusRunning, s.Batch.Status)
	assert.Nil(t, s.Batch.Run)

	s = Reduce(s, BatchFinished{RunID: "b", Run: batchRun("b", 2)})
	assert.Equal(t, entity.BatchStatusDone, s.Batch.Status)
	assert.Equal(t, 2, s.Batch.Run.Len())
}

func TestReduce_BatchCancelled(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())
	s = Reduce(s, BatchStarted{RunID: "a", Total: 5})

	run := batchRun("a", 2)
	run.Status = entity.BatchStatusCancelled
	run.Progress = entity.Progress{Current: 2, Total: 5}
	s = Reduce(s, BatchFinished{RunID: "a", Run: run, Err: "batch cancelled"})

	assert.Equal(t, entity.BatchStatusCancelled, s.Batch.Status)
	assert.Equal(t, "batch cancelled", s.Batch.Err)
}

func TestReduce_Navigation(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())
	s = Reduce(s, BatchStarted{RunID: "a", Total: 3})
	s = Reduce(s, BatchFinished{RunID: "a", Run: batchRun("a", 3)})

	steps := []struct {
		action Action
		want   int
	}{
		{NavigateBatch{Delta: -1}, 0},
		{NavigateBatch{Delta: 1}, 1},
		{NavigateBatch{Delta: 1}, 2},
		{NavigateBatch{Delta: 1}, 2},
		{JumpBatch{Index: 0}, 0},
		{JumpBatch{Index: 99}, 2},
		{JumpBatch{Index: -4}, 0},
		{JumpBatch{Index: 1}, 1},
	}
	for i, step := range steps {
		s = Reduce(s, step.action)
		assert.Equal(t, step.want, s.Batch.Cursor, "step %d", i)
	}

	item, ok := s.Batch.Current()
	require.True(t, ok)
	assert.Equal(t, int64(2), item.Employee.UserID)
}

func TestReduce_NavigationWithoutResults(t *testing.T) {
	s := NewState(entity.ReportTypeCSA, testPeriod())
	s = Reduce(s, NavigateBatch{Delta: 1})
	assert.Equal(t, 0, s.Batch.Cursor)

	_, ok := s.Batch.Current()
	assert.False(t, ok)
}

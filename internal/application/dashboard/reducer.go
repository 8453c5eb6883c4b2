package dashboard

import (
	"slices"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/roster"
)

// Action is a state transition request
type Action interface {
	action()
}

type (
	// SetReportType switches role; the directory must be reloaded
	SetReportType struct{ ReportType entity.ReportType }

	// SelectPeriod switches period; the directory must be reloaded
	SelectPeriod struct{ Period entity.ReportPeriod }

	// DirectoryLoadStarted opens a new load generation
	DirectoryLoadStarted struct{}

	DirectoryLoaded struct {
		Gen       uint64
		Employees []entity.Employee
	}

	DirectoryLoadFailed struct {
		Gen uint64
		Err string
	}

	SetStoreFilter struct{ Stores roster.StoreFilter }
	SetTier        struct{ Tier roster.Tier }
	SetSort        struct{ Sort roster.SortKey }

	SelectEmployee    struct{ UserID int64 }
	SetMultiSelection struct{ UserIDs []int64 }

	// ReportStarted clears the previous result before a new request
	ReportStarted struct{}

	ReportSucceeded struct {
		Gen    uint64
		Result *entity.ReportResult
		Notice string
	}

	ReportFailed struct {
		Gen uint64
		Err string
	}

	BatchStarted struct {
		RunID string
		Total int
	}

	BatchProgressed struct {
		RunID string
		Run   *entity.BatchRun
	}

	BatchFinished struct {
		RunID string
		Run   *entity.BatchRun
		Err   string
	}

	// NavigateBatch moves the cursor by Delta, clamped at the edges
	NavigateBatch struct{ Delta int }

	// JumpBatch moves the cursor to Index, clamped into range
	JumpBatch struct{ Index int }
)

func (SetReportType) action()        {}
func (SelectPeriod) action()         {}
func (DirectoryLoadStarted) action() {}
func (DirectoryLoaded) action()      {}
func (DirectoryLoadFailed) action()  {}
func (SetStoreFilter) action()       {}
func (SetTier) action()              {}
func (SetSort) action()              {}
func (SelectEmployee) action()       {}
func (SetMultiSelection) action()    {}
func (ReportStarted) action()        {}
func (ReportSucceeded) action()      {}
func (ReportFailed) action()         {}
func (BatchStarted) action()         {}
func (BatchProgressed) action()      {}
func (BatchFinished) action()        {}
func (NavigateBatch) action()        {}
func (JumpBatch) action()            {}

// Reduce returns the state after applying a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetReportType:
		s.ReportType = a.ReportType
		s = clearSelection(s)
	case SelectPeriod:
		s.Period = a.Period
		s = clearSelection(s)

	case DirectoryLoadStarted:
		s.DirectoryGen++
		s.DirectoryLoading = true
		s.DirectoryErr = ""
		s.Directory = nil
	case DirectoryLoaded:
		if a.Gen != s.DirectoryGen {
			return s
		}
		s.DirectoryLoading = false
		s.Directory = slices.Clone(a.Employees)
	case DirectoryLoadFailed:
		if a.Gen != s.DirectoryGen {
			return s
		}
		s.DirectoryLoading = false
		s.DirectoryErr = a.Err
		s.Directory = nil

	case SetStoreFilter:
		s.Filter.Stores = a.Stores
	case SetTier:
		s.Filter.Tier = a.Tier
	case SetSort:
		s.Filter.Sort = a.Sort

	case SelectEmployee:
		s.SelectedEmployeeID = a.UserID
	case SetMultiSelection:
		s.MultiSelection = slices.Clone(a.UserIDs)

	case ReportStarted:
		s.ReportGen++
		s.ReportLoading = true
		s.Report = nil
		s.ReportErr = ""
		s.Notice = ""
	case ReportSucceeded:
		if a.Gen != s.ReportGen {
			return s
		}
		s.ReportLoading = false
		s.Report = a.Result
		s.Notice = a.Notice
	case ReportFailed:
		if a.Gen != s.ReportGen {
			return s
		}
		s.ReportLoading = false
		s.ReportErr = a.Err

	case BatchStarted:
		s.Batch = BatchView{
			RunID:    a.RunID,
			Status:   entity.BatchStatusRunning,
			Progress: entity.Progress{Current: 0, Total: a.Total},
		}
	case BatchProgressed:
		if a.RunID != s.Batch.RunID || a.Run == nil {
			return s
		}
		s.Batch.Run = a.Run
		s.Batch.Progress = a.Run.Progress
	case BatchFinished:
		if a.RunID != s.Batch.RunID {
			return s
		}
		s.Batch.Err = a.Err
		s.Batch.Status = entity.BatchStatusDone
		if a.Run != nil {
			s.Batch.Run = a.Run
			s.Batch.Progress = a.Run.Progress
			s.Batch.Status = a.Run.Status
		}
		s.Batch.Cursor = clamp(s.Batch.Cursor, s.Batch.Run.Len())

	case NavigateBatch:
		s.Batch.Cursor = clamp(s.Batch.Cursor+a.Delta, s.Batch.Run.Len())
	case JumpBatch:
		s.Batch.Cursor = clamp(a.Index, s.Batch.Run.Len())
	}
	return s
}

// clearSelection drops choices tied to the previous directory
func clearSelection(s State) State {
	s.SelectedEmployeeID = 0
	s.MultiSelection = nil
	s.Report = nil
	s.ReportErr = ""
	s.Notice = ""
	return s
}

// clamp bounds a 0-based position to [0, n-1], or 0 when n is 0
func clamp(index, n int) int {
	if n == 0 || index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}

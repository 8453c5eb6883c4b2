// Package dashboard holds the per-session dashboard state. State changes only
// through Reduce; the Controller serialises actions and runs the side effects.
package dashboard

import (
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/roster"
)

// BatchView is the session's view of its latest batch run
type BatchView struct {
	RunID    string             `json:"run_id,omitempty"`
	Status   entity.BatchStatus `json:"status"`
	Progress entity.Progress    `json:"progress"`
	Cursor   int                `json:"cursor"`
	Run      *entity.BatchRun   `json:"-"`
	Err      string             `json:"error,omitempty"`
}

// Current returns the item under the cursor
func (v BatchView) Current() (entity.BatchItem, bool) {
	return v.Run.At(v.Cursor)
}

// State is everything one dashboard session shows
type State struct {
	ReportType       entity.ReportType   `json:"report_type"`
	Period           entity.ReportPeriod `json:"period"`
	Directory        []entity.Employee   `json:"-"`
	DirectoryLoading bool                `json:"directory_loading"`
	DirectoryErr     string              `json:"directory_error,omitempty"`
	DirectoryGen     uint64              `json:"-"`

	Filter             roster.Criteria `json:"-"`
	SelectedEmployeeID int64           `json:"selected_employee_id,omitempty"`
	MultiSelection     []int64         `json:"multi_selection,omitempty"`

	Report        *entity.ReportResult `json:"-"`
	ReportLoading bool                 `json:"report_loading"`
	ReportErr     string               `json:"report_error,omitempty"`
	ReportGen     uint64               `json:"-"`
	Notice        string               `json:"notice,omitempty"`

	Batch BatchView `json:"batch"`
}

// NewState returns the initial state for a session
func NewState(reportType entity.ReportType, period entity.ReportPeriod) State {
	return State{
		ReportType: reportType,
		Period:     period,
		Filter:     roster.DefaultCriteria(),
		Batch:      BatchView{Status: entity.BatchStatusIdle},
	}
}

// Visible returns the filtered, sorted directory
func Visible(s State) []entity.Employee {
	return roster.Apply(s.Directory, s.Filter)
}

// SelectedEmployee returns the single-selected employee from the directory
func SelectedEmployee(s State) *entity.Employee {
	if s.SelectedEmployeeID == 0 {
		return nil
	}
	for i := range s.Directory {
		if s.Directory[i].UserID == s.SelectedEmployeeID {
			e := s.Directory[i]
			return &e
		}
	}
	return nil
}

// BatchInput resolves the effective batch input: the multi-selection when it
// is non-empty, otherwise the whole visible list. Both are taken in visible
// order; selected employees hidden by the filter are not included.
func BatchInput(s State) []entity.Employee {
	visible := Visible(s)
	if len(s.MultiSelection) == 0 {
		return visible
	}

	selected := make(map[int64]struct{}, len(s.MultiSelection))
	for _, id := range s.MultiSelection {
		selected[id] = struct{}{}
	}
	input := make([]entity.Employee, 0, len(s.MultiSelection))
	for _, e := range visible {
		if _, ok := selected[e.UserID]; ok {
			input = append(input, e)
		}
	}
	return input
}

package entity

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle status of a batch run
type BatchStatus string

const (
	BatchStatusIdle      BatchStatus = "idle"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusDone      BatchStatus = "done"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// BatchTrigger records what started a batch run
type BatchTrigger string

const (
	BatchTriggerManual   BatchTrigger = "manual"
	BatchTriggerSchedule BatchTrigger = "schedule"
)

// Progress counts attempted items. Current only grows during a run.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ItemOutcome is the tagged result of one per-employee attempt: exactly one of
// Result or Err is set.
type ItemOutcome struct {
	Index    int           `json:"index"`
	Employee Employee      `json:"employee"`
	Result   *ReportResult `json:"result,omitempty"`
	Err      error         `json:"-"`
}

// Succeeded returns true if the attempt produced a report
func (o ItemOutcome) Succeeded() bool {
	return o.Err == nil && o.Result != nil
}

// Reason returns the failure message, or "" for a success
func (o ItemOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// BatchItem pairs an employee with its generated report
type BatchItem struct {
	Employee Employee     `json:"employee"`
	Result   ReportResult `json:"result"`
}

// BatchRun is one sequential execution of report generation
type BatchRun struct {
	ID          string        `json:"id"`
	ReportType  ReportType    `json:"report_type"`
	Period      ReportPeriod  `json:"period"`
	SendEmail   bool          `json:"send_email"`
	Trigger     BatchTrigger  `json:"trigger"`
	ScheduleKey string        `json:"schedule_key,omitempty"`
	Status      BatchStatus   `json:"status"`
	Progress    Progress      `json:"progress"`
	Items       []BatchItem   `json:"items"`
	Outcomes    []ItemOutcome `json:"-"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// Snapshot returns a copy that does not share item slices with the run
func (r *BatchRun) Snapshot() *BatchRun {
	if r == nil {
		return nil
	}
	c := *r
	c.Items = slices.Clone(r.Items)
	c.Outcomes = slices.Clone(r.Outcomes)
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		c.FinishedAt = &finished
	}
	return &c
}

// Len returns the number of successful items
func (r *BatchRun) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// At returns the item at a 0-based position
func (r *BatchRun) At(index int) (BatchItem, bool) {
	if r == nil || index < 0 || index >= len(r.Items) {
		return BatchItem{}, false
	}
	return r.Items[index], true
}

// Failures returns the failed outcomes in input order
func (r *BatchRun) Failures() []ItemOutcome {
	if r == nil {
		return nil
	}
	var failed []ItemOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// BatchStats are statistics derived on demand from a result set
type BatchStats struct {
	Total        int             `json:"total"`
	Qualified    int             `json:"qualified"`
	NotQualified int             `json:"not_qualified"`
	TotalBonus   decimal.Decimal `json:"total_bonus"`
}

// Stats recomputes the aggregate statistics of the run
func (r *BatchRun) Stats() BatchStats {
	stats := BatchStats{TotalBonus: decimal.Zero}
	if r == nil {
		return stats
	}
	for _, item := range r.Items {
		stats.Total++
		if item.Result.IsQualified {
			stats.Qualified++
		} else {
			stats.NotQualified++
		}
		stats.TotalBonus = stats.TotalBonus.Add(decimal.NewFromFloat(item.Result.TotalBonus))
	}
	return stats
}

// BatchRunRecord is the persisted summary of a finished batch run.
// Per-employee results are never stored.
type BatchRunRecord struct {
	ID          string       `json:"id"`
	Trigger     BatchTrigger `json:"trigger"`
	ScheduleKey string       `json:"schedule_key,omitempty"`
	ReportType  ReportType   `json:"report_type"`
	PeriodStart string       `json:"period_start"`
	PeriodEnd   string       `json:"period_end"`
	PeriodKind  PeriodKind   `json:"period_kind"`
	Requested   int          `json:"requested"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Qualified   int          `json:"qualified"`
	TotalBonus  string       `json:"total_bonus"`
	Status      BatchStatus  `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// NewBatchRunRecord summarises a run for persistence
func NewBatchRunRecord(run *BatchRun) *BatchRunRecord {
	stats := run.Stats()
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	return &BatchRunRecord{
		ID:          run.ID,
		Trigger:     run.Trigger,
		ScheduleKey: run.ScheduleKey,
		ReportType:  run.ReportType,
		PeriodStart: run.Period.StartDate(),
		PeriodEnd:   run.Period.EndDate(),
		PeriodKind:  run.Period.Kind,
		Requested:   run.Progress.Total,
		Succeeded:   len(run.Items),
		Failed:      len(run.Failures()),
		Qualified:   stats.Qualified,
		TotalBonus:  stats.TotalBonus.StringFixed(2),
		Status:      run.Status,
		StartedAt:   run.StartedAt,
		FinishedAt:  finished,
	}
}

// DashboardStats summarises the active workforce and recent report activity
type DashboardStats struct {
	CSACount      int               `json:"csa_count"`
	GreeterCount  int               `json:"greeter_count"`
	ManagerCount  int               `json:"manager_count"`
	RecentReports []ReportLogEntry  `json:"recent_reports"`
	RecentBatches []*BatchRunRecord `json:"recent_batches"`
}

// ReportLogEntry is a row of the gateway's report card log table, passed
// through column for column. The table is owned by the gateway and its
// schema is not fixed here.
type ReportLogEntry map[string]any

package entity

import (
	"encoding/json"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire
const DateLayout = "2006-01-02"

// PeriodKind distinguishes provisional from settled reporting periods
type PeriodKind string

const (
	PeriodKindPreview PeriodKind = "preview"
	PeriodKindFinal   PeriodKind = "final"
)

// ReportPeriod is an immutable reporting date range
type ReportPeriod struct {
	Label  string
	Start  time.Time
	End    time.Time
	Kind   PeriodKind
	Custom bool
}

// StartDate returns the start as YYYY-MM-DD
func (p ReportPeriod) StartDate() string {
	return p.Start.Format(DateLayout)
}

// EndDate returns the end as YYYY-MM-DD
func (p ReportPeriod) EndDate() string {
	return p.End.Format(DateLayout)
}

// IsZero returns true when no period has been chosen
func (p ReportPeriod) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

type periodJSON struct {
	Label  string     `json:"label"`
	Start  string     `json:"start"`
	End    string     `json:"end"`
	Kind   PeriodKind `json:"kind"`
	Custom bool       `json:"custom,omitempty"`
}

// MarshalJSON encodes dates without a time component
func (p ReportPeriod) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodJSON{
		Label:  p.Label,
		Start:  p.StartDate(),
		End:    p.EndDate(),
		Kind:   p.Kind,
		Custom: p.Custom,
	})
}

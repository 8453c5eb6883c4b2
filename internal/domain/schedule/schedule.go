// Package schedule describes the fixed monthly report card calendar.
package schedule

import (
	"fmt"
	"time"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/period"
)

// Slot is one scheduled batch: a report type run on a day of the month
type Slot struct {
	Day        int
	ReportType entity.ReportType
	Kind       entity.PeriodKind
}

// Default is the reporting calendar. Finals go out once the month has closed,
// previews mid-month.
var Default = []Slot{
	{Day: 1, ReportType: entity.ReportTypeManager, Kind: entity.PeriodKindFinal},
	{Day: 2, ReportType: entity.ReportTypeCSA, Kind: entity.PeriodKindFinal},
	{Day: 2, ReportType: entity.ReportTypeGreeter, Kind: entity.PeriodKindFinal},
	{Day: 10, ReportType: entity.ReportTypeCSA, Kind: entity.PeriodKindPreview},
	{Day: 10, ReportType: entity.ReportTypeGreeter, Kind: entity.PeriodKindPreview},
	{Day: 10, ReportType: entity.ReportTypeManager, Kind: entity.PeriodKindPreview},
	{Day: 20, ReportType: entity.ReportTypeCSA, Kind: entity.PeriodKindPreview},
	{Day: 20, ReportType: entity.ReportTypeGreeter, Kind: entity.PeriodKindPreview},
	{Day: 20, ReportType: entity.ReportTypeManager, Kind: entity.PeriodKindPreview},
}

// Due is a slot that should run now, with its resolved period
type Due struct {
	Slot   Slot
	Key    string
	Period entity.ReportPeriod
}

// DueAt returns the slots of calendar whose day is today and whose hour has
// been reached. now is interpreted in its own location.
func DueAt(calendar []Slot, now time.Time, hour int) []Due {
	if now.Hour() < hour {
		return nil
	}

	var due []Due
	for _, slot := range calendar {
		if slot.Day != now.Day() {
			continue
		}
		due = append(due, Due{
			Slot:   slot,
			Key:    Key(now, slot),
			Period: slot.Period(now),
		})
	}
	return due
}

// Period resolves the reporting period the slot covers on date
func (s Slot) Period(date time.Time) entity.ReportPeriod {
	if s.Kind == entity.PeriodKindFinal {
		return period.PreviousFinal(date)
	}
	return period.CurrentPreview(date)
}

// Key identifies a slot occurrence, e.g. "2026-03-02/greeter/final"
func Key(date time.Time, slot Slot) string {
	return fmt.Sprintf("%s/%s/%s", date.Format("2006-01-02"), slot.ReportType, slot.Kind)
}

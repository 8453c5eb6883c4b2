// Package period derives the selectable reporting periods.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// PresetCount is the number of generated periods (current MTD + 3 months)
const PresetCount = 4

// ErrMissingDates is returned when a custom range lacks a start or end date
var ErrMissingDates = errors.New("please select a date range")

// Presets returns the selectable periods as a pure function of now. Item 0 is
// the current month from day 1 through yesterday; items 1..3 are the previous
// three full calendar months.
func Presets(now time.Time) []entity.ReportPeriod {
	loc := now.Location()
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, loc)
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	periods := make([]entity.ReportPeriod, 0, PresetCount)
	periods = append(periods, entity.ReportPeriod{
		Label: fmt.Sprintf("%s %d (Preview - MTD)", month, year),
		Start: monthStart,
		End:   today.AddDate(0, 0, -1),
		Kind:  entity.PeriodKindPreview,
	})

	for i := 1; i < PresetCount; i++ {
		start := monthStart.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, -1)
		periods = append(periods, entity.ReportPeriod{
			Label: fmt.Sprintf("%s %d (Final)", start.Month(), start.Year()),
			Start: start,
			End:   end,
			Kind:  entity.PeriodKindFinal,
		})
	}

	return periods
}

// Custom builds a preview period from two ISO dates. The order of the dates
// is not checked: a start after the end is passed through as given.
func Custom(start, end string) (entity.ReportPeriod, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return entity.ReportPeriod{}, ErrMissingDates
	}

	s, err := time.Parse(entity.DateLayout, start)
	if err != nil {
		return entity.ReportPeriod{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(entity.DateLayout, end)
	if err != nil {
		return entity.ReportPeriod{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	return entity.ReportPeriod{
		Label:  fmt.Sprintf("Custom (%s to %s)", start, end),
		Start:  s,
		End:    e,
		Kind:   entity.PeriodKindPreview,
		Custom: true,
	}, nil
}

// Find returns the preset with the given label
func Find(presets []entity.ReportPeriod, label string) (entity.ReportPeriod, bool) {
	for _, p := range presets {
		if p.Label == label {
			return p, true
		}
	}
	return entity.ReportPeriod{}, false
}

// CurrentPreview returns the month-to-date preset for now
func CurrentPreview(now time.Time) entity.ReportPeriod {
	return Presets(now)[0]
}

// PreviousFinal returns the last closed calendar month for now
func PreviousFinal(now time.Time) entity.ReportPeriod {
	return Presets(now)[1]
}

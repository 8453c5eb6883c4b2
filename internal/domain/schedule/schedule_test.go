package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

func TestDueAt_BeforeHour(t *testing.T) {
	now := time.Date(2026, time.March, 2, 7, 59, 0, 0, time.UTC)
	assert.Empty(t, DueAt(Default, now, 8))
}

func TestDueAt_FinalsOnSecond(t *testing.T) {
	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

	due := DueAt(Default, now, 8)

	require.Len(t, due, 2)
	assert.Equal(t, entity.ReportTypeCSA, due[0].Slot.ReportType)
	assert.Equal(t, entity.ReportTypeGreeter, due[1].Slot.ReportType)
	assert.Equal(t, "2026-03-02/greeter/final", due[1].Key)
	assert.Equal(t, entity.PeriodKindFinal, due[1].Period.Kind)
	assert.Equal(t, "2026-02-01", due[1].Period.StartDate())
	assert.Equal(t, "2026-02-28", due[1].Period.EndDate())
}

func TestDueAt_ManagerFinalOnFirst(t *testing.T) {
	due := DueAt(Default, time.Date(2026, time.April, 1, 9, 30, 0, 0, time.UTC), 8)

	require.Len(t, due, 1)
	assert.Equal(t, entity.ReportTypeManager, due[0].Slot.ReportType)
	assert.Equal(t, "2026-03-01", due[0].Period.StartDate())
}

func TestDueAt_PreviewsMidMonth(t *testing.T) {
	for _, day := range []int{10, 20} {
		due := DueAt(Default, time.Date(2026, time.March, day, 8, 0, 0, 0, time.UTC), 8)

		require.Len(t, due, 3)
		for _, d := range due {
			assert.Equal(t, entity.PeriodKindPreview, d.Period.Kind)
			assert.Equal(t, "2026-03-01", d.Period.StartDate())
		}
	}
}

func TestDueAt_QuietDay(t *testing.T) {
	assert.Empty(t, DueAt(Default, time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC), 8))
}

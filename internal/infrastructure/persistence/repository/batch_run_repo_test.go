package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/report-card-viewer/migrations"
	"github.com/garyjia/report-card-viewer/pkg/database"
)

func setupRepo(t *testing.T) (port.BatchRunRepository, *sqlite.DB) {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "runs.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, zap.NewNop()).Migrate(context.Background(), migrations.FS)
	require.NoError(t, err)
	return NewBatchRunRepository(db.DB, zap.NewNop()), sqlite.NewDB(db.DB, zap.NewNop())
}

func testRecord(id string, started time.Time) *entity.BatchRunRecord {
	return &entity.BatchRunRecord{
		ID:          id,
		Trigger:     entity.BatchTriggerManual,
		ReportType:  entity.ReportTypeCSA,
		PeriodStart: "2026-02-01",
		PeriodEnd:   "2026-02-28",
		PeriodKind:  entity.PeriodKindFinal,
		Requested:   3,
		Succeeded:   2,
		Failed:      1,
		Qualified:   1,
		TotalBonus:  "150.00",
		Status:      entity.BatchStatusDone,
		StartedAt:   started,
		FinishedAt:  started.Add(time.Minute),
	}
}

func TestBatchRunRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, testRecord("run-1", started)))

	got, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.ReportTypeCSA, got.ReportType)
	assert.Equal(t, entity.PeriodKindFinal, got.PeriodKind)
	assert.Equal(t, "150.00", got.TotalBonus)
	assert.Equal(t, 2, got.Succeeded)
	assert.Empty(t, got.ScheduleKey)
	assert.True(t, started.Equal(got.StartedAt))
}

func TestBatchRunRepository_GetMissing(t *testing.T) {
	repo, _ := setupRepo(t)

	got, err := repo.GetByID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestBatchRunRepository_ListNewestFirst(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, testRecord(id, base.Add(time.Duration(i)*time.Hour))))
	}

	got, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	rest, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "a", rest[0].ID)
}

func TestBatchRunRepository_ScheduleKeyUnique(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now()

	exists, err := repo.ExistsForSchedule(ctx, "2026-03-02/csa/final")
	require.NoError(t, err)
	assert.False(t, exists)

	first := testRecord("run-1", now)
	first.ScheduleKey = "2026-03-02/csa/final"
	first.Trigger = entity.BatchTriggerSchedule
	require.NoError(t, repo.Create(ctx, first))

	exists, err = repo.ExistsForSchedule(ctx, "2026-03-02/csa/final")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := testRecord("run-2", now)
	dup.ScheduleKey = "2026-03-02/csa/final"
	assert.Error(t, repo.Create(ctx, dup))

	// Manual runs carry no key and never collide.
	require.NoError(t, repo.Create(ctx, testRecord("run-3", now)))
	require.NoError(t, repo.Create(ctx, testRecord("run-4", now)))
}

func TestBatchRunRepository_CancelledSlotStaysOpen(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now()
	key := "2026-03-02/csa/final"

	cancelled := testRecord("run-1", now)
	cancelled.ScheduleKey = key
	cancelled.Trigger = entity.BatchTriggerSchedule
	cancelled.Status = entity.BatchStatusCancelled
	require.NoError(t, repo.Create(ctx, cancelled))

	exists, err := repo.ExistsForSchedule(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	resumed := testRecord("run-2", now.Add(time.Hour))
	resumed.ScheduleKey = key
	resumed.Trigger = entity.BatchTriggerSchedule
	require.NoError(t, repo.Create(ctx, resumed))

	exists, err = repo.ExistsForSchedule(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, key, got.ScheduleKey)
}

func TestBatchRunRepository_TransactionRollback(t *testing.T) {
	repo, tm := setupRepo(t)
	ctx := context.Background()

	err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Create(txCtx, testRecord("run-tx", time.Now())))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	got, err := repo.GetByID(ctx, "run-tx")
	require.NoError(t, err)
	assert.Nil(t, got)
}

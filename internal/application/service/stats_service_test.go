package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

func TestStatsService_Counts(t *testing.T) {
	gw := &mockDirectoryGateway{
		listFunc: func(ctx context.Context, token string, filter port.EmployeeFilter) ([]entity.Employee, error) {
			assert.Empty(t, filter.TitleContains)
			return []entity.Employee{
				{Title: "CSA"},
				{Title: "Service Advisor"},
				{Title: "Greeter"},
				{Title: "Lube Technician"},
				{Title: "Store Manager"},
				{Title: "Service Advisor Manager"},
				{Title: "Cashier"},
				{},
			}, nil
		},
		logsFunc: func(ctx context.Context, token string, limit int) ([]entity.ReportLogEntry, error) {
			assert.Equal(t, 5, limit)
			return []entity.ReportLogEntry{{"id": 9, "user_id": 42}}, nil
		},
	}
	runs := &mockRunRepo{created: []*entity.BatchRunRecord{{ID: "run-1"}}}
	svc := NewStatsService(gw, runs, testTokens(), &mockLogger{})

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.CSACount)
	assert.Equal(t, 2, stats.GreeterCount)
	assert.Equal(t, 2, stats.ManagerCount)
	assert.Len(t, stats.RecentReports, 1)
	assert.Len(t, stats.RecentBatches, 1)
}

func TestStatsService_MissingLogsTable(t *testing.T) {
	gw := &mockDirectoryGateway{
		logsFunc: func(ctx context.Context, token string, limit int) ([]entity.ReportLogEntry, error) {
			return nil, &serverError{status: 404, message: "relation does not exist"}
		},
	}
	svc := NewStatsService(gw, nil, testTokens(), &mockLogger{})

	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, stats.RecentReports)
	assert.Empty(t, stats.RecentReports)
	assert.Empty(t, stats.RecentBatches)
}

func TestStatsService_DirectoryError(t *testing.T) {
	gw := &mockDirectoryGateway{
		listFunc: func(ctx context.Context, token string, filter port.EmployeeFilter) ([]entity.Employee, error) {
			return nil, errors.New("boom")
		},
	}
	svc := NewStatsService(gw, nil, testTokens(), &mockLogger{})

	_, err := svc.Stats(context.Background())

	assert.ErrorIs(t, err, ErrDirectoryLoad)
}

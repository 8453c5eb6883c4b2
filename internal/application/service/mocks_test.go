package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func testTokens() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "service-token"})
}

type mockDirectoryGateway struct {
	listFunc   func(ctx context.Context, token string, filter port.EmployeeFilter) ([]entity.Employee, error)
	byRoleFunc func(ctx context.Context, token, roleCode, startDate, endDate string) ([]entity.Employee, error)
	logsFunc   func(ctx context.Context, token string, limit int) ([]entity.ReportLogEntry, error)
}

func (m *mockDirectoryGateway) ListActiveEmployees(ctx context.Context, token string, filter port.EmployeeFilter) ([]entity.Employee, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, token, filter)
	}
	return []entity.Employee{}, nil
}

func (m *mockDirectoryGateway) EmployeesByRole(ctx context.Context, token, roleCode, startDate, endDate string) ([]entity.Employee, error) {
	if m.byRoleFunc != nil {
		return m.byRoleFunc(ctx, token, roleCode, startDate, endDate)
	}
	return []entity.Employee{}, nil
}

func (m *mockDirectoryGateway) RecentReportLogs(ctx context.Context, token string, limit int) ([]entity.ReportLogEntry, error) {
	if m.logsFunc != nil {
		return m.logsFunc(ctx, token, limit)
	}
	return []entity.ReportLogEntry{}, nil
}

type mockReportGateway struct {
	mu           sync.Mutex
	calls        []port.ReportRequest
	endpoints    []string
	tokens       []string
	generateFunc func(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error)
}

func (m *mockReportGateway) GenerateReport(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.endpoints = append(m.endpoints, endpoint)
	m.tokens = append(m.tokens, token)
	m.mu.Unlock()

	if m.generateFunc != nil {
		return m.generateFunc(ctx, token, endpoint, req)
	}
	return &entity.ReportResult{
		EmployeeName: fmt.Sprintf("Employee %d", req.UserID),
		StoreNumber:  609,
		StoreName:    "Santa Maria",
		Period:       entity.PeriodRange{StartDate: req.StartDate, EndDate: req.EndDate},
		ReportType:   string(req.ReportType),
		TotalBonus:   100,
		IsQualified:  true,
		HTML:         "<html>report</html>",
	}, nil
}

func (m *mockReportGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockNarrator struct {
	calls      int
	narrateErr error
	summary    string
}

func (m *mockNarrator) Narrate(ctx context.Context, result *entity.ReportResult) (string, error) {
	m.calls++
	if m.narrateErr != nil {
		return "", m.narrateErr
	}
	return m.summary, nil
}

type mockRunRepo struct {
	created   []*entity.BatchRunRecord
	createErr error
	listFunc  func(ctx context.Context, limit, offset int) ([]*entity.BatchRunRecord, error)
}

func (m *mockRunRepo) Create(ctx context.Context, record *entity.BatchRunRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, record)
	return nil
}

func (m *mockRunRepo) GetByID(ctx context.Context, id string) (*entity.BatchRunRecord, error) {
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRunRepo) List(ctx context.Context, limit, offset int) ([]*entity.BatchRunRecord, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return m.created, nil
}

func (m *mockRunRepo) ExistsForSchedule(ctx context.Context, scheduleKey string) (bool, error) {
	for _, r := range m.created {
		if r.ScheduleKey == scheduleKey {
			return true, nil
		}
	}
	return false, nil
}

// serverError mimics a gateway error carrying a server-reported message
type serverError struct {
	status  int
	message string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.message)
}

func (e *serverError) DisplayMessage() string {
	return e.message
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

package port

import (
	"context"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// ReportRequest is the payload sent to a report card endpoint
type ReportRequest struct {
	UserID     int64             `json:"user_id"`
	StartDate  string            `json:"start_date"`
	EndDate    string            `json:"end_date"`
	ReportType entity.PeriodKind `json:"report_type"`
	SendEmail  bool              `json:"send_email"`
	ReturnHTML bool              `json:"return_html"`
}

// EmployeeFilter narrows a table query over active employees
type EmployeeFilter struct {
	// TitleContains matches titles case-insensitively; empty matches all
	TitleContains string
}

// DirectoryGateway reads employee records from the hosted database
type DirectoryGateway interface {
	// ListActiveEmployees queries the employees table for active staff
	ListActiveEmployees(ctx context.Context, accessToken string, filter EmployeeFilter) ([]entity.Employee, error)

	// EmployeesByRole calls get_employees_by_role for the role code and date window
	EmployeesByRole(ctx context.Context, accessToken string, roleCode, startDate, endDate string) ([]entity.Employee, error)

	// RecentReportLogs returns the newest report card log rows
	RecentReportLogs(ctx context.Context, accessToken string, limit int) ([]entity.ReportLogEntry, error)
}

// ReportGateway invokes the serverless report card endpoints
type ReportGateway interface {
	// GenerateReport posts req to the named endpoint and returns the parsed result.
	// Transport errors, non-2xx responses and success=false all return an error.
	GenerateReport(ctx context.Context, accessToken, endpoint string, req ReportRequest) (*entity.ReportResult, error)
}

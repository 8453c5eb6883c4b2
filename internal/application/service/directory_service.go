package service

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// managerTitle selects managers from the employees table
const managerTitle = "manager"

// DirectoryService loads the candidate employees for a report type and period
type DirectoryService interface {
	Load(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error)
}

type directoryServiceImpl struct {
	gateway port.DirectoryGateway
	tokens  oauth2.TokenSource
	logger  Logger
}

// NewDirectoryService creates a new DirectoryService. tokens is used when the
// call context carries no credentials of its own.
func NewDirectoryService(gateway port.DirectoryGateway, tokens oauth2.TokenSource, logger Logger) DirectoryService {
	return &directoryServiceImpl{
		gateway: gateway,
		tokens:  tokens,
		logger:  logger,
	}
}

// Load fetches the directory. Any gateway error aborts the load; nothing is retried.
func (s *directoryServiceImpl) Load(ctx context.Context, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error) {
	if !reportType.IsValid() {
		return nil, validationError("unknown report type %q", reportType)
	}
	if period.IsZero() {
		return nil, validationError("please select a period")
	}

	token, err := bearerToken(ctx, s.tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLoad, err)
	}

	var employees []entity.Employee
	if reportType == entity.ReportTypeManager {
		employees, err = s.loadManagers(ctx, token)
	} else {
		employees, err = s.loadByRole(ctx, token, reportType, period)
	}
	if err != nil {
		s.logger.Error("Failed to load employees",
			"report_type", reportType,
			"start_date", period.StartDate(),
			"end_date", period.EndDate(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLoad, err)
	}

	s.logger.Info("Employees loaded",
		"report_type", reportType,
		"start_date", period.StartDate(),
		"end_date", period.EndDate(),
		"count", len(employees),
	)
	return employees, nil
}

func (s *directoryServiceImpl) loadManagers(ctx context.Context, token string) ([]entity.Employee, error) {
	employees, err := s.gateway.ListActiveEmployees(ctx, token, port.EmployeeFilter{TitleContains: managerTitle})
	if err != nil {
		return nil, err
	}
	for i := range employees {
		full := 100.0
		employees[i].InvoicePercentage = &full
	}
	return employees, nil
}

func (s *directoryServiceImpl) loadByRole(ctx context.Context, token string, reportType entity.ReportType, period entity.ReportPeriod) ([]entity.Employee, error) {
	employees, err := s.gateway.EmployeesByRole(ctx, token, reportType.Config().RoleCode, period.StartDate(), period.EndDate())
	if err != nil {
		return nil, err
	}
	for i := range employees {
		if employees[i].InvoicePercentage == nil {
			employees[i].InvoicePercentage = invoicePercentage(employees[i])
		}
	}
	return employees, nil
}

// invoicePercentage derives the share of store invoices; nil when counts are absent
func invoicePercentage(e entity.Employee) *float64 {
	if e.InvoiceCount == nil || e.StoreTotalInvoices == nil {
		return nil
	}
	pct := 0.0
	if *e.StoreTotalInvoices > 0 {
		pct = float64(*e.InvoiceCount) / float64(*e.StoreTotalInvoices) * 100
	}
	return &pct
}

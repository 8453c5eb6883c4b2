package service

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/event"
)

// defaultRecipient names the recipient when neither the server nor the
// directory supplies an address
const defaultRecipient = "employee"

// GenerateRequest asks for one employee's report card
type GenerateRequest struct {
	Employee   *entity.Employee
	Period     entity.ReportPeriod
	ReportType entity.ReportType
	SendEmail  bool
}

// ReportService generates single report cards
type ReportService interface {
	// Generate validates the request, calls the report endpoint and returns
	// the result. With SendEmail the result's EmailRecipient names who was emailed.
	Generate(ctx context.Context, req GenerateRequest) (*entity.ReportResult, error)
}

type reportServiceImpl struct {
	gateway    port.ReportGateway
	tokens     oauth2.TokenSource
	narrator   port.Narrator
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// ReportOption configures optional collaborators of the report service
type ReportOption func(*reportServiceImpl)

// WithNarrator sets the narrator used for fallback cards without a summary
func WithNarrator(n port.Narrator) ReportOption {
	return func(s *reportServiceImpl) {
		s.narrator = n
	}
}

// WithReportEvents publishes a report.generated event after every call
func WithReportEvents(d dispatcher.Dispatcher) ReportOption {
	return func(s *reportServiceImpl) {
		s.dispatcher = d
	}
}

// NewReportService creates a new ReportService
func NewReportService(gateway port.ReportGateway, tokens oauth2.TokenSource, logger Logger, opts ...ReportOption) ReportService {
	s := &reportServiceImpl{
		gateway: gateway,
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reportServiceImpl) Generate(ctx context.Context, req GenerateRequest) (*entity.ReportResult, error) {
	if err := validateGenerate(req); err != nil {
		return nil, err
	}
	employee := *req.Employee

	result, err := s.call(ctx, req)
	s.publish(ctx, req.ReportType, employee, result, err)
	if err != nil {
		s.logger.Error("Report generation failed",
			"report_type", req.ReportType,
			"user_id", employee.UserID,
			"error", err,
		)
		return nil, err
	}

	if req.SendEmail {
		result.EmailRecipient = recipient(result, employee)
	}

	if strings.TrimSpace(result.HTML) == "" {
		s.narrate(ctx, result)
		html, err := renderFallbackCard(result)
		if err != nil {
			s.logger.Error("Failed to render fallback card", "user_id", employee.UserID, "error", err)
			return nil, newReportError(err)
		}
		result.HTML = html
	}

	s.logger.Info("Report generated",
		"report_type", req.ReportType,
		"user_id", employee.UserID,
		"qualified", result.IsQualified,
		"send_email", req.SendEmail,
	)
	return result, nil
}

func (s *reportServiceImpl) call(ctx context.Context, req GenerateRequest) (*entity.ReportResult, error) {
	token, err := bearerToken(ctx, s.tokens)
	if err != nil {
		return nil, newReportError(err)
	}

	payload := port.ReportRequest{
		UserID:     req.Employee.UserID,
		StartDate:  req.Period.StartDate(),
		EndDate:    req.Period.EndDate(),
		ReportType: req.Period.Kind,
		SendEmail:  req.SendEmail,
		ReturnHTML: true,
	}

	result, err := s.gateway.GenerateReport(ctx, token, req.ReportType.Config().Endpoint, payload)
	if err != nil {
		return nil, newReportError(err)
	}
	return result, nil
}

// narrate fills in a missing summary; failures only cost the narrative
func (s *reportServiceImpl) narrate(ctx context.Context, result *entity.ReportResult) {
	if s.narrator == nil || result.AISummary != "" {
		return
	}
	summary, err := s.narrator.Narrate(ctx, result)
	if err != nil {
		s.logger.Error("Narrator failed", "employee", result.EmployeeName, "error", err)
		return
	}
	result.AISummary = summary
}

func (s *reportServiceImpl) publish(ctx context.Context, reportType entity.ReportType, employee entity.Employee, result *entity.ReportResult, err error) {
	if s.dispatcher == nil {
		return
	}
	var evt *event.Event
	if err != nil {
		evt = event.NewReportFailedEvent(reportType, employee, err)
	} else {
		evt = event.NewReportEvent(reportType, employee, result)
	}
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
}

func validateGenerate(req GenerateRequest) error {
	if req.Employee == nil {
		return validationError("please select an employee")
	}
	if !req.ReportType.IsValid() {
		return validationError("unknown report type %q", req.ReportType)
	}
	if req.Period.IsZero() {
		return validationError("please select a period")
	}
	if req.Period.Custom && (req.Period.Start.IsZero() || req.Period.End.IsZero()) {
		return validationError("please select a date range")
	}
	return nil
}

func recipient(result *entity.ReportResult, employee entity.Employee) string {
	switch {
	case result.EmailRecipient != "":
		return result.EmailRecipient
	case employee.Email != "":
		return employee.Email
	default:
		return defaultRecipient
	}
}

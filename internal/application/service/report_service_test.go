package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/event"
)

func testEmployee() *entity.Employee {
	return &entity.Employee{UserID: 42, FirstName: "Maria", LastName: "Lopez", StoreNumber: 1257, Email: "maria@example.com"}
}

func TestReportService_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  GenerateRequest
	}{
		{"no employee", GenerateRequest{Period: testPeriod(), ReportType: entity.ReportTypeCSA}},
		{"no period", GenerateRequest{Employee: testEmployee(), ReportType: entity.ReportTypeCSA}},
		{"unknown type", GenerateRequest{Employee: testEmployee(), Period: testPeriod(), ReportType: "driver"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockReportGateway{}
			svc := NewReportService(gw, testTokens(), &mockLogger{})

			result, err := svc.Generate(context.Background(), tt.req)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 0, gw.CallCount(), "no network call on validation failure")
		})
	}
}

func TestReportService_Payload(t *testing.T) {
	gw := &mockReportGateway{}
	svc := NewReportService(gw, testTokens(), &mockLogger{})

	_, err := svc.Generate(context.Background(), GenerateRequest{
		Employee:   testEmployee(),
		Period:     testPeriod(),
		ReportType: entity.ReportTypeGreeter,
		SendEmail:  true,
	})

	require.NoError(t, err)
	require.Equal(t, 1, gw.CallCount())
	assert.Equal(t, "greeter-report-card", gw.endpoints[0])
	assert.Equal(t, "service-token", gw.tokens[0])
	assert.Equal(t, port.ReportRequest{
		UserID:     42,
		StartDate:  "2026-02-01",
		EndDate:    "2026-02-28",
		ReportType: entity.PeriodKindFinal,
		SendEmail:  true,
		ReturnHTML: true,
	}, gw.calls[0])
}

func TestReportService_Recipient(t *testing.T) {
	tests := []struct {
		name         string
		serverEmail  string
		employeeMail string
		sendEmail    bool
		want         string
	}{
		{"server reported", "boss@example.com", "maria@example.com", true, "boss@example.com"},
		{"employee record", "", "maria@example.com", true, "maria@example.com"},
		{"generic", "", "", true, "employee"},
		{"not sent", "", "maria@example.com", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockReportGateway{
				generateFunc: func(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
					return &entity.ReportResult{HTML: "<p>ok</p>", EmailRecipient: tt.serverEmail}, nil
				},
			}
			emp := testEmployee()
			emp.Email = tt.employeeMail
			svc := NewReportService(gw, testTokens(), &mockLogger{})

			result, err := svc.Generate(context.Background(), GenerateRequest{
				Employee: emp, Period: testPeriod(), ReportType: entity.ReportTypeCSA, SendEmail: tt.sendEmail,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.EmailRecipient)
		})
	}
}

func TestReportService_Failure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"server message", &serverError{status: 400, message: "Employee not found"}, "Employee not found"},
		{"server without message", &serverError{status: 500}, DefaultReportMessage},
		{"transport", errors.New("dial tcp: i/o timeout"), DefaultReportMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockReportGateway{
				generateFunc: func(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
					return nil, tt.err
				},
			}
			svc := NewReportService(gw, testTokens(), &mockLogger{})

			result, err := svc.Generate(context.Background(), GenerateRequest{
				Employee: testEmployee(), Period: testPeriod(), ReportType: entity.ReportTypeCSA,
			})

			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrReportFailed)
			assert.ErrorIs(t, err, tt.err)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestReportService_PublishesFailedEvent(t *testing.T) {
	d := dispatcher.NewDispatcher()
	defer d.Close()
	received := make(chan *event.Event, 1)
	d.Subscribe("capture", func(ctx context.Context, evt *event.Event) error {
		received <- evt
		return nil
	}, event.TypeReportGenerated, event.TypeReportFailed)

	gw := &mockReportGateway{
		generateFunc: func(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
			return nil, &serverError{status: 400, message: "Employee not found"}
		},
	}
	svc := NewReportService(gw, testTokens(), &mockLogger{}, WithReportEvents(d))

	_, err := svc.Generate(context.Background(), GenerateRequest{
		Employee: testEmployee(), Period: testPeriod(), ReportType: entity.ReportTypeCSA,
	})
	require.Error(t, err)

	select {
	case evt := <-received:
		assert.Equal(t, event.TypeReportFailed, evt.Type)
		assert.Error(t, evt.Err)
		assert.Equal(t, int64(42), evt.Outcome.Employee.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("no report event published")
	}
}

func TestReportService_FallbackCard(t *testing.T) {
	gw := &mockReportGateway{
		generateFunc: func(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
			return &entity.ReportResult{
				EmployeeName: "Maria <Lopez>",
				StoreName:    "Goleta",
				StoreNumber:  1257,
				Period:       entity.PeriodRange{StartDate: "2026-02-01", EndDate: "2026-02-28"},
				ReportType:   "csa",
				TotalBonus:   12.5,
				IsQualified:  true,
				AISummary:    "Strong month.",
			}, nil
		},
	}
	narrator := &mockNarrator{summary: "unused"}
	svc := NewReportService(gw, testTokens(), &mockLogger{}, WithNarrator(narrator))

	result, err := svc.Generate(context.Background(), GenerateRequest{
		Employee: testEmployee(), Period: testPeriod(), ReportType: entity.ReportTypeCSA,
	})

	require.NoError(t, err)
	assert.Contains(t, result.HTML, "Maria &lt;Lopez&gt;")
	assert.Contains(t, result.HTML, "Goleta (#1257)")
	assert.Contains(t, result.HTML, "2026-02-01 to 2026-02-28")
	assert.Contains(t, result.HTML, "CSA")
	assert.Contains(t, result.HTML, "$12.50")
	assert.Contains(t, result.HTML, "Yes")
	assert.Contains(t, result.HTML, "Strong month.")
	assert.Equal(t, 0, narrator.calls, "existing summary is kept")
}

func TestReportService_Narrator(t *testing.T) {
	noHTML := func(ctx context.Context, token, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
		return &entity.ReportResult{EmployeeName: "Maria Lopez", TotalBonus: 0}, nil
	}

	t.Run("fills missing summary", func(t *testing.T) {
		narrator := &mockNarrator{summary: "Keep pushing tire sales."}
		svc := NewReportService(&mockReportGateway{generateFunc: noHTML}, testTokens(), &mockLogger{}, WithNarrator(narrator))

		result, err := svc.Generate(context.Background(), GenerateRequest{
			Employee: testEmployee(), Period: testPeriod(), ReportType: entity.ReportTypeCSA,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, narrator.calls)
		assert.Equal(t, "Keep pushing tire sales.", result.AISummary)
		assert.Contains(t, result.HTML, "Keep pushing tire sales.")
		assert.Contains(t, result.HTML, "Not yet")
	})

	t.Run("failure is ignored", func(t *testing.T) {
		narrator := &mockNarrator{narrateErr: errors.New("rate limited")}
		logger := &mockLogger{}
		svc := NewReportService(&mockReportGateway{generateFunc: noHTML}, testTokens(), logger, WithNarrator(narrator))

		result, err := svc.Generate(context.Background(), GenerateRequest{
			Employee: testEmployee(), Period: testPeriod(), ReportType: entity.ReportTypeCSA,
		})

		require.NoError(t, err)
		assert.NotContains(t, result.HTML, "AI Summary")
		assert.Equal(t, 1, logger.ErrorCount())
	})

	t.Run("not called when html present", func(t *testing.T) {
		narrator := &mockNarrator{summary: "x"}
		svc := NewReportService(&mockReportGateway{}, testTokens(), &mockLogger{}, WithNarrator(narrator))

		result, err := svc.Generate(context.Background(), GenerateRequest{
			Employee: testEmployee(), Period: testPeriod(), ReportType: entity.ReportTypeCSA,
		})

		require.NoError(t, err)
		assert.Equal(t, "<html>report</html>", result.HTML)
		assert.Equal(t, 0, narrator.calls)
	})
}

func TestFormatBonus(t *testing.T) {
	assert.Equal(t, "0.00", FormatBonus(0))
	assert.Equal(t, "12.50", FormatBonus(12.5))
	assert.Equal(t, "1234.57", FormatBonus(1234.567))
}

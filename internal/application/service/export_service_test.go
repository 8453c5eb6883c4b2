package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

func exportRun() *entity.BatchRun {
	return &entity.BatchRun{
		ID:         "run-1",
		ReportType: entity.ReportTypeCSA,
		Period:     testPeriod(),
		Items: []entity.BatchItem{
			{
				Employee: entity.Employee{UserID: 1, FirstName: "Ana", LastName: "Diaz", StoreNumber: 609, InvoicePercentage: floatPtr(17.25)},
				Result:   entity.ReportResult{EmployeeName: "Ana Diaz", StoreNumber: 609, StoreName: "Santa Maria", TotalBonus: 150, IsQualified: true},
			},
			{
				Employee: entity.Employee{UserID: 2, FirstName: "Bo", LastName: `"Bud" Eng`, StoreNumber: 1257},
				Result:   entity.ReportResult{TotalBonus: 0, IsQualified: false},
			},
		},
	}
}

func newTestExport() *exportServiceImpl {
	return &exportServiceImpl{
		logger: &mockLogger{},
		now:    func() time.Time { return time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC) },
	}
}

func TestExportService_CSV(t *testing.T) {
	file, err := newTestExport().Export(exportRun(), ExportCSV)

	require.NoError(t, err)
	assert.Equal(t, "csa-report-cards-2026-03-14.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSuffix(string(file.Content), "\n"), "\n")
	require.Len(t, lines, 3, "header plus one line per result")
	assert.Equal(t, `"Employee Name","Store","Store Name","Invoice %","Bonus Amount","Qualified"`, lines[0])
	assert.Equal(t, `"Ana Diaz","609","Santa Maria","17.3%","$150.00","Yes"`, lines[1])
	assert.Equal(t, `"Bo ""Bud"" Eng","1257","Goleta","0.0%","$0.00","No"`, lines[2])
}

func TestExportService_XLSX(t *testing.T) {
	file, err := newTestExport().Export(exportRun(), ExportXLSX)
	require.NoError(t, err)
	assert.Equal(t, "csa-report-cards-2026-03-14.xlsx", file.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(exportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Employee Name", header)

	bonus, err := f.GetCellValue(exportSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "$150.00", bonus)

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExportService_PDF(t *testing.T) {
	file, err := newTestExport().Export(exportRun(), ExportPDF)

	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportService_EmptyRun(t *testing.T) {
	svc := newTestExport()
	empty := &entity.BatchRun{ID: "run-empty", ReportType: entity.ReportTypeCSA}

	file, err := svc.Export(empty, ExportCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(file.Content), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `"Employee Name","Store","Store Name","Invoice %","Bonus Amount","Qualified"`, lines[0])

	for _, format := range []ExportFormat{ExportXLSX, ExportPDF} {
		file, err := svc.Export(empty, format)
		require.NoError(t, err, format)
		assert.NotEmpty(t, file.Content)
	}
}

func TestExportService_Errors(t *testing.T) {
	svc := newTestExport()

	_, err := svc.Export(nil, ExportCSV)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Export(exportRun(), ExportFormat("docx"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", ExportCSV, false},
		{"csv", ExportCSV, false},
		{"XLSX", ExportXLSX, false},
		{"pdf", ExportPDF, false},
		{"docx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExportFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

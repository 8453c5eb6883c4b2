package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// ExportFormat selects the file type of a batch export
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportPDF  ExportFormat = "pdf"
)

var exportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportPDF:  "application/pdf",
}

// ParseExportFormat converts a query value, defaulting to CSV when empty
func ParseExportFormat(s string) (ExportFormat, error) {
	if s == "" {
		return ExportCSV, nil
	}
	f := ExportFormat(strings.ToLower(s))
	if _, ok := exportContentTypes[f]; !ok {
		return "", validationError("unsupported export format %q", s)
	}
	return f, nil
}

// ExportHeader is the fixed column order of every export
var ExportHeader = []string{"Employee Name", "Store", "Store Name", "Invoice %", "Bonus Amount", "Qualified"}

const exportSheet = "Report Cards"

// ExportFile is a rendered export ready for download
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService serialises batch results
type ExportService interface {
	Export(run *entity.BatchRun, format ExportFormat) (*ExportFile, error)
}

type exportServiceImpl struct {
	logger Logger
	now    func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(logger Logger) ExportService {
	return &exportServiceImpl{logger: logger, now: time.Now}
}

func (s *exportServiceImpl) Export(run *entity.BatchRun, format ExportFormat) (*ExportFile, error) {
	if run == nil {
		return nil, validationError("no batch run to export")
	}

	rows := exportRows(run)
	var (
		content []byte
		err     error
	)
	switch format {
	case ExportCSV:
		content = []byte(renderCSV(rows))
	case ExportXLSX:
		content, err = renderXLSX(rows)
	case ExportPDF:
		content, err = renderPDF(run, rows)
	default:
		return nil, validationError("unsupported export format %q", format)
	}
	if err != nil {
		s.logger.Error("Export failed", "run_id", run.ID, "format", format, "error", err)
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	file := &ExportFile{
		Filename:    ExportFilename(run.ReportType, format, s.now()),
		ContentType: exportContentTypes[format],
		Content:     content,
	}
	s.logger.Info("Export rendered", "run_id", run.ID, "format", format, "rows", len(rows), "filename", file.Filename)
	return file, nil
}

// ExportFilename embeds the report type and the export date
func ExportFilename(reportType entity.ReportType, format ExportFormat, now time.Time) string {
	return fmt.Sprintf("%s-report-cards-%s.%s", reportType, now.Format(entity.DateLayout), format)
}

func exportRows(run *entity.BatchRun) [][]string {
	rows := make([][]string, 0, run.Len())
	for _, item := range run.Items {
		storeNumber := item.Result.StoreNumber
		if storeNumber == 0 {
			storeNumber = item.Employee.StoreNumber
		}
		storeName := item.Result.StoreName
		if storeName == "" {
			storeName = entity.StoreName(storeNumber)
		}
		name := item.Result.EmployeeName
		if name == "" {
			name = item.Employee.FullName()
		}
		qualified := "No"
		if item.Result.IsQualified {
			qualified = "Yes"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", storeNumber),
			storeName,
			decimal.NewFromFloat(item.Employee.Percentage()).StringFixed(1) + "%",
			"$" + FormatBonus(item.Result.TotalBonus),
			qualified,
		})
	}
	return rows
}

// renderCSV quotes every field; encoding/csv only quotes when needed
func renderCSV(rows [][]string) string {
	var b strings.Builder
	writeCSVLine(&b, ExportHeader)
	for _, row := range rows {
		writeCSVLine(&b, row)
	}
	return b.String()
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	for r, row := range append([][]string{ExportHeader}, rows...) {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var pdfColumnWidths = []float64{52, 16, 46, 20, 26, 20}

func renderPDF(run *entity.BatchRun, rows [][]string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	title := fmt.Sprintf("%s Report Cards", run.ReportType.Config().Label)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s  (%s to %s)", run.Period.Label, run.Period.StartDate(), run.Period.EndDate()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range ExportHeader {
		pdf.CellFormat(pdfColumnWidths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, value := range row {
			align := "L"
			if i == 3 || i == 4 {
				align = "R"
			}
			pdf.CellFormat(pdfColumnWidths[i], 6, value, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	stats := run.Stats()
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %d   Qualified: %d   Not qualified: %d   Bonus total: $%s",
		stats.Total, stats.Qualified, stats.NotQualified, stats.TotalBonus.StringFixed(2)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

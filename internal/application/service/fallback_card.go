package service

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

var fallbackCard = template.Must(template.New("card").Parse(`<html>
<head>
<style>
  body { font-family: Arial, sans-serif; padding: 20px; }
  .summary { background: #f5f5f5; padding: 20px; border-radius: 8px; }
  .bonus { font-size: 36px; color: #e31837; font-weight: bold; }
  .detail { margin: 10px 0; }
  .label { color: #666; }
</style>
</head>
<body>
<div class="summary">
  <h2>{{.EmployeeName}}</h2>
  <p class="detail"><span class="label">Store:</span> {{.StoreName}} (#{{.StoreNumber}})</p>
  <p class="detail"><span class="label">Period:</span> {{.StartDate}} to {{.EndDate}}</p>
  <p class="detail"><span class="label">Report Type:</span> {{.ReportType}}</p>
  <hr />
  <p class="bonus">${{.Bonus}}</p>
  <p class="detail"><span class="label">Qualified:</span> {{if .Qualified}}Yes{{else}}Not yet{{end}}</p>
  {{- if .Summary}}
  <hr /><p><strong>AI Summary:</strong></p><p>{{.Summary}}</p>
  {{- end}}
</div>
</body>
</html>
`))

type fallbackCardData struct {
	EmployeeName string
	StoreName    string
	StoreNumber  int
	StartDate    string
	EndDate      string
	ReportType   string
	Bonus        string
	Qualified    bool
	Summary      string
}

// FormatBonus renders a bonus amount with two decimals and no currency sign
func FormatBonus(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// renderFallbackCard builds the minimal summary card used when the endpoint
// returns no HTML
func renderFallbackCard(result *entity.ReportResult) (string, error) {
	data := fallbackCardData{
		EmployeeName: result.EmployeeName,
		StoreName:    result.StoreName,
		StoreNumber:  result.StoreNumber,
		StartDate:    result.Period.StartDate,
		EndDate:      result.Period.EndDate,
		ReportType:   strings.ToUpper(result.ReportType),
		Bonus:        FormatBonus(result.TotalBonus),
		Qualified:    result.IsQualified,
		Summary:      result.AISummary,
	}

	var buf bytes.Buffer
	if err := fallbackCard.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

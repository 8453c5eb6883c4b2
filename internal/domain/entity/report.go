package entity

// PeriodRange is the period echoed back by the report endpoint
type PeriodRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ReportResult is one generated report card. It is produced once per
// (employee, period, report type) call and never modified afterwards.
type ReportResult struct {
	EmployeeName   string      `json:"employee_name"`
	StoreName      string      `json:"store_name"`
	StoreNumber    int         `json:"store_number"`
	Period         PeriodRange `json:"period"`
	ReportType     string      `json:"report_type"`
	TotalBonus     float64     `json:"total_bonus"`
	IsQualified    bool        `json:"is_qualified"`
	HTML           string      `json:"html"`
	AISummary      string      `json:"ai_summary,omitempty"`
	EmailRecipient string      `json:"email_recipient,omitempty"`
	ReportID       string      `json:"report_id,omitempty"`
}

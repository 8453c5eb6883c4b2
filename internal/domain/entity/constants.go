package entity

import "fmt"

// ReportType identifies one of the bonus-eligible employee classes
type ReportType string

const (
	ReportTypeCSA     ReportType = "csa"
	ReportTypeGreeter ReportType = "greeter"
	ReportTypeManager ReportType = "manager"
)

// ReportTypeConfig describes how a report type is loaded and generated
type ReportTypeConfig struct {
	Label    string
	Endpoint string
	RoleCode string
}

var reportTypes = map[ReportType]ReportTypeConfig{
	ReportTypeCSA:     {Label: "CSA Bonus", Endpoint: "csa-report-card", RoleCode: "CSAROC"},
	ReportTypeGreeter: {Label: "Greeter Bonus", Endpoint: "greeter-report-card", RoleCode: "GREET"},
	ReportTypeManager: {Label: "Manager Bonus", Endpoint: "manager-report-card", RoleCode: "MANAGER"},
}

// AllReportTypes lists report types in display order
var AllReportTypes = []ReportType{ReportTypeCSA, ReportTypeGreeter, ReportTypeManager}

// ParseReportType converts a raw value into a ReportType
func ParseReportType(s string) (ReportType, error) {
	rt := ReportType(s)
	if !rt.IsValid() {
		return "", fmt.Errorf("unknown report type %q", s)
	}
	return rt, nil
}

// IsValid returns true if the report type is known
func (t ReportType) IsValid() bool {
	_, ok := reportTypes[t]
	return ok
}

// Config returns the endpoint and role configuration of the report type
func (t ReportType) Config() ReportTypeConfig {
	return reportTypes[t]
}

// String returns the string representation of the report type
func (t ReportType) String() string {
	return string(t)
}

// Stores maps store numbers to their display names
var Stores = map[int]string{
	609:  "Santa Maria",
	1002: "San Luis Obispo",
	1257: "Goleta",
	1270: "Arroyo Grande",
	1396: "Santa Barbara (Downtown)",
	1932: "Atascadero",
	2911: "Paso Robles",
	4182: "Santa Barbara (Upper State)",
}

// StoreName returns the display name of a store, or its number when unknown
func StoreName(number int) string {
	if name, ok := Stores[number]; ok {
		return name
	}
	return fmt.Sprintf("%d", number)
}

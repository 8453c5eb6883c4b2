package entity

// Employee is a read-only directory record sourced from the gateway
type Employee struct {
	UserID             int64    `json:"user_id"`
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	StoreNumber        int      `json:"store_number"`
	Email              string   `json:"email,omitempty"`
	Title              string   `json:"title,omitempty"`
	InvoiceCount       *int     `json:"invoice_count,omitempty"`
	StoreTotalInvoices *int     `json:"store_total_invoices,omitempty"`
	InvoicePercentage  *float64 `json:"invoice_percentage,omitempty"`
}

// FullName returns "First Last"
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// SortName returns "Last, First", the key used for name ordering
func (e Employee) SortName() string {
	return e.LastName + ", " + e.FirstName
}

// Percentage returns the invoice percentage, treating an absent value as 0
func (e Employee) Percentage() float64 {
	if e.InvoicePercentage == nil {
		return 0
	}
	return *e.InvoicePercentage
}

// Invoices returns the invoice count, treating an absent value as 0
func (e Employee) Invoices() int {
	if e.InvoiceCount == nil {
		return 0
	}
	return *e.InvoiceCount
}

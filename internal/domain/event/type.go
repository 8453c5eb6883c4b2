package event

// Type identifies the type of domain event
type Type string

const (
	TypeBatchStarted       Type = "batch.started"
	TypeBatchItemSucceeded Type = "batch.item_succeeded"
	TypeBatchItemFailed    Type = "batch.item_failed"
	TypeBatchCompleted     Type = "batch.completed"
	TypeBatchCancelled     Type = "batch.cancelled"
	TypeReportGenerated    Type = "report.generated"
	TypeReportFailed       Type = "report.failed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeBatchStarted,
		TypeBatchItemSucceeded,
		TypeBatchItemFailed,
		TypeBatchCompleted,
		TypeBatchCancelled,
		TypeReportGenerated,
		TypeReportFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the event closes a batch run
func (t Type) IsTerminal() bool {
	return t == TypeBatchCompleted || t == TypeBatchCancelled
}

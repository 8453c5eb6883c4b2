package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any network call
	ErrValidation = errors.New("validation failed")

	// ErrDirectoryLoad marks a failed employee directory load
	ErrDirectoryLoad = errors.New("failed to load employees")

	// ErrReportFailed marks a failed single report call
	ErrReportFailed = errors.New("report generation failed")

	// ErrNoReportsGenerated is the aggregate error of a batch with zero successes
	ErrNoReportsGenerated = errors.New("no reports generated")

	// ErrBatchCancelled is returned when a batch stops before every item was attempted
	ErrBatchCancelled = errors.New("batch cancelled")

	// ErrNoCredentials is returned when no bearer token source is available
	ErrNoCredentials = errors.New("no credentials available")
)

// DefaultReportMessage is shown when a failed report call carries no server message
const DefaultReportMessage = "Failed to generate report"

// ReportError is a failed report call with the message to display
type ReportError struct {
	Message string
	Cause   error
}

func (e *ReportError) Error() string {
	return e.Message
}

func (e *ReportError) Unwrap() error {
	return e.Cause
}

// Is makes every ReportError match ErrReportFailed
func (e *ReportError) Is(target error) bool {
	return target == ErrReportFailed
}

// displayMessager is implemented by gateway errors that carry a server message
type displayMessager interface {
	DisplayMessage() string
}

func newReportError(cause error) *ReportError {
	msg := DefaultReportMessage
	var dm displayMessager
	if errors.As(cause, &dm) && dm.DisplayMessage() != "" {
		msg = dm.DisplayMessage()
	}
	return &ReportError{Message: msg, Cause: cause}
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

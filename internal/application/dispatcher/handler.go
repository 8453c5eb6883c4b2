package dispatcher

import (
	"context"

	"github.com/garyjia/report-card-viewer/internal/domain/event"
)

// Handler reacts to a batch or report event
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription describes a registered handler
type Subscription struct {
	Name  string
	Types []event.Type
}

type subscriber struct {
	name    string
	handler Handler
}

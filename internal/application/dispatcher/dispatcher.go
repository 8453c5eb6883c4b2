// Package dispatcher fans batch lifecycle events out to side-effect handlers
// such as the run recorder, metrics and chat notifications.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/garyjia/report-card-viewer/internal/domain/event"
)

// ErrClosed is returned when publishing to a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers handler under name for each listed event type
	Subscribe(name string, handler Handler, types ...event.Type)

	// Dispatch runs every handler for the event in registration order.
	// A failing handler does not stop the rest; all errors are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs handlers in the background and logs their errors
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Subscriptions lists registered handlers sorted by name
	Subscriptions() []Subscription

	// Close waits for in-flight async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]subscriber
	logger   Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]subscriber),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(name string, handler Handler, types ...event.Type) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range types {
		d.handlers[t] = append(d.handlers[t], subscriber{name: name, handler: handler})
	}

	d.info("Handler registered", "handler_name", name, "event_types", types)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	var errs []error
	for _, sub := range d.snapshot(evt.Type) {
		if err := d.safeExecute(ctx, evt, sub); err != nil {
			d.error("Handler error",
				"event_type", evt.Type,
				"run_id", evt.RunID,
				"handler_name", sub.name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("handler %s: %w", sub.name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.error("Cannot dispatch async event, dispatcher is closed", "event_type", evt.Type)
		return
	}

	for _, sub := range d.snapshot(evt.Type) {
		d.wg.Add(1)
		go func(s subscriber) {
			defer d.wg.Done()
			if err := d.safeExecute(ctx, evt, s); err != nil {
				d.error("Async handler error",
					"event_type", evt.Type,
					"run_id", evt.RunID,
					"handler_name", s.name,
					"error", err,
				)
			}
		}(sub)
	}
}

func (d *eventDispatcher) Subscriptions() []Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	byName := make(map[string]*Subscription)
	for t, subs := range d.handlers {
		for _, s := range subs {
			entry, ok := byName[s.name]
			if !ok {
				entry = &Subscription{Name: s.name}
				byName[s.name] = entry
			}
			entry.Types = append(entry.Types, t)
		}
	}

	result := make([]Subscription, 0, len(byName))
	for _, entry := range byName {
		sort.Slice(entry.Types, func(i, j int) bool { return entry.Types[i] < entry.Types[j] })
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.wg.Wait()
	d.info("Dispatcher closed")
	return nil
}

func (d *eventDispatcher) snapshot(t event.Type) []subscriber {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]subscriber(nil), d.handlers[t]...)
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, sub subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ctx, evt)
}

func (d *eventDispatcher) info(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

func (d *eventDispatcher) error(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, keysAndValues...)
	}
}

// Package metrics exposes Prometheus counters for report generation and batch runs.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/report-card-viewer/internal/application/dispatcher"
	"github.com/garyjia/report-card-viewer/internal/domain/event"
)

// Collector owns a private registry so tests and multiple servers never clash
type Collector struct {
	registry *prometheus.Registry

	ReportsTotal        *prometheus.CounterVec
	BatchItemsTotal     *prometheus.CounterVec
	BatchRunsTotal      *prometheus.CounterVec
	BatchDuration       *prometheus.HistogramVec
	ActiveBatches       *prometheus.GaugeVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector under namespace, with Go runtime metrics
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "report_cards"
	}
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_calls_total",
			Help:      "Report card calls, single and batch, by result",
		}, []string{"report_type", "result"}),
		BatchItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Per-employee batch attempts by result",
		}, []string{"report_type", "result"}),
		BatchRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Finished batch runs by final status",
		}, []string{"report_type", "status"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of finished batch runs",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		}, []string{"report_type"}),
		ActiveBatches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_batches",
			Help:      "Batch runs currently in progress",
		}, []string{"report_type"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.ReportsTotal,
		c.BatchItemsTotal,
		c.BatchRunsTotal,
		c.BatchDuration,
		c.ActiveBatches,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// HandleEvent updates counters from batch and report events
func (c *Collector) HandleEvent(ctx context.Context, evt *event.Event) error {
	rt := evt.ReportType.String()

	switch evt.Type {
	case event.TypeReportGenerated, event.TypeReportFailed:
		result := "succeeded"
		if evt.Type == event.TypeReportFailed || evt.Err != nil {
			result = "failed"
		}
		c.ReportsTotal.WithLabelValues(rt, result).Inc()
	case event.TypeBatchStarted:
		c.ActiveBatches.WithLabelValues(rt).Inc()
	case event.TypeBatchItemSucceeded:
		c.BatchItemsTotal.WithLabelValues(rt, "succeeded").Inc()
	case event.TypeBatchItemFailed:
		c.BatchItemsTotal.WithLabelValues(rt, "failed").Inc()
	case event.TypeBatchCompleted, event.TypeBatchCancelled:
		c.ActiveBatches.WithLabelValues(rt).Dec()
		status := "done"
		if evt.Type == event.TypeBatchCancelled {
			status = "cancelled"
		} else if evt.Err != nil {
			status = "empty"
		}
		c.BatchRunsTotal.WithLabelValues(rt, status).Inc()
		if evt.Run != nil && evt.Run.FinishedAt != nil {
			c.BatchDuration.WithLabelValues(rt).Observe(evt.Run.FinishedAt.Sub(evt.Run.StartedAt).Seconds())
		}
	}
	return nil
}

// Register subscribes the collector to every event type
func (c *Collector) Register(d dispatcher.Dispatcher) {
	d.Subscribe("metrics", c.HandleEvent,
		event.TypeReportGenerated,
		event.TypeReportFailed,
		event.TypeBatchStarted,
		event.TypeBatchItemSucceeded,
		event.TypeBatchItemFailed,
		event.TypeBatchCompleted,
		event.TypeBatchCancelled,
	)
}

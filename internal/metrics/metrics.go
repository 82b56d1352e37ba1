// Package metrics exposes board and transport counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/board"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
)

const namespace = "taskflow"

// Collector owns a private registry so tests and multiple servers never collide.
type Collector struct {
	registry *prometheus.Registry

	tasks      *prometheus.GaugeVec
	columns    prometheus.Gauge
	completion prometheus.Gauge
	changes    *prometheus.CounterVec
	drags      *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// New registers every metric on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		tasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks",
			Help:      "Tasks on the board by status column",
		}, []string{"status"}),
		columns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "columns",
			Help:      "Columns on the board",
		}),
		completion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completion_rate_percent",
			Help:      "Share of tasks in the done column",
		}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Recorded board mutations by operation",
		}, []string{"operation"}),
		drags: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drag_outcomes_total",
			Help:      "Finished drag gestures by outcome",
		}, []string{"outcome"}),
		requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route", "status"}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSnapshot refreshes the board gauges.
func (c *Collector) ObserveSnapshot(snap app.Snapshot) {
	c.tasks.Reset()
	for _, column := range snap.Columns {
		c.tasks.WithLabelValues(column.ID).Set(0)
	}
	summary := report.Summarize(snap.Tasks, snap.ExportedAt)
	for status, n := range summary.ByStatus {
		c.tasks.WithLabelValues(status).Set(float64(n))
	}
	c.columns.Set(float64(len(snap.Columns)))
	c.completion.Set(float64(summary.CompletionRate))
}

// ObserveChange counts one recorded mutation.
func (c *Collector) ObserveChange(event domain.ChangeEvent) {
	c.changes.WithLabelValues(string(event.Operation)).Inc()
}

// ObserveDrag counts one finished gesture.
func (c *Collector) ObserveDrag(outcome board.Outcome) {
	if outcome == board.OutcomeNone {
		return
	}
	c.drags.WithLabelValues(outcome.String()).Inc()
}

// DragTotals reads the drag counter back by outcome label.
func (c *Collector) DragTotals() map[string]int {
	totals := map[string]int{}
	families, err := c.registry.Gather()
	if err != nil {
		return totals
	}
	for _, family := range families {
		if family.GetName() != namespace+"_drag_outcomes_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					totals[label.GetValue()] = int(metric.GetCounter().GetValue())
				}
			}
		}
	}
	return totals
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware times every request. route maps a request to a low-cardinality label.
func (c *Collector) Middleware(route func(*http.Request) string, next http.Handler) http.Handler {
	if route == nil {
		route = func(r *http.Request) string { return r.URL.Path }
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.requests.WithLabelValues(r.Method, route(r), strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

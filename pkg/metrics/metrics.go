package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	FetchesIssued     *prometheus.CounterVec
	FetchesDeduped    prometheus.Counter
	MutationsTotal    *prometheus.CounterVec
	MutationRollbacks prometheus.Counter
	BulkItemsTotal    *prometheus.CounterVec
	BoardCappedTotal  prometheus.Counter

	// Import metrics
	ImportRowsParsed  prometheus.Counter
	ImportRowsDropped prometheus.Counter
	ImportsSubmitted  prometheus.Counter

	// Session metrics
	ActiveSessions prometheus.Gauge

	// Record store metrics
	StoreRequestDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		FetchesIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_fetches_total",
				Help: "Total number of lead fetches issued to the record store",
			},
			[]string{"mode"}, // list, board
		),
		FetchesDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lead_fetches_deduped_total",
			Help: "Fetches suppressed because the query descriptor was unchanged",
		}),
		MutationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_mutations_total",
				Help: "Total number of optimistic mutations",
			},
			[]string{"field", "outcome"}, // applied, noop, failed
		),
		MutationRollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lead_mutation_rollbacks_total",
			Help: "Mutations rolled back after a failed record store call",
		}),
		BulkItemsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulk_items_total",
				Help: "Per-item outcomes of bulk operations",
			},
			[]string{"action", "outcome"}, // success, failure
		),
		BoardCappedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "board_capped_total",
			Help: "Board fetches truncated at the aggregate hard cap",
		}),

		ImportRowsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_parsed_total",
			Help: "Spreadsheet rows parsed across all imports",
		}),
		ImportRowsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_dropped_total",
			Help: "Rows dropped for missing the minimum viable record",
		}),
		ImportsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "imports_submitted_total",
			Help: "Import batches submitted to the record store",
		}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_sessions_active",
			Help: "Number of live operator sessions",
		}),

		StoreRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "record_store_request_duration_seconds",
				Help:    "Record store call duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, not the raw path

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(duration)

			return err
		}
	}
}

// RecordFetch increments the fetch counter for a projection
func (m *Metrics) RecordFetch(mode string) {
	m.FetchesIssued.WithLabelValues(mode).Inc()
}

// RecordFetchDeduped increments the suppressed-fetch counter
func (m *Metrics) RecordFetchDeduped() {
	m.FetchesDeduped.Inc()
}

// RecordMutation records one mutation outcome
func (m *Metrics) RecordMutation(field, outcome string) {
	m.MutationsTotal.WithLabelValues(field, outcome).Inc()
}

// RecordRollback increments the rollback counter
func (m *Metrics) RecordRollback() {
	m.MutationRollbacks.Inc()
}

// RecordBulkItems records the per-item outcome split of one bulk operation
func (m *Metrics) RecordBulkItems(action string, succeeded, failed int) {
	m.BulkItemsTotal.WithLabelValues(action, "success").Add(float64(succeeded))
	m.BulkItemsTotal.WithLabelValues(action, "failure").Add(float64(failed))
}

// RecordBoardCapped increments the capped-aggregate counter
func (m *Metrics) RecordBoardCapped() {
	m.BoardCappedTotal.Inc()
}

// RecordImportParsed records one parsed upload
func (m *Metrics) RecordImportParsed(total, dropped int) {
	m.ImportRowsParsed.Add(float64(total))
	m.ImportRowsDropped.Add(float64(dropped))
}

// RecordImportSubmitted increments the submitted-batch counter
func (m *Metrics) RecordImportSubmitted() {
	m.ImportsSubmitted.Inc()
}

// UpdateActiveSessions updates the live session gauge
func (m *Metrics) UpdateActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordStoreRequest records one record store call duration
func (m *Metrics) RecordStoreRequest(operation string, duration time.Duration) {
	m.StoreRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Queue lifecycle metrics
	transactionsQueuedTotal   *prometheus.CounterVec
	transactionsApprovedTotal *prometheus.CounterVec
	transactionsRejectedTotal *prometheus.CounterVec
	transactionsExecutedTotal *prometheus.CounterVec
	timeInQueue               *prometheus.HistogramVec

	// Token dispatch metrics
	dispatchDuration       *prometheus.HistogramVec
	dispatchFailuresTotal  *prometheus.CounterVec

	// Redemption metrics
	redemptionsRequestedTotal *prometheus.CounterVec
	redemptionsProcessedTotal *prometheus.CounterVec

	// Sweep metrics
	sweepDuration        *prometheus.HistogramVec
	sweepExecutionsTotal *prometheus.CounterVec

	// Database metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Queue lifecycle metrics
		transactionsQueuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_transactions_queued_total",
				Help: "Total number of administrative transactions queued",
			},
			[]string{"tx_type"},
		),
		transactionsApprovedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_transactions_approved_total",
				Help: "Total number of administrative transactions approved",
			},
			[]string{"tx_type"},
		),
		transactionsRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_transactions_rejected_total",
				Help: "Total number of administrative transactions rejected",
			},
			[]string{"tx_type"},
		),
		transactionsExecutedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_transactions_executed_total",
				Help: "Total number of executed administrative transactions by mode (approved or auto)",
			},
			[]string{"tx_type", "mode"},
		),
		timeInQueue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admin_transaction_time_in_queue_seconds",
				Help:    "Time transactions spend in PENDING before reaching a terminal status",
				Buckets: []float64{60, 300, 900, 1800, 3600, 5400, 7200, 14400},
			},
			[]string{"tx_type", "status"},
		),

		// Token dispatch metrics
		dispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "token_dispatch_duration_seconds",
				Help:    "Duration of token gateway dispatch calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"tx_type"},
		),
		dispatchFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_dispatch_failures_total",
				Help: "Total number of failed token gateway dispatch calls",
			},
			[]string{"tx_type", "reason"},
		),

		// Redemption metrics
		redemptionsRequestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redemptions_requested_total",
				Help: "Total number of redemption requests submitted",
			},
			[]string{},
		),
		redemptionsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redemptions_processed_total",
				Help: "Total number of processed redemption requests by outcome",
			},
			[]string{"outcome"},
		),

		// Sweep metrics
		sweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sweep_duration_seconds",
				Help:    "Duration of cooldown sweep workflow executions in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		sweepExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweep_executions_total",
				Help: "Total number of cooldown sweep workflow executions",
			},
			[]string{"status"},
		),

		// Database metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// HTTP metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Queue lifecycle metric helpers

// RecordTransactionQueued records a transaction entering the queue.
func (m *Metrics) RecordTransactionQueued(txType string) {
	m.transactionsQueuedTotal.WithLabelValues(txType).Inc()
}

// RecordTransactionApproved records an approval.
func (m *Metrics) RecordTransactionApproved(txType string) {
	m.transactionsApprovedTotal.WithLabelValues(txType).Inc()
}

// RecordTransactionRejected records a rejection.
func (m *Metrics) RecordTransactionRejected(txType string) {
	m.transactionsRejectedTotal.WithLabelValues(txType).Inc()
}

// RecordTransactionExecuted records an execution. Mode is "approved"
// for explicit approvals and "auto" for cooldown executions.
func (m *Metrics) RecordTransactionExecuted(txType, mode string) {
	m.transactionsExecutedTotal.WithLabelValues(txType, mode).Inc()
}

// RecordTimeInQueue records how long a transaction sat in PENDING.
func (m *Metrics) RecordTimeInQueue(txType, status string, seconds float64) {
	m.timeInQueue.WithLabelValues(txType, status).Observe(seconds)
}

// Token dispatch metric helpers

// RecordDispatch records a token gateway dispatch call with duration.
func (m *Metrics) RecordDispatch(txType string, duration float64) {
	m.dispatchDuration.WithLabelValues(txType).Observe(duration)
}

// RecordDispatchFailure records a failed token gateway call.
func (m *Metrics) RecordDispatchFailure(txType, reason string) {
	m.dispatchFailuresTotal.WithLabelValues(txType, reason).Inc()
}

// Redemption metric helpers

// RecordRedemptionRequested records a new redemption request.
func (m *Metrics) RecordRedemptionRequested() {
	m.redemptionsRequestedTotal.WithLabelValues().Inc()
}

// RecordRedemptionProcessed records a processed redemption by outcome
// ("approved" or "denied").
func (m *Metrics) RecordRedemptionProcessed(outcome string) {
	m.redemptionsProcessedTotal.WithLabelValues(outcome).Inc()
}

// Sweep metric helpers

// RecordSweep records a sweep workflow execution with duration.
func (m *Metrics) RecordSweep(status string, duration float64) {
	m.sweepDuration.WithLabelValues(status).Observe(duration)
	m.sweepExecutionsTotal.WithLabelValues(status).Inc()
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

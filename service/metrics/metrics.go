package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Indexing service metrics
	indexerCallsTotal       *prometheus.CounterVec
	indexerCallDuration     *prometheus.HistogramVec
	indexerSignaturesListed *prometheus.HistogramVec
	indexerRetries          *prometheus.CounterVec

	// Pipeline metrics
	pipelineRunsTotal    *prometheus.CounterVec
	pipelineDuration     *prometheus.HistogramVec
	pipelinePartialTotal *prometheus.CounterVec
	eventsClassified     *prometheus.CounterVec
	tradesDroppedTotal   *prometheus.CounterVec
	enrichmentDuration   *prometheus.HistogramVec

	// Cache metrics
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// Price oracle metrics
	priceFetchesTotal *prometheus.CounterVec
	priceValue        *prometheus.GaugeVec

	// Workflow metrics
	refreshWorkflowDuration *prometheus.HistogramVec
	refreshWorkflowsTotal   *prometheus.CounterVec
	refreshActivityDuration *prometheus.HistogramVec

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
		indexerCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_calls_total",
				Help: "Total number of indexing service calls by method and status",
			},
			[]string{"method", "status"},
		),
		indexerCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexer_call_duration_seconds",
				Help:    "Duration of indexing service calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		indexerSignaturesListed: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "indexer_signatures_per_call",
				Help:    "Number of signatures returned per listing call",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"pipeline"},
		),
		indexerRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_retries_total",
				Help: "Total number of indexing service retry attempts",
			},
			[]string{"method", "reason"},
		),

		pipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total number of analysis pipeline runs",
			},
			[]string{"pipeline", "status"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_duration_seconds",
				Help:    "Duration of analysis pipeline runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"pipeline"},
		),
		pipelinePartialTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_partial_results_total",
				Help: "Total number of pipeline runs that returned partial results",
			},
			[]string{"pipeline"},
		),
		eventsClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_classified_total",
				Help: "Total number of transactions classified by kind",
			},
			[]string{"kind"},
		),
		tradesDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trades_dropped_total",
				Help: "Total number of swap transactions dropped by reason",
			},
			[]string{"reason"},
		),
		enrichmentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "enrichment_duration_seconds",
				Help:    "Duration of per-program enrichment lookups in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"status"},
		),

		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		priceFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_fetches_total",
				Help: "Total number of price oracle fetches by outcome",
			},
			[]string{"status"},
		),
		priceValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "price_usd",
				Help: "Most recently observed asset price in USD",
			},
			[]string{"asset"},
		),

		refreshWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refresh_workflow_duration_seconds",
				Help:    "Duration of metric refresh workflow executions in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"wallet_address", "status"},
		),
		refreshWorkflowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refresh_workflow_executions_total",
				Help: "Total number of metric refresh workflow executions",
			},
			[]string{"wallet_address", "status"},
		),
		refreshActivityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refresh_activity_duration_seconds",
				Help:    "Duration of metric refresh workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity", "wallet_address"},
		),

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

// Indexing service metric helpers

// RecordIndexerCall records an indexing service call with duration.
func (m *Metrics) RecordIndexerCall(method, status string, duration float64) {
	m.indexerCallsTotal.WithLabelValues(method, status).Inc()
	m.indexerCallDuration.WithLabelValues(method).Observe(duration)
}

// RecordSignaturesListed records the number of signatures returned by a
// listing call made on behalf of a pipeline.
func (m *Metrics) RecordSignaturesListed(pipeline string, count int) {
	m.indexerSignaturesListed.WithLabelValues(pipeline).Observe(float64(count))
}

// RecordIndexerRetry records a retry attempt against the indexing service.
func (m *Metrics) RecordIndexerRetry(method, reason string) {
	m.indexerRetries.WithLabelValues(method, reason).Inc()
}

// Pipeline metric helpers

// RecordPipelineRun records one pipeline run with duration.
func (m *Metrics) RecordPipelineRun(pipeline, status string, duration float64) {
	m.pipelineRunsTotal.WithLabelValues(pipeline, status).Inc()
	m.pipelineDuration.WithLabelValues(pipeline).Observe(duration)
}

// RecordPipelinePartial records a pipeline run that degraded to a
// partial result.
func (m *Metrics) RecordPipelinePartial(pipeline string) {
	m.pipelinePartialTotal.WithLabelValues(pipeline).Inc()
}

// RecordClassification records a transaction classified into a kind.
func (m *Metrics) RecordClassification(kind string) {
	m.eventsClassified.WithLabelValues(kind).Inc()
}

// RecordTradeDropped records a swap transaction excluded from the
// volume aggregate.
func (m *Metrics) RecordTradeDropped(reason string) {
	m.tradesDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordEnrichment records one per-program enrichment lookup.
func (m *Metrics) RecordEnrichment(status string, duration float64) {
	m.enrichmentDuration.WithLabelValues(status).Observe(duration)
}

// Cache metric helpers

// RecordCacheHit records a hit on the named cache.
func (m *Metrics) RecordCacheHit(cache string) {
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a miss on the named cache.
func (m *Metrics) RecordCacheMiss(cache string) {
	m.cacheMissesTotal.WithLabelValues(cache).Inc()
}

// Price oracle metric helpers

// RecordPriceFetch records a price oracle fetch outcome: fresh, stale,
// fallback, or error.
func (m *Metrics) RecordPriceFetch(status string) {
	m.priceFetchesTotal.WithLabelValues(status).Inc()
}

// RecordPrice records the most recently observed price for an asset.
func (m *Metrics) RecordPrice(asset string, usd float64) {
	m.priceValue.WithLabelValues(asset).Set(usd)
}

// Workflow metric helpers

// RecordWorkflowDuration records refresh workflow execution duration.
func (m *Metrics) RecordWorkflowDuration(walletAddress, status string, duration float64) {
	m.refreshWorkflowDuration.WithLabelValues(walletAddress, status).Observe(duration)
	m.refreshWorkflowsTotal.WithLabelValues(walletAddress, status).Inc()
}

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity, walletAddress string, duration float64) {
	m.refreshActivityDuration.WithLabelValues(activity, walletAddress).Observe(duration)
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

func statusCodeToString(code int) string {
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

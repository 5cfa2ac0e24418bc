package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the bolão service

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bolao_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// External API call metrics (vision, results source)
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_api_calls_total",
			Help: "Total number of external API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bolao_api_call_duration_seconds",
			Help:    "Duration of external API calls in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bolao_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bolao_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bolao_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bolao_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bolao_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bolao_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Guess metrics
	GuessesSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_guesses_saved_total",
			Help: "Total number of guesses saved",
		},
		[]string{"user", "source"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_extractions_total",
			Help: "Total number of photo extractions",
		},
		[]string{"status"},
	)

	ExtractedFields = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bolao_extracted_fields",
			Help:    "Number of match scores recovered per photo",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 10},
		},
	)

	// Standings metrics
	StandingsComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_standings_computations_total",
			Help: "Total number of standings tables computed",
		},
		[]string{"table"},
	)

	StandingsRowsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_standings_rows_discarded_total",
			Help: "Result rows left out of a standings table",
		},
		[]string{"reason"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_sync_operations_total",
			Help: "Total number of official results sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bolao_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bolao_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bolao_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bolao_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(route, method, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration)
}

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordGuessesSaved records saved guesses for a user
func RecordGuessesSaved(user, source string, n int) {
	GuessesSavedTotal.WithLabelValues(user, source).Add(float64(n))
}

// RecordExtraction records the outcome of a photo extraction
func RecordExtraction(status string, fields int) {
	ExtractionsTotal.WithLabelValues(status).Inc()
	ExtractedFields.Observe(float64(fields))
}

// RecordStandings records a standings computation and what it left out
func RecordStandings(table string, malformed, afterCutoff, unknownTeam int) {
	StandingsComputationsTotal.WithLabelValues(table).Inc()
	StandingsRowsDiscarded.WithLabelValues("malformed").Add(float64(malformed))
	StandingsRowsDiscarded.WithLabelValues("after_cutoff").Add(float64(afterCutoff))
	StandingsRowsDiscarded.WithLabelValues("unknown_team").Add(float64(unknownTeam))
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

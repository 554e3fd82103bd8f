// Package metrics provides Prometheus metrics for the HUDDLE prediction ensemble.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ensemble service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Forecasting metrics
	predictionsGenerated prometheus.Counter
	predictionFailures   *prometheus.CounterVec
	validationFailures   prometheus.Counter
	generationLatency    prometheus.Histogram

	// Belief revision metrics
	revisionsRecorded prometheus.Counter
	revisionsRejected prometheus.Counter

	// Learning metrics
	learningUpdates    prometheus.Counter
	duplicateOutcomes  prometheus.Counter
	peerEventsEmitted  prometheus.Counter
	peerEventsConsumed prometheus.Counter
	peerNudgesApplied  prometheus.Counter
	expertAccuracy     *prometheus.GaugeVec

	// Memory metrics
	memoriesStored prometheus.Counter
	memoriesTotal  prometheus.Gauge

	// Consensus metrics
	consensusComputed prometheus.Counter
	consensusDegraded prometheus.Counter
	agreementRatio    prometheus.Histogram

	// Operational health
	gamesTracked       prometheus.Gauge
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// GetRegistry returns the registry backing the global manager, for use with
// promhttp handlers.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "huddle",
		subsystem:        "ensemble",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.predictionsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_generated_total",
		Help:      "Total number of prediction records generated and persisted",
	})

	m.predictionFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "prediction_failures_total",
			Help:      "Total number of failed prediction attempts by reason",
		},
		[]string{"reason"},
	)

	m.validationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_failures_total",
		Help:      "Total number of consistency validation failures",
	})

	m.generationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generation_latency_milliseconds",
		Help:      "Histogram of per-game prediction generation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.revisionsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "revisions_recorded_total",
		Help:      "Total number of belief revision events recorded",
	})

	m.revisionsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "revisions_rejected_total",
		Help:      "Total number of revisions rejected for arriving at or after kickoff",
	})

	m.learningUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "learning_updates_total",
		Help:      "Total number of per-expert weight updates applied",
	})

	m.duplicateOutcomes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_outcomes_total",
		Help:      "Total number of outcome applications skipped as duplicates",
	})

	m.peerEventsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "peer_events_emitted_total",
		Help:      "Total number of peer learning events emitted",
	})

	m.peerEventsConsumed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "peer_events_consumed_total",
		Help:      "Total number of peer learning events consumed by broker workers",
	})

	m.peerNudgesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "peer_nudges_applied_total",
		Help:      "Total number of peer-induced weight nudges applied",
	})

	m.expertAccuracy = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "expert_rolling_accuracy",
			Help:      "Current rolling accuracy per expert",
		},
		[]string{"expert_id"},
	)

	m.memoriesStored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "memories_stored_total",
		Help:      "Total number of episodic memories stored",
	})

	m.memoriesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "memories_total",
		Help:      "Current number of episodic memories held in the store",
	})

	m.consensusComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "consensus_computed_total",
		Help:      "Total number of consensus records computed",
	})

	m.consensusDegraded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "consensus_degraded_total",
		Help:      "Total number of consensus records computed in degraded mode",
	})

	m.agreementRatio = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "consensus_agreement_ratio",
		Help:      "Histogram of agreement ratios across computed consensus records",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	m.gamesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_tracked",
		Help:      "Current number of games tracked by the ensemble",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "peer_queue_size",
		Help:      "Current size of the peer learning event queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "peer_queue_capacity",
		Help:      "Configured capacity of the peer learning event queue",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "peer_queue_enqueue_errors_total",
		Help:      "Total number of failed peer event enqueues",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status code",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordPredictionGenerated increments the generated predictions counter.
func RecordPredictionGenerated() {
	globalManager.predictionsGenerated.Inc()
}

// RecordPredictionFailure increments the prediction failure counter for a reason.
func RecordPredictionFailure(reason string) {
	globalManager.predictionFailures.WithLabelValues(reason).Inc()
}

// RecordValidationFailure increments the validation failures counter.
func RecordValidationFailure() {
	globalManager.validationFailures.Inc()
}

// RecordGenerationLatency records per-game generation latency in milliseconds.
func RecordGenerationLatency(latencyMs float64) {
	globalManager.generationLatency.Observe(latencyMs)
}

// RecordRevision increments the recorded revisions counter.
func RecordRevision() {
	globalManager.revisionsRecorded.Inc()
}

// RecordRevisionRejected increments the rejected revisions counter.
func RecordRevisionRejected() {
	globalManager.revisionsRejected.Inc()
}

// RecordLearningUpdate increments the learning updates counter.
func RecordLearningUpdate() {
	globalManager.learningUpdates.Inc()
}

// RecordDuplicateOutcome increments the duplicate outcomes counter.
func RecordDuplicateOutcome() {
	globalManager.duplicateOutcomes.Inc()
}

// RecordPeerEventEmitted increments the emitted peer events counter.
func RecordPeerEventEmitted() {
	globalManager.peerEventsEmitted.Inc()
}

// RecordPeerEventConsumed increments the consumed peer events counter.
func RecordPeerEventConsumed() {
	globalManager.peerEventsConsumed.Inc()
}

// RecordPeerNudgeApplied increments the applied peer nudges counter.
func RecordPeerNudgeApplied() {
	globalManager.peerNudgesApplied.Inc()
}

// UpdateExpertAccuracy sets the rolling accuracy gauge for an expert.
func UpdateExpertAccuracy(expertID string, accuracy float64) {
	globalManager.expertAccuracy.WithLabelValues(expertID).Set(accuracy)
}

// RecordMemoryStored increments the stored memories counter.
func RecordMemoryStored() {
	globalManager.memoriesStored.Inc()
}

// UpdateMemoriesTotal sets the current memory count gauge.
func UpdateMemoriesTotal(count int) {
	globalManager.memoriesTotal.Set(float64(count))
}

// RecordConsensusComputed increments the consensus computed counter.
func RecordConsensusComputed() {
	globalManager.consensusComputed.Inc()
}

// RecordConsensusDegraded increments the degraded consensus counter.
func RecordConsensusDegraded() {
	globalManager.consensusDegraded.Inc()
}

// RecordAgreementRatio observes a consensus agreement ratio.
func RecordAgreementRatio(ratio float64) {
	globalManager.agreementRatio.Observe(ratio)
}

// UpdateGamesTracked sets the tracked games gauge.
func UpdateGamesTracked(count int) {
	globalManager.gamesTracked.Set(float64(count))
}

// UpdateQueueSize sets the current peer queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured peer queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError increments the failed enqueues counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes a GC pause duration in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Package metrics provides Prometheus metrics for the matchmaker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the matchmaker.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Intake
	entrantsEnqueued  prometheus.Counter
	entrantsDuplicate prometheus.Counter
	entrantsAdmitted  *prometheus.CounterVec
	groupsAdmitted    prometheus.Counter
	groupsDropped     prometheus.Counter
	groupBufferSize   prometheus.Gauge

	// Teams and matches
	teamsCompleted   prometheus.Counter
	matchesFinalized prometheus.Counter
	skillDifference  prometheus.Histogram
	oldestWait       prometheus.Histogram

	// Rebalancer
	matchesRebalanced    prometheus.Counter
	rebalanceLatency     prometheus.Histogram
	rebalanceImprovement prometheus.Histogram

	// Escalator
	priorityEscalations prometheus.Counter
	escalationLatency   prometheus.Histogram

	// Pools
	incompleteTeams prometheus.Gauge
	waitingMatches  prometheus.Gauge
	queuedEntrants  prometheus.Gauge

	// Entrant queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchmaker",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)
	skillBuckets := []float64{0, 10, 25, 50, 100, 150, 200, 300, 500}

	m.entrantsEnqueued = m.counter("entrants_enqueued_total", "Total number of entrants accepted by the entrant queue")
	m.entrantsDuplicate = m.counter("entrants_duplicate_total", "Total number of entrants rejected because they were already waiting")
	m.entrantsAdmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entrants_admitted_total",
		Help:      "Total number of entrants admitted to a team, by admission kind",
	}, []string{"kind"})
	m.groupsAdmitted = m.counter("groups_admitted_total", "Total number of groups admitted to a team as one unit")
	m.groupsDropped = m.counter("groups_dropped_total", "Total number of groups dropped because no team had room for them")
	m.groupBufferSize = m.gauge("group_buffer_size", "Entrants currently held in the intake group buffer")

	m.teamsCompleted = m.counter("teams_completed_total", "Total number of teams that reached capacity")
	m.matchesFinalized = m.counter("matches_finalized_total", "Total number of finalized matches")
	m.skillDifference = m.histogram("match_skill_difference", "Skill-sum difference between the two teams of a finalized match", skillBuckets)
	m.oldestWait = m.histogram("oldest_wait_seconds", "Wait time of the oldest entrant of a finalized match", []float64{1, 2, 5, 10, 20, 30, 60, 120, 300})

	m.matchesRebalanced = m.counter("matches_rebalanced_total", "Total number of matches whose split was changed by the rebalancer")
	m.rebalanceLatency = m.histogram("rebalance_latency_milliseconds", "Time spent searching for the best team split", m.histogramBuckets)
	m.rebalanceImprovement = m.histogram("rebalance_improvement", "Skill difference removed by rebalancing", skillBuckets)

	m.priorityEscalations = m.counter("priority_escalations_total", "Total number of priority level increases")
	m.escalationLatency = m.histogram("escalation_scan_latency_milliseconds", "Duration of one escalator pass over both pools", m.histogramBuckets)

	m.incompleteTeams = m.gauge("incomplete_teams", "Teams waiting for more entrants")
	m.waitingMatches = m.gauge("waiting_matches", "Matches with one team waiting for an opponent")
	m.queuedEntrants = m.gauge("queued_entrants", "Estimated entrants held by incomplete teams and waiting matches")

	m.queueSize = m.gauge("queue_size", "Entrants waiting in the entrant queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the entrant queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Entrant queue utilization ratio (size / capacity)")

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Admission kinds for RecordEntrantsAdmitted.
const (
	KindSolo  = "solo"
	KindGroup = "group"
)

// RecordEntrantEnqueued increments the enqueued entrants counter.
func RecordEntrantEnqueued() {
	globalManager.entrantsEnqueued.Inc()
}

// RecordEntrantDuplicate increments the duplicate entrants counter.
func RecordEntrantDuplicate() {
	globalManager.entrantsDuplicate.Inc()
}

// RecordEntrantsAdmitted adds n admitted entrants of the given kind.
func RecordEntrantsAdmitted(kind string, n int) {
	globalManager.entrantsAdmitted.WithLabelValues(kind).Add(float64(n))
}

// RecordGroupAdmitted increments the admitted groups counter.
func RecordGroupAdmitted() {
	globalManager.groupsAdmitted.Inc()
}

// RecordGroupDropped increments the dropped groups counter.
func RecordGroupDropped() {
	globalManager.groupsDropped.Inc()
}

// UpdateGroupBufferSize sets the intake group buffer size.
func UpdateGroupBufferSize(size int) {
	globalManager.groupBufferSize.Set(float64(size))
}

// RecordTeamCompleted increments the completed teams counter.
func RecordTeamCompleted() {
	globalManager.teamsCompleted.Inc()
}

// RecordMatchFinalized records a finalized match.
func RecordMatchFinalized(skillDifference int, oldestWaitSeconds float64) {
	globalManager.matchesFinalized.Inc()
	globalManager.skillDifference.Observe(float64(skillDifference))
	globalManager.oldestWait.Observe(oldestWaitSeconds)
}

// RecordRebalance records one rebalancer run.
func RecordRebalance(latencyMs float64, before, after int) {
	globalManager.rebalanceLatency.Observe(latencyMs)
	if after < before {
		globalManager.matchesRebalanced.Inc()
		globalManager.rebalanceImprovement.Observe(float64(before - after))
	}
}

// RecordPriorityEscalations adds n priority level increases.
func RecordPriorityEscalations(n int) {
	globalManager.priorityEscalations.Add(float64(n))
}

// RecordEscalationLatency records the duration of one escalator pass.
func RecordEscalationLatency(latencyMs float64) {
	globalManager.escalationLatency.Observe(latencyMs)
}

// UpdatePools sets the pool occupancy gauges.
func UpdatePools(incompleteTeams, waitingMatches, queuedEntrants int) {
	globalManager.incompleteTeams.Set(float64(incompleteTeams))
	globalManager.waitingMatches.Set(float64(waitingMatches))
	globalManager.queuedEntrants.Set(float64(queuedEntrants))
}

// UpdateQueueSize sets the entrant queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the entrant queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the entrant queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordErrorByComponent increments the error counter for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry holding the matchmaker metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package metrics provides metrics collection for the conversational turn
// pipeline, with internal atomic counters for fast access plus Prometheus
// metrics for scraping.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metric labels
const (
	labelIntent    = "intent"
	labelState     = "state"
	labelTrustMode = "trust_mode"
	labelViolation = "violation"
)

// Metrics tracks turn pipeline counters. Safe for concurrent use.
type Metrics struct {
	totalTurns      atomic.Uint64
	successfulTurns atomic.Uint64
	failedTurns     atomic.Uint64
	clarifications  atomic.Uint64
	rateLimitHits   atomic.Uint64

	totalLatency atomic.Int64 // microseconds
	latencyCount atomic.Uint64
	maxLatency   atomic.Int64

	intentsMu sync.RWMutex
	intents   map[string]uint64

	logger *zap.Logger

	promTurnsTotal      prometheus.Counter
	promTurnsSuccessful prometheus.Counter
	promTurnsFailed     prometheus.Counter
	promClarifications  prometheus.Counter
	promRateLimitHits   prometheus.Counter
	promTurnLatency     prometheus.Histogram
	promIntents         *prometheus.CounterVec
	promStates          *prometheus.CounterVec
	promTrustModes      *prometheus.CounterVec
	promViolations      *prometheus.CounterVec
}

// New creates a metrics tracker. Prometheus metrics auto-register with the
// default registry via promauto, so construct at most one per process.
func New(logger *zap.Logger) *Metrics {
	return &Metrics{
		intents: make(map[string]uint64),
		logger:  logger,

		promTurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "turns_total",
			Help:      "Total number of conversation turns processed",
		}),
		promTurnsSuccessful: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "turns_successful_total",
			Help:      "Total number of turns that produced an answer",
		}),
		promTurnsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "turns_failed_total",
			Help:      "Total number of turns that failed",
		}),
		promClarifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "clarifications_total",
			Help:      "Total number of turns that ended in a clarification request",
		}),
		promRateLimitHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "rate_limit_hits_total",
			Help:      "Total number of turns rejected by the per-session rate limit",
		}),
		promTurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alertassist",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end turn latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		promIntents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "intents_total",
			Help:      "Turns by classified intent",
		}, []string{labelIntent}),
		promStates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "resolution_states_total",
			Help:      "Turns by follow-up resolution state",
		}, []string{labelState}),
		promTrustModes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "trust_modes_total",
			Help:      "Turns by final trust mode (NORMAL, STRICT, SAFE)",
		}, []string{labelTrustMode}),
		promViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alertassist",
			Name:      "audit_violations_total",
			Help:      "Self-audit violations by violation name",
		}, []string{labelViolation}),
	}
}

// RecordTurn records one completed turn.
func (m *Metrics) RecordTurn(intent, state, trustMode string, success bool, latency time.Duration) {
	m.totalTurns.Add(1)
	m.promTurnsTotal.Inc()
	m.promTurnLatency.Observe(latency.Seconds())

	if success {
		m.successfulTurns.Add(1)
		m.promTurnsSuccessful.Inc()
	} else {
		m.failedTurns.Add(1)
		m.promTurnsFailed.Inc()
	}

	m.intentsMu.Lock()
	m.intents[intent]++
	m.intentsMu.Unlock()
	m.promIntents.WithLabelValues(intent).Inc()
	m.promStates.WithLabelValues(state).Inc()
	if trustMode != "" {
		m.promTrustModes.WithLabelValues(trustMode).Inc()
	}

	m.recordLatency(latency)
}

// RecordClarification records a turn that ended in a clarification request.
func (m *Metrics) RecordClarification() {
	m.clarifications.Add(1)
	m.promClarifications.Inc()
}

// RecordRateLimitHit records a turn rejected by the per-session rate limit.
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHits.Add(1)
	m.promRateLimitHits.Inc()
}

// RecordViolation records one named self-audit violation.
func (m *Metrics) RecordViolation(name string) {
	m.promViolations.WithLabelValues(name).Inc()
}

func (m *Metrics) recordLatency(latency time.Duration) {
	latencyUs := latency.Microseconds()
	m.totalLatency.Add(latencyUs)
	m.latencyCount.Add(1)

	for {
		currentMax := m.maxLatency.Load()
		if latencyUs <= currentMax {
			break
		}
		if m.maxLatency.CompareAndSwap(currentMax, latencyUs) {
			break
		}
	}
}

// Stats is a point-in-time snapshot of the internal counters.
type Stats struct {
	TotalTurns      uint64            `json:"total_turns"`
	SuccessfulTurns uint64            `json:"successful_turns"`
	FailedTurns     uint64            `json:"failed_turns"`
	Clarifications  uint64            `json:"clarifications"`
	RateLimitHits   uint64            `json:"rate_limit_hits"`
	AvgLatency      time.Duration     `json:"avg_latency"`
	MaxLatency      time.Duration     `json:"max_latency"`
	Intents         map[string]uint64 `json:"intents"`
}

// GetStats returns current statistics.
func (m *Metrics) GetStats() Stats {
	m.intentsMu.RLock()
	intents := make(map[string]uint64, len(m.intents))
	for k, v := range m.intents {
		intents[k] = v
	}
	m.intentsMu.RUnlock()

	stats := Stats{
		TotalTurns:      m.totalTurns.Load(),
		SuccessfulTurns: m.successfulTurns.Load(),
		FailedTurns:     m.failedTurns.Load(),
		Clarifications:  m.clarifications.Load(),
		RateLimitHits:   m.rateLimitHits.Load(),
		MaxLatency:      time.Duration(m.maxLatency.Load()) * time.Microsecond,
		Intents:         intents,
	}
	if count := m.latencyCount.Load(); count > 0 {
		stats.AvgLatency = time.Duration(m.totalLatency.Load()/int64(count)) * time.Microsecond
	}
	return stats
}

// LogStats logs the current statistics.
func (m *Metrics) LogStats() {
	stats := m.GetStats()
	m.logger.Info("pipeline metrics",
		zap.Uint64("total_turns", stats.TotalTurns),
		zap.Uint64("successful_turns", stats.SuccessfulTurns),
		zap.Uint64("failed_turns", stats.FailedTurns),
		zap.Uint64("clarifications", stats.Clarifications),
		zap.Uint64("rate_limit_hits", stats.RateLimitHits),
		zap.Duration("avg_latency", stats.AvgLatency),
		zap.Duration("max_latency", stats.MaxLatency),
	)
}

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Prometheus collectors register with the default registry, so all tests in
// this package share one instance.
var (
	once   sync.Once
	shared *Metrics
)

func testMetrics() *Metrics {
	once.Do(func() { shared = New(zap.NewNop()) })
	return shared
}

func TestRecordTurn(t *testing.T) {
	m := testMetrics()
	before := m.GetStats()

	m.RecordTurn("ALERT_COUNT", "FRESH", "NORMAL", true, 10*time.Millisecond)
	m.RecordTurn("ALERT_COUNT", "FOLLOWUP_LIMIT", "NORMAL", true, 30*time.Millisecond)
	m.RecordTurn("UNKNOWN", "", "", false, 5*time.Millisecond)

	stats := m.GetStats()
	assert.Equal(t, before.TotalTurns+3, stats.TotalTurns)
	assert.Equal(t, before.SuccessfulTurns+2, stats.SuccessfulTurns)
	assert.Equal(t, before.FailedTurns+1, stats.FailedTurns)
	assert.Equal(t, before.Intents["ALERT_COUNT"]+2, stats.Intents["ALERT_COUNT"])
	assert.GreaterOrEqual(t, stats.MaxLatency, 30*time.Millisecond)
	assert.Greater(t, stats.AvgLatency, time.Duration(0))
}

func TestRecordClarificationAndRateLimit(t *testing.T) {
	m := testMetrics()
	before := m.GetStats()

	m.RecordClarification()
	m.RecordRateLimitHit()
	m.RecordViolation("scope_mismatch")

	stats := m.GetStats()
	assert.Equal(t, before.Clarifications+1, stats.Clarifications)
	assert.Equal(t, before.RateLimitHits+1, stats.RateLimitHits)
}

func TestRecordTurnConcurrent(t *testing.T) {
	m := testMetrics()
	before := m.GetStats()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordTurn("ALERT_LIST", "FRESH", "NORMAL", true, time.Millisecond)
		}()
	}
	wg.Wait()

	stats := m.GetStats()
	assert.Equal(t, before.TotalTurns+20, stats.TotalTurns)
	assert.Equal(t, before.Intents["ALERT_LIST"]+20, stats.Intents["ALERT_LIST"])
}

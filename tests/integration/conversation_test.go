//go:build integration

// Package integration exercises the assistant end to end: alert table loaded
// from a real CSV file, full turn pipeline, audit trail and health checks.
//
// To run:
//
//	go test -v -tags=integration ./tests/integration/...
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/auditlog"
	"github.com/oemwatch/alertassist/internal/config"
	"github.com/oemwatch/alertassist/internal/engine"
	"github.com/oemwatch/alertassist/internal/health"
	"github.com/oemwatch/alertassist/internal/metrics"
	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/resolver"
	"github.com/oemwatch/alertassist/internal/session"
	"github.com/oemwatch/alertassist/internal/trust"
)

const sampleAlerts = `database,severity,time,error_code,message
MIDEVSTB,CRITICAL,2026-08-29T10:15:00Z,ORA-16191,standby redo transport failure
MIDEVSTB,CRITICAL,2026-08-29T09:40:00Z,,standby apply lag detected
MIDEVSTB,WARNING,2026-08-29T08:05:00Z,,tablespace USERS is 92 percent full
MIDEVSTBN,CRITICAL,2026-08-29T07:30:00Z,,standby database not reachable
MIDEVSTBN,WARNING,2026-08-29T06:10:00Z,,standby redo gap growing
PRODDB01,INFO,2026-08-29T05:00:00Z,,backup completed
`

// sharedMetrics is constructed once for the whole test binary because
// metrics.New registers Prometheus collectors with the default registry and
// must be called at most once per process.
var sharedMetrics = metrics.New(zap.NewNop())

// TestContext holds the shared harness for one integration test.
type TestContext struct {
	Engine   *engine.Engine
	Audit    *auditlog.Logger
	Executor query.Executor
	Store    *session.Store
	Logger   *zap.Logger
}

// NewTestContext loads the sample alert table from disk and wires a full
// engine over it.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	path := filepath.Join(t.TempDir(), "alerts.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleAlerts), 0o600))

	alerts, err := query.LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, alerts, 6)

	logger := zap.NewNop()
	cfg := &config.Config{
		AlertsFile:          path,
		KnownDatabases:      []string{"MIDEVSTB", "MIDEVSTBN", "PRODDB01"},
		DefaultPageSize:     20,
		MaxPageSize:         200,
		VarianceTolerance:   0.05,
		LargeCountThreshold: 1000,
		SessionTTL:          30 * time.Minute,
		HistoryLimit:        10,
		TurnsPerMinute:      60,
		TurnBurst:           10,
		LogLevel:            "info",
	}
	require.NoError(t, cfg.Validate())

	store := session.NewStore(session.Options{TTL: cfg.SessionTTL}, logger)
	executor := query.NewMemoryExecutor(alerts, logger)
	audit := auditlog.NewLogger(logger, true)
	eng := engine.New(cfg, store, executor, audit, sharedMetrics, logger)

	return &TestContext{Engine: eng, Audit: audit, Executor: executor, Store: store, Logger: logger}
}

func TestConversationLifecycle(t *testing.T) {
	tc := NewTestContext(t)
	ctx := context.Background()
	const sid = "it-conv"

	t.Run("FreshCount", func(t *testing.T) {
		a, err := tc.Engine.Ask(ctx, sid, "how many standby alerts are there?")
		require.NoError(t, err)
		assert.Equal(t, 4, a.ResultCount)
	})

	t.Run("LimitFollowup", func(t *testing.T) {
		a, err := tc.Engine.Ask(ctx, sid, "show me 3")
		require.NoError(t, err)
		assert.Equal(t, resolver.StateFollowupLimit, a.State)
		assert.Equal(t, 4, a.ResultCount)
	})

	t.Run("FilterFollowup", func(t *testing.T) {
		a, err := tc.Engine.Ask(ctx, sid, "only critical ones")
		require.NoError(t, err)
		assert.Equal(t, resolver.StateFollowupFilter, a.State)
		assert.Equal(t, 3, a.ResultCount)
	})

	t.Run("FreshSwitchClearsScope", func(t *testing.T) {
		a, err := tc.Engine.Ask(ctx, sid, "how many alerts for PRODDB01?")
		require.NoError(t, err)
		assert.Equal(t, resolver.StateFresh, a.State)
		assert.Equal(t, 1, a.ResultCount)
		assert.Equal(t, alert.SeverityNone, tc.Store.Get(sid).LastSeverity)
	})

	t.Run("StrictAnswer", func(t *testing.T) {
		a, err := tc.Engine.Ask(ctx, sid, "give me only the number of alerts for MIDEVSTB")
		require.NoError(t, err)
		assert.Equal(t, trust.ModeStrict, a.TrustMode)
		assert.Equal(t, "3", a.Text)
	})

	t.Run("AuditTrailRecorded", func(t *testing.T) {
		entries := tc.Audit.Recent(0)
		require.NotEmpty(t, entries)
		for _, e := range entries {
			assert.Equal(t, sid, e.SessionID)
			assert.True(t, e.Success)
		}
	})
}

func TestHealthOverLoadedData(t *testing.T) {
	tc := NewTestContext(t)

	checker := health.New(tc.Executor, tc.Store, tc.Logger)
	status, checks := checker.CheckAll(context.Background())
	assert.Equal(t, health.StatusHealthy, status)
	assert.Len(t, checks, 2)
}

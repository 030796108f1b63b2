package respond

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/planner"
	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/resolver"
	"github.com/oemwatch/alertassist/internal/trust"
)

func TestDraftCount(t *testing.T) {
	r := New()

	text := r.Draft(
		&planner.Plan{Mode: planner.ModeCount, Filter: planner.Filter{Databases: []string{"MIDEVSTB"}}},
		&query.Result{Total: 42},
		resolver.Resolution{Target: "MIDEVSTB"},
	)

	assert.Equal(t, "There are 42 alerts for MIDEVSTB.", text)
}

func TestDraftCountWithSeverity(t *testing.T) {
	r := New()

	text := r.Draft(
		&planner.Plan{Mode: planner.ModeCount, Filter: planner.Filter{Severity: alert.SeverityCritical}},
		&query.Result{Total: 7},
		resolver.Resolution{IssueType: alert.IssueStandby},
	)

	assert.Equal(t, "There are 7 critical alerts for standby issues.", text)
}

func TestDraftSummary(t *testing.T) {
	r := New()

	text := r.Draft(
		&planner.Plan{Mode: planner.ModeSummary, Filter: planner.Filter{Databases: []string{"MIDEVSTB"}}},
		&query.Result{
			Total:      10,
			BySeverity: map[alert.Severity]int{alert.SeverityCritical: 3, alert.SeverityWarning: 7},
		},
		resolver.Resolution{Target: "MIDEVSTB"},
	)

	assert.Equal(t, "10 alerts for MIDEVSTB (3 critical, 7 warning).", text)
}

func TestDraftListNumbersFromOffset(t *testing.T) {
	r := New()
	ts := time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC)

	text := r.Draft(
		&planner.Plan{Mode: planner.ModeList, Offset: 20, Limit: 2},
		&query.Result{
			Total: 45,
			Rows: []alert.Alert{
				{Database: "MIDEVSTB", Severity: alert.SeverityCritical, Time: ts, ErrorCode: "ORA-16191", Message: "standby redo transport failure"},
				{Database: "MIDEVSTB", Severity: alert.SeverityWarning, Time: ts, Message: "apply lag rising"},
			},
		},
		resolver.Resolution{Target: "MIDEVSTB"},
	)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Showing 2 of 45 alerts for MIDEVSTB:", lines[0])
	// Continuation pages number from the absolute position.
	assert.True(t, strings.HasPrefix(lines[1], "21. [CRITICAL]"))
	assert.Contains(t, lines[1], "ORA-16191")
	assert.True(t, strings.HasPrefix(lines[2], "22. [WARNING]"))
}

func TestDraftAggregate(t *testing.T) {
	r := New()

	text := r.Draft(
		&planner.Plan{Mode: planner.ModeAggregate, GroupBy: planner.GroupByDatabase},
		&query.Result{Buckets: []query.Bucket{{Key: "MIDEVSTB", Count: 30}, {Key: "PRODDB01", Count: 5}}},
		resolver.Resolution{},
	)

	assert.Contains(t, text, "MIDEVSTB has the most alerts: 30")
	assert.Contains(t, text, "PRODDB01=5")
}

func TestDraftCompare(t *testing.T) {
	r := New()

	text := r.Draft(
		&planner.Plan{Mode: planner.ModeCompare},
		&query.Result{Buckets: []query.Bucket{{Key: "MIDEVSTB", Count: 30}, {Key: "MIDEVSTBN", Count: 0}}},
		resolver.Resolution{},
	)

	assert.Equal(t, "MIDEVSTB has 30 alerts; MIDEVSTBN has 0 alerts.", text)
}

func TestFinalizeNormal(t *testing.T) {
	r := New()

	out := r.Finalize("There are 42 alerts for MIDEVSTB.",
		trust.Verdict{Mode: trust.ModeNormal, Confidence: trust.ConfidenceExact, Passed: true},
		nil, nil)

	assert.Equal(t, "There are 42 alerts for MIDEVSTB.", out)
}

func TestFinalizePartialConfidenceHedges(t *testing.T) {
	r := New()

	out := r.Finalize("There are 42 alerts for MIDEVSTB.",
		trust.Verdict{Mode: trust.ModeNormal, Confidence: trust.ConfidencePartial, Passed: true},
		nil, nil)

	assert.True(t, strings.HasPrefix(out, "Based on the data available: "))
	assert.Contains(t, out, "42 alerts")
}

func TestFinalizeStrictCountIsBareNumber(t *testing.T) {
	r := New()

	out := r.Finalize("There are 42 alerts for MIDEVSTB.",
		trust.Verdict{Mode: trust.ModeStrict, Confidence: trust.ConfidenceExact, Passed: true},
		&planner.Plan{Mode: planner.ModeCount},
		&query.Result{Total: 42})

	assert.Equal(t, "42", out)
}

func TestFinalizeStrictWithoutPlanTruncates(t *testing.T) {
	r := New()

	out := r.Finalize("First sentence. Second sentence with extra detail.",
		trust.Verdict{Mode: trust.ModeStrict, Confidence: trust.ConfidenceExact, Passed: true},
		nil, nil)

	assert.Equal(t, "First sentence.", out)
}

func TestFinalizeSafeRefusesOnNoConfidence(t *testing.T) {
	r := New()

	out := r.Finalize("There are 42 alerts for MIDEVSTB.",
		trust.Verdict{Mode: trust.ModeSafe, Confidence: trust.ConfidenceNone},
		nil, nil)

	assert.NotContains(t, out, "42")
	assert.Contains(t, out, "can't answer that reliably")
}

func TestFinalizeSafePrependsCorrections(t *testing.T) {
	r := New()

	out := r.Finalize("There are 42 alerts for MIDEVSTB.",
		trust.Verdict{
			Mode:        trust.ModeSafe,
			Confidence:  trust.ConfidencePartial,
			Corrections: []string{"Correction: MIDEVSTB:count was previously reported as 17; the current figure is 42."},
		},
		nil, nil)

	assert.True(t, strings.HasPrefix(out, "Correction:"))
	assert.Contains(t, out, "Based on the data available: There are 42 alerts for MIDEVSTB.")
}

func TestClarification(t *testing.T) {
	r := New()

	out := r.Clarification([]string{"alerts for a specific database", "standby issues"})

	assert.Contains(t, out, "I need more context")
	assert.Contains(t, out, "- alerts for a specific database")
	assert.Contains(t, out, "- standby issues")
	assert.Contains(t, out, "What would you like to know?")
}

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/nlq"
	"github.com/oemwatch/alertassist/internal/session"
)

var testDatabases = []string{"MIDEVSTB", "MIDEVSTBN", "PRODDB01"}

// resolve runs the full extract-classify-resolve chain for one utterance.
func resolve(t *testing.T, utterance string, ctx session.Context) Resolution {
	t.Helper()
	x := nlq.NewExtractor(testDatabases)
	entities := x.Extract(utterance)
	cls := nlq.NewClassifier().Classify(utterance, entities)
	return New(zap.NewNop()).Resolve(cls, entities, ctx)
}

func TestResolveFreshWithExplicitDatabase(t *testing.T) {
	res := resolve(t, "show me alerts for MIDEVSTB", session.Context{})

	assert.Equal(t, StateFresh, res.State)
	assert.Equal(t, "MIDEVSTB", res.Target)
	assert.Equal(t, "MIDEVSTB_ALERTS", res.Topic)
}

func TestResolveFreshIgnoresStoredScope(t *testing.T) {
	// Switching to a new explicit database must not inherit the previous
	// target's severity filter.
	ctx := session.Context{
		SessionID:    "s1",
		LastTarget:   "MIDEVSTB",
		LastTopic:    "MIDEVSTB_ALERTS",
		LastSeverity: alert.SeverityCritical,
	}

	res := resolve(t, "show me alerts for MIDEVSTBN", ctx)

	assert.Equal(t, StateFresh, res.State)
	assert.Equal(t, "MIDEVSTBN", res.Target)
	assert.Equal(t, alert.SeverityNone, res.Severity)
}

func TestResolveFollowupLimit(t *testing.T) {
	ctx := session.Context{
		SessionID:       "s1",
		LastTopic:       "STANDBY_ALERTS",
		LastIssueType:   alert.IssueStandby,
		LastResultCount: 16176,
	}

	res := resolve(t, "show me 20", ctx)

	assert.Equal(t, StateFollowupLimit, res.State)
	assert.Equal(t, nlq.IntentFollowupLimit, res.Intent)
	assert.Equal(t, "STANDBY_ALERTS", res.Topic)
	assert.Equal(t, alert.IssueStandby, res.IssueType)
	assert.Equal(t, 20, res.Limit)
	assert.Contains(t, res.Inherited, "topic")
}

func TestResolveFollowupLimitWithoutContext(t *testing.T) {
	res := resolve(t, "show me 10", session.Context{})

	assert.Equal(t, StateNeedsClarification, res.State)
	assert.NotEmpty(t, res.ClarificationTopics)
}

func TestResolveFollowupFilter(t *testing.T) {
	ctx := session.Context{
		SessionID:  "s1",
		LastTarget: "MIDEVSTB",
		LastTopic:  "MIDEVSTB_ALERTS",
		LastLimit:  20,
	}

	res := resolve(t, "only critical ones", ctx)

	assert.Equal(t, StateFollowupFilter, res.State)
	assert.Equal(t, "MIDEVSTB", res.Target)
	assert.Equal(t, alert.SeverityCritical, res.Severity)
	// The previous page size carries over.
	assert.Equal(t, 20, res.Limit)
}

func TestResolveFollowupFilterWithoutContext(t *testing.T) {
	res := resolve(t, "only critical ones", session.Context{})
	assert.Equal(t, StateNeedsClarification, res.State)
}

func TestResolveSeverityChangeResetsOffset(t *testing.T) {
	ctx := session.Context{
		SessionID:    "s1",
		LastTarget:   "MIDEVSTB",
		LastTopic:    "MIDEVSTB_ALERTS",
		LastSeverity: alert.SeverityWarning,
		LastOffset:   40,
		LastLimit:    20,
	}

	res := resolve(t, "only critical ones", ctx)

	assert.Equal(t, alert.SeverityCritical, res.Severity)
	assert.Equal(t, 0, res.Offset)
}

func TestResolveAnaphora(t *testing.T) {
	ctx := session.Context{
		SessionID:  "s1",
		LastTarget: "MIDEVSTB",
		LastTopic:  "MIDEVSTB_ALERTS",
	}

	res := resolve(t, "what about this database?", ctx)

	assert.Equal(t, StateFollowupReference, res.State)
	assert.Equal(t, "MIDEVSTB", res.Target)
}

func TestResolveAnaphoraWithoutReferent(t *testing.T) {
	res := resolve(t, "what about this database?", session.Context{})
	assert.Equal(t, StateNeedsClarification, res.State)
}

func TestResolveNextContinuesPagination(t *testing.T) {
	ctx := session.Context{
		SessionID:  "s1",
		LastTopic:  "STANDBY_ALERTS",
		LastLimit:  20,
		LastOffset: 20,
	}

	res := resolve(t, "next", ctx)

	assert.Equal(t, StateFollowupLimit, res.State)
	assert.Equal(t, 40, res.Offset)
}

func TestResolveCountFollowupInheritsTopic(t *testing.T) {
	ctx := session.Context{
		SessionID:     "s1",
		LastTopic:     "STANDBY_ALERTS",
		LastIssueType: alert.IssueStandby,
	}

	res := resolve(t, "how many criticals?", ctx)

	assert.Equal(t, nlq.IntentCount, res.Intent)
	assert.Equal(t, alert.SeverityCritical, res.Severity)
	assert.Equal(t, alert.IssueStandby, res.IssueType)
}

func TestResolveFreshWithNothingExtracted(t *testing.T) {
	// No entities and no context: still FRESH; the planner decides whether
	// the intent can run without a target.
	res := resolve(t, "lorem ipsum dolor", session.Context{})
	assert.Equal(t, StateFresh, res.State)
	assert.Empty(t, res.Target)
}

func TestResolveIssueTypeIsPrimarySubject(t *testing.T) {
	ctx := session.Context{
		SessionID:    "s1",
		LastTarget:   "MIDEVSTB",
		LastTopic:    "MIDEVSTB_ALERTS",
		LastSeverity: alert.SeverityCritical,
	}

	res := resolve(t, "show me all standby issues", ctx)

	require.Equal(t, StateFresh, res.State)
	assert.Equal(t, alert.IssueStandby, res.IssueType)
	assert.Equal(t, "STANDBY_ALERTS", res.Topic)
	// Fresh turns never inherit the stored severity.
	assert.Equal(t, alert.SeverityNone, res.Severity)
}

func TestResolveReadsContextWithoutMutating(t *testing.T) {
	ctx := session.Context{
		SessionID:  "s1",
		LastTarget: "MIDEVSTB",
		LastTopic:  "MIDEVSTB_ALERTS",
		LastLimit:  20,
	}

	before := ctx
	_ = resolve(t, "only critical ones", ctx)
	assert.Equal(t, before, ctx)
}

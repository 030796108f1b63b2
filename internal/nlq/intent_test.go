package nlq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func classify(t *testing.T, utterance string) Classification {
	t.Helper()
	x := newTestExtractor()
	return NewClassifier().Classify(utterance, x.Extract(utterance))
}

func TestClassifyCountGuard(t *testing.T) {
	// Count-lexicon tokens force the COUNT intent even when time-lexicon
	// tokens co-occur.
	tests := []string{
		"how many standby alerts at peak hour?",
		"how many alerts in the last hour?",
		"total alerts by hour",
		"what is the count during the busiest period",
		"number of alerts when the peak was",
	}

	for _, utterance := range tests {
		t.Run(utterance, func(t *testing.T) {
			cls := classify(t, utterance)
			assert.Equal(t, IntentCount, cls.Intent)
			assert.Equal(t, "count_guard", cls.Rule)
		})
	}
}

func TestClassifyTimeWithoutCountLexicon(t *testing.T) {
	cls := classify(t, "when did the alerts peak?")
	assert.Equal(t, IntentTimeAggregate, cls.Intent)
}

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		expected  Intent
	}{
		{"followup limit show me N", "show me 20", IntentFollowupLimit},
		{"followup limit top N", "top 10", IntentFollowupLimit},
		{"followup limit bare number", "15", IntentFollowupLimit},
		{"followup limit next", "next", IntentFollowupLimit},
		{"fresh reset", "reset", IntentFreshReset},
		{"fresh reset start over", "start over", IntentFreshReset},
		{"followup filter only critical", "only critical ones", IntentFollowupFilter},
		{"followup filter just warnings", "just warnings", IntentFollowupFilter},
		{"followup reference", "what about this database?", IntentFollowupReference},
		{"max database", "which database has the most alerts?", IntentMaxDatabase},
		{"summary", "show me the alerts for MIDEVSTB", IntentSummary},
		{"issue type", "show me all standby issues", IntentIssueType},
		{"list", "list alerts", IntentList},
		{"root cause", "why is MIDEVSTB failing?", IntentRootCause},
		{"health check", "is MIDEVSTB healthy?", IntentHealthCheck},
		{"recommendation", "how do I fix the standby lag?", IntentRecommendation},
		{"comparison", "compare MIDEVSTB vs MIDEVSTBN", IntentComparison},
		{"prediction", "will PRODDB01 fail?", IntentPrediction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := classify(t, tt.utterance)
			assert.Equal(t, tt.expected, cls.Intent, "utterance: %q", tt.utterance)
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// "how many criticals" carries both the count lexicon and a severity
	// filter; the count guard outranks the filter rule.
	cls := classify(t, "how many criticals?")
	assert.Equal(t, IntentCount, cls.Intent)
}

func TestClassifyEntityFallback(t *testing.T) {
	t.Run("bare database name reads as summary", func(t *testing.T) {
		cls := classify(t, "MIDEVSTB")
		assert.Equal(t, IntentSummary, cls.Intent)
		assert.Equal(t, "entity_database", cls.Rule)
	})

	t.Run("unrecognized text stays unknown", func(t *testing.T) {
		cls := classify(t, "lorem ipsum dolor")
		assert.Equal(t, IntentUnknown, cls.Intent)
	})
}

func TestClassifyDeterministic(t *testing.T) {
	first := classify(t, "how many standby alerts at peak hour?")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, classify(t, "how many standby alerts at peak hour?"))
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	for _, utterance := range []string{"how many alerts?", "show me 20", "lorem ipsum", "reset"} {
		cls := classify(t, utterance)
		assert.GreaterOrEqual(t, cls.Confidence, 0.0)
		assert.LessOrEqual(t, cls.Confidence, 1.0)
	}
}

func TestRuleTableSortedByPriority(t *testing.T) {
	for i := 1; i < len(ruleTable); i++ {
		assert.Greater(t, ruleTable[i-1].priority, ruleTable[i].priority,
			"rule %q must outrank %q", ruleTable[i-1].name, ruleTable[i].name)
	}
}

func TestIntentHelpers(t *testing.T) {
	assert.True(t, IntentFollowupLimit.IsFollowup())
	assert.True(t, IntentFollowupFilter.IsFollowup())
	assert.True(t, IntentFollowupReference.IsFollowup())
	assert.False(t, IntentCount.IsFollowup())
	assert.True(t, IntentCount.IsCountFamily())
	assert.False(t, IntentList.IsCountFamily())
}

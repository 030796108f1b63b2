package nlq

import (
	"regexp"
	"strings"
)

// Intent is the discrete purpose category of one utterance. Exactly one
// intent is active per turn.
type Intent string

// Intents recognized by the classifier
const (
	IntentCount             Intent = "ALERT_COUNT"
	IntentSummary           Intent = "ALERT_SUMMARY"
	IntentList              Intent = "ALERT_LIST"
	IntentIssueType         Intent = "ISSUE_TYPE_QUERY"
	IntentMaxDatabase       Intent = "MAX_DATABASE_QUERY"
	IntentTimeAggregate     Intent = "TIME_AGGREGATE"
	IntentRootCause         Intent = "ROOT_CAUSE"
	IntentRecommendation    Intent = "RECOMMENDATION"
	IntentHealthCheck       Intent = "HEALTH_CHECK"
	IntentComparison        Intent = "COMPARISON"
	IntentPrediction        Intent = "PREDICTION"
	IntentFollowupLimit     Intent = "FOLLOWUP_LIMIT"
	IntentFollowupFilter    Intent = "FOLLOWUP_FILTER"
	IntentFollowupReference Intent = "FOLLOWUP_REFERENCE"
	IntentFreshReset        Intent = "FRESH_RESET"
	IntentUnknown           Intent = "UNKNOWN"
)

// IsFollowup reports whether the intent only makes sense with prior context.
func (i Intent) IsFollowup() bool {
	switch i {
	case IntentFollowupLimit, IntentFollowupFilter, IntentFollowupReference:
		return true
	}
	return false
}

// IsCountFamily reports whether the intent answers "how many".
func (i Intent) IsCountFamily() bool {
	return i == IntentCount
}

// Classification is the classifier's output for one utterance.
type Classification struct {
	Intent     Intent
	Confidence float64
	Rule       string // name of the matching rule, for the audit trail
}

// rule is one entry in the ordered classification table. Rules are evaluated
// top-down by priority; the first whose pattern matches wins. Confidence is
// the static weight attached to the rule, not a learned score.
type rule struct {
	name       string
	intent     Intent
	priority   int
	confidence float64
	patterns   []*regexp.Regexp
}

// countLexiconRe is the COUNT guard lexicon. Any utterance containing one of
// these tokens is forced to the COUNT intent even when time-aggregation
// tokens ("hour", "peak", "when") co-occur; count questions were historically
// misrouted to time answers when the TIME rule saw them first.
var countLexiconRe = regexp.MustCompile(`how\s+many|\bcount\b|\btotal\b|number\s+of`)

// ruleTable is evaluated in this order (priority descending). Keep it sorted;
// Classify assumes descending priority.
var ruleTable = []rule{
	{
		name: "count_guard", intent: IntentCount, priority: 110, confidence: 0.95,
		patterns: []*regexp.Regexp{countLexiconRe},
	},
	{
		name: "followup_limit", intent: IntentFollowupLimit, priority: 100, confidence: 0.9,
		patterns: compileAll(
			`^(?:ok\s+)?show\s+(?:me\s+)?(?:the\s+)?\d+`,
			`^(?:ok\s+)?(?:top|first|next|last)\s+\d+`,
			`^(?:ok\s+)?\d+\s+(?:alerts?|more|rows?)`,
			`^\s*\d+\s*$`,
			`^show\s+more`,
			`^next\b`,
			`^more\s+alerts?`,
		),
	},
	{
		name: "fresh_reset", intent: IntentFreshReset, priority: 98, confidence: 0.95,
		patterns: compileAll(
			`^reset\b`,
			`^clear\b`,
			`^start\s+(?:over|fresh|new)`,
			`^fresh\s+(?:query|search|start)`,
		),
	},
	{
		name: "followup_filter", intent: IntentFollowupFilter, priority: 95, confidence: 0.9,
		patterns: compileAll(
			`^(?:ok\s+)?(?:only|just)\s+(?:the\s+)?(?:criticals?|warnings?|info)\b`,
			`^(?:ok\s+)?(?:criticals?|warnings?)\s+(?:only|ones?)\b`,
			`^exclud(?:e|ing)\s+(?:criticals?|warnings?)`,
			`^(?:ok\s+)?show\s+(?:me\s+)?(?:only\s+)?(?:criticals?|warnings?)\s*(?:ones?|alerts?)?$`,
		),
	},
	{
		name: "followup_reference", intent: IntentFollowupReference, priority: 94, confidence: 0.85,
		patterns: anaphoraRes,
	},
	{
		name: "max_database", intent: IntentMaxDatabase, priority: 92, confidence: 0.9,
		patterns: compileAll(
			`which\s+(?:database|db)\s+(?:has|have)\s+(?:the\s+)?(?:most|maximum|highest|max)`,
			`(?:most|maximum|highest)\s+(?:alerts?|issues?)\s+(?:by\s+)?(?:database|db)`,
			`(?:database|db)\s+with\s+(?:the\s+)?(?:most|maximum|highest)`,
			`most\s+(?:problematic|affected)\s+(?:database|db)`,
			`top\s+(?:database|db)s?\s+by\s+alerts?`,
		),
	},
	{
		name: "summary", intent: IntentSummary, priority: 90, confidence: 0.85,
		patterns: compileAll(
			`(?:show|get|display|what\s+are)\s+(?:me\s+)?(?:the\s+)?alerts?\s+(?:for|on|from|of)\s+\S+`,
			`alerts?\s+(?:for|on|from)\s+\S+`,
			`summary\s+(?:of|for)\b`,
			`\boverview\b`,
		),
	},
	{
		name: "issue_type", intent: IntentIssueType, priority: 88, confidence: 0.85,
		patterns: compileAll(
			`(?:show|list|display)\s+(?:me\s+)?(?:all\s+)?(?:standby|data\s*guard|dataguard|tablespace|connection|memory|backup)\s+(?:issues?|alerts?|problems?|errors?)`,
			`(?:standby|data\s*guard|dataguard|tablespace)\s+(?:issues?|problems?|alerts?)`,
		),
	},
	{
		name: "list", intent: IntentList, priority: 80, confidence: 0.8,
		patterns: compileAll(
			`(?:show|list|display|get|give)\s+(?:me\s+)?(?:all\s+)?(?:the\s+)?(?:\d+\s+)?(?:criticals?|warnings?)?\s*alerts?`,
			`(?:show|list)\s+(?:me\s+)?issues?`,
			`(?:what|which)\s+alerts?`,
		),
	},
	{
		name: "root_cause", intent: IntentRootCause, priority: 75, confidence: 0.8,
		patterns: compileAll(
			`\bwhy\b`,
			`root\s+cause`,
			`(?:what\s+is\s+)?(?:the\s+)?reason\b`,
			`explain\s+(?:why|the)`,
			`\bcause[sd]?\b`,
		),
	},
	{
		name: "health_check", intent: IntentHealthCheck, priority: 72, confidence: 0.8,
		patterns: compileAll(
			`(?:what\s+is\s+)?(?:the\s+)?(?:health|status)\s+(?:of|for)\b`,
			`is\s+\S+\s+(?:ok|okay|healthy|stable|running)`,
			`(?:database|db)\s+(?:health|status)`,
			`overall\s+(?:health|status|state)`,
		),
	},
	{
		name: "recommendation", intent: IntentRecommendation, priority: 70, confidence: 0.8,
		patterns: compileAll(
			`what\s+(?:should|do)\s+(?:i|we)\s+do`,
			`how\s+(?:to|do\s+i|can\s+i)\s+(?:fix|resolve|solve)`,
			`(?:what\s+is\s+)?(?:the\s+)?(?:solution|fix|resolution)\b`,
			`recommend(?:ation)?s?\b`,
			`(?:action|step)s?\s+to\s+(?:take|fix)`,
		),
	},
	{
		name: "comparison", intent: IntentComparison, priority: 68, confidence: 0.8,
		patterns: compileAll(
			`\bcompare\b`,
			`\bvs\.?\b`,
			`\bversus\b`,
			`difference\s+between`,
			`(?:which|what)\s+is\s+(?:worse|better)`,
		),
	},
	{
		name: "prediction", intent: IntentPrediction, priority: 65, confidence: 0.75,
		patterns: compileAll(
			`(?:will|can)\s+(?:it|\S+)\s+(?:fail|crash|go\s+down)`,
			`predict(?:ion)?s?\b`,
			`(?:outage|failure)\s+(?:risk|probability)`,
			`(?:what\s+is\s+)?(?:the\s+)?risk\b`,
		),
	},
	{
		name: "time_aggregate", intent: IntentTimeAggregate, priority: 60, confidence: 0.75,
		patterns: compileAll(
			`(?:when|what\s+time)\s+(?:did|was|is|do)`,
			`(?:peak|busiest)\s+(?:hour|time|period)`,
			`(?:at|during)\s+(?:what\s+)?(?:time|hour)`,
			`(?:by|per)\s+hour\b`,
		),
	},
}

// Classifier assigns one intent label per utterance from the ordered rule
// table. Pure function of the utterance and its entities.
type Classifier struct{}

// NewClassifier returns the rule-table classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify evaluates the rule table top-down; the first matching rule wins.
// Ties are impossible by construction (strictly ordered priorities) and
// recency never participates. The pre-extracted entities refine the verdict
// only when no rule matched at all.
func (c *Classifier) Classify(utterance string, entities EntitySet) Classification {
	lower := normalize(utterance)

	for _, r := range ruleTable {
		for _, re := range r.patterns {
			if re.MatchString(lower) {
				return Classification{Intent: r.intent, Confidence: r.confidence, Rule: r.name}
			}
		}
	}

	return enhanceWithEntities(Classification{Intent: IntentUnknown, Confidence: 0.3, Rule: "default"}, entities)
}

// enhanceWithEntities resolves utterances no rule recognized by falling back
// on what was extracted: a named database alone reads as a summary request,
// a bare severity or limit reads as a follow-up.
func enhanceWithEntities(cls Classification, entities EntitySet) Classification {
	switch {
	case len(entities.Databases) > 0:
		return Classification{Intent: IntentSummary, Confidence: 0.75, Rule: "entity_database"}
	case entities.Severity != "":
		return Classification{Intent: IntentFollowupFilter, Confidence: 0.7, Rule: "entity_severity"}
	case entities.Limit > 0 || entities.Offset == OffsetContinue:
		return Classification{Intent: IntentFollowupLimit, Confidence: 0.7, Rule: "entity_limit"}
	case entities.Anaphora:
		return Classification{Intent: IntentFollowupReference, Confidence: 0.65, Rule: "entity_anaphora"}
	}
	return cls
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalize(utterance string) string {
	return strings.TrimSpace(strings.ToLower(whitespaceRe.ReplaceAllString(utterance, " ")))
}

// Package resolver implements the follow-up state machine: it decides whether
// an utterance stands on its own, continues the previous question, or cannot
// be resolved at all, and merges current-turn entities with session context
// accordingly.
package resolver

import (
	"strings"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/nlq"
	"github.com/oemwatch/alertassist/internal/session"
)

// State is the per-turn resolution outcome. Not persisted; the next turn
// starts the machine over from the stored context.
type State string

// Resolution states
const (
	StateFresh              State = "FRESH"
	StateFollowupLimit      State = "FOLLOWUP_LIMIT"
	StateFollowupFilter     State = "FOLLOWUP_FILTER"
	StateFollowupReference  State = "FOLLOWUP_REFERENCE"
	StateNeedsClarification State = "NEEDS_CLARIFICATION"
)

// Resolution is the fully merged view of one turn: the effective scope and
// filters after context inheritance, plus which slots were inherited so the
// audit trail can show where each value came from.
type Resolution struct {
	State      State
	Intent     nlq.Intent
	Target     string // resolved database, empty when the turn has none
	Databases  []string
	Topic      string
	Severity   alert.Severity
	IssueType  alert.IssueType
	TimeRange  alert.TimeRange
	ErrorCodes []string
	Limit      int
	Offset     int
	Inherited  []string // slot names taken from context rather than the utterance

	// ClarificationTopics is populated only for StateNeedsClarification.
	ClarificationTopics []string
}

// NeedsClarification reports whether the turn must stop before planning.
func (r Resolution) NeedsClarification() bool {
	return r.State == StateNeedsClarification
}

// clarificationTopics is the fixed menu offered when a follow-up arrives with
// no usable context.
var clarificationTopics = []string{
	"alerts for a specific database (name it, e.g. MIDEVSTB)",
	"standby / Data Guard issues",
	"tablespace or storage issues",
	"alert counts by severity (critical, warning)",
}

// Resolver merges classified utterances with session context.
type Resolver struct {
	logger *zap.Logger
}

// New returns a Resolver.
func New(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("resolver")}
}

// Resolve runs the transition rules in priority order and returns the merged
// turn view. It reads the context snapshot but never writes it; context
// updates happen only after the turn's answer is produced.
func (r *Resolver) Resolve(cls nlq.Classification, entities nlq.EntitySet, ctx session.Context) Resolution {
	res := r.resolve(cls, entities, ctx)
	r.logger.Debug("turn resolved",
		zap.String("session_id", ctx.SessionID),
		zap.String("state", string(res.State)),
		zap.String("intent", string(res.Intent)),
		zap.String("target", res.Target),
		zap.Strings("inherited", res.Inherited),
	)
	return res
}

func (r *Resolver) resolve(cls nlq.Classification, entities nlq.EntitySet, ctx session.Context) Resolution {
	// Rule 1: an explicit primary subject makes the turn self-sufficient.
	// Stored context contributes nothing to its scope.
	if entities.HasPrimarySubject() {
		return r.fresh(cls, entities, ctx)
	}

	// Rule 2: limit-only utterances continue the previous question.
	if cls.Intent == nlq.IntentFollowupLimit || (cls.Intent == nlq.IntentUnknown && (entities.Limit > 0 || entities.Offset != 0)) {
		if !ctx.HasContext() {
			return clarification(cls)
		}
		return r.inherit(StateFollowupLimit, nlq.IntentFollowupLimit, entities, ctx)
	}

	// Rule 3: filter-only utterances.
	if cls.Intent == nlq.IntentFollowupFilter || (cls.Intent == nlq.IntentUnknown && entities.Severity != alert.SeverityNone) {
		if !ctx.HasContext() {
			return clarification(cls)
		}
		return r.inherit(StateFollowupFilter, nlq.IntentFollowupFilter, entities, ctx)
	}

	// Rule 4: anaphora must bind to the last resolved target.
	if cls.Intent == nlq.IntentFollowupReference || entities.Anaphora {
		if ctx.LastTarget == "" && ctx.LastTopic == "" {
			return clarification(cls)
		}
		return r.inherit(StateFollowupReference, cls.Intent, entities, ctx)
	}

	// Count/summary style follow-ups: a recognized intent with no subject of
	// its own rides on the active topic when one exists. With no context the
	// turn is still FRESH; the planner reports insufficient information for
	// intents that require a target.
	if cls.Intent != nlq.IntentUnknown && !cls.Intent.IsFollowup() && ctx.HasContext() {
		return r.inherit(StateFresh, cls.Intent, entities, ctx)
	}

	// Rule 5: fresh with whatever was extracted, possibly nothing.
	return r.fresh(cls, entities, ctx)
}

// fresh builds a Resolution from current-turn entities only. Scope never
// bleeds across targets: a severity filter inherited from a different
// database is dropped, not merged.
func (r *Resolver) fresh(cls nlq.Classification, entities nlq.EntitySet, ctx session.Context) Resolution {
	res := Resolution{
		State:      StateFresh,
		Intent:     cls.Intent,
		Databases:  entities.Databases,
		Severity:   entities.Severity,
		IssueType:  entities.IssueType,
		TimeRange:  entities.TimeRange,
		ErrorCodes: entities.ErrorCodes,
		Limit:      entities.Limit,
		Offset:     entities.Offset,
	}
	if len(entities.Databases) > 0 {
		res.Target = entities.Databases[0]
	}
	res.Topic = deriveTopic(res.Target, res.IssueType)
	if res.Offset == nlq.OffsetContinue {
		res.Offset = continueOffset(ctx)
	}
	return res
}

// inherit overlays current-turn entities on the stored context: the turn's
// own values win, absent slots fall back to what the previous turn resolved.
func (r *Resolver) inherit(state State, intent nlq.Intent, entities nlq.EntitySet, ctx session.Context) Resolution {
	res := Resolution{
		State:      state,
		Intent:     intent,
		Target:     ctx.LastTarget,
		Severity:   entities.Severity,
		IssueType:  entities.IssueType,
		TimeRange:  entities.TimeRange,
		ErrorCodes: entities.ErrorCodes,
		Limit:      entities.Limit,
		Offset:     entities.Offset,
		Topic:      ctx.LastTopic,
	}
	if res.Target != "" {
		res.Databases = []string{res.Target}
		res.Inherited = append(res.Inherited, "target")
	}
	if res.Topic != "" {
		res.Inherited = append(res.Inherited, "topic")
	}
	if res.Severity == alert.SeverityNone && ctx.LastSeverity != alert.SeverityNone {
		res.Severity = ctx.LastSeverity
		res.Inherited = append(res.Inherited, "severity")
	}
	if res.IssueType == "" && ctx.LastIssueType != "" {
		res.IssueType = ctx.LastIssueType
		res.Inherited = append(res.Inherited, "issue_type")
	}
	if res.Limit == 0 && ctx.LastLimit > 0 && state == StateFollowupFilter {
		res.Limit = ctx.LastLimit
		res.Inherited = append(res.Inherited, "limit")
	}
	switch {
	case res.Offset == nlq.OffsetContinue:
		res.Offset = continueOffset(ctx)
	case entities.Severity != alert.SeverityNone && entities.Severity != ctx.LastSeverity:
		// A changed filter restarts pagination from the top.
		res.Offset = 0
	}
	return res
}

func clarification(cls nlq.Classification) Resolution {
	return Resolution{
		State:               StateNeedsClarification,
		Intent:              cls.Intent,
		ClarificationTopics: clarificationTopics,
	}
}

// continueOffset resolves a "next"-style continuation to the row after the
// previous page.
func continueOffset(ctx session.Context) int {
	if ctx.LastLimit > 0 {
		return ctx.LastOffset + ctx.LastLimit
	}
	return ctx.LastOffset
}

// deriveTopic names the conversation topic for context storage, e.g.
// STANDBY_ALERTS or MIDEVSTB_ALERTS.
func deriveTopic(target string, issue alert.IssueType) string {
	switch {
	case issue != "":
		return strings.ToUpper(string(issue)) + "_ALERTS"
	case target != "":
		return strings.ToUpper(target) + "_ALERTS"
	default:
		return ""
	}
}

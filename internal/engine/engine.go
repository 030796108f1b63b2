// Package engine wires the turn pipeline: extraction and classification,
// follow-up resolution against session context, planning, execution,
// self-audit and final rendering. One Engine serves all sessions; turns for
// the same session are serialized, turns for different sessions run in
// parallel.
package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/auditlog"
	"github.com/oemwatch/alertassist/internal/config"
	apperrors "github.com/oemwatch/alertassist/internal/errors"
	"github.com/oemwatch/alertassist/internal/metrics"
	"github.com/oemwatch/alertassist/internal/nlq"
	"github.com/oemwatch/alertassist/internal/planner"
	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/resolver"
	"github.com/oemwatch/alertassist/internal/respond"
	"github.com/oemwatch/alertassist/internal/session"
	"github.com/oemwatch/alertassist/internal/tracing"
	"github.com/oemwatch/alertassist/internal/trust"
)

const resetConfirmation = "Context cleared. Ask me anything about the alert table."

// Answer is the outcome of one turn.
type Answer struct {
	Text          string           `json:"text"`
	Intent        nlq.Intent       `json:"intent"`
	State         resolver.State   `json:"state"`
	TrustMode     trust.Mode       `json:"trust_mode,omitempty"`
	Confidence    trust.Confidence `json:"confidence,omitempty"`
	ResultCount   int              `json:"result_count"`
	Clarification bool             `json:"clarification,omitempty"`
}

// Engine processes conversation turns.
type Engine struct {
	cfg        *config.Config
	store      *session.Store
	extractor  *nlq.Extractor
	classifier *nlq.Classifier
	resolver   *resolver.Resolver
	planner    *planner.Planner
	executor   query.Executor
	governor   *trust.Governor
	renderer   *respond.Renderer
	metrics    *metrics.Metrics
	audit      *auditlog.Logger
	logger     *zap.Logger
}

// New builds an engine over the given executor and session store.
func New(cfg *config.Config, store *session.Store, executor query.Executor,
	auditLogger *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Engine {
	extractor := nlq.NewExtractor(cfg.KnownDatabases)
	return &Engine{
		cfg:        cfg,
		store:      store,
		extractor:  extractor,
		classifier: nlq.NewClassifier(),
		resolver:   resolver.New(logger),
		planner:    planner.New(cfg.DefaultPageSize, cfg.MaxPageSize, logger),
		executor:   executor,
		governor:   trust.NewGovernor(cfg.VarianceTolerance, cfg.LargeCountThreshold, extractor, logger),
		renderer:   respond.New(),
		metrics:    m,
		audit:      auditLogger,
		logger:     logger.Named("engine"),
	}
}

// Store exposes the session store for the transport layer's session tools.
func (e *Engine) Store() *session.Store { return e.store }

// Ask processes one conversation turn. The session's turn lock is held for
// the whole call: the context read at turn start and the update at turn end
// belong to the same turn. Failed and clarification turns leave the session
// context untouched.
func (e *Engine) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	start := time.Now()
	ctx = tracing.EnsureTraceContext(ctx)
	ctx, span := tracing.TurnSpan(ctx, sessionID)
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewInvalidInput("question must not be empty")
	}
	if sessionID == "" {
		return nil, apperrors.NewInvalidInput("session_id must not be empty")
	}

	release := e.store.Acquire(sessionID)
	defer release()

	if !e.store.AllowTurn(sessionID) {
		e.metrics.RecordRateLimitHit()
		return nil, apperrors.NewRateLimited(sessionID)
	}

	answer, err := e.turn(ctx, sessionID, question, start)
	if err != nil {
		tracing.RecordError(span, err)
		e.metrics.RecordTurn(intentLabel(answer), stateLabel(answer), "", false, time.Since(start))
		e.audit.Log(ctx, auditlog.Entry{
			SessionID: sessionID,
			Question:  question,
			Intent:    intentLabel(answer),
			State:     stateLabel(answer),
			Success:   false,
			Duration:  time.Since(start),
			ErrorMsg:  err.Error(),
		})
		return nil, err
	}

	tracing.SetTurnResult(span, string(answer.Intent), string(answer.State), string(answer.TrustMode), answer.ResultCount)
	return answer, nil
}

func (e *Engine) turn(ctx context.Context, sessionID, question string, start time.Time) (*Answer, error) {
	entities := e.extractor.Extract(question)
	cls := e.classifier.Classify(question, entities)

	if cls.Intent == nlq.IntentFreshReset {
		e.store.Reset(sessionID)
		answer := &Answer{Text: resetConfirmation, Intent: cls.Intent, State: resolver.StateFresh}
		e.finishTurn(ctx, sessionID, question, cls, answer, nil, nil, trust.Verdict{}, start)
		return answer, nil
	}

	snapshot := e.store.Get(sessionID)
	res := e.resolver.Resolve(cls, entities, snapshot)

	if res.NeedsClarification() {
		e.metrics.RecordClarification()
		answer := &Answer{
			Text:          e.renderer.Clarification(res.ClarificationTopics),
			Intent:        cls.Intent,
			State:         res.State,
			Clarification: true,
		}
		e.finishTurn(ctx, sessionID, question, cls, answer, nil, nil, trust.Verdict{}, start)
		return answer, nil
	}

	plan, err := e.planner.Build(res)
	if err != nil {
		return &Answer{Intent: res.Intent, State: res.State}, err
	}

	execCtx, execSpan := tracing.ExecuteSpan(ctx, string(plan.Mode), plan.Scope())
	result, err := e.executor.Execute(execCtx, plan)
	execSpan.End()
	if err != nil {
		return &Answer{Intent: res.Intent, State: res.State},
			apperrors.New(apperrors.CodeNoData, apperrors.DataError, err.Error())
	}

	draft := e.renderer.Draft(plan, result, res)

	_, auditSpan := tracing.AuditSpan(ctx)
	verdict := e.governor.Audit(trust.Input{
		Question:   question,
		Answer:     draft,
		Resolution: res,
		Plan:       plan,
		Result:     result,
		Ledger:     e.store.Ledger(sessionID),
	})
	auditSpan.End()
	for _, v := range verdict.Violations {
		e.metrics.RecordViolation(violationName(v))
	}

	answer := &Answer{
		Text:        e.renderer.Finalize(draft, verdict, plan, result),
		Intent:      res.Intent,
		State:       res.State,
		TrustMode:   verdict.Mode,
		Confidence:  verdict.Confidence,
		ResultCount: result.Total,
	}

	// An unanswerable turn (no data) must not write facts or context.
	if verdict.Confidence == trust.ConfidenceNone {
		e.finishTurn(ctx, sessionID, question, cls, answer, plan, res.Inherited, verdict, start)
		return answer, nil
	}

	e.registerFacts(sessionID, question, res, plan, result, verdict)
	e.updateContext(sessionID, question, res, plan, result)
	e.finishTurn(ctx, sessionID, question, cls, answer, plan, res.Inherited, verdict, start)
	return answer, nil
}

// registerFacts writes the turn's numeric claim into the ledger. The governor
// only reads the ledger, so auditing stays idempotent; fact registration
// happens exactly once here, after the answer is final. A contradiction the
// audit flagged becomes a superseding correction, never an overwrite.
func (e *Engine) registerFacts(sessionID, question string, res resolver.Resolution,
	plan *planner.Plan, result *query.Result, verdict trust.Verdict) {
	if plan.Mode != planner.ModeCount && plan.Mode != planner.ModeSummary {
		return
	}
	ledger := e.store.Ledger(sessionID)
	key, scope := trust.ClaimKey(res)
	if len(verdict.Corrections) > 0 {
		ledger.Correct(session.FactCount, key, scope, float64(result.Total), "superseded by a fresh query result")
		return
	}
	ledger.Append(session.Fact{
		Kind:       session.FactCount,
		Key:        key,
		Scope:      scope,
		Value:      float64(result.Total),
		Provenance: question,
	})
}

// updateContext merges the turn's resolved scope into the session context.
// Scope fields are written from the resolution wholesale so a cleared filter
// really clears; a follow-up's inherited values are already folded in.
func (e *Engine) updateContext(sessionID, question string, res resolver.Resolution,
	plan *planner.Plan, result *query.Result) {
	e.store.Update(sessionID, session.Update{
		Topic:       session.String(res.Topic),
		Target:      session.String(res.Target),
		Severity:    session.SeverityPtr(res.Severity),
		IssueType:   session.IssuePtr(res.IssueType),
		Intent:      session.IntentPtr(res.Intent),
		ResultCount: session.Int(result.Total),
		Limit:       session.Int(plan.Limit),
		Offset:      session.Int(plan.Offset),
		Turn: &session.TurnRecord{
			Question:  question,
			Intent:    res.Intent,
			Timestamp: time.Now(),
		},
	})
}

func (e *Engine) finishTurn(ctx context.Context, sessionID, question string, cls nlq.Classification,
	answer *Answer, plan *planner.Plan, inherited []string, verdict trust.Verdict, start time.Time) {
	duration := time.Since(start)
	e.metrics.RecordTurn(string(answer.Intent), string(answer.State), string(verdict.Mode), true, duration)

	entry := auditlog.Entry{
		SessionID:   sessionID,
		Question:    question,
		Intent:      string(answer.Intent),
		Rule:        cls.Rule,
		State:       string(answer.State),
		TrustMode:   string(verdict.Mode),
		Confidence:  string(verdict.Confidence),
		Violations:  verdict.Violations,
		Inherited:   inherited,
		ResultCount: answer.ResultCount,
		Success:     true,
		Duration:    duration,
	}
	if plan != nil {
		entry.Scope = plan.Scope()
	}
	e.audit.Log(ctx, entry)

	e.logger.Debug("turn complete",
		zap.String("session_id", sessionID),
		zap.String("intent", string(answer.Intent)),
		zap.String("state", string(answer.State)),
		zap.String("trust_mode", string(answer.TrustMode)),
		zap.Int("result_count", answer.ResultCount),
		zap.Duration("duration", duration),
	)
}

func intentLabel(a *Answer) string {
	if a == nil {
		return string(nlq.IntentUnknown)
	}
	return string(a.Intent)
}

func stateLabel(a *Answer) string {
	if a == nil {
		return ""
	}
	return string(a.State)
}

// violationName reduces a violation message to its stable name for metric
// labels, e.g. "scope_mismatch: ..." -> "scope_mismatch".
func violationName(v string) string {
	if i := strings.IndexByte(v, ':'); i > 0 {
		return v[:i]
	}
	return v
}

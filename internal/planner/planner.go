// Package planner converts a resolved turn into a declarative query plan.
// Plans are immutable once built and carry everything the executor needs:
// filters, aggregation mode, pagination, sort order.
package planner

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	apperrors "github.com/oemwatch/alertassist/internal/errors"
	"github.com/oemwatch/alertassist/internal/nlq"
	"github.com/oemwatch/alertassist/internal/resolver"
)

// Mode is the plan's aggregation mode.
type Mode string

// Plan modes
const (
	ModeCount     Mode = "COUNT"
	ModeSummary   Mode = "SUMMARY" // count plus severity breakdown
	ModeList      Mode = "LIST"
	ModeAggregate Mode = "AGGREGATE"
	ModeCompare   Mode = "COMPARE"
)

// GroupBy keys for aggregate plans
const (
	GroupByDatabase = "database"
	GroupByHour     = "hour"
)

// Sort orders
const (
	SortTimeDesc     = "time_desc"
	SortSeverityDesc = "severity_desc"
)

// Filter is the plan's row predicate. Zero-valued fields do not filter.
type Filter struct {
	Databases  []string        `json:"databases,omitempty"`
	Severity   alert.Severity  `json:"severity,omitempty"`
	IssueType  alert.IssueType `json:"issue_type,omitempty"`
	TimeRange  alert.TimeRange `json:"time_range,omitempty"`
	ErrorCodes []string        `json:"error_codes,omitempty"`
}

// Plan is the declarative query description consumed exactly once by the
// executor. Built by Build; not mutated afterwards.
type Plan struct {
	Mode    Mode       `json:"mode"`
	Filter  Filter     `json:"filter"`
	GroupBy string     `json:"group_by,omitempty"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Sort    string     `json:"sort,omitempty"`
	Intent  nlq.Intent `json:"intent"`
}

// Scope renders the plan's scope for logging and scope-consistency checks.
func (p *Plan) Scope() string {
	parts := make([]string, 0, 3)
	if len(p.Filter.Databases) > 0 {
		parts = append(parts, strings.Join(p.Filter.Databases, ","))
	}
	if p.Filter.IssueType != "" {
		parts = append(parts, string(p.Filter.IssueType))
	}
	if p.Filter.Severity != alert.SeverityNone {
		parts = append(parts, string(p.Filter.Severity))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "/")
}

// Planner builds plans from resolved turns.
type Planner struct {
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// New returns a Planner with the given pagination bounds.
func New(defaultPageSize, maxPageSize int, logger *zap.Logger) *Planner {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 200
	}
	return &Planner{
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger.Named("planner"),
	}
}

// Build converts the resolved turn into a plan. Pure and deterministic.
// Returns a structured planning error, never panics, when the intent needs a
// target that was not resolved. The plan's database filter only ever contains
// identifiers from the resolution itself; scope is never invented here.
func (p *Planner) Build(res resolver.Resolution) (*Plan, error) {
	mode, err := modeFor(res)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Mode:   mode,
		Intent: res.Intent,
		Filter: Filter{
			Databases:  res.Databases,
			Severity:   res.Severity,
			IssueType:  res.IssueType,
			TimeRange:  res.TimeRange,
			ErrorCodes: res.ErrorCodes,
		},
	}

	switch mode {
	case ModeList:
		plan.Limit = res.Limit
		if plan.Limit == 0 {
			plan.Limit = p.defaultPageSize
		}
		if plan.Limit > p.maxPageSize {
			plan.Limit = p.maxPageSize
		}
		if res.Offset > 0 {
			plan.Offset = res.Offset
		}
		plan.Sort = SortTimeDesc
	case ModeAggregate:
		plan.GroupBy = groupByFor(res.Intent)
	case ModeCompare:
		plan.GroupBy = GroupByDatabase
	}

	p.logger.Debug("plan built",
		zap.String("mode", string(mode)),
		zap.String("scope", plan.Scope()),
		zap.Int("limit", plan.Limit),
		zap.Int("offset", plan.Offset),
	)
	return plan, nil
}

// modeFor maps the resolved intent to a plan mode, enforcing the
// target-required rules per intent.
func modeFor(res resolver.Resolution) (Mode, error) {
	switch res.Intent {
	case nlq.IntentCount:
		return ModeCount, nil
	case nlq.IntentSummary, nlq.IntentHealthCheck:
		if res.Target == "" && res.IssueType == "" {
			return "", targetRequired(res.Intent)
		}
		return ModeSummary, nil
	case nlq.IntentList, nlq.IntentIssueType, nlq.IntentFollowupLimit, nlq.IntentFollowupFilter, nlq.IntentFollowupReference:
		return ModeList, nil
	case nlq.IntentRootCause, nlq.IntentRecommendation:
		// Root-cause and recommendation analytics run on an already-filtered
		// alert set; the plan's job is only to fetch that set.
		if res.Target == "" && res.IssueType == "" {
			return "", targetRequired(res.Intent)
		}
		return ModeList, nil
	case nlq.IntentMaxDatabase, nlq.IntentTimeAggregate, nlq.IntentPrediction:
		return ModeAggregate, nil
	case nlq.IntentComparison:
		if len(res.Databases) < 2 {
			return "", apperrors.NewPlanningError("comparison needs two named databases").
				WithSuggestion("Name both databases, e.g. 'compare MIDEVSTB vs MIDEVSTBN'")
		}
		return ModeCompare, nil
	case nlq.IntentUnknown:
		if res.Target == "" && res.IssueType == "" {
			return "", apperrors.NewIntentUnresolved("")
		}
		return ModeSummary, nil
	default:
		return "", apperrors.NewIntentUnresolved("")
	}
}

func groupByFor(intent nlq.Intent) string {
	if intent == nlq.IntentTimeAggregate {
		return GroupByHour
	}
	return GroupByDatabase
}

func targetRequired(intent nlq.Intent) error {
	return apperrors.NewPlanningError(fmt.Sprintf("%s needs a database or issue type and none was resolved", intent)).
		WithSuggestion("Name a database or topic, e.g. 'alerts for MIDEVSTB' or 'standby issues'")
}

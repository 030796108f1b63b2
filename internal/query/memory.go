package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/planner"
)

// MemoryExecutor runs plans against an in-memory alert slice. The slice is
// immutable after construction, so execution needs no locking.
type MemoryExecutor struct {
	alerts []alert.Alert
	logger *zap.Logger
	now    func() time.Time
}

// NewMemoryExecutor wraps the given alerts. The slice is not copied; callers
// must not mutate it afterwards.
func NewMemoryExecutor(alerts []alert.Alert, logger *zap.Logger) *MemoryExecutor {
	return &MemoryExecutor{alerts: alerts, logger: logger.Named("executor"), now: time.Now}
}

// Healthy reports whether any alert data is loaded.
func (e *MemoryExecutor) Healthy(_ context.Context) bool {
	return len(e.alerts) > 0
}

// Execute runs the plan. An empty data source yields a NoData result.
func (e *MemoryExecutor) Execute(ctx context.Context, plan *planner.Plan) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(e.alerts) == 0 {
		return &Result{NoData: true}, nil
	}

	matched := e.filter(plan.Filter)
	e.logger.Debug("plan executed",
		zap.String("mode", string(plan.Mode)),
		zap.String("scope", plan.Scope()),
		zap.Int("matched", len(matched)),
	)

	switch plan.Mode {
	case planner.ModeCount:
		return &Result{Total: len(matched)}, nil
	case planner.ModeSummary:
		return &Result{Total: len(matched), BySeverity: bySeverity(matched)}, nil
	case planner.ModeList:
		sortAlerts(matched, plan.Sort)
		return &Result{Total: len(matched), Rows: page(matched, plan.Offset, plan.Limit)}, nil
	case planner.ModeAggregate:
		return &Result{Total: len(matched), Buckets: e.aggregate(matched, plan.GroupBy)}, nil
	case planner.ModeCompare:
		return &Result{Total: len(matched), Buckets: compareDatabases(matched, plan.Filter.Databases)}, nil
	default:
		return nil, fmt.Errorf("unsupported plan mode %q", plan.Mode)
	}
}

func (e *MemoryExecutor) filter(f planner.Filter) []alert.Alert {
	var start, end time.Time
	if f.TimeRange != alert.TimeRangeNone {
		start, end = f.TimeRange.Window(e.now())
	}

	out := make([]alert.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if len(f.Databases) > 0 && !containsFold(f.Databases, a.Database) {
			continue
		}
		if f.Severity != alert.SeverityNone && a.Severity != f.Severity {
			continue
		}
		if f.IssueType != "" && !a.MatchesIssue(f.IssueType) {
			continue
		}
		if f.TimeRange != alert.TimeRangeNone && (a.Time.Before(start) || !a.Time.Before(end)) {
			continue
		}
		if len(f.ErrorCodes) > 0 && !containsFold(f.ErrorCodes, a.ErrorCode) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (e *MemoryExecutor) aggregate(alerts []alert.Alert, groupBy string) []Bucket {
	counts := make(map[string]int)
	for _, a := range alerts {
		var key string
		switch groupBy {
		case planner.GroupByHour:
			key = fmt.Sprintf("%02d:00", a.Time.Hour())
		default:
			key = a.Database
		}
		counts[key]++
	}
	return sortedBuckets(counts)
}

// compareDatabases always emits one bucket per requested database, including
// zero-count ones, so a comparison never silently drops a side.
func compareDatabases(alerts []alert.Alert, databases []string) []Bucket {
	buckets := make([]Bucket, len(databases))
	for i, db := range databases {
		buckets[i] = Bucket{Key: db}
		for _, a := range alerts {
			if strings.EqualFold(a.Database, db) {
				buckets[i].Count++
			}
		}
	}
	return buckets
}

func bySeverity(alerts []alert.Alert) map[alert.Severity]int {
	out := make(map[alert.Severity]int)
	for _, a := range alerts {
		out[a.Severity]++
	}
	return out
}

func sortAlerts(alerts []alert.Alert, order string) {
	switch order {
	case planner.SortSeverityDesc:
		sort.SliceStable(alerts, func(i, j int) bool {
			return severityRank(alerts[i].Severity) > severityRank(alerts[j].Severity)
		})
	default: // time_desc
		sort.SliceStable(alerts, func(i, j int) bool {
			return alerts[i].Time.After(alerts[j].Time)
		})
	}
}

func severityRank(s alert.Severity) int {
	switch s {
	case alert.SeverityCritical:
		return 3
	case alert.SeverityWarning:
		return 2
	case alert.SeverityInfo:
		return 1
	}
	return 0
}

func page(alerts []alert.Alert, offset, limit int) []alert.Alert {
	if offset >= len(alerts) {
		return nil
	}
	end := len(alerts)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return alerts[offset:end]
}

// sortedBuckets orders by count descending, key ascending for ties.
func sortedBuckets(counts map[string]int) []Bucket {
	buckets := make([]Bucket, 0, len(counts))
	for k, c := range counts {
		buckets = append(buckets, Bucket{Key: k, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

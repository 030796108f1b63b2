// Package alert defines the core alert record and the closed vocabularies
// (severity levels, time ranges) shared across the query pipeline.
package alert

import (
	"strings"
	"time"
)

// Severity is the alert severity level. The empty value means "no severity
// filter" rather than a severity of its own.
type Severity string

// Severity levels recognized by the assistant
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
	SeverityNone     Severity = ""
)

// ParseSeverity normalizes common severity spellings ("crit", "warnings",
// "high") to a canonical level. Returns SeverityNone for unknown input.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "criticals", "crit", "high", "error", "errors":
		return SeverityCritical
	case "warning", "warnings", "warn", "medium":
		return SeverityWarning
	case "info", "informational", "low":
		return SeverityInfo
	default:
		return SeverityNone
	}
}

// TimeRange is a named relative time window.
type TimeRange string

// Time ranges the extractor can resolve from free text
const (
	TimeRangeNone      TimeRange = ""
	TimeRangeLastHour  TimeRange = "last_hour"
	TimeRangeLastDay   TimeRange = "last_day"
	TimeRangeYesterday TimeRange = "yesterday"
	TimeRangeLastWeek  TimeRange = "last_week"
	TimeRangeLastMonth TimeRange = "last_month"
)

// Window resolves the range to a concrete [start, end) interval relative to now.
func (r TimeRange) Window(now time.Time) (time.Time, time.Time) {
	switch r {
	case TimeRangeLastHour:
		return now.Add(-time.Hour), now
	case TimeRangeLastDay:
		return now.Add(-24 * time.Hour), now
	case TimeRangeYesterday:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return dayStart.Add(-24 * time.Hour), dayStart
	case TimeRangeLastWeek:
		return now.Add(-7 * 24 * time.Hour), now
	case TimeRangeLastMonth:
		return now.Add(-30 * 24 * time.Hour), now
	default:
		return time.Time{}, now
	}
}

// Alert is one row of the operational alert table.
type Alert struct {
	Database  string    `json:"database"`
	Severity  Severity  `json:"severity"`
	Time      time.Time `json:"time"`
	ErrorCode string    `json:"error_code,omitempty"` // e.g. ORA-12537
	Message   string    `json:"message"`
}

// IssueType buckets alerts by the kind of problem they describe. Matching is
// keyword based over the message and error code; see the nlq package for the
// utterance-side lexicon.
type IssueType string

// Issue types recognized by the assistant
const (
	IssueStandby     IssueType = "standby"
	IssueTablespace  IssueType = "tablespace"
	IssueConnection  IssueType = "connection"
	IssueMemory      IssueType = "memory"
	IssuePerformance IssueType = "performance"
	IssueBackup      IssueType = "backup"
	IssueInternal    IssueType = "internal"
)

// issueKeywords maps issue types to keywords searched in alert messages.
var issueKeywords = map[IssueType][]string{
	IssueStandby:     {"standby", "data guard", "dataguard", "apply lag", "transport lag", "mrp", "redo", "ora-16"},
	IssueTablespace:  {"tablespace", "extent", "ora-1654", "ora-1653", "space"},
	IssueConnection:  {"listener", "tns", "ora-12541", "ora-12537", "connection"},
	IssueMemory:      {"pga", "sga", "ora-4031", "memory"},
	IssuePerformance: {"slow", "wait", "lock", "blocking", "hang"},
	IssueBackup:      {"rman", "archivelog", "archive", "backup"},
	IssueInternal:    {"ora-600", "ora-7445", "internal error"},
}

// MatchesIssue reports whether the alert's message or error code matches the
// given issue type's keyword group.
func (a Alert) MatchesIssue(it IssueType) bool {
	haystack := strings.ToLower(a.Message + " " + a.ErrorCode)
	for _, kw := range issueKeywords[it] {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

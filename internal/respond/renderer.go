// Package respond renders executor results into answer text. Rendering is
// two-phase: Draft produces the full explanatory answer for the plan, then
// Finalize rewrites it under the audit verdict — minimal format in STRICT
// mode, hedged or refused in SAFE mode.
package respond

import (
	"fmt"
	"strings"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/planner"
	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/resolver"
	"github.com/oemwatch/alertassist/internal/trust"
)

const refusalTemplate = "I can't answer that reliably: the data needed to ground the answer is not available. " +
	"Try naming a specific database or topic, or check that the alert table is loaded."

// Renderer turns plans, results and verdicts into text.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer { return &Renderer{} }

// Draft renders the full explanatory answer for a plan result.
func (r *Renderer) Draft(plan *planner.Plan, result *query.Result, res resolver.Resolution) string {
	if result.NoData {
		return "No alert data is available."
	}

	subject := subjectPhrase(res)
	switch plan.Mode {
	case planner.ModeCount:
		return fmt.Sprintf("There are %d %s%s.", result.Total, alertNoun(plan.Filter.Severity), subject)
	case planner.ModeSummary:
		return draftSummary(plan, result, subject)
	case planner.ModeList:
		return draftList(plan, result, subject)
	case planner.ModeAggregate:
		return draftAggregate(plan, result, subject)
	case planner.ModeCompare:
		return draftCompare(result)
	default:
		return fmt.Sprintf("%d matching alerts.", result.Total)
	}
}

// Finalize applies the audit verdict to the drafted answer. The verdict is
// always populated before this call.
func (r *Renderer) Finalize(draft string, verdict trust.Verdict, plan *planner.Plan, result *query.Result) string {
	switch verdict.Mode {
	case trust.ModeSafe:
		if verdict.Confidence == trust.ConfidenceNone {
			return refusalTemplate
		}
		var b strings.Builder
		for _, c := range verdict.Corrections {
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString(hedge(draft))
		return b.String()
	case trust.ModeStrict:
		return strictFormat(draft, plan, result)
	}
	if verdict.Confidence == trust.ConfidencePartial {
		return hedge(draft)
	}
	return draft
}

// Clarification renders the fixed clarification menu for an unresolvable
// follow-up.
func (r *Renderer) Clarification(topics []string) string {
	var b strings.Builder
	b.WriteString("I need more context to answer that. I can help with:\n")
	for _, t := range topics {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("What would you like to know?")
	return b.String()
}

// strictFormat reduces the answer to its minimal form: the bare number for
// counts, the first sentence otherwise. No inference, no rounding.
func strictFormat(draft string, plan *planner.Plan, result *query.Result) string {
	if plan != nil && result != nil {
		switch plan.Mode {
		case planner.ModeCount:
			return fmt.Sprintf("%d", result.Total)
		case planner.ModeSummary:
			return fmt.Sprintf("%d", result.Total)
		}
	}
	if i := strings.IndexAny(draft, ".\n"); i > 0 {
		return strings.TrimSpace(draft[:i+1])
	}
	return draft
}

func hedge(draft string) string {
	return "Based on the data available: " + draft
}

func draftSummary(plan *planner.Plan, result *query.Result, subject string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s%s", result.Total, alertNoun(plan.Filter.Severity), subject)
	parts := severityParts(result.BySeverity)
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString(".")
	return b.String()
}

func draftList(plan *planner.Plan, result *query.Result, subject string) string {
	if len(result.Rows) == 0 {
		return fmt.Sprintf("No %s%s match.", alertNoun(plan.Filter.Severity), subject)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d %s%s:\n",
		len(result.Rows), result.Total, alertNoun(plan.Filter.Severity), subject)
	for i, a := range result.Rows {
		fmt.Fprintf(&b, "%d. [%s] %s %s", plan.Offset+i+1, severityLabel(a.Severity), a.Database,
			a.Time.Format("2006-01-02 15:04"))
		if a.ErrorCode != "" {
			fmt.Fprintf(&b, " %s", a.ErrorCode)
		}
		fmt.Fprintf(&b, ": %s\n", a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func draftAggregate(plan *planner.Plan, result *query.Result, subject string) string {
	if len(result.Buckets) == 0 {
		return fmt.Sprintf("No alerts%s match.", subject)
	}
	top := result.Buckets[0]
	var b strings.Builder
	if plan.GroupBy == planner.GroupByHour {
		fmt.Fprintf(&b, "Peak is %s with %d alerts%s.", top.Key, top.Count, subject)
	} else {
		fmt.Fprintf(&b, "%s has the most alerts: %d%s.", top.Key, top.Count, subject)
	}
	if len(result.Buckets) > 1 {
		b.WriteString(" Breakdown:")
		for _, bucket := range result.Buckets {
			fmt.Fprintf(&b, " %s=%d", bucket.Key, bucket.Count)
		}
		b.WriteString(".")
	}
	return b.String()
}

func draftCompare(result *query.Result) string {
	parts := make([]string, len(result.Buckets))
	for i, b := range result.Buckets {
		parts[i] = fmt.Sprintf("%s has %d alerts", b.Key, b.Count)
	}
	return strings.Join(parts, "; ") + "."
}

func subjectPhrase(res resolver.Resolution) string {
	switch {
	case res.Target != "" && res.IssueType != "":
		return fmt.Sprintf(" for %s issues on %s", res.IssueType, res.Target)
	case res.Target != "":
		return " for " + res.Target
	case res.IssueType != "":
		return fmt.Sprintf(" for %s issues", res.IssueType)
	}
	return ""
}

func alertNoun(sev alert.Severity) string {
	switch sev {
	case alert.SeverityCritical:
		return "critical alerts"
	case alert.SeverityWarning:
		return "warning alerts"
	case alert.SeverityInfo:
		return "info alerts"
	}
	return "alerts"
}

func severityLabel(sev alert.Severity) string {
	if sev == alert.SeverityNone {
		return "UNKNOWN"
	}
	return string(sev)
}

// severityParts orders the breakdown critical first.
func severityParts(counts map[alert.Severity]int) []string {
	var parts []string
	for _, sev := range []alert.Severity{alert.SeverityCritical, alert.SeverityWarning, alert.SeverityInfo} {
		if c, ok := counts[sev]; ok && c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, strings.ToLower(string(sev))))
		}
	}
	return parts
}

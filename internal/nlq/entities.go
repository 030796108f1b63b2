// Package nlq implements the natural-language understanding side of the
// assistant: entity extraction and intent classification. Both are pure
// functions of the utterance text plus a static lexicon; they never mutate
// session state and never fail on unmatched text.
package nlq

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/oemwatch/alertassist/internal/alert"
)

// OffsetContinue marks a "next"-style continuation whose concrete offset is
// resolved against session context by the follow-up resolver.
const OffsetContinue = -1

// EntitySet holds the structured slots extracted from one utterance.
// Absent slots stay at their zero value; values are never guessed.
type EntitySet struct {
	Databases  []string
	Severity   alert.Severity
	Limit      int // 0 when absent
	Offset     int // OffsetContinue for "next"
	TimeRange  alert.TimeRange
	IssueType  alert.IssueType
	ErrorCodes []string
	Anaphora   bool // "this database", "same one", "these alerts"
}

// HasPrimarySubject reports whether the utterance names its own subject
// (an explicit database or topic keyword) and is therefore self-sufficient.
func (e EntitySet) HasPrimarySubject() bool {
	return len(e.Databases) > 0 || e.IssueType != ""
}

// wordNumbers maps number words to integers for limits like "top ten".
// Longest phrases first so "twenty-five" wins over "five".
var wordNumbers = []struct {
	re *regexp.Regexp
	n  int
}{
	{regexp.MustCompile(`\btwenty-five\b`), 25},
	{regexp.MustCompile(`\beleven\b`), 11},
	{regexp.MustCompile(`\btwelve\b`), 12},
	{regexp.MustCompile(`\bfifteen\b`), 15},
	{regexp.MustCompile(`\btwenty\b`), 20},
	{regexp.MustCompile(`\bthirty\b`), 30},
	{regexp.MustCompile(`\bfifty\b`), 50},
	{regexp.MustCompile(`\bhundred\b`), 100},
	{regexp.MustCompile(`\bthree\b`), 3},
	{regexp.MustCompile(`\bseven\b`), 7},
	{regexp.MustCompile(`\beight\b`), 8},
	{regexp.MustCompile(`\bfour\b`), 4},
	{regexp.MustCompile(`\bfive\b`), 5},
	{regexp.MustCompile(`\bnine\b`), 9},
	{regexp.MustCompile(`\bone\b`), 1},
	{regexp.MustCompile(`\btwo\b`), 2},
	{regexp.MustCompile(`\bsix\b`), 6},
	{regexp.MustCompile(`\bten\b`), 10},
}

// issueLexicon maps utterance keywords to issue types. Checked in a fixed
// order so overlapping keywords ("space" vs "tablespace") stay deterministic.
var issueLexicon = []struct {
	issue    alert.IssueType
	keywords []string
}{
	{alert.IssueStandby, []string{"standby", "data guard", "dataguard", "apply lag", "transport lag", "mrp", "redo", "replica"}},
	{alert.IssueTablespace, []string{"tablespace", "extent", "ora-1654", "ora-1653", "disk", "storage"}},
	{alert.IssueConnection, []string{"listener", "tns", "ora-12541", "ora-12537", "connection"}},
	{alert.IssueMemory, []string{"ora-4031", "pga", "sga", "memory"}},
	{alert.IssuePerformance, []string{"performance", "blocking", "slow", "hang"}},
	{alert.IssueBackup, []string{"rman", "archivelog", "backup"}},
	{alert.IssueInternal, []string{"ora-600", "ora-7445", "internal error"}},
}

var timeLexicon = []struct {
	rng      alert.TimeRange
	patterns []*regexp.Regexp
}{
	{alert.TimeRangeLastHour, compileAll(`last\s+hour`, `past\s+hour`, `\bone\s+hour\b`, `\b1\s*h\b`)},
	{alert.TimeRangeYesterday, compileAll(`yesterday`, `last\s+night`)},
	{alert.TimeRangeLastDay, compileAll(`last\s+day`, `\btoday\b`, `past\s+24`, `\b24\s*h\b`)},
	{alert.TimeRangeLastWeek, compileAll(`last\s+week`, `past\s+week`, `this\s+week`, `\b7\s*days?\b`)},
	{alert.TimeRangeLastMonth, compileAll(`last\s+month`, `past\s+month`, `\b30\s*days?\b`)},
}

var (
	oraCodeRe = regexp.MustCompile(`ORA[-\s]?(\d{3,5})`)

	limitRes = compileAll(
		`(?:show|display|list|get|give)\s+(?:me\s+)?(\d+)`,
		`(?:top|first|last|next)\s+(\d+)`,
		`(\d+)\s+(?:alerts?|issues?|errors?|warnings?|criticals?|rows?|more)`,
		`\bonly\s+(\d+)\b`,
		`\blimit\s+(\d+)\b`,
		`^\s*(\d+)\s*$`,
	)

	bareLimitKeywordRe = regexp.MustCompile(`\b(?:show|top|first|last|give|list)\b`)

	offsetRangeRe = regexp.MustCompile(`(\d+)\s*(?:-|to)\s*(\d+)`)
	offsetFromRe  = regexp.MustCompile(`\bfrom\s+(\d+)\b`)
	offsetNextRe  = regexp.MustCompile(`\bnext\b|\bmore\b`)

	anaphoraRes = compileAll(
		`(?:this|that|the\s+same)\s+(?:database|db|system|one)`,
		`(?:these|those)\s+(?:alerts?|issues?|errors?|ones?)`,
		`\bsame\s+(?:one|db|database|filter)\b`,
		`\bfor\s+it\b`,
		`\babout\s+it\b`,
	)

	// Severity extraction in priority order: exclusions beat "only X" beats
	// "show X" beats "how many X" beats bare mentions.
	excludeWarningRe  = regexp.MustCompile(`exclud(?:e|ing)?\s+warnings?`)
	excludeCriticalRe = regexp.MustCompile(`exclud(?:e|ing)?\s+criticals?`)
	onlyCriticalRe    = regexp.MustCompile(`(?:only|just)\s+criticals?|criticals?\s+(?:only|ones?)`)
	onlyWarningRe     = regexp.MustCompile(`(?:only|just)\s+warnings?|warnings?\s+(?:only|ones?)`)
	onlyInfoRe        = regexp.MustCompile(`(?:only|just)\s+info(?:rmational)?\b|\binfo\s+only\b`)
	showWarningRe     = regexp.MustCompile(`show\s+(?:me\s+)?(?:only\s+)?(?:\d+\s+)?warnings?`)
	showCriticalRe    = regexp.MustCompile(`show\s+(?:me\s+)?(?:only\s+)?(?:\d+\s+)?criticals?`)
	howManyWarningRe  = regexp.MustCompile(`how\s+many\s+warnings?`)
	howManyCriticalRe = regexp.MustCompile(`how\s+many\s+criticals?`)
	bareWarningRe     = regexp.MustCompile(`\bwarnings?\b`)
	bareCriticalRe    = regexp.MustCompile(`\bcriticals?\b`)
	bareInfoRe        = regexp.MustCompile(`\binfo\b|\binformational\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// Extractor pulls structured slots out of raw utterance text. It is stateless
// apart from its static lexicon of known database identifiers.
type Extractor struct {
	// knownDatabases holds canonical (case-folded) identifiers sorted longest
	// first so that overlapping identifiers resolve longest-match-wins.
	knownDatabases []string
	dbPatterns     map[string]*regexp.Regexp
	fold           cases.Caser
}

// NewExtractor builds an extractor over the given database identifier lexicon.
func NewExtractor(knownDatabases []string) *Extractor {
	fold := cases.Fold()
	seen := make(map[string]bool, len(knownDatabases))
	names := make([]string, 0, len(knownDatabases))
	patterns := make(map[string]*regexp.Regexp, len(knownDatabases))
	for _, db := range knownDatabases {
		canonical := strings.ToUpper(strings.TrimSpace(db))
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		names = append(names, canonical)
		// Word-boundary match over the folded utterance. The boundary check
		// is what keeps MIDEVSTB from matching inside MIDEVSTBN.
		patterns[canonical] = regexp.MustCompile(`\b` + regexp.QuoteMeta(fold.String(canonical)) + `\b`)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return &Extractor{knownDatabases: names, dbPatterns: patterns, fold: fold}
}

// KnownDatabases returns the canonical identifier lexicon.
func (x *Extractor) KnownDatabases() []string {
	out := make([]string, len(x.knownDatabases))
	copy(out, x.knownDatabases)
	return out
}

// Extract pulls all slots from one utterance. Pure; never returns an error —
// unmatched slots simply stay empty.
func (x *Extractor) Extract(utterance string) EntitySet {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	folded := x.fold.String(utterance)

	return EntitySet{
		Databases:  x.extractDatabases(folded),
		Severity:   extractSeverity(lower),
		Limit:      extractLimit(lower),
		Offset:     extractOffset(lower),
		TimeRange:  extractTimeRange(lower),
		IssueType:  extractIssueType(lower),
		ErrorCodes: extractErrorCodes(strings.ToUpper(utterance)),
		Anaphora:   matchesAny(lower, anaphoraRes),
	}
}

// extractDatabases matches the folded utterance against the known identifier
// lexicon, longest identifier first. Spans already claimed by a longer
// identifier are not re-matched by a shorter one.
func (x *Extractor) extractDatabases(folded string) []string {
	var found []string
	var claimed [][2]int
	for _, db := range x.knownDatabases {
		loc := x.dbPatterns[db].FindStringIndex(folded)
		if loc == nil {
			continue
		}
		if overlapsAny(loc[0], loc[1], claimed) {
			continue
		}
		claimed = append(claimed, [2]int{loc[0], loc[1]})
		found = append(found, db)
	}
	return found
}

func overlapsAny(start, end int, claimed [][2]int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}

func extractSeverity(lower string) alert.Severity {
	switch {
	case excludeWarningRe.MatchString(lower):
		return alert.SeverityCritical
	case excludeCriticalRe.MatchString(lower):
		return alert.SeverityWarning
	case onlyCriticalRe.MatchString(lower):
		return alert.SeverityCritical
	case onlyWarningRe.MatchString(lower):
		return alert.SeverityWarning
	case onlyInfoRe.MatchString(lower):
		return alert.SeverityInfo
	case showWarningRe.MatchString(lower):
		return alert.SeverityWarning
	case showCriticalRe.MatchString(lower):
		return alert.SeverityCritical
	case howManyWarningRe.MatchString(lower):
		return alert.SeverityWarning
	case howManyCriticalRe.MatchString(lower):
		return alert.SeverityCritical
	}

	hasWarning := bareWarningRe.MatchString(lower)
	hasCritical := bareCriticalRe.MatchString(lower)
	switch {
	case hasWarning && !hasCritical:
		return alert.SeverityWarning
	case hasCritical && !hasWarning:
		return alert.SeverityCritical
	case bareInfoRe.MatchString(lower):
		return alert.SeverityInfo
	}
	// Both mentioned with no qualifier: no single filter can be inferred.
	return alert.SeverityNone
}

func extractLimit(lower string) int {
	for _, re := range limitRes {
		if m := re.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	// Number words: "top ten", "show me twenty"
	if bareLimitKeywordRe.MatchString(lower) {
		for _, wn := range wordNumbers {
			if wn.re.MatchString(lower) {
				return wn.n
			}
		}
	}
	return 0
}

func extractOffset(lower string) int {
	if m := offsetRangeRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := offsetFromRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if offsetNextRe.MatchString(lower) {
		return OffsetContinue
	}
	return 0
}

func extractTimeRange(lower string) alert.TimeRange {
	for _, entry := range timeLexicon {
		if matchesAny(lower, entry.patterns) {
			return entry.rng
		}
	}
	return alert.TimeRangeNone
}

func extractIssueType(lower string) alert.IssueType {
	for _, entry := range issueLexicon {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.issue
			}
		}
	}
	return ""
}

func extractErrorCodes(upper string) []string {
	matches := oraCodeRe.FindAllStringSubmatch(upper, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		code := fmt.Sprintf("ORA-%s", m[1])
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

func matchesAny(s string, res []*regexp.Regexp) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

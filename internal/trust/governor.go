// Package trust implements the self-audit layer that runs between query
// execution and response rendering. The governor validates a drafted answer
// against the session fact ledger and the plan's scope, assigns a trust mode
// and confidence label, and flags violations for the renderer to act on. It
// is stateless: auditing the same inputs twice yields the same verdict, and
// it never writes the ledger.
package trust

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/nlq"
	"github.com/oemwatch/alertassist/internal/planner"
	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/resolver"
	"github.com/oemwatch/alertassist/internal/session"
)

// Mode is the governor's operating posture. Precedence: SAFE over STRICT
// over NORMAL — safety dominates brevity dominates verbosity.
type Mode string

// Trust modes
const (
	ModeNormal Mode = "NORMAL"
	ModeStrict Mode = "STRICT"
	ModeSafe   Mode = "SAFE"
)

// Confidence labels how grounded the answer is in the data actually used.
type Confidence string

// Confidence levels
const (
	ConfidenceExact   Confidence = "EXACT"
	ConfidencePartial Confidence = "PARTIAL"
	ConfidenceNone    Confidence = "NONE"
)

// Verdict is the audit outcome. A failed verdict is not an error; it tells
// the renderer to substitute a hedged or minimal answer per the trust mode.
type Verdict struct {
	Mode        Mode       `json:"mode"`
	Confidence  Confidence `json:"confidence"`
	Passed      bool       `json:"passed"`
	Violations  []string   `json:"violations,omitempty"`
	Corrections []string   `json:"corrections,omitempty"`
}

// Input carries everything one audit call reads. The ledger is read-only
// here; fact registration happens after the turn succeeds, outside the
// governor.
type Input struct {
	Question   string
	Answer     string // drafted answer text, pre-finalization
	Resolution resolver.Resolution
	Plan       *planner.Plan
	Result     *query.Result
	Ledger     *session.Ledger
}

// strictRes matches phrasing that demands a minimal, uninterpreted answer.
var strictRes = []*regexp.Regexp{
	regexp.MustCompile(`only\s+the\s+number`),
	regexp.MustCompile(`just\s+the\s+number`),
	regexp.MustCompile(`exact\s+(?:count|number|figure)`),
	regexp.MustCompile(`for\s+(?:an?\s+)?audit`),
	regexp.MustCompile(`yes\s+or\s+no`),
	regexp.MustCompile(`no\s+(?:explanation|commentary)`),
	regexp.MustCompile(`(?:number|count|facts)\s+only`),
	regexp.MustCompile(`precise(?:ly)?\b`),
}

// safeRes matches phrasing that demands certainty the data cannot provide.
// Such questions get a hedged answer regardless of how clean the audit is.
var safeRes = []*regexp.Regexp{
	regexp.MustCompile(`guarantee`),
	regexp.MustCompile(`100\s*%\s*sure`),
	regexp.MustCompile(`absolutely\s+(?:sure|certain)`),
	regexp.MustCompile(`predict\s+the\s+exact`),
}

// numberRe finds integer claims in answer text (commas allowed).
var numberRe = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b|\b\d+\b`)

var digitsOnlyRe = regexp.MustCompile(`^\s*\d+\s*$`)
var yesNoPrefixRe = regexp.MustCompile(`^\s*(?:yes|no)\b`)

// Governor audits drafted answers. Construct once; safe for concurrent use.
type Governor struct {
	tolerance      float64
	largeThreshold int
	extractor      *nlq.Extractor // scans answer text for database mentions
	logger         *zap.Logger
}

// NewGovernor returns a governor with the given contradiction tolerance. The
// extractor supplies the database lexicon for scope-consistency checks.
func NewGovernor(tolerance float64, largeThreshold int, extractor *nlq.Extractor, logger *zap.Logger) *Governor {
	return &Governor{
		tolerance:      tolerance,
		largeThreshold: largeThreshold,
		extractor:      extractor,
		logger:         logger.Named("trust"),
	}
}

// StrictRequested reports whether the question's phrasing demands a minimal
// answer, independent of how the intent classified.
func StrictRequested(question string) bool {
	lower := strings.ToLower(question)
	for _, re := range strictRes {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// SafeRequested reports whether the question demands a certainty level no
// query over the data can support.
func SafeRequested(question string) bool {
	lower := strings.ToLower(question)
	for _, re := range safeRes {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// Audit validates the drafted answer. Deterministic in its inputs; the only
// external state read is the ledger snapshot at call time.
func (g *Governor) Audit(in Input) Verdict {
	v := Verdict{Mode: ModeNormal, Confidence: ConfidenceExact}

	if StrictRequested(in.Question) {
		v.Mode = ModeStrict
	}
	// Safety dominates brevity: a demand for certainty overrides a demand
	// for a minimal answer.
	if SafeRequested(in.Question) {
		v.Mode = ModeSafe
		if v.Confidence == ConfidenceExact {
			v.Confidence = ConfidencePartial
		}
	}

	g.checkScope(in, &v)
	g.checkFacts(in, &v)
	g.checkGrounding(in, &v)

	if v.Mode == ModeStrict && v.Confidence != ConfidenceNone {
		g.checkStrictContract(in, &v)
	}

	v.Passed = len(v.Violations) == 0
	g.logger.Debug("audit complete",
		zap.String("mode", string(v.Mode)),
		zap.String("confidence", string(v.Confidence)),
		zap.Bool("passed", v.Passed),
		zap.Strings("violations", v.Violations),
	)
	return v
}

// checkScope verifies the answer never mixes in a database outside the plan's
// resolved scope. Mentioning an unplanned database is a scope violation and a
// SAFE trigger: the claim cannot be trusted to be about one target.
func (g *Governor) checkScope(in Input, v *Verdict) {
	if in.Plan == nil {
		return
	}
	mentioned := g.extractor.Extract(in.Answer).Databases
	for _, db := range mentioned {
		if !containsFold(in.Plan.Filter.Databases, db) && len(in.Plan.Filter.Databases) > 0 {
			v.Violations = append(v.Violations,
				fmt.Sprintf("scope_mismatch: answer mentions %s outside plan scope %s", db, in.Plan.Scope()))
			v.Mode = ModeSafe
		}
	}
}

// checkFacts compares the numeric claim about to be returned against the
// ledger's most recent entry for the same claim. A discrepancy beyond the
// tolerance is recorded as a correction, never silently overwritten.
func (g *Governor) checkFacts(in Input, v *Verdict) {
	if in.Plan == nil || in.Result == nil || in.Ledger == nil {
		return
	}
	if in.Plan.Mode != planner.ModeCount && in.Plan.Mode != planner.ModeSummary {
		return
	}

	key, scope := ClaimKey(in.Resolution)
	prior, contradicts := in.Ledger.Contradicts(session.FactCount, key, scope,
		float64(in.Result.Total), g.tolerance, g.largeThreshold)
	if !contradicts {
		return
	}
	v.Violations = append(v.Violations,
		fmt.Sprintf("fact_contradiction: %s previously %d, now %d", key, int(prior.Value), in.Result.Total))
	v.Corrections = append(v.Corrections,
		fmt.Sprintf("Correction: %s was previously reported as %d; the current figure is %d.",
			key, int(prior.Value), in.Result.Total))
	v.Mode = ModeSafe
	if v.Confidence == ConfidenceExact {
		v.Confidence = ConfidencePartial
	}
}

// checkGrounding assigns the confidence label and catches ungrounded numeric
// claims: every number in the answer must be derivable from the result.
func (g *Governor) checkGrounding(in Input, v *Verdict) {
	if in.Result == nil || in.Result.NoData {
		v.Violations = append(v.Violations, "no_data: required data is missing")
		v.Mode = ModeSafe
		v.Confidence = ConfidenceNone
		return
	}

	// Issue-type matching is keyword-based over free text, and inherited
	// slots came from a previous turn, so neither is an exact grounding.
	if in.Plan != nil && (in.Plan.Filter.IssueType != "" || len(in.Resolution.Inherited) > 0) {
		if v.Confidence == ConfidenceExact {
			v.Confidence = ConfidencePartial
		}
	}

	// Numeric grounding is only checkable for count-style answers; list and
	// aggregate renderings carry timestamps and bucket labels whose digits
	// are not claims.
	if in.Plan == nil || (in.Plan.Mode != planner.ModeCount && in.Plan.Mode != planner.ModeSummary) {
		return
	}
	grounded := groundedNumbers(in.Result)
	for _, claim := range numberRe.FindAllString(in.Answer, -1) {
		n := parseClaim(claim)
		if n < 0 {
			continue
		}
		if !grounded[n] {
			v.Violations = append(v.Violations,
				fmt.Sprintf("ungrounded_number: %d does not appear in the data used", n))
			v.Mode = ModeSafe
		}
	}
}

// checkStrictContract enforces the minimal output formats STRICT mode
// promises: digits only for count questions, a yes/no prefix for yes-or-no
// questions.
func (g *Governor) checkStrictContract(in Input, v *Verdict) {
	lower := strings.ToLower(in.Question)
	switch {
	case strings.Contains(lower, "yes or no"):
		if !yesNoPrefixRe.MatchString(strings.ToLower(in.Answer)) {
			v.Violations = append(v.Violations, "strict_format: yes/no question answered without a yes/no")
		}
	case in.Plan != nil && in.Plan.Mode == planner.ModeCount:
		if !digitsOnlyRe.MatchString(in.Answer) {
			v.Violations = append(v.Violations, "strict_format: count answer must be the bare number")
		}
	}
}

// ClaimKey derives the ledger claim key and scope for a turn's numeric
// result, e.g. ("MIDEVSTB:critical_count", "database") or
// ("STANDBY_ALERTS:count", "environment").
func ClaimKey(res resolver.Resolution) (key, scope string) {
	subject := res.Target
	scope = "database"
	if subject == "" {
		subject = res.Topic
		scope = "environment"
		if subject == "" {
			subject = "ALL"
		}
	}
	if res.Severity != alert.SeverityNone {
		return fmt.Sprintf("%s:%s_count", subject, strings.ToLower(string(res.Severity))), scope
	}
	return subject + ":count", scope
}

func groundedNumbers(r *query.Result) map[int]bool {
	out := map[int]bool{r.Total: true, len(r.Rows): true}
	for _, c := range r.BySeverity {
		out[c] = true
	}
	for _, b := range r.Buckets {
		out[b.Count] = true
	}
	return out
}

func parseClaim(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

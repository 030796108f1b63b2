// Package session provides per-conversation context management. It maintains
// the state follow-up questions resolve against: the last topic, target
// database, filters, result size, and the fact ledger used for contradiction
// detection. One context exists per session id; creation is implicit on first
// access and reset clears it entirely.
package session

import (
	"time"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/nlq"
)

// TurnRecord is one completed turn kept in the bounded session history.
type TurnRecord struct {
	Question  string     `json:"question"`
	Intent    nlq.Intent `json:"intent"`
	Timestamp time.Time  `json:"timestamp"`
}

// Context is the mutable conversation state for one session. It is mutated
// only after a turn completes successfully; follow-up resolution of the
// current turn reads it but never writes it.
type Context struct {
	SessionID       string          `json:"session_id"`
	LastTopic       string          `json:"last_topic,omitempty"` // e.g. STANDBY_ALERTS, MIDEVSTB_ALERTS
	LastTarget      string          `json:"last_target,omitempty"`
	LastSeverity    alert.Severity  `json:"last_severity,omitempty"`
	LastIssueType   alert.IssueType `json:"last_issue_type,omitempty"`
	LastIntent      nlq.Intent      `json:"last_intent,omitempty"`
	LastResultCount int             `json:"last_result_count"`
	LastLimit       int             `json:"last_limit"`
	LastOffset      int             `json:"last_offset"`
	History         []TurnRecord    `json:"history,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	ledger *Ledger
}

// HasContext reports whether any topic is active, i.e. whether a follow-up
// has something to inherit.
func (c Context) HasContext() bool {
	return c.LastTarget != "" || c.LastTopic != "" || c.LastIssueType != ""
}

// Ledger returns the session's fact ledger.
func (c *Context) Ledger() *Ledger {
	return c.ledger
}

// Update carries the fields a completed turn writes back into its session
// context. Nil pointer fields are left untouched (partial merge, not full
// replace).
type Update struct {
	Topic       *string
	Target      *string
	Severity    *alert.Severity
	IssueType   *alert.IssueType
	Intent      *nlq.Intent
	ResultCount *int
	Limit       *int
	Offset      *int
	Turn        *TurnRecord
}

// apply merges the update into the context. Caller holds the entry's state
// lock for writing.
func (c *Context) apply(u Update, historyLimit int) {
	if u.Topic != nil {
		c.LastTopic = *u.Topic
	}
	if u.Target != nil {
		c.LastTarget = *u.Target
	}
	if u.Severity != nil {
		c.LastSeverity = *u.Severity
	}
	if u.IssueType != nil {
		c.LastIssueType = *u.IssueType
	}
	if u.Intent != nil {
		c.LastIntent = *u.Intent
	}
	if u.ResultCount != nil {
		c.LastResultCount = *u.ResultCount
	}
	if u.Limit != nil {
		c.LastLimit = *u.Limit
	}
	if u.Offset != nil {
		c.LastOffset = *u.Offset
	}
	if u.Turn != nil {
		c.History = append(c.History, *u.Turn)
		if historyLimit > 0 && len(c.History) > historyLimit {
			c.History = c.History[len(c.History)-historyLimit:]
		}
	}
	c.UpdatedAt = time.Now()
}

// snapshot returns a copy safe to read after the entry's state lock is
// released. The ledger pointer is shared; the ledger is internally
// synchronized.
func (c *Context) snapshot() Context {
	cp := *c
	cp.History = make([]TurnRecord, len(c.History))
	copy(cp.History, c.History)
	return cp
}

// Helper constructors for Update fields.

// String returns a pointer to s, for Update fields.
func String(s string) *string { return &s }

// Int returns a pointer to n, for Update fields.
func Int(n int) *int { return &n }

// SeverityPtr returns a pointer to s, for Update fields.
func SeverityPtr(s alert.Severity) *alert.Severity { return &s }

// IssuePtr returns a pointer to it, for Update fields.
func IssuePtr(it alert.IssueType) *alert.IssueType { return &it }

// IntentPtr returns a pointer to i, for Update fields.
func IntentPtr(i nlq.Intent) *nlq.Intent { return &i }

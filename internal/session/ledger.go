package session

import (
	"fmt"
	"sync"
	"time"
)

// FactKind labels what a ledger entry asserts.
type FactKind string

// Fact kinds recorded by the assistant
const (
	FactCount      FactKind = "count"
	FactStatus     FactKind = "status"
	FactConclusion FactKind = "conclusion"
)

// Fact is one entry in the session fact ledger. Entries are append-only;
// corrections supersede earlier entries but never delete them, so the audit
// trail can be replayed.
type Fact struct {
	Kind       FactKind  `json:"kind"`
	Key        string    `json:"key"`   // e.g. "MIDEVSTB:critical_count"
	Scope      string    `json:"scope"` // database, standby, environment
	Value      float64   `json:"value"`
	Provenance string    `json:"provenance"` // the question that established it
	Timestamp  time.Time `json:"timestamp"`
	Correction bool      `json:"correction,omitempty"`
	Supersedes int       `json:"supersedes,omitempty"` // index of the entry corrected
	Reason     string    `json:"reason,omitempty"`
}

// Ledger is the append-only fact record for one session.
type Ledger struct {
	mu     sync.RWMutex
	facts  []Fact
	latest map[string]int // fact key -> index of most recent entry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{latest: make(map[string]int)}
}

func factKey(kind FactKind, key, scope string) string {
	return fmt.Sprintf("%s:%s:%s", kind, key, scope)
}

// Append records a new fact.
func (l *Ledger) Append(f Fact) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	l.facts = append(l.facts, f)
	l.latest[factKey(f.Kind, f.Key, f.Scope)] = len(l.facts) - 1
}

// Correct records a correction that supersedes the most recent entry for the
// same claim. The prior entry stays in the ledger.
func (l *Ledger) Correct(kind FactKind, key, scope string, value float64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fk := factKey(kind, key, scope)
	prior, ok := l.latest[fk]
	f := Fact{
		Kind:       kind,
		Key:        key,
		Scope:      scope,
		Value:      value,
		Timestamp:  time.Now(),
		Correction: true,
		Reason:     reason,
	}
	if ok {
		f.Supersedes = prior
	}
	l.facts = append(l.facts, f)
	l.latest[fk] = len(l.facts) - 1
}

// Latest returns the most recent entry for a claim, including corrections.
func (l *Ledger) Latest(kind FactKind, key, scope string) (Fact, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.latest[factKey(kind, key, scope)]
	if !ok {
		return Fact{}, false
	}
	return l.facts[idx], true
}

// Contradicts checks a new value for the claim against the ledger. Values at
// or above largeThreshold tolerate a relative variance up to tolerance;
// smaller values must match exactly. Returns the contradicted entry when one
// exists.
func (l *Ledger) Contradicts(kind FactKind, key, scope string, value float64, tolerance float64, largeThreshold int) (Fact, bool) {
	existing, ok := l.Latest(kind, key, scope)
	if !ok {
		return Fact{}, false
	}
	if existing.Value == value {
		return existing, false
	}
	if existing.Value >= float64(largeThreshold) {
		variance := abs(existing.Value-value) / existing.Value
		if variance > tolerance {
			return existing, true
		}
		return existing, false
	}
	return existing, true
}

// Len returns the total number of entries, corrections included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.facts)
}

// Facts returns a copy of the full ledger in append order.
func (l *Ledger) Facts() []Fact {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Fact, len(l.facts))
	copy(out, l.facts)
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

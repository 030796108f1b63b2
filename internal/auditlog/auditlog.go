// Package auditlog records one entry per conversation turn: what was asked,
// how it resolved, what the trust governor decided, and whether an answer was
// produced. Entries go to the structured log and into a bounded in-memory
// buffer so recent turns can be inspected without log access.
package auditlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/tracing"
)

// Entry is one audited conversation turn.
type Entry struct {
	Timestamp   time.Time     `json:"timestamp"`
	TraceID     string        `json:"trace_id"`
	SessionID   string        `json:"session_id"`
	Question    string        `json:"question"`
	Intent      string        `json:"intent"`
	Rule        string        `json:"rule,omitempty"` // classification rule that fired
	State       string        `json:"state"`
	Scope       string        `json:"scope,omitempty"`
	TrustMode   string        `json:"trust_mode,omitempty"`
	Confidence  string        `json:"confidence,omitempty"`
	Violations  []string      `json:"violations,omitempty"`
	Inherited   []string      `json:"inherited,omitempty"`
	ResultCount int           `json:"result_count"`
	Success     bool          `json:"success"`
	Duration    time.Duration `json:"duration_ms"`
	ErrorMsg    string        `json:"error_message,omitempty"`
}

// Logger handles turn audit logging.
type Logger struct {
	enabled bool
	logger  *zap.Logger

	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
}

// NewLogger creates an audit logger keeping the last 1000 entries in memory.
func NewLogger(logger *zap.Logger, enabled bool) *Logger {
	return &Logger{
		enabled:    enabled,
		logger:     logger.Named("audit"),
		entries:    make([]Entry, 0, 1000),
		maxEntries: 1000,
	}
}

// Log records one turn.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if !l.enabled {
		return
	}

	if info := tracing.FromContext(ctx); info.TraceID != "" {
		entry.TraceID = info.TraceID
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	fields := []zap.Field{
		zap.String("trace_id", entry.TraceID),
		zap.String("session_id", entry.SessionID),
		zap.String("intent", entry.Intent),
		zap.String("state", entry.State),
		zap.Bool("success", entry.Success),
		zap.Duration("duration", entry.Duration),
	}
	if entry.Rule != "" {
		fields = append(fields, zap.String("rule", entry.Rule))
	}
	if entry.Scope != "" {
		fields = append(fields, zap.String("scope", entry.Scope))
	}
	if entry.TrustMode != "" {
		fields = append(fields, zap.String("trust_mode", entry.TrustMode))
	}
	if entry.Confidence != "" {
		fields = append(fields, zap.String("confidence", entry.Confidence))
	}
	if len(entry.Violations) > 0 {
		fields = append(fields, zap.Strings("violations", entry.Violations))
	}
	if len(entry.Inherited) > 0 {
		fields = append(fields, zap.Strings("inherited", entry.Inherited))
	}
	if entry.ResultCount > 0 {
		fields = append(fields, zap.Int("result_count", entry.ResultCount))
	}
	if entry.ErrorMsg != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMsg))
	}
	l.logger.Info("turn", fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.maxEntries {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
}

// Recent returns up to n most recent entries, newest last.
func (l *Logger) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the number of buffered entries.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Store owns all session contexts. Concurrent turns for the same session id
// are serialized through Acquire; turns for different sessions proceed in
// parallel with no shared mutable state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry

	historyLimit int
	ttl          time.Duration
	turnLimit    rate.Limit
	turnBurst    int
	logger       *zap.Logger
}

type entry struct {
	turnMu  sync.Mutex   // held for the duration of one turn
	stateMu sync.RWMutex // guards ctx and every field read through it
	ctx     *Context
	limiter *rate.Limiter
}

// Options configures a Store.
type Options struct {
	HistoryLimit   int
	TTL            time.Duration
	TurnsPerMinute int
	TurnBurst      int
}

// NewStore creates an empty session store.
func NewStore(opts Options, logger *zap.Logger) *Store {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.TurnsPerMinute <= 0 {
		opts.TurnsPerMinute = 60
	}
	if opts.TurnBurst <= 0 {
		opts.TurnBurst = 10
	}
	return &Store{
		sessions:     make(map[string]*entry),
		historyLimit: opts.HistoryLimit,
		ttl:          opts.TTL,
		turnLimit:    rate.Limit(float64(opts.TurnsPerMinute) / 60.0),
		turnBurst:    opts.TurnBurst,
		logger:       logger.Named("session"),
	}
}

// lookup returns the entry for a session id, creating it if needed. An
// expired entry is replaced with a fresh one.
func (s *Store) lookup(sessionID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if ok && s.ttl > 0 {
		e.stateMu.RLock()
		stale := time.Since(e.ctx.UpdatedAt) > s.ttl
		e.stateMu.RUnlock()
		if stale {
			s.logger.Debug("session expired", zap.String("session_id", sessionID))
			ok = false
		}
	}
	if !ok {
		now := time.Now()
		e = &entry{
			ctx: &Context{
				SessionID: sessionID,
				CreatedAt: now,
				UpdatedAt: now,
				ledger:    NewLedger(),
			},
			limiter: rate.NewLimiter(s.turnLimit, s.turnBurst),
		}
		s.sessions[sessionID] = e
	}
	return e
}

// Acquire takes the session's turn lock and returns the release function.
// The lock must be held from turn start (context read) through turn end
// (context update) so an interleaved turn can never observe or clobber a
// half-applied update.
func (s *Store) Acquire(sessionID string) func() {
	e := s.lookup(sessionID)
	e.turnMu.Lock()
	return e.turnMu.Unlock
}

// AllowTurn reports whether the session is within its turn rate budget.
func (s *Store) AllowTurn(sessionID string) bool {
	return s.lookup(sessionID).limiter.Allow()
}

// Get returns a read-only snapshot of the session's context. The session is
// created empty on first access. Safe to call while another goroutine's turn
// is in flight.
func (s *Store) Get(sessionID string) Context {
	e := s.lookup(sessionID)
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.ctx.snapshot()
}

// Ledger returns the session's live fact ledger.
func (s *Store) Ledger(sessionID string) *Ledger {
	e := s.lookup(sessionID)
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.ctx.ledger
}

// Update merges the given fields into the session context. Only called after
// a turn's answer has been successfully produced; failed and
// clarification-only turns leave the context untouched.
func (s *Store) Update(sessionID string, u Update) {
	e := s.lookup(sessionID)
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.ctx.apply(u, s.historyLimit)
}

// Reset clears the session context and ledger entirely.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[sessionID]; ok {
		now := time.Now()
		e.stateMu.Lock()
		e.ctx = &Context{
			SessionID: sessionID,
			CreatedAt: now,
			UpdatedAt: now,
			ledger:    NewLedger(),
		}
		e.stateMu.Unlock()
		s.logger.Debug("session reset", zap.String("session_id", sessionID))
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

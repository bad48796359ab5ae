package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/metrics"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

// Config tunes the store. Zero values fall back to the package defaults.
type Config struct {
	IdleThreshold time.Duration
	SweepInterval time.Duration
	MaxRecords    int
}

// Store creates, looks up and expires sessions. Safe for concurrent use.
type Store struct {
	logger zerolog.Logger
	cfg    Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore(logger zerolog.Logger, cfg Config) *Store {
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = types.SessionIdleThreshold
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = types.SessionSweepInterval
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = types.MaxSessionRecords
	}
	return &Store{
		logger:   logger.With().Str("component", "sessions").Logger(),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create allocates a session with a collision-resistant identifier.
func (st *Store) Create() *Session {
	now := time.Now()
	sess := &Session{
		ID:           uuid.NewString(),
		Created:      now,
		lastAccessed: now,
		maxRecords:   st.cfg.MaxRecords,
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	st.logger.Debug().Str("session_id", sess.ID).Msg("session created")
	return sess
}

// Get returns the session for id, touching its last-accessed timestamp.
// It never creates one implicitly.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		sess.Touch()
	}
	return sess, ok
}

// Resolve returns the session for id, or a fresh session when id is empty
// or unknown. A stale identifier is recoverable, not an error.
func (st *Store) Resolve(id string) *Session {
	if id != "" {
		if sess, ok := st.Get(id); ok {
			return sess
		}
		st.logger.Debug().Str("session_id", id).Msg("unknown session id, creating new session")
	}
	return st.Create()
}

// Count reports the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts every session idle longer than the threshold and returns the
// number evicted. In-flight calls holding a reference to an evicted session
// keep using it safely; it simply disappears from the store.
func (st *Store) Sweep() int {
	cutoff := time.Now().Add(-st.cfg.IdleThreshold)

	st.mu.Lock()
	evicted := 0
	for id, sess := range st.sessions {
		if sess.LastAccessed().Before(cutoff) {
			delete(st.sessions, id)
			evicted++
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	if evicted > 0 {
		st.logger.Info().Int("evicted", evicted).Msg("session sweep complete")
	}
	return evicted
}

// Run sweeps on the configured interval until ctx is cancelled.
func (st *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(st.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Package session owns per-client conversational state. Sessions are
// in-memory only and independent of any single connection; an idle session
// is evicted by the periodic sweep regardless of open connections.
package session

import (
	"sync"
	"time"

	"github.com/zapmcp/zap-mcp/pkg/types"
)

// Record is an immutable log entry for one tool invocation, appended to the
// session that the invocation ran under.
type Record struct {
	ToolName  string        `json:"toolName"`
	Params    types.Params  `json:"params"`
	Result    *types.Result `json:"result"`
	Timestamp time.Time     `json:"timestamp"`
}

// Session is a per-client context bag. The last-accessed timestamp advances
// on every read or write. Concurrent writers sharing a session race on a
// last-write-wins basis; that is accepted, not serialized away.
type Session struct {
	ID      string
	Created time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	records      []Record
	maxRecords   int
}

// Touch advances the last-accessed timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// LastAccessed reports when the session was last read or written.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Append adds an invocation record, evicting the oldest once the cap is
// reached.
func (s *Session) Append(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = time.Now()
	s.records = append(s.records, rec)
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
}

// Records returns a copy of the invocation records in append order.
func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = time.Now()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ContextSize reports the number of invocation records held.
func (s *Session) ContextSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

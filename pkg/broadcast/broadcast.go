// Package broadcast fans events out to duplex connections, keyed strictly
// by session identifier. Delivery is best effort to currently open
// subscribers; there is no queuing or replay.
package broadcast

import (
	"sync"

	"github.com/zapmcp/zap-mcp/pkg/types"
)

// Event types pushed over the duplex channel.
const (
	EventSession      = "session"
	EventProgress     = "progress"
	EventResult       = "result"
	EventError        = "error"
	EventCancelled    = "cancelled"
	EventToolComplete = "toolComplete"
)

// Event is the JSON object pushed to duplex clients, tagged by Type.
type Event struct {
	Type      string               `json:"type"`
	Tool      string               `json:"tool,omitempty"`
	Message   string               `json:"message,omitempty"`
	Progress  int                  `json:"progress,omitempty"`
	SessionID string               `json:"sessionId,omitempty"`
	Result    *types.Result        `json:"result,omitempty"`
	Tools     []types.ToolMetadata `json:"tools,omitempty"`
}

const defaultBufferSize = 64

// Subscription receives events for one session until closed.
type Subscription struct {
	ch   chan Event
	once sync.Once
}

// Events returns the receive channel. It is closed when the subscription
// is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// send delivers without blocking; a full subscriber drops the event.
func (s *Subscription) send(ev Event) {
	select {
	case s.ch <- ev:
	default:
	}
}

// Broadcaster is an in-memory publish mechanism keyed by session ID.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[string][]*Subscription
	bufSize int
	closed  bool
}

// New creates a Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subs:    make(map[string][]*Subscription),
		bufSize: defaultBufferSize,
	}
}

// Subscribe registers a subscriber for one session.
func (b *Broadcaster) Subscribe(sessionID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{ch: make(chan Event, b.bufSize)}
	b.subs[sessionID] = append(b.subs[sessionID], sub)
	return sub
}

// Unsubscribe removes and closes a subscription.
func (b *Broadcaster) Unsubscribe(sessionID string, sub *Subscription) {
	b.mu.Lock()
	list := b.subs[sessionID]
	for i, s := range list {
		if s == sub {
			b.subs[sessionID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
	sub.close()
}

// Broadcast delivers ev to every subscriber bound to sessionID. Subscribers
// of other sessions never receive it.
func (b *Broadcaster) Broadcast(sessionID string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs[sessionID] {
		sub.send(ev)
	}
}

// Close shuts down all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, list := range b.subs {
		for _, sub := range list {
			sub.close()
		}
	}
	b.subs = make(map[string][]*Subscription)
}

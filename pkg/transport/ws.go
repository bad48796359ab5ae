package transport

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zapmcp/zap-mcp/pkg/broadcast"
	"github.com/zapmcp/zap-mcp/pkg/metrics"
	"github.com/zapmcp/zap-mcp/pkg/registry"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

// Inbound duplex message kinds.
const (
	msgExecuteTool = "executeTool"
	msgCancelTool  = "cancelTool"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Caller authentication is out of scope; accept any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// inboundMessage is a message received over the duplex channel.
type inboundMessage struct {
	Type     string       `json:"type"`
	ToolName string       `json:"toolName,omitempty"`
	Params   types.Params `json:"params,omitempty"`
}

// WS is the duplex entry point.
type WS struct {
	logger   zerolog.Logger
	registry *registry.Registry
	sessions *session.Store
	events   *broadcast.Broadcaster
}

// NewWS creates the duplex front-end.
func NewWS(logger zerolog.Logger, reg *registry.Registry, sessions *session.Store, events *broadcast.Broadcaster) *WS {
	return &WS{
		logger:   logger.With().Str("component", "ws").Logger(),
		registry: reg,
		sessions: sessions,
		events:   events,
	}
}

// duplexConn binds one open channel to one session and at most one
// currently executing tool.
type duplexConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu         sync.Mutex
	activeTool string
	cancel     context.CancelFunc
}

// Push writes one JSON message. Serialized; gorilla permits only one
// concurrent writer.
func (c *duplexConn) Push(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// setActive marks a tool as running. Returns false when one already is.
func (c *duplexConn) setActive(tool string, cancel context.CancelFunc) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeTool != "" {
		return c.activeTool, false
	}
	c.activeTool = tool
	c.cancel = cancel
	return tool, true
}

// clearActiveIf clears the marker when it still names tool, reporting
// whether this call performed the clear. A cancelTool that already cleared
// the marker wins over a late completion.
func (c *duplexConn) clearActiveIf(tool string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeTool != tool {
		return false
	}
	c.activeTool = ""
	c.cancel = nil
	return true
}

// takeActive clears and returns the active marker and its cancel func.
func (c *duplexConn) takeActive() (string, context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tool, cancel := c.activeTool, c.cancel
	c.activeTool = ""
	c.cancel = nil
	return tool, cancel
}

// Handle upgrades the connection, binds it to a session, announces the
// session and tool listing, then serves the inbound message loop.
func (w *WS) Handle(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sess := w.sessions.Resolve(r.URL.Query().Get("session"))
	dc := &duplexConn{conn: conn}

	metrics.DuplexConnections.Inc()
	defer metrics.DuplexConnections.Dec()

	sub := w.events.Subscribe(sess.ID)
	defer w.events.Unsubscribe(sess.ID, sub)

	// Forward broadcast events for this session to the channel.
	go func() {
		for ev := range sub.Events() {
			if dc.Push(ev) != nil {
				return
			}
		}
	}()

	if err := dc.Push(broadcast.Event{
		Type:      broadcast.EventSession,
		SessionID: sess.ID,
		Tools:     w.registry.ListMetadata(),
	}); err != nil {
		return
	}

	w.logger.Debug().Str("session_id", sess.ID).Msg("duplex connection established")

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case msgExecuteTool:
			w.handleExecute(dc, sess, msg)
		case msgCancelTool:
			w.handleCancel(dc, sess)
		default:
			_ = dc.Push(broadcast.Event{Type: broadcast.EventError, Message: "unknown message type"})
		}
	}

	// Disconnect with an active tool raises a cancellation for observers;
	// the session itself survives.
	if tool, cancel := dc.takeActive(); tool != "" {
		if cancel != nil {
			cancel()
		}
		w.events.Broadcast(sess.ID, broadcast.Event{Type: broadcast.EventCancelled, Tool: tool})
		w.logger.Debug().Str("session_id", sess.ID).Str("tool", tool).Msg("connection closed with active tool")
	}
}

func (w *WS) handleExecute(dc *duplexConn, sess *session.Session, msg inboundMessage) {
	if msg.ToolName == "" {
		_ = dc.Push(broadcast.Event{Type: broadcast.EventError, Message: "toolName is required"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if active, ok := dc.setActive(msg.ToolName, cancel); !ok {
		cancel()
		_ = dc.Push(broadcast.Event{Type: broadcast.EventError, Message: "tool already running: " + active})
		return
	}

	go func() {
		defer cancel()

		ec := &tools.ExecContext{
			Session: sess,
			Conn:    dc,
			Progress: func(progress int, message string) {
				_ = dc.Push(broadcast.Event{
					Type: broadcast.EventProgress, Tool: msg.ToolName, Progress: progress, Message: message,
				})
			},
		}

		result, err := w.registry.Dispatch(ctx, msg.ToolName, msg.Params, ec)
		if err != nil {
			if dc.clearActiveIf(msg.ToolName) {
				_ = dc.Push(broadcast.Event{Type: broadcast.EventError, Message: err.Error()})
			}
			return
		}

		if dc.clearActiveIf(msg.ToolName) {
			_ = dc.Push(broadcast.Event{Type: broadcast.EventResult, Tool: msg.ToolName, Result: result})
		}
		w.events.Broadcast(sess.ID, broadcast.Event{Type: broadcast.EventToolComplete, Tool: msg.ToolName, Result: result})
	}()
}

func (w *WS) handleCancel(dc *duplexConn, sess *session.Session) {
	tool, cancel := dc.takeActive()
	if tool == "" {
		_ = dc.Push(broadcast.Event{Type: broadcast.EventError, Message: "no active tool to cancel"})
		return
	}
	if cancel != nil {
		cancel()
	}
	_ = dc.Push(broadcast.Event{Type: broadcast.EventCancelled, Tool: tool})
	w.events.Broadcast(sess.ID, broadcast.Event{Type: broadcast.EventCancelled, Tool: tool})
}

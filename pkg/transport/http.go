// Package transport contains the two front-ends of the bridge: the
// request/response HTTP handler (with an optional server-sent-events
// progressive mode) and the duplex websocket handler. Both resolve to the
// registry's dispatch contract and emit the same event vocabulary.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zapmcp/zap-mcp/pkg/broadcast"
	"github.com/zapmcp/zap-mcp/pkg/registry"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

// HeaderSessionID carries the caller's session identifier on the
// request/response transport, and echoes the resolved session back.
const HeaderSessionID = "X-Session-ID"

// Environment configuration for the request/response rate limit.
const (
	EnvRateWindow = "ZAP_MCP_RATE_WINDOW"
	EnvRateMax    = "ZAP_MCP_RATE_MAX"

	defaultRateWindow = time.Minute
	defaultRateMax    = 120
)

// Config bounds abuse of the request/response transport. It is not part
// of the dispatch contract.
type Config struct {
	RateWindow time.Duration
	RateMax    int
}

// ConfigFromEnv reads the rate limit settings, falling back to defaults
// on absent or malformed values.
func ConfigFromEnv() Config {
	cfg := Config{RateWindow: defaultRateWindow, RateMax: defaultRateMax}
	if raw := os.Getenv(EnvRateWindow); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.RateWindow = d
		}
	}
	if raw := os.Getenv(EnvRateMax); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.RateMax = n
		}
	}
	return cfg
}

// HTTP is the request/response entry point.
type HTTP struct {
	logger   zerolog.Logger
	registry *registry.Registry
	sessions *session.Store
	events   *broadcast.Broadcaster
	limiter  *rate.Limiter
	started  time.Time
}

// NewHTTP creates the request/response front-end.
func NewHTTP(logger zerolog.Logger, reg *registry.Registry, sessions *session.Store, events *broadcast.Broadcaster, cfg Config) *HTTP {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = defaultRateWindow
	}
	if cfg.RateMax <= 0 {
		cfg.RateMax = defaultRateMax
	}
	return &HTTP{
		logger:   logger.With().Str("component", "http").Logger(),
		registry: reg,
		sessions: sessions,
		events:   events,
		limiter:  rate.NewLimiter(rate.Every(cfg.RateWindow/time.Duration(cfg.RateMax)), cfg.RateMax),
		started:  time.Now(),
	}
}

// Routes mounts the handlers on mux.
func (h *HTTP) Routes(mux *http.ServeMux) {
	mux.Handle("POST /tools/{name}", h.withRateLimit(http.HandlerFunc(h.handleInvoke)))
	mux.HandleFunc("GET /tools", h.handleDiscovery)
	mux.HandleFunc("POST /sessions", h.handleCreateSession)
	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *HTTP) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTP) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	params := types.Params{}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeJSON(w, http.StatusBadRequest, types.ErrorResult(name, "invalid JSON body"))
			return
		}
	}

	sess := h.sessions.Resolve(r.Header.Get(HeaderSessionID))
	w.Header().Set(HeaderSessionID, sess.ID)

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.invokeStream(w, r, name, params, sess)
		return
	}

	result, err := h.registry.Dispatch(r.Context(), name, params, &tools.ExecContext{Session: sess})
	if err != nil {
		status := http.StatusInternalServerError
		var invalidParams *registry.InvalidParamsError
		switch {
		case errors.Is(err, registry.ErrToolNotFound):
			status = http.StatusNotFound
		case errors.As(err, &invalidParams):
			status = http.StatusBadRequest
		}
		writeJSON(w, status, types.ErrorResult(name, err.Error()))
		return
	}

	h.events.Broadcast(sess.ID, broadcast.Event{Type: broadcast.EventToolComplete, Tool: name, Result: result})

	status := http.StatusOK
	if result.IsError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// invokeStream holds the response open, writing progress events as they
// occur followed by a terminal result (or error) event.
func (h *HTTP) invokeStream(w http.ResponseWriter, r *http.Request, name string, params types.Params, sess *session.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	writeEvent := func(event string, v any) {
		mu.Lock()
		defer mu.Unlock()
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	ec := &tools.ExecContext{
		Session: sess,
		Progress: func(progress int, message string) {
			writeEvent(broadcast.EventProgress, broadcast.Event{
				Type: broadcast.EventProgress, Tool: name, Progress: progress, Message: message,
			})
		},
	}

	result, err := h.registry.Dispatch(r.Context(), name, params, ec)
	if err != nil {
		writeEvent(broadcast.EventError, broadcast.Event{Type: broadcast.EventError, Message: err.Error()})
		return
	}

	h.events.Broadcast(sess.ID, broadcast.Event{Type: broadcast.EventToolComplete, Tool: name, Result: result})
	writeEvent(broadcast.EventResult, broadcast.Event{Type: broadcast.EventResult, Tool: name, Result: result})
}

func (h *HTTP) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	listing := h.registry.ListMetadata()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": listing,
		"count": len(listing),
	})
}

func (h *HTTP) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := h.sessions.Create()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           sess.ID,
		"created":      sess.Created,
		"lastAccessed": sess.LastAccessed(),
		"contextSize":  sess.ContextSize(),
	})
}

func (h *HTTP) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"uptime":       time.Since(h.started).Seconds(),
		"sessionCount": h.sessions.Count(),
		"toolCount":    h.registry.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

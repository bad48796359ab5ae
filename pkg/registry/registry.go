// Package registry maps tool names to tools and owns the dispatch
// contract: schema validation, execution, chaining and invocation
// recording. Both transports resolve to Dispatch.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/metrics"
	"github.com/zapmcp/zap-mcp/pkg/models"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/storage"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

var (
	// ErrToolNotFound is returned by Dispatch for an unknown tool name.
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned by Register when the name is taken.
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrInvalidTool is returned by Register for a candidate that does not
	// satisfy the capability contract.
	ErrInvalidTool = errors.New("invalid tool")
)

// InvalidParamsError reports required parameters that were missing or
// empty. The tool body is never invoked when validation fails.
type InvalidParamsError struct {
	Tool    string
	Missing []string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid parameters for %s: missing required %s", e.Tool, strings.Join(e.Missing, ", "))
}

// Guard decides whether a chain target runs, given the predecessor's
// just-produced result.
type Guard func(*types.Result) bool

type chainTarget struct {
	target string
	guard  Guard
}

// Registry is a lookup table from tool name to tool, populated at startup.
// It owns no execution state.
type Registry struct {
	logger zerolog.Logger
	store  storage.Storage

	mu         sync.RWMutex
	tools      map[string]tools.Tool
	order      []string
	chains     map[string][]chainTarget
	onRegister []func(types.ToolMetadata)
}

// New creates a Registry. store may be nil to disable invocation
// persistence.
func New(logger zerolog.Logger, store storage.Storage) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "registry").Logger(),
		store:  store,
		tools:  make(map[string]tools.Tool),
		chains: make(map[string][]chainTarget),
	}
}

// OnRegister adds an observer notified with each newly registered tool's
// metadata. Observers must be added before registration starts.
func (r *Registry) OnRegister(fn func(types.ToolMetadata)) {
	r.mu.Lock()
	r.onRegister = append(r.onRegister, fn)
	r.mu.Unlock()
}

// Register adds a tool keyed by its name. Registration failures are fatal
// to startup wiring.
func (r *Registry) Register(t tools.Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidTool)
	}
	if t.Name() == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if t.Description() == "" {
		return fmt.Errorf("%w: %s has no description", ErrInvalidTool, t.Name())
	}

	r.mu.Lock()
	if _, exists := r.tools[t.Name()]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	observers := make([]func(types.ToolMetadata), len(r.onRegister))
	copy(observers, r.onRegister)
	r.mu.Unlock()

	meta := r.metadata(t)
	for _, fn := range observers {
		fn(meta)
	}
	r.logger.Debug().Str("tool", t.Name()).Msg("tool registered")
	return nil
}

// Chain appends a chain target to a tool. On successful completion of
// from, dispatch invokes to with the same original parameters, provided
// guard (optional) approves the predecessor's result. Startup wiring only.
func (r *Registry) Chain(from, to string, guard Guard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[from]; !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, from)
	}
	if _, ok := r.tools[to]; !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, to)
	}
	r.chains[from] = append(r.chains[from], chainTarget{target: to, guard: guard})
	return nil
}

// ListMetadata returns discovery metadata for every registered tool, in
// registration order. Pure snapshot, no side effects.
func (r *Registry) ListMetadata() []types.ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ToolMetadata, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.metadataLocked(r.tools[name]))
	}
	return out
}

// Count reports the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func (r *Registry) metadata(t tools.Tool) types.ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metadataLocked(t)
}

func (r *Registry) metadataLocked(t tools.Tool) types.ToolMetadata {
	var targets []string
	for _, ct := range r.chains[t.Name()] {
		targets = append(targets, ct.target)
	}
	schema := t.Schema()
	if schema == nil {
		schema = types.Schema{}
	}
	return types.ToolMetadata{
		Name:         t.Name(),
		Description:  t.Description(),
		Schema:       schema,
		ChainTargets: targets,
		Streaming:    t.Streaming(),
	}
}

// Dispatch validates params against the tool's schema, executes the tool
// and walks its chain targets depth-first. It returns ErrToolNotFound or
// an InvalidParamsError without invoking the tool body; every other
// failure is captured in the returned envelope with isError set.
func (r *Registry) Dispatch(ctx context.Context, name string, params types.Params, ec *tools.ExecContext) (*types.Result, error) {
	return r.dispatch(ctx, name, params, ec, false)
}

func (r *Registry) dispatch(ctx context.Context, name string, params types.Params, ec *tools.ExecContext, chained bool) (*types.Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		metrics.ToolInvocations.WithLabelValues(name, "not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if missing := missingParams(t.Schema(), params); len(missing) > 0 {
		metrics.ToolInvocations.WithLabelValues(name, "invalid_params").Inc()
		return nil, &InvalidParamsError{Tool: name, Missing: missing}
	}

	start := time.Now()
	result, err := t.Execute(ctx, params, ec)
	if err != nil {
		r.logger.Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		result = types.ErrorResult(name, err.Error())
	}
	if result == nil {
		result = types.ErrorResult(name, "tool produced no result")
	}
	result.ToolName = name
	result.IsStream = t.Streaming()
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	// Chain targets run in declaration order, each completing before the
	// next, with the original parameters. A target's failure lands in its
	// own envelope and never aborts siblings or the parent.
	if !result.IsError {
		r.mu.RLock()
		targets := make([]chainTarget, len(r.chains[name]))
		copy(targets, r.chains[name])
		r.mu.RUnlock()

		for _, ct := range targets {
			if ct.guard != nil && !ct.guard(result) {
				continue
			}
			sub, subErr := r.dispatch(ctx, ct.target, params, ec, true)
			if subErr != nil {
				sub = types.ErrorResult(ct.target, subErr.Error())
			}
			result.ChainedResults = append(result.ChainedResults, sub)
		}
	}

	r.record(name, params, result, time.Since(start), chained, ec)

	outcome := "success"
	if result.IsError {
		outcome = "error"
	}
	metrics.ToolInvocations.WithLabelValues(name, outcome).Inc()
	return result, nil
}

// record appends the invocation to the bound session and persists it.
// Persistence runs asynchronously so a slow disk never blocks a caller.
func (r *Registry) record(name string, params types.Params, result *types.Result, elapsed time.Duration, chained bool, ec *tools.ExecContext) {
	if ec != nil && ec.Session != nil {
		ec.Session.Append(session.Record{
			ToolName:  name,
			Params:    params,
			Result:    result,
			Timestamp: time.Now().UTC(),
		})
	}

	if r.store == nil {
		return
	}
	paramsJSON, _ := json.Marshal(params)
	resultJSON, _ := json.Marshal(result)
	inv := &models.Invocation{
		ToolName:   name,
		ParamsJSON: string(paramsJSON),
		ResultJSON: string(resultJSON),
		DurationMs: elapsed.Milliseconds(),
		Success:    !result.IsError,
		Chained:    chained,
	}
	if ec != nil && ec.Session != nil {
		inv.SessionID = ec.Session.ID
	}
	if result.IsError {
		inv.ErrorMessage = result.Text()
	}
	go func() {
		_ = r.store.CreateInvocation(context.Background(), inv)
	}()
}

// missingParams returns required schema keys that are absent or empty.
func missingParams(schema types.Schema, params types.Params) []string {
	var missing []string
	for key, spec := range schema {
		if !spec.Required {
			continue
		}
		val, ok := params[key]
		if !ok || val == nil {
			missing = append(missing, key)
			continue
		}
		if s, isStr := val.(string); isStr && s == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

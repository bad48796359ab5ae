// Package tools defines the capability contract every invocable unit of
// work satisfies, plus helpers shared by the tool implementations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

// Pusher is a direct reference to a duplex connection, for tools that want
// to push events without going through the broadcaster.
type Pusher interface {
	Push(event any) error
}

// ExecContext carries the per-invocation context a tool executes under.
// Session is always set by the transports; Progress and Conn are optional.
type ExecContext struct {
	Session  *session.Session
	Progress types.ProgressFunc
	Conn     Pusher
}

// Emit reports progress if a callback is attached.
func (ec *ExecContext) Emit(progress int, message string) {
	if ec != nil && ec.Progress != nil {
		ec.Progress(progress, message)
	}
}

// Tool is a named, schema-validated unit of work. Implementations are
// constructed once at startup, registered, and never mutated afterwards.
type Tool interface {
	Name() string
	Description() string
	Schema() types.Schema
	Streaming() bool
	Execute(ctx context.Context, params types.Params, ec *ExecContext) (*types.Result, error)
}

// DecodeParams maps a raw parameter object onto a typed input struct.
func DecodeParams(params types.Params, v any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// Paginate trims output to a line window, prefixing a marker when lines
// were cut. maxLines of 0 selects the default top view.
func Paginate(output string, maxLines, offset int) string {
	if maxLines <= 0 {
		maxLines = types.MaxDefaultLines
	}
	if maxLines > types.MaxAllowedLines {
		maxLines = types.MaxAllowedLines
	}

	lines := strings.Split(output, "\n")
	totalLines := len(lines)

	truncated := false
	if offset > 0 && offset < totalLines {
		end := totalLines
		if offset+maxLines < totalLines {
			end = offset + maxLines
			truncated = true
		}
		lines = lines[offset:end]
	} else if totalLines > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}

	paginated := strings.Join(lines, "\n")
	if truncated || offset > 0 {
		return fmt.Sprintf("[Showing lines %d-%d of %d lines. Use offset parameter to view more.]\n\n%s",
			offset+1, offset+len(lines), totalLines, paginated)
	}
	return paginated
}

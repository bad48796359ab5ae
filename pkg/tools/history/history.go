package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/storage"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

const toolName = "history"

// Input defines the history input parameters.
type Input struct {
	Action    string `json:"action" validate:"required,oneof=list get delete clear"`
	ID        uint   `json:"id,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Limit     int    `json:"limit,omitempty" validate:"min=0,max=100"`
	Offset    int    `json:"offset,omitempty" validate:"min=0"`
}

// Tool browses and manages the persisted invocation history.
type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	store     storage.Storage
}

func New(logger zerolog.Logger, store storage.Storage) tools.Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
		store:     store,
	}
}

func (t *Tool) Name() string { return toolName }

func (t *Tool) Description() string {
	return "Browse and manage invocation history. Actions: list (paginated, optionally by sessionId), get (by ID), delete (by ID), clear (all)."
}

func (t *Tool) Schema() types.Schema {
	return types.Schema{
		"action":    {Type: "string", Required: true},
		"id":        {Type: "number", Required: false},
		"sessionId": {Type: "string", Required: false},
		"limit":     {Type: "number", Required: false},
		"offset":    {Type: "number", Required: false},
	}
}

func (t *Tool) Streaming() bool { return false }

func (t *Tool) Execute(ctx context.Context, params types.Params, _ *tools.ExecContext) (*types.Result, error) {
	var input Input
	if err := tools.DecodeParams(params, &input); err != nil {
		return nil, err
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var resultText string

	switch input.Action {
	case "list":
		if input.SessionID != "" {
			invocations, err := t.store.InvocationsBySession(ctx, input.SessionID)
			if err != nil {
				return nil, fmt.Errorf("failed to list invocations: %w", err)
			}
			data, _ := json.MarshalIndent(map[string]any{
				"sessionId":   input.SessionID,
				"total":       len(invocations),
				"invocations": invocations,
			}, "", "  ")
			resultText = string(data)
			break
		}
		limit := input.Limit
		if limit == 0 {
			limit = 10
		}
		invocations, total, err := t.store.ListInvocations(ctx, limit, input.Offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list invocations: %w", err)
		}
		data, _ := json.MarshalIndent(map[string]any{
			"total":       total,
			"limit":       limit,
			"offset":      input.Offset,
			"invocations": invocations,
		}, "", "  ")
		resultText = string(data)

	case "get":
		if input.ID == 0 {
			return nil, fmt.Errorf("id is required for get action")
		}
		inv, err := t.store.GetInvocation(ctx, input.ID)
		if err != nil {
			return nil, fmt.Errorf("invocation not found: %w", err)
		}
		data, _ := json.MarshalIndent(inv, "", "  ")
		resultText = string(data)

	case "delete":
		if input.ID == 0 {
			return nil, fmt.Errorf("id is required for delete action")
		}
		if err := t.store.DeleteInvocation(ctx, input.ID); err != nil {
			return nil, fmt.Errorf("failed to delete invocation: %w", err)
		}
		resultText = fmt.Sprintf("Invocation %d deleted", input.ID)

	case "clear":
		if err := t.store.ClearInvocations(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear invocations: %w", err)
		}
		resultText = "All invocation history cleared"
	}

	return types.TextResult(toolName, resultText), nil
}

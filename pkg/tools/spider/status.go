package spider

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

const statusToolName = "get_spider_status"

// StatusInput defines the get_spider_status input parameters.
type StatusInput struct {
	ScanID string `json:"scanId" validate:"required"`
}

// StatusTool reports spider progress for a scan ID.
type StatusTool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	client    *zap.Client
}

func NewStatus(logger zerolog.Logger, client *zap.Client) tools.Tool {
	return &StatusTool{
		logger:    logger.With().Str("tool", statusToolName).Logger(),
		validator: validator.New(),
		client:    client,
	}
}

func (t *StatusTool) Name() string { return statusToolName }

func (t *StatusTool) Description() string {
	return "Get the progress of a running spider scan by scan ID."
}

func (t *StatusTool) Schema() types.Schema {
	return types.Schema{
		"scanId": {Type: "string", Required: true},
	}
}

func (t *StatusTool) Streaming() bool { return false }

func (t *StatusTool) Execute(ctx context.Context, params types.Params, _ *tools.ExecContext) (*types.Result, error) {
	var input StatusInput
	if err := tools.DecodeParams(params, &input); err != nil {
		return nil, err
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	status, err := t.client.GetSpiderStatus(ctx, input.ScanID)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Spider scan %s - Progress: %d%% (%s)", input.ScanID, status.Progress, status.State)
	if status.Mock {
		text = "[mock] " + text
	}
	return types.TextResult(statusToolName, text), nil
}

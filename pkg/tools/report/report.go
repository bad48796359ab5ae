package report

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

const toolName = "generate_report"

// Input defines the generate_report input parameters.
type Input struct {
	TargetURL string `json:"targetUrl" validate:"required,url"`
	Format    string `json:"format,omitempty" validate:"omitempty,oneof=text json markdown"`
}

// Tool produces a findings summary for a target.
type Tool struct {
	logger    zerolog.Logger
	validator *validator.Validate
	client    *zap.Client
}

func New(logger zerolog.Logger, client *zap.Client) tools.Tool {
	return &Tool{
		logger:    logger.With().Str("tool", toolName).Logger(),
		validator: validator.New(),
		client:    client,
	}
}

func (t *Tool) Name() string { return toolName }

func (t *Tool) Description() string {
	return "Generate a summary report of scan findings for a target URL. Formats: text, json, markdown."
}

func (t *Tool) Schema() types.Schema {
	return types.Schema{
		"targetUrl": {Type: "string", Required: true},
		"format":    {Type: "string", Required: false},
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

	rep, err := t.client.GenerateReport(ctx, input.TargetURL, input.Format)
	if err != nil {
		return nil, err
	}

	text := rep.Summary
	if rep.Mock {
		text = "[mock] Placeholder report, scanner not configured.\n" + text
	}
	return types.TextResult(toolName, text), nil
}

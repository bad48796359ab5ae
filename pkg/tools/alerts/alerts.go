package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

const toolName = "get_alerts"

// Input defines the get_alerts input parameters.
type Input struct {
	TargetURL string `json:"targetUrl" validate:"required,url"`
	RiskLevel string `json:"riskLevel,omitempty" validate:"omitempty,oneof=High Medium Low Informational"`
	MaxLines  int    `json:"maxLines,omitempty" validate:"min=0,max=100000"`
	Offset    int    `json:"offset,omitempty" validate:"min=0"`
}

// Tool lists scanner findings for a target.
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
	return "Retrieve security alerts for a target URL, optionally filtered by risk level."
}

func (t *Tool) Schema() types.Schema {
	return types.Schema{
		"targetUrl": {Type: "string", Required: true},
		"riskLevel": {Type: "string", Required: false},
		"maxLines":  {Type: "number", Required: false},
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

	found, err := t.client.GetAlerts(ctx, input.TargetURL, input.RiskLevel)
	if err != nil {
		return nil, err
	}

	var builder strings.Builder
	mock := false
	for _, alert := range found {
		if alert.Mock {
			mock = true
		}
		fmt.Fprintf(&builder, "[%s] %s: %s\n", alert.Risk, alert.Name, alert.Description)
	}

	header := fmt.Sprintf("Found %d alerts for %s", len(found), input.TargetURL)
	if mock {
		header = "[mock] " + header + " (scanner not configured, placeholder data)"
	}

	text := header
	if len(found) > 0 {
		text += "\n\n" + tools.Paginate(strings.TrimRight(builder.String(), "\n"), input.MaxLines, input.Offset)
	}
	return types.TextResult(toolName, text), nil
}

package configure

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

const toolName = "configure"

// Input defines the tool input parameters.
type Input struct {
	APIURL string `json:"apiUrl" validate:"required,url"`
	APIKey string `json:"apiKey,omitempty"`
}

// Tool points the scanner adapter at a running ZAP instance.
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
	return "Configure the connection to the ZAP scanning engine (API URL and key)."
}

func (t *Tool) Schema() types.Schema {
	return types.Schema{
		"apiUrl": {Type: "string", Required: true},
		"apiKey": {Type: "string", Required: false},
	}
}

func (t *Tool) Streaming() bool { return false }

func (t *Tool) Execute(_ context.Context, params types.Params, _ *tools.ExecContext) (*types.Result, error) {
	var input Input
	if err := tools.DecodeParams(params, &input); err != nil {
		return nil, err
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	t.client.Configure(input.APIURL, input.APIKey)
	t.logger.Info().Str("api_url", input.APIURL).Msg("scanner endpoint updated")

	return types.TextResult(toolName, fmt.Sprintf("ZAP connection configured for %s", input.APIURL)), nil
}

// Package scan exposes the active-scan tools backed by the scanner
// adapter: start_scan launches an active scan (optionally streaming
// progress) and get_scan_status reports progress for a known scan ID.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

const (
	toolName            = "start_scan"
	defaultPollInterval = 5 * time.Second
)

// Input defines the start_scan input parameters.
type Input struct {
	TargetURL string `json:"targetUrl" validate:"required,url"`
	Policy    string `json:"policy,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

// Tool starts an active scan against a target.
type Tool struct {
	logger       zerolog.Logger
	validator    *validator.Validate
	client       *zap.Client
	pollInterval time.Duration
}

func New(logger zerolog.Logger, client *zap.Client) tools.Tool {
	return &Tool{
		logger:       logger.With().Str("tool", toolName).Logger(),
		validator:    validator.New(),
		client:       client,
		pollInterval: defaultPollInterval,
	}
}

func (t *Tool) Name() string { return toolName }

func (t *Tool) Description() string {
	return "Start an active security scan of the target URL, attacking discovered endpoints."
}

func (t *Tool) Schema() types.Schema {
	return types.Schema{
		"targetUrl": {Type: "string", Required: true},
		"policy":    {Type: "string", Required: false},
		"contextId": {Type: "string", Required: false},
	}
}

func (t *Tool) Streaming() bool { return true }

func (t *Tool) Execute(ctx context.Context, params types.Params, ec *tools.ExecContext) (*types.Result, error) {
	var input Input
	if err := tools.DecodeParams(params, &input); err != nil {
		return nil, err
	}
	if err := t.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	t.logger.Info().Str("target", input.TargetURL).Msg("starting active scan")
	handle, err := t.client.StartActiveScan(ctx, input.TargetURL, input.Policy, input.ContextID)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Active scan started for %s. Scan ID: %s", input.TargetURL, handle.ScanID)
	if handle.Mock {
		text = "[mock] " + text
	}

	if ec != nil && ec.Progress != nil {
		last := -1
		for {
			status, statusErr := t.client.GetScanStatus(ctx, handle.ScanID)
			if statusErr != nil {
				return nil, statusErr
			}
			if status.Progress != last {
				ec.Emit(status.Progress, fmt.Sprintf("progress %d%%", status.Progress))
				last = status.Progress
			}
			if status.Progress >= 100 {
				text += fmt.Sprintf("\nActive scan finished at %d%%.", status.Progress)
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.pollInterval):
			}
		}
	}

	return types.TextResult(toolName, text), nil
}

// Package spider exposes the crawl tools backed by the scanner adapter:
// spider_url starts a crawl (optionally streaming progress) and
// get_spider_status reports progress for a known scan ID.
package spider

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
	toolName            = "spider_url"
	defaultPollInterval = 2 * time.Second
)

// Input defines the spider_url input parameters.
type Input struct {
	TargetURL   string `json:"targetUrl" validate:"required,url"`
	MaxChildren int    `json:"maxChildren,omitempty" validate:"min=0"`
	Recurse     bool   `json:"recurse,omitempty"`
}

// Tool starts a spider crawl. With a progress callback attached it polls
// the scanner until completion, emitting progress along the way.
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
	return "Start a spider crawl of the target URL to discover its attack surface."
}

func (t *Tool) Schema() types.Schema {
	return types.Schema{
		"targetUrl":   {Type: "string", Required: true},
		"maxChildren": {Type: "number", Required: false},
		"recurse":     {Type: "boolean", Required: false},
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

	t.logger.Info().Str("target", input.TargetURL).Msg("starting spider scan")
	handle, err := t.client.SpiderURL(ctx, input.TargetURL, input.MaxChildren, input.Recurse)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Spider scan started for %s. Scan ID: %s", input.TargetURL, handle.ScanID)
	if handle.Mock {
		text = "[mock] " + text
	}

	if ec != nil && ec.Progress != nil {
		final, err := pollProgress(ctx, t.pollInterval, ec, func(pollCtx context.Context) (zap.ScanStatus, error) {
			return t.client.GetSpiderStatus(pollCtx, handle.ScanID)
		})
		if err != nil {
			return nil, err
		}
		text += fmt.Sprintf("\nSpider scan finished at %d%%.", final)
	}

	return types.TextResult(toolName, text), nil
}

// pollProgress polls until the scan reports 100%, emitting each distinct
// progress value. Cancellation is honored between polls.
func pollProgress(ctx context.Context, interval time.Duration, ec *tools.ExecContext, fetch func(context.Context) (zap.ScanStatus, error)) (int, error) {
	last := -1
	for {
		status, err := fetch(ctx)
		if err != nil {
			return last, err
		}
		if status.Progress != last {
			ec.Emit(status.Progress, fmt.Sprintf("progress %d%%", status.Progress))
			last = status.Progress
		}
		if status.Progress >= 100 {
			return status.Progress, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(interval):
		}
	}
}

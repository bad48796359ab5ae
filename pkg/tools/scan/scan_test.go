package scan

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

func newScanTool(client *zap.Client) *Tool {
	return &Tool{
		logger:       zerolog.Nop(),
		validator:    validator.New(),
		client:       client,
		pollInterval: time.Millisecond,
	}
}

func TestExecute_MockStart(t *testing.T) {
	tool := newScanTool(zap.New(zerolog.Nop(), "", ""))

	result, err := tool.Execute(context.Background(), types.Params{"targetUrl": "https://example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[mock] Active scan started for https://example.com. Scan ID: mock-1", result.Text())
	assert.Equal(t, toolName, result.ToolName)
}

func TestExecute_MissingTarget(t *testing.T) {
	tool := newScanTool(zap.New(zerolog.Nop(), "", ""))
	_, err := tool.Execute(context.Background(), types.Params{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestExecute_StreamsProgressToCompletion(t *testing.T) {
	tool := newScanTool(zap.New(zerolog.Nop(), "", ""))

	var progress []int
	ec := &tools.ExecContext{Progress: func(p int, _ string) { progress = append(progress, p) }}

	result, err := tool.Execute(context.Background(), types.Params{"targetUrl": "https://example.com"}, ec)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, progress)
	assert.Contains(t, result.Text(), "Active scan finished at 100%.")
}

func TestStatusExecute_Mock(t *testing.T) {
	tool := NewStatus(zerolog.Nop(), zap.New(zerolog.Nop(), "", ""))

	result, err := tool.Execute(context.Background(), types.Params{"scanId": "mock-4"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[mock] Active scan mock-4 - Progress: 100% (completed)", result.Text())
}

package spider

import (
	"context"
	"net/http"
	"net/http/httptest"
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

func newSpiderTool(client *zap.Client) *Tool {
	return &Tool{
		logger:       zerolog.Nop(),
		validator:    validator.New(),
		client:       client,
		pollInterval: time.Millisecond,
	}
}

func TestExecute_MockStart(t *testing.T) {
	tool := newSpiderTool(zap.New(zerolog.Nop(), "", ""))

	result, err := tool.Execute(context.Background(), types.Params{"targetUrl": "https://example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[mock] Spider scan started for https://example.com. Scan ID: mock-1", result.Text())
}

func TestExecute_ValidationFailure(t *testing.T) {
	tool := newSpiderTool(zap.New(zerolog.Nop(), "", ""))

	_, err := tool.Execute(context.Background(), types.Params{"targetUrl": "not a url"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestExecute_StreamsProgressToCompletion(t *testing.T) {
	tool := newSpiderTool(zap.New(zerolog.Nop(), "", ""))

	var progress []int
	ec := &tools.ExecContext{Progress: func(p int, _ string) { progress = append(progress, p) }}

	result, err := tool.Execute(context.Background(), types.Params{"targetUrl": "https://example.com"}, ec)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, progress)
	assert.Contains(t, result.Text(), "Spider scan finished at 100%.")
}

func TestExecute_CancelledMidPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/JSON/spider/action/scan/":
			w.Write([]byte(`{"scan":"3"}`))
		default:
			w.Write([]byte(`{"status":"10"}`))
		}
	}))
	defer srv.Close()

	tool := newSpiderTool(zap.New(zerolog.Nop(), srv.URL, ""))
	ctx, cancel := context.WithCancel(context.Background())
	ec := &tools.ExecContext{Progress: func(int, string) { cancel() }}

	_, err := tool.Execute(ctx, types.Params{"targetUrl": "https://example.com"}, ec)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusExecute_Mock(t *testing.T) {
	client := zap.New(zerolog.Nop(), "", "")
	tool := NewStatus(zerolog.Nop(), client)

	result, err := tool.Execute(context.Background(), types.Params{"scanId": "mock-9"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "[mock] Spider scan mock-9 - Progress: 100% (completed)", result.Text())
}

func TestStatusExecute_RequiresScanID(t *testing.T) {
	tool := NewStatus(zerolog.Nop(), zap.New(zerolog.Nop(), "", ""))
	_, err := tool.Execute(context.Background(), types.Params{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

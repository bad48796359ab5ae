package alerts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

func TestExecute_MockAlerts(t *testing.T) {
	tool := New(zerolog.Nop(), zap.New(zerolog.Nop(), "", ""))

	result, err := tool.Execute(context.Background(), types.Params{"targetUrl": "https://example.com"}, nil)
	require.NoError(t, err)
	text := result.Text()
	assert.Contains(t, text, "[mock] Found 2 alerts for https://example.com (scanner not configured, placeholder data)")
	assert.Contains(t, text, "[Medium] X-Frame-Options Header Not Set:")
	assert.Contains(t, text, "[Low] Cookie Without Secure Flag:")
}

func TestExecute_RiskLevelFilter(t *testing.T) {
	tool := New(zerolog.Nop(), zap.New(zerolog.Nop(), "", ""))

	result, err := tool.Execute(context.Background(), types.Params{
		"targetUrl": "https://example.com",
		"riskLevel": "Low",
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Text(), "Found 1 alerts")
	assert.NotContains(t, result.Text(), "[Medium]")
}

func TestExecute_RejectsUnknownRiskLevel(t *testing.T) {
	tool := New(zerolog.Nop(), zap.New(zerolog.Nop(), "", ""))

	_, err := tool.Execute(context.Background(), types.Params{
		"targetUrl": "https://example.com",
		"riskLevel": "Critical",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestExecute_NoFindings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[]}`))
	}))
	defer srv.Close()

	tool := New(zerolog.Nop(), zap.New(zerolog.Nop(), srv.URL, ""))
	result, err := tool.Execute(context.Background(), types.Params{"targetUrl": "https://example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Found 0 alerts for https://example.com", result.Text())
}

func TestExecute_PaginatesLongListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[` +
			`{"risk":"Low","name":"A","description":"d"},` +
			`{"risk":"Low","name":"B","description":"d"},` +
			`{"risk":"Low","name":"C","description":"d"}]}`))
	}))
	defer srv.Close()

	tool := New(zerolog.Nop(), zap.New(zerolog.Nop(), srv.URL, ""))
	result, err := tool.Execute(context.Background(), types.Params{
		"targetUrl": "https://example.com",
		"maxLines":  float64(2),
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Text(), "[Showing lines 1-2 of 3 lines.")
}

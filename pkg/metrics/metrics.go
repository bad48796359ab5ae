// Package metrics exposes Prometheus instrumentation for the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ToolInvocations counts dispatches by tool name and outcome
	// (success, error, invalid_params, not_found).
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapmcp_tool_invocations_total",
		Help: "Tool dispatches by tool name and outcome.",
	}, []string{"tool", "outcome"})

	// ActiveSessions tracks the number of live sessions in the store.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapmcp_active_sessions",
		Help: "Number of sessions currently held by the session store.",
	})

	// DuplexConnections tracks open websocket connections.
	DuplexConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapmcp_duplex_connections",
		Help: "Number of open duplex connections.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

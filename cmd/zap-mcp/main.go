package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/zapmcp/zap-mcp/pkg/broadcast"
	"github.com/zapmcp/zap-mcp/pkg/metrics"
	"github.com/zapmcp/zap-mcp/pkg/registry"
	"github.com/zapmcp/zap-mcp/pkg/server"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/storage"
	"github.com/zapmcp/zap-mcp/pkg/tools/alerts"
	"github.com/zapmcp/zap-mcp/pkg/tools/configure"
	"github.com/zapmcp/zap-mcp/pkg/tools/history"
	"github.com/zapmcp/zap-mcp/pkg/tools/report"
	"github.com/zapmcp/zap-mcp/pkg/tools/scan"
	"github.com/zapmcp/zap-mcp/pkg/tools/spider"
	"github.com/zapmcp/zap-mcp/pkg/transport"
	"github.com/zapmcp/zap-mcp/pkg/types"
	"github.com/zapmcp/zap-mcp/pkg/zap"
)

const (
	ServerName      = "zap-mcp"
	ServiceName     = "ZAP MCP Bridge Server"
	ShutdownTimeout = 10 * time.Second
)

//go:embed VERSION
var Version string

func main() {
	var (
		debug        bool
		bindAddr     string
		dbPath       string
		zapAPIURL    string
		zapAPIKey    string
		printVersion bool
	)
	flag.BoolVar(&debug, "debug", false, "debug mode")
	flag.StringVar(&bindAddr, "bind", "localhost:3000", "bind address (host:port)")
	flag.StringVar(&dbPath, "db", "build/zap-mcp.db", "SQLite database file path")
	flag.StringVar(&zapAPIURL, "zap-api", os.Getenv("ZAP_API_URL"), "ZAP API URL (empty for mock mode)")
	flag.StringVar(&zapAPIKey, "zap-key", os.Getenv("ZAP_API_KEY"), "ZAP API key")
	flag.BoolVar(&printVersion, "version", false, "print version and exit")
	flag.Parse()

	version := strings.TrimSpace(Version)
	if printVersion {
		fmt.Printf("%s Version: %s\n", ServiceName, version)
		os.Exit(0)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger.Debug().Msg("debug mode enabled")
	}

	// Initialize storage
	store, err := storage.NewSQLiteStorage(storage.Config{
		DatabasePath: dbPath,
		Debug:        debug,
	})
	if err != nil {
		logger.Fatal().Msgf("Failed to initialize storage: %v", err)
	}
	logger.Info().Msgf("Database initialized at %s", dbPath)

	sessions := session.NewStore(logger, session.Config{})
	go sessions.Run(signalCtx)

	events := broadcast.New()
	defer events.Close()

	zapClient := zap.New(logger, zapAPIURL, zapAPIKey)
	if !zapClient.Configured() {
		logger.Warn().Msg("no ZAP API URL configured, tools serve tagged mock data until `configure` is called")
	}

	reg := registry.New(logger, store)
	reg.OnRegister(func(meta types.ToolMetadata) {
		logger.Info().Str("tool", meta.Name).Bool("streaming", meta.Streaming).Msg("tool registered")
	})

	for _, tool := range []struct {
		name string
		err  error
	}{
		{"configure", reg.Register(configure.New(logger, zapClient))},
		{"spider_url", reg.Register(spider.New(logger, zapClient))},
		{"get_spider_status", reg.Register(spider.NewStatus(logger, zapClient))},
		{"start_scan", reg.Register(scan.New(logger, zapClient))},
		{"get_scan_status", reg.Register(scan.NewStatus(logger, zapClient))},
		{"get_alerts", reg.Register(alerts.New(logger, zapClient))},
		{"generate_report", reg.Register(report.New(logger, zapClient))},
		{"history", reg.Register(history.New(logger, store))},
	} {
		if tool.err != nil {
			logger.Fatal().Msgf("Failed to register tool %s: %v", tool.name, tool.err)
		}
	}

	// Static chain wiring: a spider crawl feeds an active scan, and a
	// completed active scan pulls the alert listing.
	if err := reg.Chain("spider_url", "start_scan", nil); err != nil {
		logger.Fatal().Msgf("Failed to wire chain: %v", err)
	}
	if err := reg.Chain("start_scan", "get_alerts", func(r *types.Result) bool { return !r.IsError }); err != nil {
		logger.Fatal().Msgf("Failed to wire chain: %v", err)
	}

	srv := server.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, logger, reg, sessions, store)
	srv.MountTools()

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return &srv.Server
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})

	httpFront := transport.NewHTTP(logger, reg, sessions, events, transport.ConfigFromEnv())
	wsFront := transport.NewWS(logger, reg, sessions, events)

	mux := http.NewServeMux()
	httpFront.Routes(mux)
	mux.HandleFunc("/ws", wsFront.Handle)
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"service": ServiceName,
			"version": version,
			"endpoints": map[string]string{
				"tools":    "/tools",
				"sessions": "/sessions",
				"health":   "/health",
				"ws":       "/ws",
				"mcp":      "/mcp",
				"metrics":  "/metrics",
			},
		})
	})

	httpServer := &http.Server{
		Addr:              bindAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Msgf("%s starting on address %s", ServiceName, bindAddr)

	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Msgf("%s failed to start: %v", ServerName, err)
		}
	}()
	<-signalCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Msgf("HTTP shutdown error: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Msgf("%s shutdown error: %v", ServiceName, err)
	} else {
		logger.Info().Msgf("%s shutdown complete", ServiceName)
	}
}

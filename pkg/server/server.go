// Package server mirrors the tool registry onto an official MCP server so
// MCP-native clients can call the same tools the bridge exposes over its
// own transports.
package server

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/zapmcp/zap-mcp/pkg/registry"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/storage"
	"github.com/zapmcp/zap-mcp/pkg/tools"
	"github.com/zapmcp/zap-mcp/pkg/types"
)

type Server struct {
	mcp.Server
	logger   zerolog.Logger
	registry *registry.Registry
	sessions *session.Store
	storage  storage.Storage
}

func NewServer(impl *mcp.Implementation, logger zerolog.Logger, reg *registry.Registry, sessions *session.Store, store storage.Storage) *Server {
	return &Server{
		Server:   *mcp.NewServer(impl, nil),
		logger:   logger.With().Str("component", "mcp").Logger(),
		registry: reg,
		sessions: sessions,
		storage:  store,
	}
}

func (s *Server) Registry() *registry.Registry {
	return s.registry
}

func (s *Server) Storage() storage.Storage {
	return s.storage
}

// MountTools registers every tool currently in the registry with the MCP
// server. Call after registration wiring is complete.
func (s *Server) MountTools() {
	for _, meta := range s.registry.ListMetadata() {
		name := meta.Name
		tool := &mcp.Tool{
			Name:        name,
			Description: meta.Description,
		}
		mcp.AddTool(&s.Server, tool, func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
			sessionID := ""
			if req.Session != nil {
				sessionID = req.Session.ID()
			}
			sess := s.sessions.Resolve(sessionID)

			result, err := s.registry.Dispatch(ctx, name, types.Params(input), &tools.ExecContext{Session: sess})
			if err != nil {
				return nil, nil, err
			}
			if result.IsError {
				return nil, nil, errors.New(result.Text())
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: result.Text()},
				},
			}, nil, nil
		})
		s.logger.Debug().Str("tool", name).Msg("tool mounted on MCP endpoint")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/zapmcp/zap-mcp/pkg/models"
	"github.com/zapmcp/zap-mcp/pkg/registry"
	"github.com/zapmcp/zap-mcp/pkg/session"
	"github.com/zapmcp/zap-mcp/pkg/storage"
)

func setupTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(storage.Config{
		DatabasePath: filepath.Join(t.TempDir(), "server-test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestServer(t *testing.T, store storage.Storage) *Server {
	t.Helper()
	impl := &mcp.Implementation{Name: "test-server", Version: "1.0.0"}
	reg := registry.New(zerolog.Nop(), store)
	sessions := session.NewStore(zerolog.Nop(), session.Config{})
	return NewServer(impl, zerolog.Nop(), reg, sessions, store)
}

func TestNewServer(t *testing.T) {
	store := setupTestStorage(t)
	srv := newTestServer(t, store)

	if srv == nil {
		t.Fatal("expected non-nil server")
	}
	if srv.Registry() == nil {
		t.Fatal("expected non-nil registry in server")
	}
	if srv.Storage() != store {
		t.Fatal("expected Storage() to return the store passed to NewServer")
	}
}

func TestServer_Storage(t *testing.T) {
	store := setupTestStorage(t)
	srv := newTestServer(t, store)

	ctx := context.Background()
	inv := &models.Invocation{ToolName: "test", Success: true}
	if err := srv.Storage().CreateInvocation(ctx, inv); err != nil {
		t.Fatalf("failed to use retrieved storage: %v", err)
	}
}

func TestServer_MountTools(t *testing.T) {
	store := setupTestStorage(t)
	srv := newTestServer(t, store)

	// Mounting an empty registry is a no-op; mounting never panics.
	srv.MountTools()
}

func TestServer_Shutdown(t *testing.T) {
	store := setupTestStorage(t)
	srv := newTestServer(t, store)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() returned error: %v", err)
	}
}

func TestServer_Shutdown_NilStorage(t *testing.T) {
	impl := &mcp.Implementation{Name: "test-server", Version: "1.0.0"}
	reg := registry.New(zerolog.Nop(), nil)
	sessions := session.NewStore(zerolog.Nop(), session.Config{})
	srv := NewServer(impl, zerolog.Nop(), reg, sessions, nil)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() with nil storage returned error: %v", err)
	}
}

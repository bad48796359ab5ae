package storage

import (
	"context"

	"github.com/zapmcp/zap-mcp/pkg/models"
)

type Storage interface {
	// Invocation history operations
	CreateInvocation(ctx context.Context, inv *models.Invocation) error
	GetInvocation(ctx context.Context, id uint) (*models.Invocation, error)
	ListInvocations(ctx context.Context, limit, offset int) ([]models.Invocation, int64, error)
	InvocationsBySession(ctx context.Context, sessionID string) ([]models.Invocation, error)
	InvocationsByTool(ctx context.Context, toolName string, limit int) ([]models.Invocation, error)
	DeleteInvocation(ctx context.Context, id uint) error
	ClearInvocations(ctx context.Context) error

	// Lifecycle
	Close() error
}

package storage

import (
	"context"
	"fmt"

	"github.com/zapmcp/zap-mcp/pkg/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type SQLiteStorage struct {
	db *gorm.DB
}

type Config struct {
	DatabasePath string
	Debug        bool
}

func NewSQLiteStorage(cfg Config) (*SQLiteStorage, error) {
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	database, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := database.AutoMigrate(&models.Invocation{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStorage{db: database}, nil
}

func (s *SQLiteStorage) CreateInvocation(ctx context.Context, inv *models.Invocation) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

func (s *SQLiteStorage) GetInvocation(ctx context.Context, id uint) (*models.Invocation, error) {
	var inv models.Invocation
	if err := s.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *SQLiteStorage) ListInvocations(ctx context.Context, limit, offset int) ([]models.Invocation, int64, error) {
	var invocations []models.Invocation
	var total int64

	s.db.WithContext(ctx).Model(&models.Invocation{}).Count(&total)

	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&invocations).Error
	return invocations, total, err
}

func (s *SQLiteStorage) InvocationsBySession(ctx context.Context, sessionID string) ([]models.Invocation, error) {
	var invocations []models.Invocation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&invocations).Error
	return invocations, err
}

func (s *SQLiteStorage) InvocationsByTool(ctx context.Context, toolName string, limit int) ([]models.Invocation, error) {
	var invocations []models.Invocation
	query := s.db.WithContext(ctx).
		Where("tool_name = ?", toolName).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&invocations).Error
	return invocations, err
}

func (s *SQLiteStorage) DeleteInvocation(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Invocation{}, id).Error
}

func (s *SQLiteStorage) ClearInvocations(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&models.Invocation{}).Error
}

func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

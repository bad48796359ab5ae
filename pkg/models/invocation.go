package models

import (
	"time"

	"gorm.io/gorm"
)

// Invocation is the persisted form of a tool invocation record. Session
// context keeps only the most recent records; the full history lives here.
type Invocation struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	SessionID    string         `gorm:"type:varchar(64);index" json:"session_id,omitempty"`
	ToolName     string         `gorm:"type:varchar(255);index;not null" json:"tool_name"`
	ParamsJSON   string         `gorm:"type:text" json:"params_json"`
	ResultJSON   string         `gorm:"type:text" json:"result_json,omitempty"`
	ErrorMessage string         `gorm:"type:text" json:"error_message,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
	Success      bool           `gorm:"index" json:"success"`
	Chained      bool           `json:"chained"`
}

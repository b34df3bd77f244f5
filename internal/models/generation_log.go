package models

import "time"

// Generation outcomes stored in GenerationLog.Status
const (
	GenerationAccepted = "accepted"
	GenerationRepaired = "repaired"
	GenerationFailed   = "failed"
)

// GenerationLog tracks every gateway call: token usage, cost and outcome
type GenerationLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	RequestID    string    `gorm:"index" json:"request_id"`
	BulkRunID    string    `gorm:"index" json:"bulk_run_id,omitempty"`
	ItemID       string    `json:"item_id,omitempty"`
	Model        string    `gorm:"not null" json:"model"`
	Provider     string    `json:"provider"`
	InputTokens  int       `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens int       `gorm:"not null;default:0" json:"output_tokens"`
	TotalTokens  int       `gorm:"not null;default:0" json:"total_tokens"`
	CostUSD      float64   `gorm:"not null;default:0" json:"cost_usd"`
	DurationMS   int64     `gorm:"not null" json:"duration_ms"`
	Status       string    `gorm:"not null;index;size:20" json:"status"`
	ErrorKind    string    `gorm:"size:40" json:"error_kind,omitempty"`
	ErrorCode    string    `gorm:"size:40" json:"error_code,omitempty"`
	Notes        string    `gorm:"type:text" json:"notes,omitempty"` // repair notes, one per line
}

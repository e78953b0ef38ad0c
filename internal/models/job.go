package models

import "time"

// PurgeJob asks a worker to remove every converter artifact of a user.
type PurgeJob struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Error     string    `json:"error,omitempty"`
}

type ConversionEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Format     string    `json:"format"`
	Files      int       `json:"files"`
	Failed     int       `json:"failed"`
	CacheHit   bool      `json:"cache_hit"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const EventConversionCompleted = "conversion.completed"

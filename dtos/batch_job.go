package dtos

import (
	"time"

	"github.com/google/uuid"
)

// BatchJob represents a batch book import job status
type BatchJob struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`   // pending, processing, completed, failed
	Progress    int        `json:"progress"` // 0-100 percentage
	Total       int        `json:"total"`
	Processed   int        `json:"processed"`
	Created     int        `json:"created"`
	Updated     int        `json:"updated"`
	Failed      int        `json:"failed"`
	Errors      []JobError `json:"errors"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// JobError represents a single error in a batch job
type JobError struct {
	Row    int               `json:"row"`    // Position in the submitted list
	Book   string            `json:"book"`   // Book title
	Fields map[string]string `json:"fields"` // Field -> Error message
}

// JobStatus constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

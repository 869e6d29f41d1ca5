// Package types holds the JSON bodies exchanged with the HTTP API.
package types

import "time"

// CreateTaskRequest represents a request to add a task
type CreateTaskRequest struct {
	Task   string `json:"task" binding:"required"`
	IsDone bool   `json:"isDone"`
}

// UpdateTaskRequest represents the full task written by an update. CreatedAt
// is only used when the id does not exist yet.
type UpdateTaskRequest struct {
	Task      string    `json:"task" binding:"required"`
	IsDone    bool      `json:"isDone"`
	CreatedAt time.Time `json:"createdAt"`
}

// PromptRequest represents the body of a prompt upsert
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// StatusResponse acknowledges a write that returns no record
type StatusResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id,omitempty"`
	Slug   string `json:"slug,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Database  string    `json:"database"`
}

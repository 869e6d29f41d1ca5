//go:build integration
// +build integration

package integration

import "time"

// Task mirrors the task record returned by the server
type Task struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	IsDone    bool      `json:"isDone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prompt mirrors the prompt record returned by the server
type Prompt struct {
	Slug   string `json:"slug"`
	Prompt string `json:"prompt"`
}

// Toaster mirrors the notification configuration
type Toaster struct {
	Duration  int    `json:"duration"`
	Placement string `json:"placement"`
}

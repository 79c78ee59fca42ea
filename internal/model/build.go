package model

import "time"

// Build is one completed build record retained in the history store.
type Build struct {
	ID         string        `json:"id"`
	Project    string        `json:"project"`
	NodeName   string        `json:"node_name"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration,omitempty"`
}

package model

import "time"

// Task represents a project whose builds are scheduled onto pool nodes.
type Task struct {
	// Name is the display name of the project and the key under which its
	// build history is retained.
	Name string `json:"name"`

	// Label is the assigned pool label. Empty means the task is unlabeled
	// and may only run on nodes outside every pool.
	Label string `json:"label,omitempty"`

	// LastBuiltOn is the name of the node the last build ran on. Empty when
	// the project has never built or the node has since been removed or
	// renamed.
	LastBuiltOn string `json:"last_built_on,omitempty"`
}

// QueueItem is one buildable task waiting in the host's queue.
type QueueItem struct {
	Task           *Task     `json:"task"`
	BuildableSince time.Time `json:"buildable_since"`
}

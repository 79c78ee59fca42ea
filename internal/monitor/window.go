package monitor

import "github.com/t77yq/fairsched/internal/model"

// Window is a fixed-capacity FIFO of SLA entries for one pool. Once full,
// pushing a new entry evicts the oldest. Only the tracker's cycle mutates a
// window; readers get copies via Snapshot.
type Window struct {
	entries []model.SLAEntry
	head    int
	size    int
}

// NewWindow creates a window holding at most capacity entries.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{entries: make([]model.SLAEntry, capacity)}
}

// Push appends an entry, evicting the oldest one once at capacity.
func (w *Window) Push(entry model.SLAEntry) {
	if w.size == len(w.entries) {
		w.entries[w.head] = entry
		w.head = (w.head + 1) % len(w.entries)
		return
	}
	w.entries[(w.head+w.size)%len(w.entries)] = entry
	w.size++
}

// Len returns the number of retained entries.
func (w *Window) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.entries)
}

// Snapshot returns a copy of the retained entries, oldest first.
func (w *Window) Snapshot() []model.SLAEntry {
	entries := make([]model.SLAEntry, w.size)
	for i := 0; i < w.size; i++ {
		entries[i] = w.entries[(w.head+i)%len(w.entries)]
	}
	return entries
}

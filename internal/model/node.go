package model

// Node represents one worker in the shared pool. The host scheduler owns the
// node state; this package only reads it.
type Node struct {
	Name          string   `json:"name"`
	Online        bool     `json:"online"`
	Executors     int      `json:"executors"`
	IdleExecutors int      `json:"idle_executors"`
	Labels        []string `json:"labels,omitempty"`
}

// AssignedLabels returns the node's pool labels plus the implicit self-named
// label the host assigns to every node.
func (n *Node) AssignedLabels() []string {
	labels := make([]string, 0, len(n.Labels)+1)
	labels = append(labels, n.Name)
	labels = append(labels, n.Labels...)
	return labels
}

// HasLabel reports whether the node carries the given label, including the
// implicit self-named one.
func (n *Node) HasLabel(label string) bool {
	if label == n.Name {
		return true
	}
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// SelfLabeledOnly reports whether the node's only label is its own name,
// meaning it belongs to no real pool.
func (n *Node) SelfLabeledOnly() bool {
	return len(n.Labels) == 0
}

// Idle reports whether every executor on the node is idle.
func (n *Node) Idle() bool {
	return n.Executors > 0 && n.IdleExecutors == n.Executors
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	copied := *n
	if n.Labels != nil {
		copied.Labels = append([]string(nil), n.Labels...)
	}
	return &copied
}

package model

// Decision is an admission verdict for one (node, task) pair.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a decision with no objection.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Block returns a decision that rejects the node with the given cause.
func Block(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

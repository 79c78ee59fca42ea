package dispatch

import (
	"context"

	"github.com/t77yq/fairsched/internal/model"
)

// Cluster is the slice of host state the decision engine reads.
// Implementations own their own synchronization; every call returns fresh
// data.
type Cluster interface {
	// Nodes returns all known nodes.
	Nodes() []*model.Node

	// Node resolves a node by name. Returns false if the node has been
	// removed or renamed.
	Node(name string) (*model.Node, bool)

	// NodesForLabel returns the nodes currently carrying the label.
	NodesForLabel(label string) []*model.Node

	// CanTake is the node's own native admission check.
	CanTake(node *model.Node, task *model.Task) model.Decision
}

// History exposes the retained build records of a project.
type History interface {
	BuildsFor(ctx context.Context, project string) ([]*model.Build, error)
}

// Dispatcher is the admission callback the host's load-balancing loop probes
// once per (node, task) candidate pair. Implementations must be safe to call
// at arbitrary frequency and concurrency.
type Dispatcher interface {
	CanTake(ctx context.Context, node *model.Node, task *model.Task) model.Decision
}

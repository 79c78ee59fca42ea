package dispatch

import "github.com/t77yq/fairsched/internal/model"

// idleNodesForLabel lists the nodes that could start the task right now:
// online, fully idle, at least one executor, and carrying the task's label.
// Unlabeled tasks get an empty result since this enumeration only applies to
// pooled tasks.
func (e *Engine) idleNodesForLabel(task *model.Task) []*model.Node {
	if task.Label == "" {
		return nil
	}

	var idle []*model.Node
	for _, node := range e.cluster.Nodes() {
		if node.HasLabel(task.Label) &&
			node.Online &&
			node.Idle() &&
			node.Executors > 0 {
			idle = append(idle, node)
		}
	}
	return idle
}

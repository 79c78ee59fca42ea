package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/model"
)

// Engine assigns builds to nodes in a fair manner, best-effort. When the
// heuristics cannot establish a preferred node, the verdict degrades to the
// node's own native admission check rather than failing: a fault from this
// path would make the host mark the probed node as unhealthy, which is the
// one outcome this layer must never cause.
//
// The engine holds no state of its own. Every call recomputes the usage
// histogram and the idle node set, trading CPU for always-fresh fairness
// data.
type Engine struct {
	logger  *zap.Logger
	cluster Cluster
	history History
}

// NewEngine creates a decision engine over the given host state and build
// history. history may be nil, in which case the usage heuristics are
// skipped and only the remaining rules apply.
func NewEngine(cluster Cluster, history History, logger *zap.Logger) *Engine {
	return &Engine{
		logger:  logger.Named("fair-dispatch"),
		cluster: cluster,
		history: history,
	}
}

// CanTake decides whether the candidate node may accept the task right now.
// The rules, evaluated in order:
//
//  1. unlabeled task on a node with no pool membership: obey the node's
//     native check
//  2. unlabeled task on a pooled node: block, pooled capacity is reserved
//     for pooled tasks
//  3. the candidate is the only idle node in the pool: allow regardless of
//     the other heuristics
//  4. usage history exists: allow only the least-used node; if no least-used
//     node can be determined, fall back to the native check
//  5. no usage history: block the node the task last built on, allow any
//     other
func (e *Engine) CanTake(ctx context.Context, node *model.Node, task *model.Task) model.Decision {
	if node == nil || task == nil {
		// nothing to decide here
		return model.Allow()
	}

	if task.Label == "" {
		if node.SelfLabeledOnly() {
			decision := e.cluster.CanTake(node, task)
			e.logger.Debug("Node has no label other than its name, obeying configuration",
				zap.String("task", task.Name),
				zap.String("node", node.Name),
				zap.Bool("allowed", decision.Allowed))
			return decision
		}
		e.logger.Debug("Unlabeled task not allowed on pooled node",
			zap.String("task", task.Name),
			zap.String("node", node.Name))
		return model.Block(fmt.Sprintf("node %s is reserved for pooled tasks", node.Name))
	}

	usage := e.buildUsage(ctx, task)
	idle := e.idleNodesForLabel(task)

	if len(idle) == 1 && idle[0].Name == node.Name {
		// overriding decision: with a single node available the pool must
		// not be starved, take it regardless of the other heuristics
		e.logger.Debug("Only one idle node in pool, overriding heuristics",
			zap.String("task", task.Name),
			zap.String("node", node.Name))
		return model.Allow()
	}

	if len(usage) > 0 && usage.Total() > 0 {
		best := e.leastUsed(usage)
		if best == nil {
			// no node in the histogram has an idle executor right now
			decision := e.cluster.CanTake(node, task)
			e.logger.Debug("No least-used node found, falling back to native check",
				zap.String("task", task.Name),
				zap.String("node", node.Name),
				zap.Bool("allowed", decision.Allowed))
			return decision
		}
		if best.Name == node.Name {
			e.logger.Debug("Candidate is the least used node, allowing",
				zap.String("task", task.Name),
				zap.String("node", node.Name))
			return model.Allow()
		}
		e.logger.Debug("Candidate is not the least used node, rejecting",
			zap.String("task", task.Name),
			zap.String("node", node.Name),
			zap.String("least_used", best.Name))
		return model.Block(fmt.Sprintf("node %s is busy, %s has fewer builds", node.Name, best.Name))
	}

	if task.LastBuiltOn != "" && task.LastBuiltOn == node.Name {
		e.logger.Debug("Task last built on this node, rejecting",
			zap.String("task", task.Name),
			zap.String("node", node.Name))
		return model.Block(fmt.Sprintf("node %s ran the last build of %s", node.Name, task.Name))
	}

	e.logger.Debug("Task did not last build on this node, allowing",
		zap.String("task", task.Name),
		zap.String("node", node.Name))
	return model.Allow()
}

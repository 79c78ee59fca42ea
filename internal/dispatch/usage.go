package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/model"
)

// UsageHistogram maps node name to the count of a project's retained builds
// that ran there. It is scoped to one task and rebuilt on every decision
// call, since node eligibility can change at any moment.
type UsageHistogram map[string]int

// Total returns the sum of build counts across all nodes in the histogram.
func (h UsageHistogram) Total() int {
	sum := 0
	for _, count := range h {
		sum += count
	}
	return sum
}

// buildUsage derives the usage histogram for a task from its build history.
//
// The histogram excludes nodes that currently cannot take the task, even if
// they ran it in the past. Without that exclusion the selector would wait
// forever for an ideal node that is no longer configured to serve the pool.
// Builds whose node has been removed or renamed cannot be attributed and are
// skipped. Returns nil when the history cannot be read at all.
func (e *Engine) buildUsage(ctx context.Context, task *model.Task) UsageHistogram {
	if e.history == nil {
		return nil
	}

	usage := make(UsageHistogram)
	for _, member := range e.cluster.NodesForLabel(task.Label) {
		usage[member.Name] = 0
	}

	builds, err := e.history.BuildsFor(ctx, task.Name)
	if err != nil {
		e.logger.Debug("Build history unavailable",
			zap.String("task", task.Name),
			zap.Error(err))
		return nil
	}

	for _, build := range builds {
		node, ok := e.cluster.Node(build.NodeName)
		if !ok || node == nil {
			// node removed or renamed, the build is unattributable
			continue
		}
		if decision := e.cluster.CanTake(node, task); !decision.Allowed {
			e.logger.Debug("Node in build history cannot take task now",
				zap.String("task", task.Name),
				zap.String("node", node.Name),
				zap.String("reason", decision.Reason))
			continue
		}
		// a node used historically but no longer a configured member still
		// counts, so fairness accounts for the capacity it consumed
		usage[node.Name]++
	}

	return usage
}

package dispatch

import (
	"sort"

	"github.com/t77yq/fairsched/internal/model"
)

// leastUsed finds the least frequently used node in the histogram among
// nodes that are online with at least one idle executor. Ties go to the
// lexicographically lowest node name, which keeps the winner stable across
// runs (map iteration order would otherwise decide). Returns nil when no
// node in the histogram is eligible.
func (e *Engine) leastUsed(usage UsageHistogram) *model.Node {
	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)

	var selected *model.Node
	var minimum int
	for _, name := range names {
		node, ok := e.cluster.Node(name)
		if !ok || node == nil || !node.Online || node.IdleExecutors == 0 {
			continue
		}
		if count := usage[name]; selected == nil || count < minimum {
			selected = node
			minimum = count
		}
	}
	return selected
}

package cluster

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/model"
)

// State is an in-memory rendition of the host scheduler's node and queue
// state. The real host owns this data; State stands in for it in the demo
// binary and in tests. All methods are safe for concurrent use, and node
// accessors return copies so callers never observe in-place mutation.
type State struct {
	logger *zap.Logger
	mu     sync.RWMutex
	nodes  map[string]*model.Node
	queue  []*model.QueueItem
}

// NewState creates an empty cluster state.
func NewState(logger *zap.Logger) *State {
	return &State{
		logger: logger.Named("cluster"),
		nodes:  make(map[string]*model.Node),
	}
}

// AddNode registers a new node.
func (s *State) AddNode(node *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.Name]; exists {
		return fmt.Errorf("node %s already registered", node.Name)
	}
	s.nodes[node.Name] = node.Clone()

	s.logger.Info("Node registered",
		zap.String("node", node.Name),
		zap.Strings("labels", node.Labels))

	return nil
}

// RemoveNode unregisters a node. Builds recorded on it become unattributable.
func (s *State) RemoveNode(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[name]; exists {
		delete(s.nodes, name)
		s.logger.Info("Node removed", zap.String("node", name))
	}
}

// Node returns a copy of the named node, or false if it no longer exists.
func (s *State) Node(name string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[name]
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

// Nodes returns copies of all known nodes, sorted by name.
func (s *State) Nodes() []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*model.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

// NodesForLabel returns copies of the nodes carrying the given label.
func (s *State) NodesForLabel(label string) []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*model.Node
	for _, node := range s.nodes {
		if node.HasLabel(label) {
			members = append(members, node.Clone())
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

// Labels returns every known label, including the implicit self-named label
// of each node, sorted.
func (s *State) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, node := range s.nodes {
		for _, label := range node.AssignedLabels() {
			seen[label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// IsTruePool reports whether the label names a real, user-defined pool. The
// host assigns every node its own name as a default label; a label whose only
// member is the node of the same name is that synthetic label, not a pool.
func (s *State) IsTruePool(label string) bool {
	members := s.NodesForLabel(label)
	if len(members) == 0 {
		return false
	}
	return !(len(members) == 1 && members[0].Name == label)
}

// CanTake is the node's own native admission check: configuration-level
// eligibility without any fairness heuristics.
func (s *State) CanTake(node *model.Node, task *model.Task) model.Decision {
	if node == nil || task == nil {
		return model.Allow()
	}
	if !node.Online {
		return model.Block(fmt.Sprintf("node %s is offline", node.Name))
	}
	if node.Executors == 0 {
		return model.Block(fmt.Sprintf("node %s has no executors", node.Name))
	}
	if task.Label != "" && !node.HasLabel(task.Label) {
		return model.Block(fmt.Sprintf("node %s does not have label %s", node.Name, task.Label))
	}
	return model.Allow()
}

// MarkBusy occupies one executor on the named node.
func (s *State) MarkBusy(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node, ok := s.nodes[name]; ok && node.IdleExecutors > 0 {
		node.IdleExecutors--
	}
}

// MarkIdle releases one executor on the named node.
func (s *State) MarkIdle(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node, ok := s.nodes[name]; ok && node.IdleExecutors < node.Executors {
		node.IdleExecutors++
	}
}

// SetOnline flips the online state of the named node.
func (s *State) SetOnline(name string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node, ok := s.nodes[name]; ok {
		node.Online = online
	}
}

// Enqueue adds a task to the build queue and returns its queue item.
func (s *State) Enqueue(task *model.Task) *model.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &model.QueueItem{Task: task, BuildableSince: time.Now()}
	s.queue = append(s.queue, item)
	return item
}

// EnqueueAt adds a task that has been buildable since the given instant.
func (s *State) EnqueueAt(task *model.Task, since time.Time) *model.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := &model.QueueItem{Task: task, BuildableSince: since}
	s.queue = append(s.queue, item)
	return item
}

// Dequeue removes a queue item.
func (s *State) Dequeue(item *model.QueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, queued := range s.queue {
		if queued == item {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// BuildableItems returns the tasks currently waiting in the queue.
func (s *State) BuildableItems() []*model.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*model.QueueItem, len(s.queue))
	copy(items, s.queue)
	return items
}

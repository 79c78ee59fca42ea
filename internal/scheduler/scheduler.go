package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/cluster"
	"github.com/t77yq/fairsched/internal/dispatch"
	"github.com/t77yq/fairsched/internal/history"
	"github.com/t77yq/fairsched/internal/model"
)

// Scheduler is a minimal host-side dispatch loop. It drains the build queue
// one task at a time, probes candidate nodes with the admission callback,
// and runs each build on the first admitted node. The fairness layer proper
// lives in the dispatch package; this loop is its reference consumer and the
// harness the fairness scenarios execute against.
type Scheduler struct {
	logger    *zap.Logger
	state     *cluster.State
	admission dispatch.Dispatcher
	history   history.Store
}

// New creates a scheduler over the given cluster state.
func New(state *cluster.State, admission dispatch.Dispatcher, store history.Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:    logger.Named("scheduler"),
		state:     state,
		admission: admission,
		history:   store,
	}
}

// RunBuild schedules one build of the task and blocks until it completes.
// The build lands on the first candidate node, in name order, that passes
// both the native check and the admission callback.
func (s *Scheduler) RunBuild(ctx context.Context, task *model.Task) (*model.Build, error) {
	item := s.state.Enqueue(task)
	defer s.state.Dequeue(item)

	node := s.pickNode(ctx, task)
	if node == nil {
		s.logger.Warn("No node admitted for task", zap.String("task", task.Name))
		return nil, ErrNoNodeAvailable
	}

	started := time.Now()
	s.state.MarkBusy(node.Name)
	defer s.state.MarkIdle(node.Name)

	finished := time.Now()
	build := &model.Build{
		ID:         uuid.New().String(),
		Project:    task.Name,
		NodeName:   node.Name,
		EnqueuedAt: item.BuildableSince,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}

	if err := s.history.Append(ctx, build); err != nil {
		return nil, err
	}
	task.LastBuiltOn = node.Name

	s.logger.Debug("Build completed",
		zap.String("task", task.Name),
		zap.String("node", node.Name),
		zap.String("build_id", build.ID))

	return build, nil
}

// pickNode probes candidate nodes in name order with the admission callback,
// the way the host's load balancer probes each (node, task) pair.
func (s *Scheduler) pickNode(ctx context.Context, task *model.Task) *model.Node {
	for _, node := range s.state.Nodes() {
		if !node.Online || node.IdleExecutors == 0 {
			continue
		}
		if native := s.state.CanTake(node, task); !native.Allowed {
			continue
		}
		if decision := s.admission.CanTake(ctx, node, task); decision.Allowed {
			return node
		}
	}
	return nil
}

package history

import (
	"context"
	"sync"
	"time"

	"github.com/t77yq/fairsched/internal/model"
)

// MemoryStore is an in-memory Store for tests and single-process demos.
type MemoryStore struct {
	mu     sync.RWMutex
	builds map[string][]*model.Build
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{builds: make(map[string][]*model.Build)}
}

// Append implements Store.Append.
func (s *MemoryStore) Append(ctx context.Context, build *model.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.builds[build.Project] = append(s.builds[build.Project], build)
	return nil
}

// BuildsFor implements Store.BuildsFor.
func (s *MemoryStore) BuildsFor(ctx context.Context, project string) ([]*model.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.builds[project]
	builds := make([]*model.Build, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		builds = append(builds, records[i])
	}
	return builds, nil
}

// DeleteBefore implements Store.DeleteBefore.
func (s *MemoryStore) DeleteBefore(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for project, records := range s.builds {
		kept := records[:0]
		for _, build := range records {
			if !build.FinishedAt.Before(before) {
				kept = append(kept, build)
			}
		}
		s.builds[project] = kept
	}
	return nil
}

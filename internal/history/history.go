package history

import (
	"context"
	"time"

	"github.com/t77yq/fairsched/internal/model"
)

// Store retains per-project build records. The usage histogram is derived on
// demand from these records; nothing else in the fairness layer persists
// state.
type Store interface {
	// Append stores one completed build record.
	Append(ctx context.Context, build *model.Build) error

	// BuildsFor retrieves the retained builds of a project, newest first.
	BuildsFor(ctx context.Context, project string) ([]*model.Build, error)

	// DeleteBefore deletes records that finished before the given time.
	DeleteBefore(ctx context.Context, before time.Time) error
}

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/t77yq/fairsched/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed build history at dbPath.
func NewSQLiteStore(logger *zap.Logger, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		logger: logger,
		db:     db,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS build_history (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL,
			node_name TEXT NOT NULL,
			enqueued_at DATETIME NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			duration INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_build_history_project ON build_history(project);
		CREATE INDEX IF NOT EXISTS idx_build_history_node_name ON build_history(node_name);
		CREATE INDEX IF NOT EXISTS idx_build_history_started_at ON build_history(started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Append implements Store.Append.
func (s *SQLiteStore) Append(ctx context.Context, build *model.Build) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO build_history (
			id, project, node_name, enqueued_at, started_at, finished_at, duration
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		build.ID,
		build.Project,
		build.NodeName,
		build.EnqueuedAt,
		build.StartedAt,
		build.FinishedAt,
		sql.NullInt64{Int64: int64(build.Duration), Valid: build.Duration != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to store build record: %w", err)
	}
	return nil
}

// BuildsFor implements Store.BuildsFor.
func (s *SQLiteStore) BuildsFor(ctx context.Context, project string) ([]*model.Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, node_name, enqueued_at, started_at, finished_at, duration
		FROM build_history
		WHERE project = ?
		ORDER BY started_at DESC`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list build history: %w", err)
	}
	defer rows.Close()

	var builds []*model.Build
	for rows.Next() {
		build := &model.Build{}
		var durationNanos sql.NullInt64

		err := rows.Scan(
			&build.ID,
			&build.Project,
			&build.NodeName,
			&build.EnqueuedAt,
			&build.StartedAt,
			&build.FinishedAt,
			&durationNanos,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build record: %w", err)
		}

		if durationNanos.Valid {
			build.Duration = time.Duration(durationNanos.Int64)
		}

		builds = append(builds, build)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return builds, nil
}

// DeleteBefore implements Store.DeleteBefore.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, before time.Time) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM build_history WHERE finished_at < ?", before)
	if err != nil {
		return fmt.Errorf("failed to delete build history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Deleted old build records",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

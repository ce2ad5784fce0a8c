package engineadapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// SQLTaskStore persists background-task status rows in the tool_tasks table.
// Works against any database/sql driver with SQLite semantics; the default
// wiring uses libsql.
type SQLTaskStore struct {
	db *sql.DB
}

// NewSQLTaskStore wraps an open database handle. The tool_tasks table must
// already exist (the db package migrates it at startup).
func NewSQLTaskStore(db *sql.DB) *SQLTaskStore {
	return &SQLTaskStore{db: db}
}

// SaveTask inserts the initial row for a scheduled task.
func (s *SQLTaskStore) SaveTask(ctx context.Context, rec engineports.TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_tasks (id, agent_id, tool, state, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, rec.Tool, string(rec.State), rec.Detail,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateTaskState advances a task through its lifecycle.
func (s *SQLTaskStore) UpdateTaskState(ctx context.Context, id string, state engineports.TaskState, detail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tool_tasks SET state = ?, detail = ?, updated_at = ? WHERE id = ?`,
		string(state), detail, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %s: not found", id)
	}
	return nil
}

// GetTask fetches one task row.
func (s *SQLTaskStore) GetTask(ctx context.Context, id string) (engineports.TaskRecord, error) {
	var rec engineports.TaskRecord
	var state, created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, tool, state, detail, created_at, updated_at
		FROM tool_tasks WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.AgentID, &rec.Tool, &state, &rec.Detail, &created, &updated)
	if err != nil {
		return engineports.TaskRecord{}, fmt.Errorf("get task %s: %w", id, err)
	}
	rec.State = engineports.TaskState(state)
	if t, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
		rec.CreatedAt = t
	}
	if t, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

var _ engineports.TaskStore = (*SQLTaskStore)(nil)

package engineports

import (
	"context"
	"time"
)

// TaskState tracks a fire-and-forget unit through its lifecycle.
type TaskState string

const (
	TaskScheduled TaskState = "scheduled"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// TaskRecord is the status-store row for one background unit of work. It is
// the only way the outcome of a fire-and-forget invocation can be observed.
type TaskRecord struct {
	ID        string
	AgentID   string
	Tool      string
	State     TaskState
	Detail    string // short error message for failed tasks
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskStore persists background-task status as a side channel external to the
// conversation flow.
type TaskStore interface {
	SaveTask(ctx context.Context, rec TaskRecord) error
	UpdateTaskState(ctx context.Context, id string, state TaskState, detail string) error
	GetTask(ctx context.Context, id string) (TaskRecord, error)
}

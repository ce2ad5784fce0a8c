package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

// TaskFunc is the unit of work a background task runs to completion.
type TaskFunc func(ctx context.Context) engineports.Outcome

// TaskRunner detaches work from the conversation turn. Scheduling never
// blocks the caller; outcomes are observable only through the task store and
// logs, never through the dispatch path that scheduled them.
type TaskRunner struct {
	store  engineports.TaskStore
	tracer engineports.Tracer
	logger zerolog.Logger
	wg     conc.WaitGroup
	active atomic.Int64
}

// NewTaskRunner builds a runner. store and tracer may be nil; status writes
// and spans are then skipped.
func NewTaskRunner(store engineports.TaskStore, tracer engineports.Tracer, logger zerolog.Logger) *TaskRunner {
	return &TaskRunner{store: store, tracer: tracer, logger: logger}
}

// Active reports the number of tasks currently scheduled or running.
func (r *TaskRunner) Active() int64 { return r.active.Load() }

// Wait blocks until every scheduled task has finished. Intended for agent
// shutdown and tests.
func (r *TaskRunner) Wait() { r.wg.Wait() }

// Schedule records the task and runs fn on a fresh goroutine with a detached
// context, so cancellation of the originating turn cannot kill it. Panics in
// fn are contained and recorded as failures.
func (r *TaskRunner) Schedule(taskID, agentID, tool string, fn TaskFunc) {
	now := time.Now().UTC()
	r.saveState(engineports.TaskRecord{
		ID: taskID, AgentID: agentID, Tool: tool,
		State: engineports.TaskScheduled, CreatedAt: now, UpdatedAt: now,
	})
	r.active.Add(1)

	r.wg.Go(func() {
		defer r.active.Add(-1)
		ctx := context.Background()

		var endSpan func(error)
		if r.tracer != nil {
			ctx, endSpan = r.tracer.StartSpan(ctx, "background.task", map[string]any{
				"task_id": taskID,
				"tool":    tool,
			})
		}

		r.updateState(ctx, taskID, engineports.TaskRunning, "")

		var outcome engineports.Outcome
		recovered := panics.Try(func() {
			outcome = fn(ctx)
		})
		if recovered != nil {
			outcome = engineports.Outcome{
				Status:  engineports.StatusError,
				Kind:    KindBackground,
				Message: "background task panicked",
			}
			r.logger.Error().
				Str("task_id", taskID).
				Str("tool", tool).
				Str("panic", recovered.String()).
				Msg("background task panicked")
		}

		if outcome.Status == engineports.StatusError {
			r.updateState(ctx, taskID, engineports.TaskFailed, outcome.Message)
			r.logger.Warn().
				Str("task_id", taskID).
				Str("tool", tool).
				Str("kind", outcome.Kind).
				Str("message", outcome.Message).
				Msg("background task failed")
		} else {
			r.updateState(ctx, taskID, engineports.TaskCompleted, "")
			r.logger.Debug().
				Str("task_id", taskID).
				Str("tool", tool).
				Msg("background task completed")
		}
		if endSpan != nil {
			if outcome.Status == engineports.StatusError {
				endSpan(&Error{Kind: KindBackground, Message: outcome.Message})
			} else {
				endSpan(nil)
			}
		}
	})
}

// Status writes are best effort. A broken store must not take the task down
// with it.
func (r *TaskRunner) saveState(rec engineports.TaskRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveTask(context.Background(), rec); err != nil {
		r.logger.Warn().Err(err).Str("task_id", rec.ID).Msg("task status write failed")
	}
}

func (r *TaskRunner) updateState(ctx context.Context, id string, state engineports.TaskState, detail string) {
	if r.store == nil {
		return
	}
	if err := r.store.UpdateTaskState(ctx, id, state, detail); err != nil {
		r.logger.Warn().Err(err).Str("task_id", id).Msg("task status write failed")
	}
}

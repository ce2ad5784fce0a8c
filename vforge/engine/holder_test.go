package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceforge/voiceforge/vforge/agentdef"
	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

func cityValidator(t *testing.T) *ArgumentValidator {
	t.Helper()
	raw, err := GenerateSchema([]agentdef.ArgumentSpec{
		{Name: "city", Type: "string", Required: true},
	})
	require.NoError(t, err)
	v, err := NewArgumentValidator(raw)
	require.NoError(t, err)
	return v
}

func invocation(name string, args map[string]any) *engineports.Invocation {
	return &engineports.Invocation{
		ID:        "inv-1",
		Tool:      name,
		Args:      args,
		StartedAt: time.Now(),
	}
}

func TestHolderValidatesBeforeRunning(t *testing.T) {
	var ran atomic.Int32
	h := NewHolder(HolderOptions{
		Spec:      engineports.ToolSpec{Name: "get_weather"},
		Validator: cityValidator(t),
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			ran.Add(1)
			return "sunny", nil
		},
		Wait:   true,
		Logger: zerolog.Nop(),
	})

	out := h.Invoke(context.Background(), invocation("get_weather", map[string]any{"wrong": 1}))
	assert.Equal(t, engineports.StatusError, out.Status)
	assert.Equal(t, KindArgument, out.Kind)
	assert.EqualValues(t, 0, ran.Load(), "body must not run on invalid args")

	out = h.Invoke(context.Background(), invocation("get_weather", map[string]any{"city": "Berlin"}))
	assert.Equal(t, engineports.StatusSuccess, out.Status)
	assert.Equal(t, "sunny", out.Payload)
	assert.EqualValues(t, 1, ran.Load())
}

func TestHolderContainsPanics(t *testing.T) {
	h := NewHolder(HolderOptions{
		Spec: engineports.ToolSpec{Name: "boom"},
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			panic("unexpected")
		},
		Wait:   true,
		Logger: zerolog.Nop(),
	})
	out := h.Invoke(context.Background(), invocation("boom", nil))
	assert.Equal(t, engineports.StatusError, out.Status)
	assert.Equal(t, KindExecution, out.Kind)
}

func TestHolderErrorsBecomeOutcomes(t *testing.T) {
	h := NewHolder(HolderOptions{
		Spec: engineports.ToolSpec{Name: "fails"},
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			return nil, httpErrf("HTTP 502: bad gateway")
		},
		Wait:   true,
		Logger: zerolog.Nop(),
	})
	out := h.Invoke(context.Background(), invocation("fails", nil))
	assert.Equal(t, engineports.StatusError, out.Status)
	assert.Equal(t, KindHTTP, out.Kind)
	assert.Contains(t, out.Message, "502")
}

func TestHolderDetachesWhenNotWaiting(t *testing.T) {
	store := newMemTaskStore()
	runner := NewTaskRunner(store, nil, zerolog.Nop())
	release := make(chan struct{})

	h := NewHolder(HolderOptions{
		Spec: engineports.ToolSpec{Name: "slow_sync"},
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			<-release
			return "late", nil
		},
		Wait:    false,
		Runner:  runner,
		AgentID: "agent-1",
		Logger:  zerolog.Nop(),
	})

	start := time.Now()
	out := h.Invoke(context.Background(), invocation("slow_sync", nil))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, engineports.StatusSuccess, out.Status)

	payload := out.Payload.(map[string]any)
	assert.Equal(t, "slow_sync started in background", payload["message"])
	assert.Equal(t, "inv-1", payload["task_id"])

	close(release)
	runner.Wait()
	rec, _ := store.GetTask(context.Background(), "inv-1")
	assert.Equal(t, engineports.TaskCompleted, rec.State)
}

func TestBackgroundHolderAcknowledgesImmediately(t *testing.T) {
	store := newMemTaskStore()
	runner := NewTaskRunner(store, nil, zerolog.Nop())
	release := make(chan struct{})

	h := NewBackgroundHolder(HolderOptions{
		Spec:      engineports.ToolSpec{Name: "log_event"},
		Validator: cityValidator(t),
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			<-release
			return nil, httpErrf("HTTP 500: downstream down")
		},
		Ack:     "event recorded",
		Runner:  runner,
		AgentID: "agent-1",
		Logger:  zerolog.Nop(),
	})

	out := h.Invoke(context.Background(), invocation("log_event", map[string]any{"city": "Berlin"}))
	assert.Equal(t, engineports.StatusSuccess, out.Status)
	payload := out.Payload.(map[string]any)
	assert.Equal(t, "event recorded", payload["message"])

	// the failure never surfaces through the dispatch path
	close(release)
	runner.Wait()
	rec, _ := store.GetTask(context.Background(), "inv-1")
	assert.Equal(t, engineports.TaskFailed, rec.State)
	assert.Contains(t, rec.Detail, "HTTP 500")
}

func TestBackgroundHolderStillValidatesArgs(t *testing.T) {
	runner := NewTaskRunner(nil, nil, zerolog.Nop())
	h := NewBackgroundHolder(HolderOptions{
		Spec:      engineports.ToolSpec{Name: "log_event"},
		Validator: cityValidator(t),
		Run: func(ctx context.Context, inv *engineports.Invocation) (any, error) {
			t.Fatal("must not run")
			return nil, nil
		},
		Runner: runner,
		Logger: zerolog.Nop(),
	})
	out := h.Invoke(context.Background(), invocation("log_event", map[string]any{}))
	assert.Equal(t, engineports.StatusError, out.Status)
	assert.Equal(t, KindArgument, out.Kind)
	runner.Wait()
}

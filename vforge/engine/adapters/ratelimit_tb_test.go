package engineadapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowsBurst(t *testing.T) {
	l := NewTokenBucketLimiter(1, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(ctx, "tool")
		require.NoError(t, err)
		release()
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	l := NewTokenBucketLimiter(20, 1)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "tool")
	require.NoError(t, err)
	release()

	start := time.Now()
	release, err = l.Acquire(ctx, "tool")
	require.NoError(t, err)
	release()
	// refill at 20 rps means roughly 50ms wait
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTokenBucketHonorsContext(t *testing.T) {
	l := NewTokenBucketLimiter(0.1, 1)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "tool")
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "tool")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

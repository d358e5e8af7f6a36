package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_SlidingWindow(t *testing.T) {
	store := NewRateLimitStore(time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		decision, err := store.Acquire(ctx, "ip", 3, time.Minute, now.Add(time.Duration(i)*10*time.Second))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, i, decision.Count)
		assert.True(t, decision.Oldest.Equal(now))
	}

	blocked, err := store.Acquire(ctx, "ip", 3, time.Minute, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)
	assert.Equal(t, 3, blocked.Count)
	assert.True(t, blocked.Oldest.Equal(now))

	// The first attempt leaves the window exactly one minute later.
	reopened, err := store.Acquire(ctx, "ip", 3, time.Minute, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, reopened.Allowed)
	assert.Equal(t, 2, reopened.Count)
	assert.True(t, reopened.Oldest.Equal(now.Add(10*time.Second)))
}

func TestRateLimitStore_IdentifiersAreIsolated(t *testing.T) {
	store := NewRateLimitStore(time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Acquire(ctx, "a", 1, time.Minute, now)
	require.NoError(t, err)

	other, err := store.Acquire(ctx, "b", 1, time.Minute, now)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
	assert.Zero(t, other.Count)
}

func TestRateLimitStore_SweepsIdleIdentifiers(t *testing.T) {
	store := NewRateLimitStore(2 * time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10_000; i++ {
		_, err := store.Acquire(ctx, fmt.Sprintf("auth_login_ip:10.0.%d.%d", i/256, i%256), 10, time.Minute, now)
		require.NoError(t, err)
	}
	require.Equal(t, 10_000, store.Len())

	_, err := store.Acquire(ctx, "auth_login_ip:192.0.2.1", 10, time.Minute, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestRateLimitStore_KeepsActiveIdentifiersOnSweep(t *testing.T) {
	store := NewRateLimitStore(time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Acquire(ctx, "idle", 5, time.Minute, now)
	require.NoError(t, err)
	_, err = store.Acquire(ctx, "active", 5, time.Minute, now.Add(90*time.Second))
	require.NoError(t, err)

	decision, err := store.Acquire(ctx, "active", 5, time.Minute, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, decision.Count)
	assert.Equal(t, 1, store.Len())
}

func TestRateLimitStore_AcquireIsAtomicUnderConcurrency(t *testing.T) {
	store := NewRateLimitStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	const limit = 10
	var (
		allowed atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := store.Acquire(context.Background(), "ip", limit, time.Minute, now)
			if err == nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, limit, allowed.Load())
}

func TestRateLimitStore_RejectsNonPositiveWindow(t *testing.T) {
	store := NewRateLimitStore(0)
	_, err := store.Acquire(context.Background(), "ip", 1, 0, time.Now())
	assert.Error(t, err)
}

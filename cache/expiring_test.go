package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lending-engine/cache"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingLoader returns "<key>#<n>" where n counts loads of that key.
type countingLoader struct {
	mu    sync.Mutex
	loads map[string]int
	total atomic.Int64
}

func newCountingLoader() *countingLoader {
	return &countingLoader{loads: make(map[string]int)}
}

func (l *countingLoader) Load(_ context.Context, key string) (string, error) {
	l.total.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[key]++
	return fmt.Sprintf("%s#%d", key, l.loads[key]), nil
}

func (l *countingLoader) Count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[key]
}

// =============================================================================
// EXPIRATION TESTS
// =============================================================================

func TestGet_WithinTTL_LoadsOnce(t *testing.T) {
	// GIVEN: An empty map
	// WHEN: Getting the same key twice within the TTL
	// THEN: Both reads return the same value and the loader ran once

	ctx := context.Background()
	clock := newFakeClock()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load, cache.WithClock(clock.Now))

	first, err := m.Get(ctx, "principal")
	require.NoError(t, err)
	clock.Advance(29 * time.Second)
	second, err := m.Get(ctx, "principal")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loader.Count("principal"))
}

func TestGet_AfterTTL_Reloads(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load, cache.WithClock(clock.Now), cache.WithTTL(30*time.Second))

	first, err := m.Get(ctx, "principal")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	second, err := m.Get(ctx, "principal")
	require.NoError(t, err)

	assert.Equal(t, "principal#1", first)
	assert.Equal(t, "principal#2", second)
	assert.Equal(t, 2, loader.Count("principal"))
}

func TestGet_ExpiryIsSinceCreationNotAccess(t *testing.T) {
	// GIVEN: An entry read every 10 seconds
	// THEN: It still expires 30 seconds after it was created

	ctx := context.Background()
	clock := newFakeClock()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load, cache.WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		_, err := m.Get(ctx, "k")
		require.NoError(t, err)
		clock.Advance(10 * time.Second)
	}
	assert.Equal(t, 1, loader.Count("k"))

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k#2", v)
}

// =============================================================================
// CAPACITY TESTS
// =============================================================================

func TestCapacity_EvictsOldestCreated(t *testing.T) {
	// GIVEN: A map of capacity 3 holding a, b, c (created in that order)
	// WHEN: 'a' is read again (access) and then 'd' is inserted
	// THEN: 'a' is evicted anyway, because eviction follows creation order

	ctx := context.Background()
	clock := newFakeClock()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load, cache.WithClock(clock.Now), cache.WithMaxSize(3))

	for _, k := range []string{"a", "b", "c"} {
		_, err := m.Get(ctx, k)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	_, err = m.Get(ctx, "d")
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.False(t, m.Contains("a"))
	assert.True(t, m.Contains("b"))
	assert.True(t, m.Contains("c"))
	assert.True(t, m.Contains("d"))
}

func TestCapacity_PurgesExpiredBeforeEvicting(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load, cache.WithClock(clock.Now), cache.WithMaxSize(2), cache.WithTTL(10*time.Second))

	_, _ = m.Get(ctx, "old")
	clock.Advance(9 * time.Second)
	_, _ = m.Get(ctx, "young")
	clock.Advance(2 * time.Second) // "old" is now expired, "young" is not

	_, err := m.Get(ctx, "new")
	require.NoError(t, err)

	assert.False(t, m.Contains("old"))
	assert.True(t, m.Contains("young"))
	assert.True(t, m.Contains("new"))
}

func TestCapacity_DefaultIsTwenty(t *testing.T) {
	ctx := context.Background()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load)

	for i := 0; i < 25; i++ {
		_, err := m.Get(ctx, fmt.Sprintf("k%02d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, cache.DefaultMaxSize, m.Len())
	assert.False(t, m.Contains("k00"))
	assert.True(t, m.Contains("k24"))
}

// =============================================================================
// LOADING TESTS
// =============================================================================

func TestGet_ConcurrentSameKey_SingleLoad(t *testing.T) {
	// GIVEN: A loader that blocks until released
	// WHEN: 16 goroutines request the same key concurrently
	// THEN: The loader runs exactly once and everyone sees the same value

	ctx := context.Background()
	release := make(chan struct{})
	var loads atomic.Int64
	m := cache.NewExpiringMap(func(_ context.Context, key string) (string, error) {
		loads.Add(1)
		<-release
		return key + "-loaded", nil
	})

	const callers = 16
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := m.Get(ctx, "principal")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, "principal-loaded", r)
	}
}

func TestGet_ConcurrentDifferentKeys_LoadIndependently(t *testing.T) {
	ctx := context.Background()
	loader := newCountingLoader()
	m := cache.NewExpiringMap(loader.Load)

	var wg sync.WaitGroup
	for _, k := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, err := m.Get(ctx, k)
			assert.NoError(t, err)
		}(k)
	}
	wg.Wait()

	assert.Equal(t, int64(4), loader.total.Load())
	assert.Equal(t, 4, m.Len())
}

func TestGet_LoaderError_NotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("ledger unavailable")
	calls := 0
	m := cache.NewExpiringMap(func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	})

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())

	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestGet_CallerGivesUp_OthersStillGetSharedLoad(t *testing.T) {
	// GIVEN: A load in flight, started by a caller whose ctx is then cancelled
	// WHEN: A second caller with a live ctx waits on the same key
	// THEN: The first caller returns context.Canceled at once, the load
	//       finishes uncancelled, and the second caller gets its value

	started := make(chan struct{})
	release := make(chan struct{})
	var loads atomic.Int64
	m := cache.NewExpiringMap(func(ctx context.Context, key string) (string, error) {
		loads.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return key + "-loaded", nil
	})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Get(firstCtx, "principal")
		firstErr <- err
	}()
	<-started

	type result struct {
		value string
		err   error
	}
	second := make(chan result, 1)
	go func() {
		v, err := m.Get(context.Background(), "principal")
		second <- result{v, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(release)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, "principal-loaded", r.value)
	case <-time.After(time.Second):
		t.Fatal("waiting caller never returned")
	}

	assert.Equal(t, int64(1), loads.Load())
	assert.True(t, m.Contains("principal"))
}

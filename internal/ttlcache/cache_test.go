package ttlcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ---------------- Fake clock ---------------- */

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

/* ---------------- Tests ---------------- */

func TestCacheSetGet(t *testing.T) {
	c := New[string](Duration(5 * time.Minute))

	t.Run("set and get existing key", func(t *testing.T) {
		c.Set("k", "v")
		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("get missing key", func(t *testing.T) {
		got, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Equal(t, "", got)
	})
}

func TestDurationPolicyExpiresAndEvicts(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 6, 28, 12, 0, 0, 0, time.UTC))
	c := New[int](Duration(5*time.Minute), WithClock(clock.Now))

	c.Set("news", 42)

	clock.Advance(5 * time.Minute)
	got, ok := c.Get("news")
	require.True(t, ok, "entry is still fresh exactly at the TTL")
	assert.Equal(t, 42, got)

	clock.Advance(time.Second)
	_, ok = c.Get("news")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on Get")
}

func TestCalendarDayPolicy(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	clock := newFakeClock(time.Date(2026, 6, 28, 23, 0, 0, 0, loc))
	c := New[string](CalendarDay(loc), WithClock(clock.Now))

	c.Set("history", "stonewall")

	clock.Advance(59 * time.Minute)
	_, ok := c.Get("history")
	assert.True(t, ok, "same calendar day keeps the entry")

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("history")
	assert.False(t, ok, "crossing midnight expires the entry")
	assert.Equal(t, 0, c.Len())
}

func TestCalendarDayIsNotADuration(t *testing.T) {
	p := CalendarDay(time.UTC)
	stored := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)

	assert.False(t, p.Expired(stored, stored.Add(23*time.Hour)))
	assert.True(t, p.Expired(stored, stored.Add(24*time.Hour)))

	late := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)
	assert.True(t, p.Expired(late, late.Add(2*time.Minute)))
}

func TestDeleteAndClear(t *testing.T) {
	c := New[string](Duration(time.Hour))
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Delete("never-set")
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestSetRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 6, 28, 12, 0, 0, 0, time.UTC))
	c := New[string](Duration(time.Minute), WithClock(clock.Now))

	c.Set("k", "old")
	clock.Advance(50 * time.Second)
	c.Set("k", "new")
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 6, 28, 12, 0, 0, 0, time.UTC))
	c := New[string](Duration(time.Minute), WithClock(clock.Now))

	c.Set("old", "x")
	clock.Advance(2 * time.Minute)
	c.Set("fresh", "y")

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestObserverEvents(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 6, 28, 12, 0, 0, 0, time.UTC))
	var mu sync.Mutex
	events := map[string]int{}
	c := New[string](Duration(time.Minute), WithClock(clock.Now), WithObserver(func(e string) {
		mu.Lock()
		events[e]++
		mu.Unlock()
	}))

	c.Get("missing")
	c.Set("k", "v")
	c.Get("k")
	clock.Advance(2 * time.Minute)
	c.Get("k")

	assert.Equal(t, 1, events[EventSet])
	assert.Equal(t, 1, events[EventHit])
	assert.Equal(t, 2, events[EventMiss])
	assert.Equal(t, 1, events[EventEvict])
}

func TestStartSweepsPeriodically(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 6, 28, 12, 0, 0, 0, time.UTC))
	var evictions atomic.Int32
	c := New[string](Duration(time.Minute), WithClock(clock.Now), WithObserver(func(e string) {
		if e == EventEvict {
			evictions.Add(1)
		}
	}))

	c.Set("a", "1")
	c.Set("b", "2")
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return evictions.Load() == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.Len())
}

func TestStartStopsOnContextCancel(t *testing.T) {
	c := New[string](Duration(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Start(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](Duration(time.Minute))
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("key", i)
			c.Get("key")
			c.Sweep()
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("key")
	assert.True(t, ok)
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "duration(5m0s)", Duration(5*time.Minute).String())
	assert.Equal(t, "calendar-day(UTC)", CalendarDay(time.UTC).String())
}

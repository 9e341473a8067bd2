package news

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

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/feed"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/ttlcache"
)

type fakeFetcher struct {
	mu     sync.Mutex
	result feed.FetchResult
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeFetcher) FetchAll(ctx context.Context, _ []config.Source) feed.FetchResult {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func (f *fakeFetcher) set(res feed.FetchResult) {
	f.mu.Lock()
	f.result = res
	f.mu.Unlock()
}

type fakeArchive struct {
	saved    []*Result
	snapshot *Result
}

func (a *fakeArchive) SaveSnapshot(_ context.Context, res *Result) error {
	a.saved = append(a.saved, res)
	return nil
}

func (a *fakeArchive) LatestSnapshot(context.Context) (*Result, error) {
	if a.snapshot == nil {
		return nil, errors.New("no snapshot")
	}
	cp := *a.snapshot
	return &cp, nil
}

type recordingObserver struct {
	mu  sync.Mutex
	got map[string]int
}

func (r *recordingObserver) SetSelected(selection string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.got == nil {
		r.got = map[string]int{}
	}
	r.got[selection] = n
}

func rawItems(n int, prefix string) []feed.RawItem {
	items := make([]feed.RawItem, n)
	for i := range items {
		items[i] = feed.RawItem{
			Title:       fmt.Sprintf("%s story %d", prefix, i),
			Description: "Community update",
			Link:        fmt.Sprintf("https://news.example/%s/%d", prefix, i),
			Published:   epoch.Add(time.Duration(i) * time.Minute),
		}
	}
	return items
}

func okResult(n int) feed.FetchResult {
	return feed.FetchResult{Batches: []feed.Batch{{
		Source: config.Source{Name: "PinkNews"},
		Items:  rawItems(n, "pink"),
	}}}
}

func newAggregator(f FeedFetcher, opts Options) (*Aggregator, *ttlcache.Cache[*Result]) {
	cache := ttlcache.New[*Result](ttlcache.Duration(5 * time.Minute))
	return NewAggregator(f, cache, opts), cache
}

func TestAggregateCachesResult(t *testing.T) {
	f := &fakeFetcher{result: okResult(40)}
	obs := &recordingObserver{}
	agg, cache := newAggregator(f, Options{Observer: obs})

	res, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Grid, 30)
	assert.Len(t, res.Carousel, 5)
	assert.Equal(t, 30, obs.got["grid"])

	again, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, res, again, "cache hit is authoritative")
	assert.Equal(t, int32(1), f.calls.Load())

	_, ok := cache.Get(CacheKeyPrefix)
	assert.True(t, ok)
}

func TestAggregateCacheKeyPerCountry(t *testing.T) {
	assert.Equal(t, "lgbtq-news-feed-v13", CacheKey(nil))
	assert.Equal(t, "lgbtq-news-feed-v13:GB", CacheKey(&location.Info{CountryCode: "gb"}))

	f := &fakeFetcher{result: okResult(3)}
	agg, cache := newAggregator(f, Options{})
	_, err := agg.Aggregate(context.Background(), &location.Info{Country: "Canada", CountryCode: "CA"})
	require.NoError(t, err)
	_, err = agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, int32(1), f.calls.Load(), "locations share one fetch")
}

func TestRefreshServesEveryLocation(t *testing.T) {
	f := &fakeFetcher{result: okResult(3)}
	agg, cache := newAggregator(f, Options{})
	us := &location.Info{Country: "United States", CountryCode: "US"}

	_, err := agg.Refresh(context.Background(), nil)
	require.NoError(t, err)

	res, err := agg.Aggregate(context.Background(), us)
	require.NoError(t, err)
	assert.Equal(t, "US", res.Location.CountryCode)
	assert.Equal(t, int32(1), f.calls.Load(), "a refreshed fetch serves other locations")

	f.set(okResult(6))
	_, err = agg.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())

	got, ok := cache.Get(CacheKey(us))
	require.True(t, ok, "refresh rebuilds locations already served")
	assert.Len(t, got.Grid, 6)
}

func TestRefreshSkipsUnsupportedLocations(t *testing.T) {
	f := &fakeFetcher{result: okResult(3)}
	agg, cache := newAggregator(f, Options{})

	_, err := agg.Aggregate(context.Background(), &location.Info{Country: "Atlantis", CountryCode: "XA"})
	require.NoError(t, err)
	cache.Clear()

	_, err = agg.Refresh(context.Background(), nil)
	require.NoError(t, err)
	_, ok := cache.Get(CacheKeyPrefix + ":XA")
	assert.False(t, ok)
}

func TestFetchReusedUntilPolicyExpires(t *testing.T) {
	now := epoch
	clock := func() time.Time { return now }
	cache := ttlcache.New[*Result](ttlcache.Duration(5*time.Minute), ttlcache.WithClock(clock))
	f := &fakeFetcher{result: okResult(3)}
	agg := NewAggregator(f, cache, Options{Now: clock})

	_, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	_, err = agg.Aggregate(context.Background(), &location.Info{Country: "Canada", CountryCode: "CA"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "expired fetch is not reused")
}

func TestClearDropsStoredFetch(t *testing.T) {
	f := &fakeFetcher{result: okResult(3)}
	agg, _ := newAggregator(f, Options{})

	_, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	agg.Clear()
	_, err = agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestAggregateLocalHint(t *testing.T) {
	f := &fakeFetcher{result: feed.FetchResult{Batches: []feed.Batch{{
		Source: config.Source{Name: "Xtra"},
		Items: []feed.RawItem{
			{Title: "Canadian choir tours", Description: "Concerts in Ottawa", Link: "https://x/1"},
		},
	}}}}
	agg, _ := newAggregator(f, Options{})

	res, err := agg.Aggregate(context.Background(), &location.Info{Country: "Canada", CountryCode: "CA"})
	require.NoError(t, err)
	require.Len(t, res.Grid, 1)
	assert.Equal(t, classify.Local, res.Grid[0].Category)
	assert.Equal(t, "CA", res.Location.CountryCode)
}

func TestAggregateTotalFailure(t *testing.T) {
	f := &fakeFetcher{result: feed.FetchResult{Errors: []error{
		&feed.SourceError{Source: "a", Err: errors.New("timeout")},
		&feed.SourceError{Source: "b", Err: errors.New("502")},
	}}}
	agg, cache := newAggregator(f, Options{Sources: []config.Source{{Name: "a"}, {Name: "b"}}})

	res, err := agg.Aggregate(context.Background(), nil)
	assert.Nil(t, res)
	require.ErrorIs(t, err, ErrNoArticles)
	assert.Contains(t, err.Error(), "2 of 2 sources failed")
	assert.Equal(t, 0, cache.Len(), "failures are not cached")
}

func TestAggregatePartialFailure(t *testing.T) {
	res := okResult(4)
	res.Errors = []error{&feed.SourceError{Source: "Queerty", Err: errors.New("boom")}}
	agg, _ := newAggregator(&fakeFetcher{result: res}, Options{})

	got, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got.Grid, 4)
	assert.Equal(t, []string{"Queerty"}, got.Failed)
}

func TestAggregateArchiveFallback(t *testing.T) {
	archive := &fakeArchive{}
	f := &fakeFetcher{result: okResult(2)}
	agg, _ := newAggregator(f, Options{Archive: archive})

	first, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, archive.saved, 1)
	archive.snapshot = first

	f.set(feed.FetchResult{Errors: []error{errors.New("down")}})
	got, err := agg.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.Len(t, got.Grid, 2)
}

func TestAggregateCoalescesConcurrentCallers(t *testing.T) {
	f := &fakeFetcher{result: okResult(5), delay: 50 * time.Millisecond}
	agg, _ := newAggregator(f, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.Aggregate(context.Background(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestAggregateSurvivesCallerCancel(t *testing.T) {
	f := &fakeFetcher{result: okResult(5)}
	agg, cache := newAggregator(f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := agg.Aggregate(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestRefreshBypassesCache(t *testing.T) {
	f := &fakeFetcher{result: okResult(5)}
	agg, _ := newAggregator(f, Options{})

	_, err := agg.Aggregate(context.Background(), nil)
	require.NoError(t, err)
	_, err = agg.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

type failureCounter struct{ n atomic.Int32 }

func (c *failureCounter) RefreshFailed() { c.n.Add(1) }

func TestRefresherTicks(t *testing.T) {
	f := &fakeFetcher{result: feed.FetchResult{Errors: []error{errors.New("down")}}}
	agg, _ := newAggregator(f, Options{})
	failures := &failureCounter{}
	r := NewRefresher(agg, 5*time.Millisecond, failures, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return failures.n.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		News: config.NewsConfig{
			GridSize:         20,
			CarouselSize:     3,
			Politics:         config.PoliticsQuota{Share: 0.5, Min: 5, Max: 8},
			DescriptionLimit: 120,
			BlockPhrases:     []string{"sponsored"},
		},
		Sources: []config.Source{{Name: "on", Enabled: true}, {Name: "off"}},
	}
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 20, opts.GridSize)
	assert.Equal(t, Quota{Share: 0.5, Min: 5, Max: 8}, opts.Quota)
	assert.Equal(t, 120, opts.Normalize.DescriptionLimit)
	require.Len(t, opts.Sources, 1)
	assert.Equal(t, "on", opts.Sources[0].Name)
}

package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/feed"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/ttlcache"
)

// CacheKeyPrefix is bumped whenever the cached Result shape changes.
const CacheKeyPrefix = "lgbtq-news-feed-v13"

// ErrNoArticles means a cycle produced nothing to show: every source failed or
// no article survived normalisation.
var ErrNoArticles = errors.New("no articles available")

// FeedFetcher is satisfied by *feed.Service.
type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []config.Source) feed.FetchResult
}

// Archive keeps the last good result for use when every feed is down.
type Archive interface {
	SaveSnapshot(ctx context.Context, res *Result) error
	LatestSnapshot(ctx context.Context) (*Result, error)
}

// SelectionObserver is satisfied by *metrics.Registry.
type SelectionObserver interface {
	SetSelected(selection string, n int)
}

type Options struct {
	Sources      []config.Source
	GridSize     int
	CarouselSize int
	Quota        Quota
	Normalize    NormalizeOptions
	Archive      Archive
	Observer     SelectionObserver
	Logger       *slog.Logger
	Now          func() time.Time
}

// OptionsFromConfig maps the news section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	p := cfg.News.Politics
	q := Quota{Share: p.Share, Min: p.Min, Max: p.Max}
	if q == (Quota{}) {
		q = DefaultQuota
	}
	return Options{
		Sources:      cfg.EnabledSources(),
		GridSize:     cfg.News.GridSize,
		CarouselSize: cfg.News.CarouselSize,
		Quota:        q,
		Normalize: NormalizeOptions{
			DescriptionLimit: cfg.News.DescriptionLimit,
			Placeholder:      cfg.News.PlaceholderImage,
			BlockPhrases:     cfg.News.BlockPhrases,
		},
	}
}

// Aggregator runs aggregation cycles and caches their results. One feed fetch
// serves every location: results for other hints are rebuilt from the stored
// batches until the cache policy expires them.
type Aggregator struct {
	fetcher FeedFetcher
	cache   *ttlcache.Cache[*Result]
	group   singleflight.Group
	opts    Options

	mu      sync.Mutex
	fetched *cycle
	hints   map[string]*location.Info
}

// cycle is one FetchAll and the time it finished.
type cycle struct {
	result feed.FetchResult
	at     time.Time
}

// NewAggregator wires an aggregator to a shared result cache.
func NewAggregator(fetcher FeedFetcher, cache *ttlcache.Cache[*Result], opts Options) *Aggregator {
	if opts.GridSize <= 0 {
		opts.GridSize = 30
	}
	if opts.CarouselSize <= 0 {
		opts.CarouselSize = 5
	}
	if opts.Quota == (Quota{}) {
		opts.Quota = DefaultQuota
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{fetcher: fetcher, cache: cache, opts: opts, hints: map[string]*location.Info{}}
}

// CacheKey is the versioned key for a location hint.
func CacheKey(hint *location.Info) string {
	if hint == nil || hint.CountryCode == "" {
		return CacheKeyPrefix
	}
	return CacheKeyPrefix + ":" + strings.ToUpper(hint.CountryCode)
}

const fetchKey = "fetch"

// Aggregate returns the cached result for hint or builds one. Concurrent
// callers for the same key share one cycle.
func (a *Aggregator) Aggregate(ctx context.Context, hint *location.Info) (*Result, error) {
	key := CacheKey(hint)
	if res, ok := a.cache.Get(key); ok {
		return res, nil
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		if res, ok := a.cache.Get(key); ok {
			return res, nil
		}
		// A started cycle runs to completion even if the first caller leaves.
		ctx := context.WithoutCancel(ctx)
		return a.build(ctx, key, hint, a.batches(ctx, false))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Refresh fetches every source again and rebuilds the result for hint and for
// every location served since the last Clear. Readers keep the previous
// results until the new ones are stored.
func (a *Aggregator) Refresh(ctx context.Context, hint *location.Info) (*Result, error) {
	c := a.batches(ctx, true)

	key := CacheKey(hint)
	for k, h := range a.served() {
		if k == key {
			continue
		}
		if _, err := a.build(ctx, k, h, c); err != nil {
			a.opts.Logger.Debug("refresh skipped location", "key", k, "err", err)
		}
	}
	return a.build(ctx, key, hint, c)
}

// batches returns the stored fetch while the cache policy still considers it
// fresh, and fetches otherwise. A fetch with no successful source is not kept.
func (a *Aggregator) batches(ctx context.Context, force bool) *cycle {
	if !force {
		a.mu.Lock()
		c := a.fetched
		a.mu.Unlock()
		if c != nil && !a.cache.Policy().Expired(c.at, a.opts.Now()) {
			return c
		}
	}

	v, _, _ := a.group.Do(fetchKey, func() (any, error) {
		c := &cycle{result: a.fetcher.FetchAll(ctx, a.opts.Sources), at: a.opts.Now()}
		if len(c.result.Batches) > 0 {
			a.mu.Lock()
			a.fetched = c
			a.mu.Unlock()
		}
		return c, nil
	})
	return v.(*cycle)
}

func (a *Aggregator) served() map[string]*location.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]*location.Info, len(a.hints))
	for k, h := range a.hints {
		out[k] = h
	}
	return out
}

// remember records hint for later refreshes. Only supported countries are
// kept so arbitrary query codes cannot grow the set.
func (a *Aggregator) remember(key string, hint *location.Info) {
	if hint != nil && !location.Supported(hint.CountryCode) {
		return
	}
	a.mu.Lock()
	a.hints[key] = hint
	a.mu.Unlock()
}

func (a *Aggregator) build(ctx context.Context, key string, hint *location.Info, c *cycle) (*Result, error) {
	start := a.opts.Now()
	fetched := c.result

	var local *classify.LocalHint
	if hint != nil {
		local = &classify.LocalHint{Country: hint.Country, Keywords: location.Keywords(*hint)}
	}
	pool := NewNormalizer(classify.New(local), a.opts.Normalize).Pool(fetched.Batches)

	var failed []string
	for _, err := range fetched.Errors {
		var se *feed.SourceError
		if errors.As(err, &se) {
			failed = append(failed, se.Source)
		}
	}

	if len(pool) == 0 {
		err := fmt.Errorf("%w: %d of %d sources failed", ErrNoArticles, len(fetched.Errors), len(a.opts.Sources))
		if len(fetched.Errors) > 0 {
			err = fmt.Errorf("%w: %w", err, errors.Join(fetched.Errors...))
		}
		a.opts.Logger.Error("aggregation produced no articles", "key", key, "failed", len(fetched.Errors))
		if stale := a.fallback(ctx); stale != nil {
			return stale, nil
		}
		return nil, err
	}

	grid, carousel := Select(pool, a.opts.GridSize, a.opts.CarouselSize, a.opts.Quota)
	res := &Result{
		Grid:      grid,
		Carousel:  carousel,
		Location:  hint,
		FetchedAt: c.at,
		Failed:    failed,
	}
	a.cache.Set(key, res)
	a.remember(key, hint)

	if a.opts.Observer != nil {
		a.opts.Observer.SetSelected("grid", len(grid))
		a.opts.Observer.SetSelected("carousel", len(carousel))
		a.opts.Observer.SetSelected("pool", len(pool))
	}
	a.opts.Logger.Info("aggregation complete",
		"key", key,
		"fetched", fetched.Count(),
		"pool", len(pool),
		"grid", len(grid),
		"carousel", len(carousel),
		"failed", len(failed),
		"took", a.opts.Now().Sub(start).Round(time.Millisecond),
	)

	if a.opts.Archive != nil && hint == nil {
		if err := a.opts.Archive.SaveSnapshot(ctx, res); err != nil {
			a.opts.Logger.Warn("archive snapshot failed", "err", err)
		}
	}
	return res, nil
}

// fallback returns the last archived result marked stale, or nil.
func (a *Aggregator) fallback(ctx context.Context) *Result {
	if a.opts.Archive == nil {
		return nil
	}
	snap, err := a.opts.Archive.LatestSnapshot(ctx)
	if err != nil || snap == nil {
		if err != nil {
			a.opts.Logger.Debug("no archived snapshot", "err", err)
		}
		return nil
	}
	snap.Stale = true
	a.opts.Logger.Warn("serving archived snapshot", "fetched_at", snap.FetchedAt)
	return snap
}

// Clear drops every cached result and the stored fetch.
func (a *Aggregator) Clear() {
	a.cache.Clear()
	a.mu.Lock()
	a.fetched = nil
	a.hints = map[string]*location.Info{}
	a.mu.Unlock()
}

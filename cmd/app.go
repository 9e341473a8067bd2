package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/archive"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/feed"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/history"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/imagex"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/logging"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/metrics"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/news"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/ttlcache"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Registry
	client  *web.Client

	newsCache     *ttlcache.Cache[*news.Result]
	historyCache  *ttlcache.Cache[[]history.Event]
	locationCache *ttlcache.Cache[location.Info]

	news    *news.Aggregator
	history *history.Service
	images  *imagex.Extractor
	locator *location.Detector
	archive *archive.Archive
}

func loadApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logging.New(cfg.Log),
		metrics: metrics.NewRegistry(),
	}
	a.client = web.New(cfg.FetchTimeout(), cfg.Fetch.UserAgent)

	a.newsCache = ttlcache.New[*news.Result](
		ttlcache.Duration(cfg.NewsCacheTTL()),
		ttlcache.WithName("news"),
		ttlcache.WithLogger(a.logger),
		ttlcache.WithObserver(func(event string) { a.metrics.CacheEvent("news", event) }),
	)
	a.historyCache = ttlcache.New[[]history.Event](
		ttlcache.CalendarDay(time.Local),
		ttlcache.WithName("history"),
		ttlcache.WithLogger(a.logger),
		ttlcache.WithObserver(func(event string) { a.metrics.CacheEvent("history", event) }),
	)
	a.locationCache = ttlcache.New[location.Info](
		ttlcache.Duration(time.Hour),
		ttlcache.WithName("location"),
		ttlcache.WithLogger(a.logger),
		ttlcache.WithObserver(func(event string) { a.metrics.CacheEvent("location", event) }),
	)

	opts := news.OptionsFromConfig(cfg)
	opts.Observer = a.metrics
	opts.Logger = a.logger
	if cfg.Archive.Enabled {
		db, err := archive.Open(cfg.ArchivePath())
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		a.archive = db
		opts.Archive = db
	}

	fetcher := feed.NewService(a.client, feed.Options{
		Timeout:        cfg.FetchTimeout(),
		MaxConcurrency: cfg.MaxConcurrency(),
		Observer:       a.metrics,
		Logger:         a.logger,
	})
	a.news = news.NewAggregator(fetcher, a.newsCache, opts)

	a.history = history.NewService(
		history.NewWikimediaClient(cfg.History.BaseURL, a.client),
		a.historyCache,
		history.Options{
			Limit:     cfg.History.Limit,
			WeekLimit: cfg.History.WeekLimit,
			Observer:  a.metrics,
			Logger:    a.logger,
		},
	)

	a.images = imagex.New(web.New(cfg.FetchTimeout(), web.BrowserUserAgent))

	a.locator = location.New(location.Config{
		ReverseGeocodeURL: cfg.Location.ReverseGeocodeURL,
		IPURL:             cfg.Location.IPURL,
		Timeout:           cfg.LocationTimeout(),
	}, a.client, a.logger).WithCache(a.locationCache)

	return a, nil
}

func (a *app) Close() error {
	if a.archive != nil {
		return a.archive.Close()
	}
	return nil
}

// openArchive opens the archive even when the server has it disabled, for
// the maintenance commands.
func openArchive() (*archive.Archive, *config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}
	return db, cfg, nil
}

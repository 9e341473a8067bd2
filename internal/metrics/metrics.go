package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache event labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheEvict = "evict"
	CacheSet   = "set"
)

// Registry holds every collector the service exports. It owns a private
// prometheus registry so tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	feedFetches   *prometheus.CounterVec
	feedDuration  *prometheus.HistogramVec
	cacheEvents   *prometheus.CounterVec
	selected      *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	refreshErrors prometheus.Counter
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "feed_fetch_total",
			Help:      "Feed fetches by source and result.",
		}, []string{"source", "result"}),
		feedDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsdesk",
			Name:      "feed_fetch_seconds",
			Help:      "Feed fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "cache_events_total",
			Help:      "TTL cache events by cache and event.",
		}, []string{"cache", "event"}),
		selected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newsdesk",
			Name:      "aggregation_articles",
			Help:      "Articles in the latest aggregation by selection.",
		}, []string{"selection"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "refresh_failures_total",
			Help:      "Background refresh cycles that produced no articles.",
		}),
	}

	r.reg.MustRegister(
		r.feedFetches,
		r.feedDuration,
		r.cacheEvents,
		r.selected,
		r.httpRequests,
		r.refreshErrors,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler exposes the registry in the prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer is used by tests to inspect collected values.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveFetch(source string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.feedFetches.WithLabelValues(source, result).Inc()
	r.feedDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (r *Registry) CacheEvent(cache, event string) {
	r.cacheEvents.WithLabelValues(cache, event).Inc()
}

func (r *Registry) SetSelected(selection string, n int) {
	r.selected.WithLabelValues(selection).Set(float64(n))
}

func (r *Registry) ObserveRequest(route string, code int) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (r *Registry) RefreshFailed() {
	r.refreshErrors.Inc()
}

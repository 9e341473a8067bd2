package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFetch(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveFetch("POZ", true, 120*time.Millisecond)
	reg.ObserveFetch("POZ", false, time.Second)
	reg.ObserveFetch("POZ", false, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.feedFetches.WithLabelValues("POZ", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.feedFetches.WithLabelValues("POZ", "error")))
}

func TestCacheEventsAndSelection(t *testing.T) {
	reg := NewRegistry()

	reg.CacheEvent("news", CacheHit)
	reg.CacheEvent("news", CacheHit)
	reg.CacheEvent("history", CacheMiss)
	reg.SetSelected("grid", 30)
	reg.SetSelected("grid", 28)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.cacheEvents.WithLabelValues("news", CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.cacheEvents.WithLabelValues("history", CacheMiss)))
	assert.Equal(t, 28.0, testutil.ToFloat64(reg.selected.WithLabelValues("grid")))
}

func TestObserveRequestUsesNumericCode(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveRequest("/api/news", http.StatusServiceUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.httpRequests.WithLabelValues("/api/news", "503")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveFetch("PinkNews", true, time.Millisecond)
	reg.RefreshFailed()

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `newsdesk_feed_fetch_total{result="ok",source="PinkNews"} 1`)
	assert.Contains(t, string(body), "newsdesk_refresh_failures_total 1")
}

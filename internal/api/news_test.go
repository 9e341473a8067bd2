package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/feed"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/news"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/ttlcache"
)

type countingFetcher struct{ calls atomic.Int32 }

func (f *countingFetcher) FetchAll(context.Context, []config.Source) feed.FetchResult {
	f.calls.Add(1)
	return feed.FetchResult{Batches: []feed.Batch{{
		Source: config.Source{Name: "PinkNews"},
		Items: []feed.RawItem{
			{Title: "Pride returns to the city", Description: "Marchers fill downtown", Link: "https://news.example/1", Published: time.Now()},
			{Title: "Clinic opens new wing", Description: "Expanded hours for patients", Link: "https://news.example/2", Published: time.Now()},
		},
	}}}
}

func TestGetNewsReadsRefreshedFetch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := &countingFetcher{}
	agg := news.NewAggregator(fetcher, ttlcache.New[*news.Result](ttlcache.Duration(5*time.Minute)), news.Options{Logger: logger})

	_, err := agg.Refresh(context.Background(), nil)
	require.NoError(t, err)

	h := NewHandler(Deps{News: agg, Locator: location.NewDetector(logger), Logger: logger})
	srv := httptest.NewServer(RegisterRoutes(http.NewServeMux(), h, nil))
	t.Cleanup(srv.Close)

	for range 3 {
		resp, body := get(t, srv.URL+"/api/news")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["grid"], 2)
		assert.Equal(t, "US", body["location"].(map[string]any)["code"])
	}
	assert.Equal(t, int32(1), fetcher.calls.Load(), "requests reuse the refreshed fetch")
}

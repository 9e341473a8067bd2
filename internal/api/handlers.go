// Package api exposes the news, history, image and location services over
// HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/history"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/imagex"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/location"
	"github.com/VaIkyranna/SheSpeaksMainSite/internal/news"
)

// NewsUnavailable is shown to readers when no aggregation result exists.
const NewsUnavailable = "Unable to load latest news. Please try again later."

// NewsService is satisfied by *news.Aggregator.
type NewsService interface {
	Aggregate(ctx context.Context, hint *location.Info) (*news.Result, error)
	Clear()
}

// HistoryService is satisfied by *history.Service.
type HistoryService interface {
	Lookup(ctx context.Context, month, day, limit int) ([]history.Event, error)
	Week(ctx context.Context, month, day, limit int) ([]history.Event, error)
	Clear()
}

type ImageExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

type LocationDetector interface {
	Detect(ctx context.Context, req location.Request) location.Info
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	news    NewsService
	history HistoryService
	images  ImageExtractor
	locator LocationDetector
	metrics http.Handler
	logger  *slog.Logger
}

type Deps struct {
	News    NewsService
	History HistoryService
	Images  ImageExtractor
	Locator LocationDetector
	Metrics http.Handler
	Logger  *slog.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{
		news:    d.News,
		history: d.History,
		images:  d.Images,
		locator: d.Locator,
		metrics: d.Metrics,
		logger:  d.Logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

/* ---------------- GET /api/news ---------------- */

func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	hint := h.newsHint(r)
	res, err := h.news.Aggregate(r.Context(), hint)
	if err != nil {
		h.logger.Error("news aggregation failed", "err", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusServiceUnavailable, NewsUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// newsHint prefers an explicit country code and otherwise detects one.
func (h *Handler) newsHint(r *http.Request) *location.Info {
	q := r.URL.Query()
	if code := strings.ToUpper(strings.TrimSpace(q.Get("code"))); code != "" {
		country := q.Get("country")
		if country == "" {
			country = location.CountryName(code)
		}
		return &location.Info{Country: country, CountryCode: code, Source: "query"}
	}
	if h.locator == nil {
		return nil
	}
	info := h.locator.Detect(r.Context(), locationRequest(r))
	return &info
}

/* ---------------- GET /api/history ---------------- */

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	monthStr, dayStr := q.Get("month"), q.Get("day")
	if monthStr == "" || dayStr == "" {
		writeError(w, http.StatusBadRequest, "Month and day parameters are required")
		return
	}
	month, errM := strconv.Atoi(monthStr)
	day, errD := strconv.Atoi(dayStr)
	if errM != nil || errD != nil {
		writeError(w, http.StatusBadRequest, "Month and day must be numbers")
		return
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Limit must be a positive number")
			return
		}
		limit = n
	}

	lookup := h.history.Lookup
	switch q.Get("scope") {
	case "", "day":
	case "week":
		lookup = h.history.Week
	default:
		writeError(w, http.StatusBadRequest, "Scope must be day or week")
		return
	}

	events, err := lookup(r.Context(), month, day, limit)
	switch {
	case errors.Is(err, history.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "Invalid month or day")
		return
	case err != nil:
		h.logger.Error("history lookup failed", "err", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to fetch historical events")
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

/* ---------------- GET /api/extract-image ---------------- */

func (h *Handler) ExtractImage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "Missing URL parameter")
		return
	}

	img, err := h.images.Extract(r.Context(), url)
	switch {
	case errors.Is(err, imagex.ErrMissingURL), errors.Is(err, imagex.ErrInvalidURL), errors.Is(err, imagex.ErrForbidden):
		writeError(w, http.StatusBadRequest, "Invalid URL parameter")
	case errors.Is(err, imagex.ErrNoImage):
		writeError(w, http.StatusNotFound, "No image found")
	case err != nil:
		h.logger.Warn("image extraction failed", "url", url, "err", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to extract image")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"imageUrl": img})
	}
}

/* ---------------- GET /api/location ---------------- */

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.locator.Detect(r.Context(), locationRequest(r)))
}

func locationRequest(r *http.Request) location.Request {
	q := r.URL.Query()
	req := location.Request{
		IP:             clientIP(r),
		TimeZone:       q.Get("tz"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	}
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat == nil && errLon == nil {
		req.Latitude, req.Longitude = &lat, &lon
	}
	return req
}

// clientIP takes the first X-Forwarded-For hop, falling back to the peer
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

/* ---------------- DELETE /api/cache ---------------- */

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.news.Clear()
	h.history.Clear()
	h.logger.Info("caches cleared", "request_id", RequestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

/* ---------------- GET /healthz ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package api

import "net/http"

// RegisterRoutes mounts every endpoint on mux and returns it wrapped in the
// middleware stack. obs may be nil.
func RegisterRoutes(mux *http.ServeMux, h *Handler, obs RequestObserver) http.Handler {
	// Public APIs
	mux.HandleFunc("GET /api/news", h.GetNews)
	mux.HandleFunc("GET /api/history", h.GetHistory)
	mux.HandleFunc("GET /api/extract-image", h.ExtractImage)
	mux.HandleFunc("GET /api/location", h.GetLocation)

	// Admin APIs
	mux.HandleFunc("DELETE /api/cache", h.ClearCache)

	// Observability APIs
	mux.HandleFunc("GET /healthz", h.GetHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	stack := []Middleware{
		RequestIDMiddleware,
		RecoveryMiddleware(h.logger),
		LoggingMiddleware(h.logger),
		CORSMiddleware,
	}
	if obs != nil {
		stack = append(stack, MetricsMiddleware(obs))
	}
	return Chain(mux, stack...)
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RegisterRoutes registers the upload routes. limiter may be nil.
func (h *Handler) RegisterRoutes(r chi.Router, limiter *rate.Limiter) {
	r.Route("/portfolio/ingest", func(r chi.Router) {
		if limiter != nil {
			r.Use(RateLimit(limiter, h.log))
		}
		r.Post("/upload", h.HandleUpload)
	})
}

// RateLimit rejects requests with 429 once limiter runs out of tokens
func RateLimit(limiter *rate.Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("Rate limit exceeded")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package httpapi serves the console REST API for the user directory and
// support-ticket board. List endpoints return plain page envelopes; item
// endpoints return {ok: ...} envelopes, and failures carry an error string
// in the body even when the status code is 2xx-adjacent.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/erayaindia/eraya-ops-hub/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	Store store.Store
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

// writeFail writes an {ok:false} envelope with an error message.
func writeFail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

// Routes builds the router with all console endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CorrelationMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	// Mutations are rate limited per client; reads are not.
	mutateLimit := RateLimitMiddleware(RateLimitConfig{
		WindowSeconds: 60,
		MaxRequests:   120,
		Burst:         30,
	})

	users := &resourceHandler{
		store: s.Store,
		cfg:   userConfig(),
	}
	tickets := &resourceHandler{
		store: s.Store,
		cfg:   ticketConfig(),
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", users.list)
		r.Get("/stats/statistics", users.stats)
		r.Get("/{id}", users.get)
		r.Group(func(r chi.Router) {
			r.Use(mutateLimit)
			r.Post("/", users.create)
			r.Patch("/{id}", users.update)
			r.Delete("/{id}", users.delete)
		})
	})

	r.Route("/api/tickets", func(r chi.Router) {
		r.Get("/", tickets.list)
		r.Get("/{id}", tickets.get)
		r.Group(func(r chi.Router) {
			r.Use(mutateLimit)
			r.Post("/", tickets.create)
			r.Patch("/{id}", tickets.update)
			r.Delete("/{id}", tickets.delete)
		})
	})

	log.Info().Msg("HTTP routes registered")
	return r
}

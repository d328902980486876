package server

import (
	"net/http"

	"b64serve/config"
	"b64serve/handlers"
)

// registerRoutes attaches all handlers to the given mux.
func registerRoutes(mux *http.ServeMux, cfg *config.Config, throttle *handlers.Throttle) {
	// Base64 file delivery (bandwidth-limited)
	mux.Handle("/base64", throttle.Wrap(handlers.Base64Handler(cfg)))

	// File inventory for fixture discovery (bandwidth-limited)
	mux.Handle("/api/index", throttle.Wrap(handlers.IndexHandler(cfg.AllowedRoots)))

	// In-memory request counters
	mux.HandleFunc("/api/stats", handlers.StatsHandler())

	// Liveness probe
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

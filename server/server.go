// Package server contains the HTTP server setup and request middleware.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"b64serve/config"
	"b64serve/handlers"
)

// Run starts the HTTP server with the given configuration and blocks until
// the listener fails.
func Run(cfg *config.Config) error {
	throttle := handlers.NewThrottle(cfg.Bandwidth)

	mux := http.NewServeMux()
	registerRoutes(mux, cfg, throttle)
	handler := recoverPanics(logRequests(mux))

	// Watch the allowed roots so the file index stays current without
	// periodic re-walks. Failure to watch is not fatal: the index safety
	// TTL still corrects stale entries.
	if stop, err := handlers.StartWatcher(cfg.AllowedRoots); err != nil {
		logrus.Warnf("watcher: could not start filesystem watcher: %v", err)
	} else {
		defer stop()
	}

	addr := listenAddr(cfg)
	logStartup(cfg, addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,

		// Responses are whole buffered payloads bounded by the configured
		// file-size cap, so unlike a streaming file server every phase of a
		// request can carry a deadline.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return srv.ListenAndServe()
}

// listenAddr builds the bind address. Loopback only: this is a local helper
// for same-machine tooling and must never be reachable from another host.
func listenAddr(cfg *config.Config) string {
	return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
}

// statusRecorder captures the response status for the request log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying ResponseWriter.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// logRequests emits one structured log line per request and feeds the
// request counter. Logging is best-effort and never alters the response.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		handlers.RecordRequest()
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Microsecond).String(),
		}).Info("request")
	})
}

// recoverPanics converts a handler panic into a generic 500 response so one
// bad request can never take down the listener.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logrus.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"panic": v,
				}).Error("request handler panicked")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintln(w, `{"error":"Internal server error."}`)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// logStartup prints a structured summary of the active configuration.
func logStartup(cfg *config.Config, addr string) {
	sep := "-------------------------------------------"
	logrus.Info(sep)
	logrus.Info("  b64serve")
	logrus.Info(sep)
	logrus.Infof("  %-18s http://%s", "Address:", addr)
	logrus.Infof("  %-18s %d MB", "Max file size:", cfg.MaxFileSizeMB)
	logrus.Infof("  %-18s %s", "Base dir:", cfg.BaseDir)

	if cfg.Bandwidth > 0 {
		logrus.Infof("  %-18s %s/s", "Bandwidth limit:", formatBandwidth(cfg.Bandwidth))
	} else {
		logrus.Infof("  %-18s %s", "Bandwidth limit:", "unlimited")
	}

	logrus.Infof("  %-18s %d", "Allowed roots:", len(cfg.AllowedRoots))
	for _, root := range cfg.AllowedRoots {
		logrus.Infof("    %s", root)
	}
	if len(cfg.AllowedRoots) == 0 {
		logrus.Warn("  no allowed roots configured; every request will be rejected")
	}
	logrus.Info(sep)
}

// formatBandwidth converts a bytes/sec value to a human-readable bits/sec
// string, matching the unit convention users configure with.
func formatBandwidth(bytesPerSec float64) string {
	bits := bytesPerSec * 8
	switch {
	case bits >= 1_000_000_000:
		return fmt.Sprintf("%.2f Gbps", bits/1_000_000_000)
	case bits >= 1_000_000:
		return fmt.Sprintf("%.2f Mbps", bits/1_000_000)
	case bits >= 1_000:
		return fmt.Sprintf("%.2f Kbps", bits/1_000)
	default:
		return fmt.Sprintf("%.0f bps", bits)
	}
}

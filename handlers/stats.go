package handlers

import (
	"net/http"
	"sync"

	"b64serve/models"
)

// serveStats holds the in-memory request counters. Nothing is ever written
// to disk; counters reset when the process restarts.
var serveStats struct {
	mu   sync.Mutex
	data models.StatsSnapshot
}

// RecordRequest counts one inbound HTTP request, whatever its outcome.
func RecordRequest() {
	serveStats.mu.Lock()
	serveStats.data.Requests++
	serveStats.mu.Unlock()
}

// RecordDelivery counts one successfully served file of rawBytes raw bytes.
func RecordDelivery(rawBytes int64) {
	serveStats.mu.Lock()
	serveStats.data.FilesServed++
	serveStats.data.BytesEncoded += rawBytes
	serveStats.mu.Unlock()
}

// RecordRejection counts one request that ended in a classified error.
func RecordRejection() {
	serveStats.mu.Lock()
	serveStats.data.Rejections++
	serveStats.mu.Unlock()
}

// GetStats returns a point-in-time snapshot of the counters.
func GetStats() models.StatsSnapshot {
	serveStats.mu.Lock()
	defer serveStats.mu.Unlock()
	return serveStats.data
}

// resetStats zeroes the counters; used by tests.
func resetStats() {
	serveStats.mu.Lock()
	serveStats.data = models.StatsSnapshot{}
	serveStats.mu.Unlock()
}

// StatsHandler serves the counter snapshot as JSON.
func StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GetStats())
	}
}

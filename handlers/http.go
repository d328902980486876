package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

// errorBody is the JSON shape of every non-success response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON serializes v with the given status. An encoding failure is only
// logged: by then the status line is already on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("response encode failed")
	}
}

// writeError sends the standard {"error": ...} body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// clientIP extracts the remote IP from the request, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

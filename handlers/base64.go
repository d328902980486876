package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"b64serve/config"
	"b64serve/guard"
	"b64serve/models"
)

// failureKind classifies what went wrong while serving an approved path.
// The closed set keeps error mapping at the HTTP boundary a plain switch
// instead of error-code inspection.
type failureKind int

const (
	failNone failureKind = iota
	failNotFound
	failNotAFile
	failTooLarge
	failPermission
	failRead
)

// Base64Handler serves GET /base64?path=<string>: the guard decides whether
// the path may be read, then the file is read whole, base64-encoded, and
// returned with its stat size and inferred MIME type.
func Base64Handler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		raw := r.URL.Query().Get("path")

		verdict := guard.Evaluate(raw, cfg.BaseDir, cfg.AllowedRoots)
		if !verdict.Approved {
			RecordRejection()
			status, msg := verdictError(verdict.Reason, raw)
			entry := logrus.WithFields(logrus.Fields{
				"ip":     clientIP(r),
				"path":   raw,
				"reason": verdict.Reason.String(),
			})
			if verdict.Path != "" {
				entry = entry.WithField("resolved", verdict.Path)
			}
			if verdict.Reason == guard.TraversalDetected || verdict.Reason == guard.NotInAllowedRoot {
				// Security-relevant: always log the offending path, resolved
				// where resolution happened.
				entry.Warn("path rejected")
			} else {
				entry.Info("request rejected")
			}
			writeError(w, status, msg)
			return
		}

		payload, kind, err := deliver(verdict.Path, cfg.MaxFileSizeBytes())
		if kind != failNone {
			RecordRejection()
			status, msg := failureError(kind, cfg.MaxFileSizeMB)
			entry := logrus.WithFields(logrus.Fields{
				"path":   verdict.Path,
				"status": status,
			})
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Error("file delivery failed")
			writeError(w, status, msg)
			return
		}

		RecordDelivery(payload.SizeBytes)
		logrus.WithFields(logrus.Fields{
			"file":     payload.FileName,
			"size":     payload.SizeBytes,
			"duration": time.Since(start).Round(time.Microsecond).String(),
		}).Debug("file delivered")
		writeJSON(w, http.StatusOK, payload)
	}
}

// verdictError maps a guard rejection to its HTTP status and message.
func verdictError(reason guard.Reason, raw string) (int, string) {
	switch reason {
	case guard.MissingInput:
		return http.StatusBadRequest, `Missing "path" query parameter.`
	case guard.InvalidFormat:
		return http.StatusBadRequest, fmt.Sprintf("Invalid path format: %s", raw)
	case guard.TraversalDetected:
		return http.StatusForbidden, "Path traversal attempts are not allowed."
	case guard.NotInAllowedRoot:
		return http.StatusForbidden, "Access to the specified path is not allowed."
	default:
		return http.StatusInternalServerError, "Failed to read or encode file."
	}
}

// failureError maps a delivery failure to its HTTP status and message.
func failureError(kind failureKind, maxMB int) (int, string) {
	switch kind {
	case failNotFound:
		return http.StatusNotFound, "File not found."
	case failNotAFile:
		return http.StatusNotFound, "The specified path is not a file."
	case failTooLarge:
		return http.StatusBadRequest, fmt.Sprintf("File size exceeds maximum allowed (%dMB).", maxMB)
	case failPermission:
		return http.StatusForbidden, "Permission denied to read the file."
	default:
		return http.StatusInternalServerError, "Failed to read or encode file."
	}
}

// deliver turns an approved absolute path into a response payload, or a
// classified failure. maxBytes is checked against the stat size so an
// oversized file is never read into memory.
func deliver(fsPath string, maxBytes int64) (*models.FilePayload, failureKind, error) {
	info, err := os.Stat(fsPath)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, failNotFound, err
		case os.IsPermission(err):
			return nil, failPermission, err
		default:
			return nil, failRead, err
		}
	}
	if !info.Mode().IsRegular() {
		return nil, failNotAFile, nil
	}
	if info.Size() > maxBytes {
		return nil, failTooLarge, nil
	}

	data, err := os.ReadFile(fsPath)
	if err != nil {
		if os.IsPermission(err) {
			return nil, failPermission, err
		}
		return nil, failRead, err
	}

	name := filepath.Base(fsPath)
	return &models.FilePayload{
		FileName:  name,
		SizeBytes: info.Size(),
		MimeType:  mimeForName(name),
		Base64:    base64.StdEncoding.EncodeToString(data),
	}, failNone, nil
}

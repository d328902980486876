// Package models defines data structures used throughout the server.
package models

// FilePayload is the success body of GET /base64.
type FilePayload struct {
	// FileName is the base name only; the full path is never echoed back so
	// responses do not leak directory structure.
	FileName string `json:"fileName"`
	// SizeBytes is the raw byte count from the stat call, before encoding.
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`
	Base64    string `json:"base64"`
}

// FileIndex is a flat inventory of every regular file under the allowed
// roots, served to clients that need to discover fixture paths.
type FileIndex struct {
	Files []IndexEntry `json:"files"`
}

// IndexEntry is a single entry in the file inventory.
// Only regular files are indexed; directories are excluded.
type IndexEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// StatsSnapshot is a point-in-time view of the in-memory request counters.
type StatsSnapshot struct {
	Requests     int64 `json:"requests"`
	FilesServed  int64 `json:"filesServed"`
	BytesEncoded int64 `json:"bytesEncoded"`
	Rejections   int64 `json:"rejections"`
}

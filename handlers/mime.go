package handlers

import (
	"mime"
	"path/filepath"
	"strings"
)

// ownExtensions is checked before the OS MIME registry to prevent
// misclassification of extensions the OS may map to unrelated types
// (e.g. .mod -> audio/x-mod) and to keep common fixture types stable
// across machines with different registries.
var ownExtensions = map[string]string{
	// --- plain text / docs ---
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".rst":      "text/x-rst",

	// --- data / config ---
	".json":  "application/json",
	".yaml":  "application/x-yaml",
	".yml":   "application/x-yaml",
	".toml":  "application/toml",
	".xml":   "application/xml",
	".csv":   "text/csv",
	".tsv":   "text/tab-separated-values",
	".ini":   "text/plain",
	".env":   "text/plain",
	".sql":   "application/sql",

	// --- source ---
	".go":  "text/x-go",
	".mod": "text/plain", // go.mod — OS maps this to audio/x-mod
	".sum": "text/plain", // go.sum
	".c":   "text/x-csrc",
	".h":   "text/x-csrc",
	".cpp": "text/x-c++src",
	".rs":  "text/x-rust",
	".py":  "text/x-python",
	".rb":  "text/x-ruby",
	".js":  "text/javascript",
	".ts":  "text/x-typescript",
	".sh":  "text/x-shellscript",

	// --- images ---
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",

	// --- archives / binaries ---
	".zip": "application/zip",
	".gz":  "application/gzip",
	".tar": "application/x-tar",
	".pdf": "application/pdf",
	".bin": "application/octet-stream",
}

// ownBaseNames covers well-known extensionless file names.
var ownBaseNames = map[string]string{
	"makefile":   "text/plain",
	"dockerfile": "text/plain",
	"license":    "text/plain",
	"readme":     "text/plain",
}

// mimeForName infers a MIME type from a file name alone.
// Order: own extension table, OS registry, known base names,
// application/octet-stream.
func mimeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if t, ok := ownExtensions[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	if t, ok := ownBaseNames[strings.ToLower(filepath.Base(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

package handlers

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"b64serve/models"
)

// safetyTTL is a long backstop expiry on the cached index. Under normal
// operation the filesystem watcher invalidates the cache well before this
// fires; it exists in case a kernel watch event is ever missed.
const safetyTTL = 20 * time.Minute

// indexCache holds the pre-serialized gzip JSON of the file inventory, so
// repeated index requests never trigger a synchronous tree walk or
// per-request encoding.
var indexCache struct {
	mu    sync.Mutex
	gz    []byte
	built time.Time
	valid bool
}

// IndexHandler serves the file inventory of every allowed root, letting
// clients that cannot touch the filesystem discover fixture paths.
func IndexHandler(roots []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := cachedIndexGzip(roots)
		if err != nil {
			logrus.WithError(err).Error("index build failed")
			writeError(w, http.StatusInternalServerError, "Failed to build file index.")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}
}

// cachedIndexGzip returns the cached bytes, rebuilding on the first request
// after an invalidation or TTL expiry.
func cachedIndexGzip(roots []string) ([]byte, error) {
	indexCache.mu.Lock()
	defer indexCache.mu.Unlock()

	if indexCache.valid && time.Since(indexCache.built) < safetyTTL {
		return indexCache.gz, nil
	}

	idx := buildIndex(roots)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(idx); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	indexCache.gz = buf.Bytes()
	indexCache.built = time.Now()
	indexCache.valid = true
	return indexCache.gz, nil
}

// InvalidateIndex marks the cached index stale; the next request rebuilds it.
func InvalidateIndex() {
	indexCache.mu.Lock()
	indexCache.valid = false
	indexCache.mu.Unlock()
}

// buildIndex walks all roots and collects every regular file. Walk errors
// skip the affected subtree rather than failing the whole index — a single
// unreadable directory shouldn't hide every other fixture.
func buildIndex(roots []string) *models.FileIndex {
	idx := &models.FileIndex{Files: []models.IndexEntry{}}
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logrus.WithError(err).Debugf("index: skipping %s", path)
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			idx.Files = append(idx.Files, models.IndexEntry{
				Name: d.Name(),
				Path: path,
				Size: info.Size(),
			})
			return nil
		})
		if err != nil {
			logrus.WithError(err).Warnf("index: walking %s", root)
		}
	}
	return idx
}

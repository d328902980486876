package handlers

import (
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b64serve/models"
)

func decodeIndex(t *testing.T, w *httptest.ResponseRecorder) *models.FileIndex {
	t.Helper()
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	defer zr.Close()

	var idx models.FileIndex
	require.NoError(t, json.NewDecoder(zr).Decode(&idx))
	return &idx
}

func requestIndex(roots []string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/index", nil)
	w := httptest.NewRecorder()
	IndexHandler(roots)(w, req)
	return w
}

func TestIndexHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aaa"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.bin"), []byte("bb"), 0o644))

	InvalidateIndex()
	w := requestIndex([]string{dir})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	idx := decodeIndex(t, w)
	require.Len(t, idx.Files, 2)

	byName := map[string]models.IndexEntry{}
	for _, e := range idx.Files {
		byName[e.Name] = e
	}
	assert.Equal(t, int64(3), byName["a.txt"].Size)
	assert.Equal(t, filepath.Join(dir, "a.txt"), byName["a.txt"].Path)
	assert.Equal(t, int64(2), byName["b.bin"].Size)
}

func TestIndexCacheInvalidation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "first.txt"), []byte("1"), 0o644))

	InvalidateIndex()
	idx := decodeIndex(t, requestIndex([]string{dir}))
	require.Len(t, idx.Files, 1)

	// Without invalidation the cached bytes are reused.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.txt"), []byte("2"), 0o644))
	idx = decodeIndex(t, requestIndex([]string{dir}))
	assert.Len(t, idx.Files, 1)

	// After invalidation the new file shows up.
	InvalidateIndex()
	idx = decodeIndex(t, requestIndex([]string{dir}))
	assert.Len(t, idx.Files, 2)
}

func TestBuildIndexEmptyRoots(t *testing.T) {
	idx := buildIndex(nil)
	require.NotNil(t, idx)
	assert.Empty(t, idx.Files)
}

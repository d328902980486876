package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b64serve/models"
)

func TestStatsCounters(t *testing.T) {
	resetStats()

	RecordRequest()
	RecordRequest()
	RecordDelivery(1024)
	RecordRejection()

	snap := GetStats()
	assert.Equal(t, int64(2), snap.Requests)
	assert.Equal(t, int64(1), snap.FilesServed)
	assert.Equal(t, int64(1024), snap.BytesEncoded)
	assert.Equal(t, int64(1), snap.Rejections)
}

func TestStatsHandler(t *testing.T) {
	resetStats()
	RecordDelivery(7)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	StatsHandler()(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snap models.StatsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.FilesServed)
	assert.Equal(t, int64(7), snap.BytesEncoded)
}

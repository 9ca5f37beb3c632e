package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/entries", http.StatusOK, 4*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/entries", http.StatusOK, 2*time.Millisecond)
	m.RecordConflict(models.ConflictTeacher)
	m.RecordMutation("create_entry")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 3.0, snap.AverageRequestDurationMs, 0.0001)
	assert.Equal(t, uint64(1), snap.ConflictsRejected)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `timetable_conflicts_total{dimension="TEACHER"} 1`)
	assert.Contains(t, w.Body.String(), `timetable_mutations_total{operation="create_entry"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordConflict(models.ConflictRoom)
	m.RecordMutation("swap_entries")
	m.ObserveDBQuery("list", time.Millisecond)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

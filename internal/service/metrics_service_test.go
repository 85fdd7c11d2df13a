package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesDepositCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/deposits/:id/files", http.StatusCreated, 10*time.Millisecond)
	m.RecordFileOperation("upload", nil)
	m.RecordFileOperation("rename", errors.New("bad name"))
	m.AddUploadedBytes(4)
	m.SetSearchPending(2)
	m.ObserveDBQuery("deposit_get", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `deposit_file_operations_total{operation="upload",result="success"} 1`)
	assert.Contains(t, body, `deposit_file_operations_total{operation="rename",result="error"} 1`)
	assert.Contains(t, body, "deposit_file_bytes_uploaded_total 4")
	assert.Contains(t, body, "deposit_search_pending_jobs 2")
	assert.Contains(t, body, "db_query_duration_seconds")
	assert.Contains(t, body, "http_requests_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordFileOperation("upload", nil)
	m.AddUploadedBytes(10)
	m.SetSearchPending(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

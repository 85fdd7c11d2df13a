package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for deposit file operations.
const (
	resultSuccess = "success"
	resultError   = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	fileOperations  *prometheus.CounterVec
	bytesUploaded   prometheus.Counter
	searchPending   prometheus.Gauge
	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	fileOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deposit_file_operations_total",
		Help: "Deposit file operations by outcome",
	}, []string{"operation", "result"})

	bytesUploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deposit_file_bytes_uploaded_total",
		Help: "Bytes accepted into deposit files",
	})

	searchPending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "deposit_search_pending_jobs",
		Help: "Search view index jobs not yet applied",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, fileOperations, bytesUploaded, searchPending, dbQueryDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		fileOperations:  fileOperations,
		bytesUploaded:   bytesUploaded,
		searchPending:   searchPending,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordFileOperation counts one deposit file operation.
func (m *MetricsService) RecordFileOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.fileOperations.WithLabelValues(operation, result).Inc()
}

// AddUploadedBytes adds committed upload volume.
func (m *MetricsService) AddUploadedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesUploaded.Add(float64(n))
}

// SetSearchPending publishes the number of outstanding index jobs.
func (m *MetricsService) SetSearchPending(n int64) {
	if m == nil {
		return
	}
	m.searchPending.Set(float64(n))
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

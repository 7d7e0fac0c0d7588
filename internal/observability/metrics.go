// Package observability mengumpulkan metrik Prometheus untuk ProcureDesk.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mutationsTotal  *prometheus.CounterVec
	syncFailures    *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	storeRequests   prometheus.Gauge
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procuredesk_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "procuredesk_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procuredesk_request_mutations_total",
		Help: "Mutasi request berdasarkan operasi dan hasil sinkronisasi.",
	}, []string{"op", "result"})
	syncFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procuredesk_request_sync_failures_total",
		Help: "Kegagalan persistensi ke backend per operasi.",
	}, []string{"op"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procuredesk_jobs_total",
		Help: "Eksekusi job latar belakang berdasarkan task dan hasil.",
	}, []string{"task", "outcome"})
	storeRequests := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "procuredesk_store_requests",
		Help: "Jumlah request di store memori.",
	})
	registry.MustRegister(requests, duration, mutations, syncFailures, jobs, storeRequests)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		mutationsTotal:  mutations,
		syncFailures:    syncFailures,
		jobsTotal:       jobs,
		storeRequests:   storeRequests,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveMutation mencatat hasil satu mutasi request.
func (m *Metrics) ObserveMutation(op, result string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(op, result).Inc()
}

// ObserveSyncFailure mencatat kegagalan persistensi ke backend.
func (m *Metrics) ObserveSyncFailure(op string) {
	if m == nil {
		return
	}
	m.syncFailures.WithLabelValues(op).Inc()
}

// ObserveJob mencatat eksekusi job asynq.
func (m *Metrics) ObserveJob(task, outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, outcome).Inc()
}

// SetStoreSize memperbarui gauge ukuran store.
func (m *Metrics) SetStoreSize(n int) {
	if m == nil {
		return
	}
	m.storeRequests.Set(float64(n))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

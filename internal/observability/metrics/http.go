package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal   *prometheus.CounterVec
	ragNoResultsTotal  *prometheus.CounterVec
	ragFailuresTotal   *prometheus.CounterVec
	ragRetrievedChunks *prometheus.HistogramVec
	ragDuration        *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knou",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "knou",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful searches by retrieval path.",
		},
		[]string{"service", "endpoint", "path"},
	)
	ragNoResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "rag",
			Name:      "no_results_total",
			Help:      "Total searches where every strategy came back empty.",
		},
		[]string{"service", "endpoint"},
	)
	ragFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knou",
			Subsystem: "rag",
			Name:      "failures_total",
			Help:      "Total searches that failed.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knou",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of returned chunks per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 13, 21},
		},
		[]string{"service", "endpoint", "path"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knou",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Search duration in seconds by retrieval path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint", "path"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragNoResultsTotal,
		ragFailuresTotal,
		ragRetrievedChunks,
		ragDuration,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		ragRequestsTotal:   ragRequestsTotal,
		ragNoResultsTotal:  ragNoResultsTotal,
		ragFailuresTotal:   ragFailuresTotal,
		ragRetrievedChunks: ragRetrievedChunks,
		ragDuration:        ragDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordRAGObservation records one successful search. path is the retrieval
// branch that produced the result (latest, date or hybrid).
func (m *HTTPServerMetrics) RecordRAGObservation(service, endpoint, path string, sourceCount int, duration time.Duration) {
	if path == "" {
		path = "unknown"
	}
	m.ragRequestsTotal.WithLabelValues(service, endpoint, path).Inc()
	m.ragRetrievedChunks.WithLabelValues(service, endpoint, path).Observe(float64(sourceCount))
	m.ragDuration.WithLabelValues(service, endpoint, path).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRAGNoResults(service, endpoint string) {
	m.ragNoResultsTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordRAGFailure(service, endpoint string) {
	m.ragFailuresTotal.WithLabelValues(service, endpoint).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}

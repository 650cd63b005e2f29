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

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	estimatesTotal     *prometheus.CounterVec
	inferenceDuration  *prometheus.HistogramVec
	llmTokensTotal     *prometheus.CounterVec
	unsavedResultTotal prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jva",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jva",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jva",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	estimatesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jva",
			Subsystem: "estimate",
			Name:      "requests_total",
			Help:      "Total completed estimation pipeline runs by job type and outcome.",
		},
		[]string{"service", "job_type", "outcome"},
	)
	inferenceDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jva",
			Subsystem: "estimate",
			Name:      "inference_duration_seconds",
			Help:      "Wall-clock duration of the external model call.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"service", "job_type"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jva",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the provider, by direction.",
		},
		[]string{"service", "direction", "model"},
	)
	unsavedResultTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jva",
			Subsystem: "estimate",
			Name:      "unsaved_results_total",
			Help:      "Estimates returned to the caller that could not be persisted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		estimatesTotal,
		inferenceDuration,
		llmTokensTotal,
		unsavedResultTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		estimatesTotal:     estimatesTotal,
		inferenceDuration:  inferenceDuration,
		llmTokensTotal:     llmTokensTotal,
		unsavedResultTotal: unsavedResultTotal,
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
	case strings.HasPrefix(path, "/api/estimate/"):
		return "/api/estimate/{id}"
	default:
		return path
	}
}

// service label is fixed at construction for the observer methods; they are
// called from the usecase, which has no HTTP context.
type EstimateObserver struct {
	service string
	metrics *HTTPServerMetrics
}

func (m *HTTPServerMetrics) EstimateObserver(service string) *EstimateObserver {
	return &EstimateObserver{service: service, metrics: m}
}

func (o *EstimateObserver) ObserveInference(jobType domain.JobType, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.metrics.estimatesTotal.WithLabelValues(o.service, string(jobType), outcome).Inc()
	o.metrics.inferenceDuration.WithLabelValues(o.service, string(jobType)).Observe(duration.Seconds())
}

func (o *EstimateObserver) ObserveUnsavedResult() {
	o.metrics.unsavedResultTotal.Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues("api", "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues("api", "out", model).Add(float64(completionTokens))
	}
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

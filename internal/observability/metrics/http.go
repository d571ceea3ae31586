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

	"hrkb/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	routeTotal         *prometheus.CounterVec
	routeDuration      *prometheus.HistogramVec
	routeCandidates    *prometheus.HistogramVec
	degradedStageTotal *prometheus.CounterVec
	relevanceMaxScore  *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrkb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrkb",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hrkb",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	routeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrkb",
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Total routed queries by final answering strategy.",
		},
		[]string{"service", "strategy"},
	)
	routeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrkb",
			Subsystem: "router",
			Name:      "duration_seconds",
			Help:      "Full routing pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	routeCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrkb",
			Subsystem: "router",
			Name:      "candidates",
			Help:      "Distribution of returned candidates per routed query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "strategy"},
	)
	degradedStageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hrkb",
			Subsystem: "router",
			Name:      "degraded_stage_total",
			Help:      "Total pipeline stage degradations by stage.",
		},
		[]string{"service", "stage"},
	)
	relevanceMaxScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hrkb",
			Subsystem: "router",
			Name:      "relevance_max_score",
			Help:      "Distribution of the top relevance score per query.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		routeTotal,
		routeDuration,
		routeCandidates,
		degradedStageTotal,
		relevanceMaxScore,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		routeTotal:         routeTotal,
		routeDuration:      routeDuration,
		routeCandidates:    routeCandidates,
		degradedStageTotal: degradedStageTotal,
		relevanceMaxScore:  relevanceMaxScore,
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

// RecordRouteDecision observes one completed routing call.
func (m *HTTPServerMetrics) RecordRouteDecision(service string, decision *domain.RouteDecision, duration time.Duration) {
	if decision == nil {
		return
	}
	strategy := string(decision.Strategy)
	m.routeTotal.WithLabelValues(service, strategy).Inc()
	m.routeDuration.WithLabelValues(service, strategy).Observe(duration.Seconds())
	m.routeCandidates.WithLabelValues(service, strategy).Observe(float64(len(decision.Candidates)))
	m.relevanceMaxScore.WithLabelValues(service).Observe(decision.Report.MaxScore)

	if decision.Degraded.RewriteFailed {
		m.degradedStageTotal.WithLabelValues(service, "rewrite").Inc()
	}
	if decision.Degraded.DenseFailed {
		m.degradedStageTotal.WithLabelValues(service, "dense").Inc()
	}
	if decision.Degraded.SparseFailed {
		m.degradedStageTotal.WithLabelValues(service, "sparse").Inc()
	}
	if decision.Degraded.RerankSkipped {
		m.degradedStageTotal.WithLabelValues(service, "rerank").Inc()
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

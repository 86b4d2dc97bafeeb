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

// HTTPServerMetrics owns the API registry: generic HTTP request metrics
// plus the answer-pipeline counters the retrieval team watches.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal       *prometheus.CounterVec
	answerModeTotal    *prometheus.CounterVec
	gatePromptsTotal   *prometheus.CounterVec
	gateResolvedTotal  *prometheus.CounterVec
	rescueAdmissions   *prometheus.CounterVec
	retrievedPassages  *prometheus.HistogramVec
	noGroundingTotal   *prometheus.CounterVec
	citationsPerAnswer *prometheus.HistogramVec
	answerDuration     *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rwc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rwc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "ask",
			Name:      "answers_total",
			Help:      "Total completed ask turns.",
		},
		[]string{"service"},
	)
	answerModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "ask",
			Name:      "answer_mode_total",
			Help:      "Total answers by routing mode.",
		},
		[]string{"service", "mode"},
	)
	gatePromptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "gate",
			Name:      "prompts_total",
			Help:      "Total clarifying prompts issued instead of answers.",
		},
		[]string{"service", "question_key"},
	)
	gateResolvedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "gate",
			Name:      "resolved_total",
			Help:      "Total gates resolved into a full retrieval query.",
		},
		[]string{"service", "question_key"},
	)
	rescueAdmissions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "retrieval",
			Name:      "rescue_admissions_total",
			Help:      "Total priority passages admitted by the rescue pass.",
		},
		[]string{"service", "source"},
	)
	retrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rwc",
			Subsystem: "retrieval",
			Name:      "retrieved_passages",
			Help:      "Distribution of passages retained per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 12, 20},
		},
		[]string{"service", "mode"},
	)
	noGroundingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwc",
			Subsystem: "retrieval",
			Name:      "no_grounding_total",
			Help:      "Total answers generated without any retrieved passage.",
		},
		[]string{"service"},
	)
	citationsPerAnswer := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rwc",
			Subsystem: "ask",
			Name:      "citations_per_answer",
			Help:      "Distribution of citations attached to strict answers.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rwc",
			Subsystem: "ask",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end ask turn duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerModeTotal,
		gatePromptsTotal,
		gateResolvedTotal,
		rescueAdmissions,
		retrievedPassages,
		noGroundingTotal,
		citationsPerAnswer,
		answerDuration,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		answersTotal:       answersTotal,
		answerModeTotal:    answerModeTotal,
		gatePromptsTotal:   gatePromptsTotal,
		gateResolvedTotal:  gateResolvedTotal,
		rescueAdmissions:   rescueAdmissions,
		retrievedPassages:  retrievedPassages,
		noGroundingTotal:   noGroundingTotal,
		citationsPerAnswer: citationsPerAnswer,
		answerDuration:     answerDuration,
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

// RecordAnswer records one completed ask turn that produced an answer.
func (m *HTTPServerMetrics) RecordAnswer(service, mode string, passages, citations int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.answersTotal.WithLabelValues(service).Inc()
	m.answerModeTotal.WithLabelValues(service, mode).Inc()
	m.retrievedPassages.WithLabelValues(service, mode).Observe(float64(passages))
	m.citationsPerAnswer.WithLabelValues(service).Observe(float64(citations))
	m.answerDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
	if passages == 0 {
		m.noGroundingTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordGatePrompt(service, questionKey string) {
	if questionKey == "" {
		questionKey = "unknown"
	}
	m.gatePromptsTotal.WithLabelValues(service, questionKey).Inc()
}

func (m *HTTPServerMetrics) RecordGateResolved(service, questionKey string) {
	if questionKey == "" {
		questionKey = "unknown"
	}
	m.gateResolvedTotal.WithLabelValues(service, questionKey).Inc()
}

func (m *HTTPServerMetrics) RecordRescueAdmission(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.rescueAdmissions.WithLabelValues(service, source).Inc()
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

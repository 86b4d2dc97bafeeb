package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
	"github.com/roofwise/compliance-assistant/internal/observability/metrics"
)

const serviceName = "compliance-api"

// SourceToggler switches a whole source collection in or out of the
// retrievable corpus, e.g. when a standard is superseded.
type SourceToggler interface {
	SetSourceActive(ctx context.Context, source string, active bool) error
}

// Router exposes the public API: one conversational ask endpoint and the
// document ingestion surface.
type Router struct {
	ask     ports.AskService
	ingest  ports.DocumentIngestor
	repo    ports.DocumentRepository
	sources SourceToggler
	metrics *metrics.HTTPServerMetrics
	limiter *rateLimiter
	logger  *slog.Logger
}

type RouterOptions struct {
	Sources       SourceToggler
	Metrics       *metrics.HTTPServerMetrics
	RatePerSecond float64
	RateBurst     int
	Logger        *slog.Logger
}

func NewRouter(ask ports.AskService, ingest ports.DocumentIngestor, repo ports.DocumentRepository, opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rateLimiter
	if opts.RatePerSecond > 0 {
		limiter = newRateLimiter(opts.RatePerSecond, opts.RateBurst)
	}
	return &Router{
		ask:     ask,
		ingest:  ingest,
		repo:    repo,
		sources: opts.Sources,
		metrics: opts.Metrics,
		limiter: limiter,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.askQuestion)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.sources != nil {
		mux.HandleFunc("/v1/sources/active", rt.setSourceActive)
	}
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.limiter != nil {
		handler = rt.limiter.middleware(handler)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.ask.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		rt.writeError(w, r, "ask", err)
		return
	}

	rt.recordAnswer(answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordAnswer(answer *domain.Answer, duration time.Duration) {
	if rt.metrics == nil || answer == nil {
		return
	}
	rt.metrics.RecordAnswer(
		serviceName,
		string(answer.Stats.Mode),
		answer.Stats.Retrieved,
		len(answer.Citations),
		duration,
	)
}

func (rt *Router) setSourceActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Source string `json:"source"`
		Active *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Source) == "" || req.Active == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source and active are required"})
		return
	}

	if err := rt.sources.SetSourceActive(r.Context(), req.Source, *req.Active); err != nil {
		rt.writeError(w, r, "set source active", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": req.Source, "active": *req.Active})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	priority := 0
	if raw := strings.TrimSpace(r.FormValue("priority")); raw != "" {
		priority, err = strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "priority must be an integer"})
			return
		}
	}

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		r.FormValue("source"),
		priority,
		file,
	)
	if err != nil {
		rt.writeError(w, r, "upload document", err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// writeError maps domain error kinds to statuses. Internal detail stays
// in the log; callers get a stable message per status class.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	rt.logger.Error("request failed",
		slog.String("operation", operation),
		slog.String("request_id", requestIDFromContext(r.Context())),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	writeJSON(w, status, map[string]string{"error": publicErrorMessage(status, err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

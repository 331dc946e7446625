package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
	"github.com/kirillkom/knou-assistant/internal/observability/metrics"
)

const (
	serviceName = "api"

	emptyQueryMessage = "질문을 입력해주세요."
	healthMessage     = "KNOU 챗봇 서버가 정상 작동 중입니다."
	maxQueryBodyBytes = 16 << 10
)

type Dependencies struct {
	Searcher  ports.Searcher
	Chat      ports.ChatService
	Documents ports.DocumentReader
	DataRange ports.DataRangeReader
	Metrics   *metrics.HTTPServerMetrics
	Logger    *slog.Logger
}

type Router struct {
	cfg       config.Config
	searcher  ports.Searcher
	chat      ports.ChatService
	documents ports.DocumentReader
	dataRange ports.DataRangeReader
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	validator *requestValidator
}

func NewRouter(cfg config.Config, deps Dependencies) (*Router, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:       cfg,
		searcher:  deps.Searcher,
		chat:      deps.Chat,
		documents: deps.Documents,
		dataRange: deps.DataRange,
		metrics:   deps.Metrics,
		logger:    logger,
		validator: validator,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", rt.health)
	mux.HandleFunc("/api/chat-stream", rt.chatStream)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/data-range", rt.getDataRange)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = rt.validator.middleware(mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return otelhttp.NewHandler(handler, "knou-api")
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": healthMessage})
}

// chatStream writes the answer as plain text, flushing after every chunk.
func (rt *Router) chatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": emptyQueryMessage})
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	err := rt.chat.Stream(r.Context(), req.Query, func(chunk string) error {
		if _, err := io.WriteString(w, chunk); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		rt.logger.Warn("chat_stream_aborted", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var (
		query string
		limit *int
	)
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", params, &query); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	resultCount := rt.cfg.RAGTopK
	if limit != nil {
		resultCount = *limit
	}

	start := time.Now()
	result, err := rt.searcher.Search(r.Context(), query, resultCount)
	if err != nil {
		rt.recordSearchError(r.URL.Path, err)
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, r.URL.Path, string(result.Path), len(result.Items), time.Since(start))
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recordSearchError(endpoint string, err error) {
	if rt.metrics == nil {
		return
	}
	if errors.Is(err, domain.ErrNoResults) {
		rt.metrics.RecordRAGNoResults(serviceName, endpoint)
		return
	}
	rt.metrics.RecordRAGFailure(serviceName, endpoint)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var id string
	raw := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, raw, &id); err != nil || id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	docs, err := rt.documents.GetByIDs(r.Context(), []string{id})
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrStoreFailure, "get document", err))
		return
	}
	if len(docs) == 0 {
		writeError(w, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id)))
		return
	}
	writeJSON(w, http.StatusOK, docs[0])
}

func (rt *Router) getDataRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	dateRange, err := rt.dataRange.DateRange(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dateRange)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": errorMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

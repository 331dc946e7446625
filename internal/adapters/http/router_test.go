package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/observability/metrics"
)

type searcherFake struct {
	result domain.SearchResult
	err    error
	query  string
	count  int
}

func (f *searcherFake) Search(_ context.Context, query string, resultCount int) (domain.SearchResult, error) {
	f.query, f.count = query, resultCount
	return f.result, f.err
}

type chatFake struct {
	chunks []string
	query  string
}

func (f *chatFake) Stream(_ context.Context, query string, onChunk func(string) error) error {
	f.query = query
	for _, chunk := range f.chunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

type documentsFake struct {
	docs map[string]domain.Document
	err  error
}

func (f documentsFake) GetByIDs(_ context.Context, ids []string) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Document
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

type dataRangeFake struct {
	result domain.DateRange
	err    error
}

func (f dataRangeFake) DateRange(context.Context) (domain.DateRange, error) {
	return f.result, f.err
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestHandler(t *testing.T, cfg config.Config, deps Dependencies) http.Handler {
	t.Helper()
	if deps.Searcher == nil {
		deps.Searcher = &searcherFake{}
	}
	if deps.Chat == nil {
		deps.Chat = &chatFake{}
	}
	if deps.Documents == nil {
		deps.Documents = documentsFake{}
	}
	if deps.DataRange == nil {
		deps.DataRange = dataRangeFake{}
	}
	deps.Logger = discardLogger
	if cfg.RAGTopK == 0 {
		cfg.RAGTopK = 5
	}

	router, err := NewRouter(cfg, deps)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}

func serve(handler http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	res := serve(newTestHandler(t, config.Config{}, Dependencies{}), http.MethodGet, "/api/health", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["status"] != "healthy" || body["message"] != healthMessage {
		t.Fatalf("unexpected health body %v", body)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestChatStreamWritesPlainText(t *testing.T) {
	chat := &chatFake{chunks: []string{"**등록금**", " 납부는 8월입니다."}}
	handler := newTestHandler(t, config.Config{}, Dependencies{Chat: chat})

	res := serve(handler, http.MethodPost, "/api/chat-stream", strings.NewReader(`{"query":"등록금 언제 내?"}`))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("expected text/plain, got %q", got)
	}
	if res.Body.String() != "**등록금** 납부는 8월입니다." {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
	if chat.query != "등록금 언제 내?" {
		t.Fatalf("expected query forwarded, got %q", chat.query)
	}
}

func TestChatStreamRejectsBlankQuery(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, Dependencies{})

	res := serve(handler, http.MethodPost, "/api/chat-stream", strings.NewReader(`{"query":"   "}`))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["error"] != emptyQueryMessage {
		t.Fatalf("unexpected error body %v", body)
	}

	res = serve(handler, http.MethodGet, "/api/chat-stream", nil)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestSearchReturnsResult(t *testing.T) {
	searcher := &searcherFake{result: domain.SearchResult{
		Query: "최신 공지",
		Path:  domain.PathLatest,
		Items: []domain.ResultItem{{Document: domain.Document{ID: "n1", Text: "본문", Metadata: domain.Metadata{Type: domain.TypeNotice}}}},
	}}
	m := metrics.NewHTTPServerMetrics(serviceName)
	handler := newTestHandler(t, config.Config{}, Dependencies{Searcher: searcher, Metrics: m})

	res := serve(handler, http.MethodGet, "/v1/search?q=%EC%B5%9C%EC%8B%A0+%EA%B3%B5%EC%A7%80&limit=3", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if searcher.query != "최신 공지" || searcher.count != 3 {
		t.Fatalf("expected query and limit forwarded, got %q/%d", searcher.query, searcher.count)
	}
	var result struct {
		Path  domain.SearchPath   `json:"path"`
		Items []domain.ResultItem `json:"items"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Path != domain.PathLatest || len(result.Items) != 1 || result.Items[0].Document.ID != "n1" {
		t.Fatalf("unexpected result %+v", result)
	}

	scrape := serve(handler, http.MethodGet, "/metrics", nil)
	if !strings.Contains(scrape.Body.String(), `knou_rag_requests_total{endpoint="/v1/search",path="latest",service="api"} 1`) {
		t.Fatalf("expected rag observation in metrics, got:\n%s", scrape.Body.String())
	}
}

func TestSearchUsesDefaultLimit(t *testing.T) {
	searcher := &searcherFake{}
	handler := newTestHandler(t, config.Config{RAGTopK: 7}, Dependencies{Searcher: searcher})

	res := serve(handler, http.MethodGet, "/v1/search?q=abc", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if searcher.count != 7 {
		t.Fatalf("expected default limit 7, got %d", searcher.count)
	}
}

func TestSearchValidatesParameters(t *testing.T) {
	searcher := &searcherFake{}
	handler := newTestHandler(t, config.Config{}, Dependencies{Searcher: searcher})

	for _, target := range []string{"/v1/search", "/v1/search?q=a&limit=0", "/v1/search?q=a&limit=abc", "/v1/search?q=a&limit=51"} {
		res := serve(handler, http.MethodGet, target, nil)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, res.Code)
		}
	}
	if searcher.query != "" {
		t.Fatalf("expected searcher not to be called")
	}
}

func TestSearchMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNoResults, http.StatusNotFound},
		{domain.WrapError(domain.ErrStoreFailure, "scan documents", errors.New("down")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrInvalidInput, "search", errors.New("blank")), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestHandler(t, config.Config{}, Dependencies{Searcher: &searcherFake{err: tc.err}})
		res := serve(handler, http.MethodGet, "/v1/search?q=x", nil)
		if res.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, res.Code)
		}
	}

	handler := newTestHandler(t, config.Config{}, Dependencies{Searcher: &searcherFake{err: domain.ErrNoResults}})
	res := serve(handler, http.MethodGet, "/v1/search?q=x", nil)
	if body := decodeBody(t, res); body["error"] != domain.MessageNoResults {
		t.Fatalf("expected no-results message, got %v", body)
	}
}

func TestGetDocumentByID(t *testing.T) {
	docs := documentsFake{docs: map[string]domain.Document{
		"notice_0123456789ab_0": {ID: "notice_0123456789ab_0", Text: "본문", Metadata: domain.Metadata{Type: domain.TypeNotice}},
	}}
	handler := newTestHandler(t, config.Config{}, Dependencies{Documents: docs})

	res := serve(handler, http.MethodGet, "/v1/documents/notice_0123456789ab_0", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["id"] != "notice_0123456789ab_0" {
		t.Fatalf("unexpected document %v", body)
	}

	res = serve(handler, http.MethodGet, "/v1/documents/missing", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}

	failing := newTestHandler(t, config.Config{}, Dependencies{Documents: documentsFake{err: errors.New("db down")}})
	res = serve(failing, http.MethodGet, "/v1/documents/x", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestGetDataRange(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, Dependencies{DataRange: dataRangeFake{
		result: domain.DateRange{Latest: "2025-07-18", Oldest: "2024-03-02", TotalDates: 42},
	}})
	res := serve(handler, http.MethodGet, "/v1/data-range", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["latest"] != "2025-07-18" || body["total_dates"] != float64(42) {
		t.Fatalf("unexpected body %v", body)
	}

	empty := newTestHandler(t, config.Config{}, Dependencies{DataRange: dataRangeFake{err: domain.ErrNoResults}})
	if res := serve(empty, http.MethodGet, "/v1/data-range", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty corpus, got %d", res.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newTestHandler(t, config.Config{}, Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestHandler(t, config.Config{APIRateLimitRPS: 1, APIRateLimitBurst: 1}, Dependencies{})

	res1 := serve(handler, http.MethodGet, "/v1/search?q=a", nil)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}
	res2 := serve(handler, http.MethodGet, "/v1/search?q=a", nil)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
	if res := serve(handler, http.MethodGet, "/api/health", nil); res.Code != http.StatusOK {
		t.Fatalf("expected health to bypass rate limit, got %d", res.Code)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		res := serve(handler, http.MethodGet, "/v1/search?q=a", nil)
		done <- res.Code
	}()

	<-started

	res2 := serve(handler, http.MethodGet, "/v1/search?q=a", nil)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidInput:        http.StatusBadRequest,
		domain.ErrDocumentNotFound:    http.StatusNotFound,
		domain.ErrNoResults:           http.StatusNotFound,
		domain.ErrTemporary:           http.StatusServiceUnavailable,
		domain.ErrStoreFailure:        http.StatusServiceUnavailable,
		domain.ErrCollaboratorFailure: http.StatusServiceUnavailable,
		errors.New("unknown"):         http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := mapErrorToHTTPStatus(domain.WrapError(err, "op", errors.New("cause"))); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

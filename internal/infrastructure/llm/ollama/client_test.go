package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/resilience"
)

func TestGeneratorSendsPrompt(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  1. 등록금 납부 기간  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	out, err := gen.Generate(context.Background(), "재작성해주세요")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "1. 등록금 납부 기간" {
		t.Fatalf("expected trimmed response, got %q", out)
	}
	if captured["prompt"] != "재작성해주세요" || captured["model"] != "gen" || captured["stream"] != false {
		t.Fatalf("unexpected request payload: %v", captured)
	}
}

func TestGenerateStreamForwardsChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["stream"] != true {
			t.Fatalf("expected stream=true, got %v", payload["stream"])
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte("{\"response\":\"**핵심\",\"done\":false}\n\n{\"response\":\" 요약**\",\"done\":false}\n{\"response\":\"\",\"done\":true}\n"))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	var chunks []string
	err := gen.GenerateStream(context.Background(), "p", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if strings.Join(chunks, "|") != "**핵심| 요약**" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}

func TestGenerateStreamReportsErrorLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"response\":\"부분\"}\n{\"error\":\"model crashed\"}\n"))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	err := gen.GenerateStream(context.Background(), "p", func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "model crashed") {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestGenerateStreamTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"response\":\"부분\"}\n"))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	if err := gen.GenerateStream(context.Background(), "p", func(string) error { return nil }); err == nil {
		t.Fatalf("expected error for stream without done")
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestEmbedRetriesTransientStatus(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	}, nil)
	embedder := NewEmbedder(NewWithOptions(server.URL, "gen", "embed", Options{ResilienceExecutor: exec}))

	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || attempts != 2 {
		t.Fatalf("expected 2 vectors after 2 attempts, got %d vectors, %d attempts", len(vectors), attempts)
	}
}

func TestEmbedQueryRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	if _, err := embedder.EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatalf("expected error for empty embeddings")
	}
}

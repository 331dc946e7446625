package bootstrap

import (
	"testing"
	"time"

	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/vector/qdrant"
)

func TestNewVectorIndexSelectsTransport(t *testing.T) {
	index, closeIndex, err := newVectorIndex(config.Config{QdrantURL: "http://localhost:6333", QdrantCollection: "c"}, nil)
	if err != nil {
		t.Fatalf("rest transport error = %v", err)
	}
	closeIndex()
	if _, ok := index.(*qdrant.Client); !ok {
		t.Fatalf("expected REST client, got %T", index)
	}

	index, closeIndex, err = newVectorIndex(config.Config{QdrantTransport: "GRPC", QdrantGRPCAddr: "localhost:6334", QdrantCollection: "c"}, nil)
	if err != nil {
		t.Fatalf("grpc transport error = %v", err)
	}
	defer closeIndex()
	if _, ok := index.(*qdrant.GRPCClient); !ok {
		t.Fatalf("expected gRPC client, got %T", index)
	}

	if _, _, err := newVectorIndex(config.Config{QdrantTransport: "carrier-pigeon"}, nil); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestResilienceConfigFromSettings(t *testing.T) {
	got := resilienceConfig(config.Config{
		RetryMaxAttempts:        4,
		RetryInitialBackoffMS:   50,
		RetryMaxBackoffMS:       800,
		RetryMultiplier:         3,
		BreakerEnabled:          true,
		BreakerMinRequests:      20,
		BreakerFailureRatio:     0.25,
		BreakerOpenTimeoutMS:    5000,
		BreakerHalfOpenMaxCalls: -1,
	})
	if got.RetryMaxAttempts != 4 || got.RetryInitialBackoff != 50*time.Millisecond || got.RetryMaxBackoff != 800*time.Millisecond {
		t.Fatalf("unexpected retry settings %+v", got)
	}
	if !got.BreakerEnabled || got.BreakerMinRequests != 20 || got.BreakerOpenTimeout != 5*time.Second {
		t.Fatalf("unexpected breaker settings %+v", got)
	}
	if got.BreakerHalfOpenMaxCalls != 0 {
		t.Fatalf("expected negative half-open calls to clamp to 0, got %d", got.BreakerHalfOpenMaxCalls)
	}
}

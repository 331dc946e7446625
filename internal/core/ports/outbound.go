package ports

import (
	"context"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// DocumentStore is the read side of the indexed notice corpus.
type DocumentStore interface {
	NearestNeighbors(ctx context.Context, text string, limit int) ([]domain.Document, error)
	ScanAll(ctx context.Context) ([]domain.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
}

// Generator produces text from a prompt. Callers must treat it as unreliable.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamGenerator delivers generated text incrementally.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores chunk vectors with their payload and performs
// nearest-neighbor search.
type VectorIndex interface {
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, limit int) ([]domain.Document, error)
}

// ChunkCatalog is the relational copy of every indexed chunk.
type ChunkCatalog interface {
	SaveChunks(ctx context.Context, docs []domain.Document) error
	ListChunks(ctx context.Context) ([]domain.Document, error)
	GetChunks(ctx context.Context, ids []string) ([]domain.Document, error)
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
}

// Chunker splits text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// SourceLoader reads raw notice/schedule records from a file.
type SourceLoader interface {
	Load(ctx context.Context, path string, docType domain.DocumentType) ([]domain.SourceRecord, error)
}

// IngestQueue publishes/consumes ingestion jobs.
type IngestQueue interface {
	PublishIngestJob(ctx context.Context, job domain.IngestJob) error
	SubscribeIngestJobs(ctx context.Context, handler func(context.Context, domain.IngestJob) error) error
}

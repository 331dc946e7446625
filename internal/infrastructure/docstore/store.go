package docstore

import (
	"context"
	"fmt"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

// Store serves the indexed corpus: vectors come from the index, full chunks
// and scans from the relational catalog.
type Store struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	catalog  ports.ChunkCatalog
}

func New(embedder ports.Embedder, index ports.VectorIndex, catalog ports.ChunkCatalog) *Store {
	return &Store{embedder: embedder, index: index, catalog: catalog}
}

func (s *Store) NearestNeighbors(ctx context.Context, text string, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		return []domain.Document{}, nil
	}
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs, err := s.index.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}
	return docs, nil
}

func (s *Store) ScanAll(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.catalog.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return docs, nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return []domain.Document{}, nil
	}
	docs, err := s.catalog.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	return docs, nil
}

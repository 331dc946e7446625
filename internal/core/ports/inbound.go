package ports

import (
	"context"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

// Searcher is the inbound contract of the hybrid retrieval engine.
type Searcher interface {
	Search(ctx context.Context, query string, resultCount int) (domain.SearchResult, error)
}

// ChatService streams a synthesized answer for a user question.
type ChatService interface {
	Stream(ctx context.Context, query string, onChunk func(string) error) error
}

// DocumentReader serves single chunks by id.
type DocumentReader interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
}

// DataRangeReader reports the span of dates present in the corpus.
type DataRangeReader interface {
	DateRange(ctx context.Context) (domain.DateRange, error)
}

// Indexer loads, chunks and indexes one source file.
type Indexer interface {
	IndexJob(ctx context.Context, job domain.IngestJob) (domain.IndexReport, error)
}

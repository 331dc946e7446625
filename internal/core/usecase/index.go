package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

const defaultIndexBatchSize = 10

// IndexUseCase embeds new chunks and writes them to the vector index and the
// chunk catalog. Batches run on a bounded worker pool.
type IndexUseCase struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	catalog   ports.ChunkCatalog
	loader    ports.SourceLoader
	chunker   ports.Chunker
	batchSize int
	pool      *ants.Pool
	logger    *slog.Logger
}

func NewIndexUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	catalog ports.ChunkCatalog,
	loader ports.SourceLoader,
	chunker ports.Chunker,
	batchSize int,
	workers int,
	logger *slog.Logger,
) (*IndexUseCase, error) {
	if batchSize <= 0 {
		batchSize = defaultIndexBatchSize
	}
	if workers <= 0 {
		workers = max(runtime.NumCPU()/2, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create index pool: %w", err)
	}

	return &IndexUseCase{
		embedder:  embedder,
		index:     index,
		catalog:   catalog,
		loader:    loader,
		chunker:   chunker,
		batchSize: batchSize,
		pool:      pool,
		logger:    logger,
	}, nil
}

// Release stops the worker pool. The use case must not be used afterwards.
func (uc *IndexUseCase) Release() {
	if uc.pool != nil {
		uc.pool.Release()
	}
}

// IndexJob loads one source file, prepares its chunks and indexes them.
func (uc *IndexUseCase) IndexJob(ctx context.Context, job domain.IngestJob) (domain.IndexReport, error) {
	if strings.TrimSpace(job.Path) == "" {
		return domain.IndexReport{}, domain.WrapError(domain.ErrInvalidInput, "index job", errors.New("path is required"))
	}
	docType, ok := domain.ParseDocumentType(string(job.Type))
	if !ok {
		return domain.IndexReport{}, domain.WrapError(domain.ErrInvalidInput, "index job", fmt.Errorf("unknown document type %q", job.Type))
	}

	records, err := uc.loader.Load(ctx, job.Path, docType)
	if err != nil {
		return domain.IndexReport{}, fmt.Errorf("load %s: %w", job.Path, err)
	}
	docs := PrepareChunks(records, uc.chunker)
	uc.logger.Info("chunks_prepared", "path", job.Path, "type", string(docType), "records", len(records), "chunks", len(docs))

	return uc.Index(ctx, docs)
}

// Index skips chunks the catalog already holds. The first failed batch stops
// scheduling; batches already running finish.
func (uc *IndexUseCase) Index(ctx context.Context, docs []domain.Document) (domain.IndexReport, error) {
	docs = uniqueByID(docs)
	report := domain.IndexReport{Total: len(docs)}
	if len(docs) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	existing, err := uc.catalog.ExistingIDs(ctx, ids)
	if err != nil {
		return report, domain.WrapError(domain.ErrStoreFailure, "list existing chunks", err)
	}

	fresh := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if _, ok := existing[doc.ID]; ok {
			report.Skipped++
			continue
		}
		fresh = append(fresh, doc)
	}
	if len(fresh) == 0 {
		uc.logger.Info("index_nothing_new", "total", report.Total)
		return report, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		indexed  atomic.Int64
		failed   atomic.Int64
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		failed.Add(1)
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	// Catalog writes are chained so the catalog's scan order follows the
	// input order regardless of which batch finishes embedding first.
	previous := make(chan struct{})
	close(previous)

	batches := (len(fresh) + uc.batchSize - 1) / uc.batchSize
	for start := 0; start < len(fresh); start += uc.batchSize {
		if runCtx.Err() != nil {
			break
		}
		batch := fresh[start:min(start+uc.batchSize, len(fresh))]
		number := start/uc.batchSize + 1
		after, done := previous, make(chan struct{})
		previous = done

		wg.Add(1)
		submitErr := uc.pool.Submit(func() {
			defer wg.Done()
			defer close(done)
			if err := uc.indexBatch(runCtx, batch, after); err != nil {
				uc.logger.Error("index_batch_failed", "batch", number, "batches", batches, "size", len(batch), "error", err)
				fail(err)
				return
			}
			indexed.Add(int64(len(batch)))
		})
		if submitErr != nil {
			wg.Done()
			close(done)
			fail(fmt.Errorf("submit index batch: %w", submitErr))
			break
		}
	}
	wg.Wait()

	report.Indexed = int(indexed.Load())
	report.FailedBatches = int(failed.Load())
	if firstErr != nil {
		return report, firstErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	uc.logger.Info("index_completed",
		"total", report.Total,
		"skipped", report.Skipped,
		"indexed", report.Indexed,
		"batches", batches,
	)
	return report, nil
}

// indexBatch embeds and upserts batch, then waits for the previous batch
// before saving it to the catalog.
func (uc *IndexUseCase) indexBatch(ctx context.Context, batch []domain.Document, after <-chan struct{}) error {
	texts := make([]string, 0, len(batch))
	for _, doc := range batch {
		texts = append(texts, doc.Text)
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(batch) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)),
		)
	}

	if err := uc.index.Upsert(ctx, batch, vectors); err != nil {
		return domain.WrapError(domain.ErrStoreFailure, "upsert vectors", err)
	}
	select {
	case <-after:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := uc.catalog.SaveChunks(ctx, batch); err != nil {
		return domain.WrapError(domain.ErrStoreFailure, "save chunks", err)
	}
	return nil
}

func uniqueByID(docs []domain.Document) []domain.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		seen[doc.ID] = struct{}{}
		out = append(out, doc)
	}
	return out
}

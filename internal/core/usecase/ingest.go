package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

// IngestUseCase validates ingest jobs and hands them to the queue for a
// worker to index.
type IngestUseCase struct {
	queue ports.IngestQueue
	now   func() time.Time
}

func NewIngestUseCase(queue ports.IngestQueue) *IngestUseCase {
	return &IngestUseCase{queue: queue, now: time.Now}
}

func (uc *IngestUseCase) Enqueue(ctx context.Context, path string, rawType string) (domain.IngestJob, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.IngestJob{}, domain.WrapError(domain.ErrInvalidInput, "enqueue ingest job", errors.New("path is required"))
	}
	docType, ok := domain.ParseDocumentType(strings.TrimSpace(rawType))
	if !ok {
		return domain.IngestJob{}, domain.WrapError(domain.ErrInvalidInput, "enqueue ingest job", fmt.Errorf("unknown document type %q", rawType))
	}

	job := domain.IngestJob{Path: filepath.Clean(path), Type: docType, EnqueuedAt: uc.now().UTC()}
	if err := uc.queue.PublishIngestJob(ctx, job); err != nil {
		return domain.IngestJob{}, fmt.Errorf("publish ingest job: %w", err)
	}
	return job, nil
}

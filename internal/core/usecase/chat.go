package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

// ChatUseCase answers a question by streaming a generated answer grounded on
// the search results.
type ChatUseCase struct {
	searcher    ports.Searcher
	generator   ports.StreamGenerator
	dates       *DateNormalizer
	resultCount int
	logger      *slog.Logger
}

func NewChatUseCase(
	searcher ports.Searcher,
	generator ports.StreamGenerator,
	dates *DateNormalizer,
	resultCount int,
	logger *slog.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		searcher:    searcher,
		generator:   generator,
		dates:       dates,
		resultCount: resultCount,
		logger:      logger,
	}
}

// Stream writes the answer through onChunk. Search and generation failures
// become a user-facing message; only context cancellation and onChunk
// failures are returned.
func (uc *ChatUseCase) Stream(ctx context.Context, query string, onChunk func(string) error) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.WrapError(domain.ErrInvalidInput, "chat stream", errors.New("query is empty"))
	}

	result, err := uc.searcher.Search(ctx, query, uc.resultCount)
	if err != nil {
		if errors.Is(err, domain.ErrNoResults) {
			return onChunk(domain.MessageNoResults)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		uc.logger.Error("chat_search_failed", "query", query, "error", err)
		return onChunk(domain.MessageApology)
	}

	prompt := BuildAnswerPrompt(query, result.Documents(), uc.dates.Today())

	var (
		streamed bool
		sinkErr  error
	)
	err = uc.generator.GenerateStream(ctx, prompt, func(chunk string) error {
		streamed = true
		if err := onChunk(chunk); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	if sinkErr != nil {
		return sinkErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		uc.logger.Error("chat_generation_failed",
			"query", query,
			"streamed", streamed,
			"error", domain.WrapError(domain.ErrCollaboratorFailure, "generate answer", err),
		)
		return onChunk(domain.MessageApology)
	}

	uc.logger.Info("chat_completed", "query", query, "path", string(result.Path), "documents", len(result.Items))
	return nil
}

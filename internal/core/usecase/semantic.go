package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

const defaultParaphraseCount = 3

// QueryExpander asks the generator for paraphrases of a query. The date-tagged
// original is always variant 0.
type QueryExpander struct {
	generator ports.Generator
	count     int
	logger    *slog.Logger
}

func NewQueryExpander(generator ports.Generator, count int, logger *slog.Logger) *QueryExpander {
	if count <= 0 {
		count = defaultParaphraseCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryExpander{generator: generator, count: count, logger: logger}
}

func (e *QueryExpander) Variants(ctx context.Context, query string, today domain.CalendarDate) []string {
	original := fmt.Sprintf("[오늘: %s] %s", today, query)
	if e.generator == nil {
		return []string{original}
	}

	raw, err := e.generator.Generate(ctx, buildParaphrasePrompt(query, today, e.count))
	if err != nil {
		e.logger.Warn("paraphrase_fallback",
			"query", query,
			"error", domain.WrapError(domain.ErrCollaboratorFailure, "paraphrase query", err),
		)
		return []string{original}
	}

	paraphrases := parseNumberedList(raw)
	if len(paraphrases) == 0 {
		e.logger.Warn("paraphrase_fallback", "query", query, "reason", "unparseable response")
		return []string{original}
	}
	return append([]string{original}, paraphrases...)
}

func buildParaphrasePrompt(query string, today domain.CalendarDate, count int) string {
	return fmt.Sprintf(`당신은 벡터 검색에 최적화된 질문을 생성하는 전문가입니다. 사용자의 질문을 받아서, 그 의미를 다양한 각도에서 포착할 수 있는 %d개의 구체적인 질문으로 재작성해주세요.

**중요: 오늘은 %s입니다. 이 날짜를 기준으로 최신 정보와 관련성이 높은 질문으로 재작성해주세요.**

결과는 다른 설명 없이 번호 목록으로만 제공해주세요.

원본 질문: "%s"

재작성된 질문:
`, count, today, query)
}

// parseNumberedList keeps the text after the first ". " on each line.
func parseNumberedList(raw string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		_, rest, found := strings.Cut(strings.TrimSpace(line), ". ")
		if !found {
			continue
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

// SemanticRetriever runs one nearest-neighbor lookup per query variant and
// merges them by best rank. Hits without a text payload are ranked but left
// for the caller to hydrate.
type SemanticRetriever struct {
	store ports.DocumentStore
}

func NewSemanticRetriever(store ports.DocumentStore) *SemanticRetriever {
	return &SemanticRetriever{store: store}
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, variants []string, limit int) (map[string]int, map[string]domain.Document, error) {
	results := make([][]domain.Document, len(variants))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		group.Go(func() error {
			docs, err := r.store.NearestNeighbors(groupCtx, variant, limit)
			if err != nil {
				return domain.WrapError(domain.ErrStoreFailure, "nearest neighbors", err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	ranks := make(map[string]int)
	docs := make(map[string]domain.Document)
	for _, batch := range results {
		ids := make([]string, 0, len(batch))
		for _, doc := range batch {
			ids = append(ids, doc.ID)
			if _, ok := docs[doc.ID]; !ok && doc.Text != "" {
				docs[doc.ID] = doc
			}
		}
		mergeBestRank(ranks, ids)
	}
	return ranks, docs, nil
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
)

var tracer = otel.Tracer("github.com/kirillkom/knou-assistant/internal/core/usecase")

type SearchOptions struct {
	DefaultResultCount int
	RRFK               int
	SemanticWeight     float64
	LexicalWeight      float64
	LatestWindowDays   int
	LatestLimit        int
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		DefaultResultCount: 5,
		RRFK:               defaultRRFK,
		SemanticWeight:     semanticWeight,
		LexicalWeight:      lexicalWeight,
		LatestWindowDays:   7,
		LatestLimit:        10,
	}
}

func (o SearchOptions) normalize() SearchOptions {
	out := o
	def := DefaultSearchOptions()
	if out.DefaultResultCount <= 0 {
		out.DefaultResultCount = def.DefaultResultCount
	}
	if out.RRFK <= 0 {
		out.RRFK = def.RRFK
	}
	if out.SemanticWeight <= 0 {
		out.SemanticWeight = def.SemanticWeight
	}
	if out.LexicalWeight <= 0 {
		out.LexicalWeight = def.LexicalWeight
	}
	if out.LatestWindowDays <= 0 {
		out.LatestWindowDays = def.LatestWindowDays
	}
	if out.LatestLimit <= 0 {
		out.LatestLimit = def.LatestLimit
	}
	return out
}

// SearchUseCase is the retrieval orchestrator. Latest and specific-date
// queries short-circuit on a full scan; everything else, including an empty
// short-circuit, goes through hybrid semantic + lexical search.
type SearchUseCase struct {
	store       ports.DocumentStore
	interpreter *QueryInterpreter
	expander    *QueryExpander
	dates       *DateNormalizer
	semantic    *SemanticRetriever
	lexical     *LexicalRetriever
	opts        SearchOptions
	logger      *slog.Logger
}

func NewSearchUseCase(
	store ports.DocumentStore,
	interpreter *QueryInterpreter,
	expander *QueryExpander,
	dates *DateNormalizer,
	opts SearchOptions,
	logger *slog.Logger,
) *SearchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		store:       store,
		interpreter: interpreter,
		expander:    expander,
		dates:       dates,
		semantic:    NewSemanticRetriever(store),
		lexical:     NewLexicalRetriever(),
		opts:        opts.normalize(),
		logger:      logger,
	}
}

// Search returns domain.ErrNoResults when no strategy finds anything and an
// error wrapping domain.ErrStoreFailure when the store cannot be read.
func (uc *SearchUseCase) Search(ctx context.Context, query string, resultCount int) (domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is empty"))
	}
	if resultCount <= 0 {
		resultCount = uc.opts.DefaultResultCount
	}

	started := time.Now()
	ctx, span := tracer.Start(ctx, "usecase.Search")
	defer span.End()

	intent := uc.interpreter.Classify(query)
	span.SetAttributes(attribute.String("search.intent", intent.Kind.String()))

	result, err := uc.search(ctx, query, intent, resultCount)
	if err != nil {
		if !errors.Is(err, domain.ErrNoResults) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "search failed")
			uc.logger.Error("search_failed",
				"query", query,
				"intent", intent.Kind.String(),
				"error", err,
			)
		}
		return domain.SearchResult{Query: query, Intent: intent}, err
	}

	span.SetAttributes(
		attribute.String("search.path", string(result.Path)),
		attribute.Int("search.results", len(result.Items)),
	)
	uc.logger.Info("search_completed",
		"query", query,
		"intent", intent.Kind.String(),
		"path", string(result.Path),
		"results", len(result.Items),
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)
	return result, nil
}

func (uc *SearchUseCase) search(ctx context.Context, query string, intent domain.QueryIntent, resultCount int) (domain.SearchResult, error) {
	result := domain.SearchResult{Query: query, Intent: intent}

	var scanned []domain.Document
	haveScan := false

	switch intent.Kind {
	case domain.IntentLatest:
		docs, err := uc.scanAll(ctx)
		if err != nil {
			return result, err
		}
		scanned, haveScan = docs, true

		if items := uc.latestDocuments(docs); len(items) > 0 {
			result.Path = domain.PathLatest
			result.Items = items
			return result, nil
		}
		uc.logger.Info("latest_short_circuit_empty", "query", query, "window_days", uc.opts.LatestWindowDays)

	case domain.IntentSpecificDate:
		docs, err := uc.scanAll(ctx)
		if err != nil {
			return result, err
		}
		scanned, haveScan = docs, true

		if items := uc.documentsOn(docs, intent.Date); len(items) > 0 {
			result.Path = domain.PathDate
			result.Items = items
			return result, nil
		}
		uc.logger.Info("date_short_circuit_empty", "query", query, "date", intent.Date.String())
	}

	items, err := uc.hybrid(ctx, query, intent, resultCount, scanned, haveScan)
	if err != nil {
		return result, err
	}
	result.Path = domain.PathHybrid
	result.Items = items
	return result, nil
}

func (uc *SearchUseCase) latestDocuments(docs []domain.Document) []domain.ResultItem {
	today := uc.dates.Today()

	type dated struct {
		doc  domain.Document
		date domain.CalendarDate
	}
	var recent []dated
	for _, doc := range docs {
		date, ok := uc.dates.Parse(doc.Metadata.Date)
		if !ok || date.DaysBetween(today) > uc.opts.LatestWindowDays {
			continue
		}
		recent = append(recent, dated{doc: doc, date: date})
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].date.Compare(recent[j].date) > 0
	})
	recent = trimCandidates(recent, uc.opts.LatestLimit)

	out := make([]domain.ResultItem, 0, len(recent))
	for _, r := range recent {
		out = append(out, domain.ResultItem{Document: r.doc})
	}
	return out
}

func (uc *SearchUseCase) documentsOn(docs []domain.Document, target domain.CalendarDate) []domain.ResultItem {
	var out []domain.ResultItem
	for _, doc := range docs {
		if date, ok := uc.dates.Parse(doc.Metadata.Date); ok && date == target {
			out = append(out, domain.ResultItem{Document: doc})
		}
	}
	return out
}

func (uc *SearchUseCase) hybrid(
	ctx context.Context,
	query string,
	intent domain.QueryIntent,
	resultCount int,
	scanned []domain.Document,
	haveScan bool,
) ([]domain.ResultItem, error) {
	ctx, span := tracer.Start(ctx, "usecase.HybridSearch")
	defer span.End()

	normalized := uc.interpreter.Normalize(query)
	today := uc.dates.Today()

	var (
		semanticRanks map[string]int
		semanticDocs  map[string]domain.Document
		lexicalRanks  map[string]int
		lexicalDocs   []domain.Document
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		variants := uc.expander.Variants(groupCtx, normalized, today)
		ranks, docs, err := uc.semantic.Retrieve(groupCtx, variants, resultCount)
		if err != nil {
			return err
		}
		semanticRanks, semanticDocs = ranks, docs
		return nil
	})
	group.Go(func() error {
		docs := scanned
		if !haveScan {
			var err error
			if docs, err = uc.scanAll(groupCtx); err != nil {
				return err
			}
		}
		keywords := uc.interpreter.ExpandKeywords(normalized)
		phrases := uc.interpreter.ExactPhrases(normalized)
		lexicalRanks, lexicalDocs = uc.lexical.Rank(docs, keywords, phrases), docs
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("search.semantic_hits", len(semanticRanks)),
		attribute.Int("search.lexical_hits", len(lexicalRanks)),
	)
	if len(semanticRanks) == 0 && len(lexicalRanks) == 0 {
		return nil, domain.ErrNoResults
	}

	fused := FuseRRF([]domain.StrategyRanks{
		{Name: "semantic", Ranks: semanticRanks, Weight: uc.opts.SemanticWeight},
		{Name: "lexical", Ranks: lexicalRanks, Weight: uc.opts.LexicalWeight},
	}, uc.opts.RRFK)

	docs := make(map[string]domain.Document, len(fused))
	for id, doc := range semanticDocs {
		docs[id] = doc
	}
	for _, doc := range lexicalDocs {
		if _, ranked := lexicalRanks[doc.ID]; ranked {
			docs[doc.ID] = doc
		}
	}
	if err := uc.hydrate(ctx, fused, docs); err != nil {
		return nil, err
	}

	ranked := RankCandidates(fused, docs, uc.dates, intent.Kind)
	return trimCandidates(ranked, resultCount), nil
}

// hydrate fetches documents that were ranked but arrived without a payload.
func (uc *SearchUseCase) hydrate(ctx context.Context, fused []domain.FusedScore, docs map[string]domain.Document) error {
	var missing []string
	for _, f := range fused {
		if _, ok := docs[f.DocumentID]; !ok {
			missing = append(missing, f.DocumentID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	fetched, err := uc.store.GetByIDs(ctx, missing)
	if err != nil {
		return domain.WrapError(domain.ErrStoreFailure, "get documents by ids", err)
	}
	for _, doc := range fetched {
		docs[doc.ID] = doc
	}
	return nil
}

func (uc *SearchUseCase) scanAll(ctx context.Context) ([]domain.Document, error) {
	docs, err := uc.store.ScanAll(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreFailure, "scan documents", err)
	}
	return docs, nil
}

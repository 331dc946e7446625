package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/core/ports"
	"github.com/kirillkom/knou-assistant/internal/core/usecase"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/docstore"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/source"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/vocabulary"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     *nats.Queue
	Store     *docstore.Store
	Search    *usecase.SearchUseCase
	Chat      *usecase.ChatUseCase
	DataRange *usecase.DataRangeUseCase
	Index     *usecase.IndexUseCase
	Ingest    *usecase.IngestUseCase
	Chunker   ports.Chunker

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), logger)

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, error) {
		closeAll()
		return nil, err
	}

	vocab, err := vocabulary.Load(cfg.VocabularyPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	closers = append(closers, func() { _ = db.Close() })
	catalog := postgres.NewChunkRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return fail(fmt.Errorf("ensure schema: %w", err))
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return fail(fmt.Errorf("init message queue: %w", err))
	}
	closers = append(closers, queue.Close)

	index, closeIndex, err := newVectorIndex(cfg, executor)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeIndex)

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	store := docstore.New(embedder, index, catalog)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	dates := usecase.NewDateNormalizer(time.Now, cfg.RAGReferenceYear)
	interpreter := usecase.NewQueryInterpreter(dates, vocab)
	expander := usecase.NewQueryExpander(generator, cfg.RAGParaphraseCount, logger)
	searchUC := usecase.NewSearchUseCase(store, interpreter, expander, dates, usecase.SearchOptions{
		DefaultResultCount: cfg.RAGTopK,
		RRFK:               cfg.RAGFusionRRFK,
		SemanticWeight:     cfg.RAGSemanticWeight,
		LexicalWeight:      cfg.RAGLexicalWeight,
		LatestWindowDays:   cfg.RAGLatestWindowDays,
		LatestLimit:        cfg.RAGLatestLimit,
	}, logger)
	chatUC := usecase.NewChatUseCase(searchUC, generator, dates, cfg.RAGTopK, logger)

	indexUC, err := usecase.NewIndexUseCase(
		embedder,
		index,
		catalog,
		source.NewLoader(),
		chunker,
		cfg.IndexBatchSize,
		cfg.IndexWorkers,
		logger,
	)
	if err != nil {
		return fail(fmt.Errorf("init indexer: %w", err))
	}
	closers = append(closers, indexUC.Release)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Store:     store,
		Search:    searchUC,
		Chat:      chatUC,
		DataRange: usecase.NewDataRangeUseCase(store),
		Index:     indexUC,
		Ingest:    usecase.NewIngestUseCase(queue),
		Chunker:   chunker,

		closeFn: closeAll,
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         cfg.RetryMultiplier,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.BreakerOpenTimeoutMS) * time.Millisecond,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.BreakerHalfOpenMaxCalls, 0)),
	}
}

func newVectorIndex(cfg config.Config, executor *resilience.Executor) (ports.VectorIndex, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.QdrantTransport)) {
	case "", "rest":
		return qdrant.NewWithExecutor(cfg.QdrantURL, cfg.QdrantCollection, executor), func() {}, nil
	case "grpc":
		client, err := qdrant.NewGRPC(cfg.QdrantGRPCAddr, cfg.QdrantCollection)
		if err != nil {
			return nil, nil, fmt.Errorf("init qdrant grpc: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown QDRANT_TRANSPORT %q", cfg.QdrantTransport)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

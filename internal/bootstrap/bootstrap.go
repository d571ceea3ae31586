package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"hrkb/internal/config"
	"hrkb/internal/core/ports"
	"hrkb/internal/core/usecase"
	"hrkb/internal/infrastructure/chunking"
	"hrkb/internal/infrastructure/llm/dashscope"
	"hrkb/internal/infrastructure/queue/nats"
	"hrkb/internal/infrastructure/repository/postgres"
	"hrkb/internal/infrastructure/resilience"
	"hrkb/internal/infrastructure/sparse"
	"hrkb/internal/infrastructure/storage/localfs"
	"hrkb/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue ports.IngestQueue
	Repo  ports.ChunkRepository

	RouteUC  ports.QueryRouter
	IngestUC ports.DocumentIngestor
	IndexUC  ports.DocumentIndexer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewChunkRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		AttemptTimeout: cfg.ExternalCallTimeout,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIngestSubject, cfg.NATSDeleteSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := dashscope.New(
		cfg.DashScopeBaseURL,
		cfg.DashScopeAPIKey,
		cfg.DashScopeChatModel,
		cfg.DashScopeEmbedModel,
		cfg.DashScopeRPS,
	).WithExecutor(executor)
	embedder := dashscope.NewEmbedder(llm)
	completion := dashscope.NewCompletion(llm)
	reranker := dashscope.NewReranker(
		cfg.DashScopeRerankURL,
		cfg.DashScopeAPIKey,
		cfg.DashScopeRerankModel,
		cfg.DashScopeRPS,
	).WithExecutor(executor)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection).WithExecutor(executor)

	vocab, err := chunking.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	chunker := chunking.NewSplitter(cfg.ChunkMaxSize, cfg.ChunkMinSize, cfg.ChunkOverlap, vocab)

	// The lexical index lives in memory and is rebuilt from persisted
	// chunks on every start, then kept current by the indexing worker.
	sparseIndex := sparse.NewIndex()
	chunks, err := repo.ListAll(ctx)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("rebuild sparse index: %w", err)
	}
	sparseIndex.Add(chunks)
	slog.Info("sparse index rebuilt", "chunks", len(chunks))

	routeUC := usecase.NewRouteUseCase(completion, vocab, embedder, vectorDB, sparseIndex, reranker, usecase.RouterConfig{
		TopK:               cfg.TopK,
		ExpansionFactor:    cfg.ExpansionFactor,
		Threshold:          cfg.RelevanceThreshold,
		DenseWeight:        cfg.DenseWeight,
		SparseWeight:       cfg.SparseWeight,
		ConversationWindow: cfg.ConversationWindow,
		AnswerContextSize:  cfg.AnswerContextSize,
	})
	ingestUC := usecase.NewIngestUseCase(repo, storage, queue)
	indexUC := usecase.NewIndexUseCase(repo, storage, chunker, embedder, vectorDB, sparseIndex)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		RouteUC:  routeUC,
		IngestUC: ingestUC,
		IndexUC:  indexUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

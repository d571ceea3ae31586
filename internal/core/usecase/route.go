package usecase

import (
	"context"
	"errors"
	"strings"

	"hrkb/internal/core/domain"
	"hrkb/internal/core/ports"
)

// RouterConfig carries the tunables of one routing pipeline. Zero values
// are replaced with safe defaults at construction.
type RouterConfig struct {
	TopK               int
	ExpansionFactor    int
	Threshold          float64
	DenseWeight        float64
	SparseWeight       float64
	ConversationWindow int
	AnswerContextSize  int
}

// RouteUseCase composes rewriting, hybrid retrieval, fusion, reranking and
// the relevance gate into one decision per query.
type RouteUseCase struct {
	completion ports.CompletionService
	normalizer ports.QueryNormalizer
	embedder   ports.Embedder
	vectors    ports.VectorStore
	sparse     ports.SparseIndex
	reranker   ports.RerankService
	cfg        RouterConfig
}

func NewRouteUseCase(
	completion ports.CompletionService,
	normalizer ports.QueryNormalizer,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	sparse ports.SparseIndex,
	reranker ports.RerankService,
	cfg RouterConfig,
) *RouteUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ExpansionFactor <= 0 {
		cfg.ExpansionFactor = 4
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}
	if cfg.DenseWeight <= 0 && cfg.SparseWeight <= 0 {
		cfg.DenseWeight, cfg.SparseWeight = 0.5, 0.5
	}
	if cfg.ConversationWindow <= 0 {
		cfg.ConversationWindow = 5
	}
	if cfg.AnswerContextSize <= 0 {
		cfg.AnswerContextSize = 5
	}

	return &RouteUseCase{
		completion: completion,
		normalizer: normalizer,
		embedder:   embedder,
		vectors:    vectors,
		sparse:     sparse,
		reranker:   reranker,
		cfg:        cfg,
	}
}

// Route runs the full pipeline. Per-request threshold and top-k override
// the configured defaults when positive; departments come from the
// caller's authorization boundary and are only ever widened by public.
func (uc *RouteUseCase) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteDecision, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "route query", errors.New("query is required"))
	}

	threshold := uc.cfg.Threshold
	if req.Threshold > 0 {
		threshold = req.Threshold
	}
	topK := uc.cfg.TopK
	if req.TopK > 0 {
		topK = req.TopK
	}

	decision := &domain.RouteDecision{}

	turns := lastTurns(req.Turns, uc.cfg.ConversationWindow)
	standalone, rewriteFailed := standaloneQuery(ctx, uc.completion, uc.normalizer, query, turns)
	decision.StandaloneQuery = standalone
	decision.Degraded.RewriteFailed = rewriteFailed

	limit := topK * uc.cfg.ExpansionFactor
	dense, lexical, degraded, err := retrieveBoth(ctx, uc.embedder, uc.vectors, uc.sparse, standalone, req.Departments, limit)
	if err != nil {
		return nil, err
	}
	decision.Degraded.DenseFailed = degraded.DenseFailed
	decision.Degraded.SparseFailed = degraded.SparseFailed

	fused := fuseWeighted(dense, lexical, uc.cfg.DenseWeight, uc.cfg.SparseWeight)
	// The expanded pool exists only to feed fusion; everything downstream
	// sees at most topK candidates.
	if len(fused) > topK {
		fused = fused[:topK]
	}
	reranked, skipped := rerankCandidates(ctx, uc.reranker, standalone, fused)
	decision.Degraded.RerankSkipped = skipped

	decision.Report = evaluateRelevance(reranked, threshold)
	if decision.Report.IsRelevant {
		decision.Strategy = domain.RouteDocumentBased
		if len(reranked) > uc.cfg.AnswerContextSize {
			reranked = reranked[:uc.cfg.AnswerContextSize]
		}
		decision.Candidates = reranked
	} else {
		decision.Strategy = domain.RouteGeneralKnowledge
		decision.Candidates = nil
	}
	return decision, nil
}

func lastTurns(turns []domain.ConversationTurn, window int) []domain.ConversationTurn {
	if window <= 0 || len(turns) <= window {
		return turns
	}
	return turns[len(turns)-window:]
}

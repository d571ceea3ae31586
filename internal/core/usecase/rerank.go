package usecase

import (
	"context"
	"sort"

	"hrkb/internal/core/domain"
	"hrkb/internal/core/ports"
)

// rerankCandidates rescores fused candidates with the cross-encoder in one
// batched call. On failure the fused ordering survives and the fused score
// doubles as the relevance basis, with the skip flagged.
func rerankCandidates(
	ctx context.Context,
	reranker ports.RerankService,
	query string,
	fused []domain.FusedCandidate,
) ([]domain.RerankedCandidate, bool) {
	if len(fused) == 0 {
		return nil, false
	}

	texts := make([]string, len(fused))
	for i, cand := range fused {
		texts[i] = cand.Chunk.Text
	}

	scores, err := reranker.Score(ctx, query, texts)
	if err != nil || len(scores) != len(fused) {
		return backfillFromFused(fused), true
	}

	out := make([]domain.RerankedCandidate, len(fused))
	for i, cand := range fused {
		out[i] = domain.RerankedCandidate{
			Chunk:       cand.Chunk,
			FusedScore:  cand.FusedScore,
			RerankScore: scores[i],
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RerankScore != out[j].RerankScore {
			return out[i].RerankScore > out[j].RerankScore
		}
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if out[i].Chunk.DocumentID != out[j].Chunk.DocumentID {
			return out[i].Chunk.DocumentID < out[j].Chunk.DocumentID
		}
		return out[i].Chunk.Ordinal < out[j].Chunk.Ordinal
	})
	return out, false
}

func backfillFromFused(fused []domain.FusedCandidate) []domain.RerankedCandidate {
	out := make([]domain.RerankedCandidate, len(fused))
	for i, cand := range fused {
		out[i] = domain.RerankedCandidate{
			Chunk:       cand.Chunk,
			FusedScore:  cand.FusedScore,
			RerankScore: cand.FusedScore,
		}
	}
	return out
}

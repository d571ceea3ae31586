package usecase

import (
	"sort"

	"hrkb/internal/core/domain"
)

// fuseWeighted merges dense and sparse candidate lists into one ranking.
// Scores are min-max normalized within each list first, so the cosine and
// BM25 scales never dominate each other. A chunk found by both strategies
// keeps both per-strategy scores.
func fuseWeighted(dense, sparse []domain.Candidate, denseWeight, sparseWeight float64) []domain.FusedCandidate {
	if denseWeight <= 0 && sparseWeight <= 0 {
		denseWeight, sparseWeight = 0.5, 0.5
	}

	denseNorm := normalizeScores(dense)
	sparseNorm := normalizeScores(sparse)

	acc := make(map[string]*domain.FusedCandidate, len(dense)+len(sparse))
	order := make([]string, 0, len(dense)+len(sparse))
	add := func(chunk domain.Chunk) *domain.FusedCandidate {
		if entry, ok := acc[chunk.ID]; ok {
			if entry.Chunk.Text == "" && chunk.Text != "" {
				entry.Chunk = chunk
			}
			return entry
		}
		entry := &domain.FusedCandidate{Chunk: chunk}
		acc[chunk.ID] = entry
		order = append(order, chunk.ID)
		return entry
	}

	for i, cand := range dense {
		add(cand.Chunk).DenseScore = denseNorm[i]
	}
	for i, cand := range sparse {
		add(cand.Chunk).SparseScore = sparseNorm[i]
	}

	out := make([]domain.FusedCandidate, 0, len(acc))
	for _, id := range order {
		entry := acc[id]
		entry.FusedScore = denseWeight*entry.DenseScore + sparseWeight*entry.SparseScore
		out = append(out, *entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if out[i].DenseScore != out[j].DenseScore {
			return out[i].DenseScore > out[j].DenseScore
		}
		if out[i].Chunk.DocumentID != out[j].Chunk.DocumentID {
			return out[i].Chunk.DocumentID < out[j].Chunk.DocumentID
		}
		return out[i].Chunk.Ordinal < out[j].Chunk.Ordinal
	})

	return out
}

// normalizeScores maps one strategy's scores into [0,1]. When every score
// is equal, positive scores map to 1 so a single strong hit is not erased.
func normalizeScores(candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	minScore := candidates[0].Score
	maxScore := candidates[0].Score
	for _, cand := range candidates[1:] {
		if cand.Score < minScore {
			minScore = cand.Score
		}
		if cand.Score > maxScore {
			maxScore = cand.Score
		}
	}

	scoreRange := maxScore - minScore
	for i, cand := range candidates {
		if scoreRange <= 0 {
			if cand.Score > 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = (cand.Score - minScore) / scoreRange
	}
	return out
}

package usecase

import "hrkb/internal/core/domain"

// minRelevantScore is a hard floor under the configured threshold: a top
// score this low means the corpus has nothing usable no matter how
// permissive the caller's threshold is.
const minRelevantScore = 0.3

// evaluateRelevance aggregates the final candidate scores against the
// threshold. Pure function of its inputs; an empty candidate set is never
// relevant.
func evaluateRelevance(candidates []domain.RerankedCandidate, threshold float64) domain.RelevanceReport {
	report := domain.RelevanceReport{Threshold: threshold}
	if len(candidates) == 0 {
		return report
	}

	report.MaxScore = candidates[0].RerankScore
	var sum float64
	for _, cand := range candidates {
		sum += cand.RerankScore
		if cand.RerankScore > report.MaxScore {
			report.MaxScore = cand.RerankScore
		}
		if cand.RerankScore >= threshold {
			report.RelevantCount++
		}
	}

	report.AvgScore = sum / float64(len(candidates))
	report.RelevantRatio = float64(report.RelevantCount) / float64(len(candidates))
	report.IsRelevant = report.MaxScore >= threshold && report.MaxScore >= minRelevantScore
	return report
}

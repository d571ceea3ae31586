package usecase

import (
	"math"
	"testing"

	"hrkb/internal/core/domain"
)

func reranked(score float64) domain.RerankedCandidate {
	return domain.RerankedCandidate{RerankScore: score}
}

func TestEvaluateRelevanceEmptyCandidates(t *testing.T) {
	report := evaluateRelevance(nil, 0.5)
	if report.IsRelevant {
		t.Fatalf("empty candidate set must not be relevant")
	}
	if report.RelevantRatio != 0 || report.MaxScore != 0 || report.AvgScore != 0 {
		t.Fatalf("expected zeroed report, got %+v", report)
	}
	if report.Threshold != 0.5 {
		t.Fatalf("threshold must be echoed, got %v", report.Threshold)
	}
}

func TestEvaluateRelevanceScenarios(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		threshold float64
		relevant  bool
		count     int
	}{
		{"top score above threshold", []float64{0.8, 0.4, 0.2}, 0.5, true, 1},
		{"top score below threshold", []float64{0.3, 0.2}, 0.5, false, 0},
		{"exact threshold counts", []float64{0.5}, 0.5, true, 1},
		{"low floor beats permissive threshold", []float64{0.25, 0.1}, 0.2, false, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			candidates := make([]domain.RerankedCandidate, len(tc.scores))
			for i, s := range tc.scores {
				candidates[i] = reranked(s)
			}
			report := evaluateRelevance(candidates, tc.threshold)
			if report.IsRelevant != tc.relevant {
				t.Fatalf("IsRelevant = %v, want %v (%+v)", report.IsRelevant, tc.relevant, report)
			}
			if report.RelevantCount != tc.count {
				t.Fatalf("RelevantCount = %d, want %d", report.RelevantCount, tc.count)
			}
		})
	}
}

func TestEvaluateRelevanceAggregates(t *testing.T) {
	report := evaluateRelevance([]domain.RerankedCandidate{
		reranked(0.9), reranked(0.6), reranked(0.3),
	}, 0.5)

	if report.MaxScore != 0.9 {
		t.Fatalf("MaxScore = %v", report.MaxScore)
	}
	if math.Abs(report.AvgScore-0.6) > 1e-9 {
		t.Fatalf("AvgScore = %v", report.AvgScore)
	}
	if report.RelevantCount != 2 {
		t.Fatalf("RelevantCount = %d", report.RelevantCount)
	}
	if math.Abs(report.RelevantRatio-2.0/3.0) > 1e-9 {
		t.Fatalf("RelevantRatio = %v", report.RelevantRatio)
	}
}

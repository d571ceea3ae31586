package config

import (
	"testing"

	"hrkb/internal/core/domain"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RELEVANCE_THRESHOLD", "")
	t.Setenv("RETRIEVAL_TOP_K", "")
	t.Setenv("RETRIEVAL_EXPANSION_FACTOR", "")
	t.Setenv("FUSION_DENSE_WEIGHT", "")
	t.Setenv("FUSION_SPARSE_WEIGHT", "")
	t.Setenv("CHUNK_MAX_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")

	cfg := Load()
	if cfg.RelevanceThreshold != 0.5 {
		t.Fatalf("expected default threshold 0.5, got %v", cfg.RelevanceThreshold)
	}
	if cfg.TopK != 5 {
		t.Fatalf("expected default top_k 5, got %d", cfg.TopK)
	}
	if cfg.ExpansionFactor != 4 {
		t.Fatalf("expected default expansion factor 4, got %d", cfg.ExpansionFactor)
	}
	if cfg.DenseWeight != 0.5 || cfg.SparseWeight != 0.5 {
		t.Fatalf("expected equal default fusion weights, got %v/%v", cfg.DenseWeight, cfg.SparseWeight)
	}
	if cfg.ChunkMaxSize != 1200 || cfg.ChunkOverlap != 300 {
		t.Fatalf("expected chunk defaults 1200/300, got %d/%d", cfg.ChunkMaxSize, cfg.ChunkOverlap)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RELEVANCE_THRESHOLD", "0.65")
	t.Setenv("RETRIEVAL_TOP_K", "8")
	t.Setenv("FUSION_DENSE_WEIGHT", "0.7")
	t.Setenv("FUSION_SPARSE_WEIGHT", "0.3")

	cfg := Load()
	if cfg.RelevanceThreshold != 0.65 {
		t.Fatalf("expected threshold 0.65, got %v", cfg.RelevanceThreshold)
	}
	if cfg.TopK != 8 {
		t.Fatalf("expected top_k 8, got %d", cfg.TopK)
	}
	if cfg.DenseWeight != 0.7 || cfg.SparseWeight != 0.3 {
		t.Fatalf("expected weights 0.7/0.3, got %v/%v", cfg.DenseWeight, cfg.SparseWeight)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.RelevanceThreshold = 1.2 }},
		{"negative threshold", func(c *Config) { c.RelevanceThreshold = -0.1 }},
		{"zero weights", func(c *Config) { c.DenseWeight = 0; c.SparseWeight = 0 }},
		{"negative weight", func(c *Config) { c.SparseWeight = -1 }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"min not below max", func(c *Config) { c.ChunkMinSize = c.ChunkMaxSize }},
		{"overlap at max size", func(c *Config) { c.ChunkOverlap = c.ChunkMaxSize }},
		{"zero answer context", func(c *Config) { c.AnswerContextSize = 0 }},
		{"zero timeout", func(c *Config) { c.ExternalCallTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !domain.IsKind(err, domain.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Load().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

package ports

import (
	"context"
	"io"

	"hrkb/internal/core/domain"
)

// ObjectStorage keeps raw document text between upload and indexing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunk vectors and performs dense similarity search
// scoped to the caller's departments plus public.
type VectorStore interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	DeleteByDocument(ctx context.Context, documentID string) error
	Search(ctx context.Context, queryVector []float32, departments []string, limit int) ([]domain.Candidate, error)
}

// SparseIndex is the lexical side of hybrid retrieval. Implementations
// must allow concurrent readers; mutation takes an exclusive section per
// department so unrelated departments keep reading.
type SparseIndex interface {
	Add(chunks []domain.Chunk)
	DeleteByDocument(documentID string)
	Search(ctx context.Context, query string, departments []string, limit int) ([]domain.Candidate, error)
}

// Chunker splits raw document text into immutable chunks.
type Chunker interface {
	Split(text string, documentID string, department string) []domain.Chunk
}

// QueryNormalizer rewrites synonym variants to canonical vocabulary terms
// before retrieval.
type QueryNormalizer interface {
	Normalize(query string) string
}

// CompletionService is the LLM used for query rewriting.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RerankService scores candidate texts against a query in one batched call.
type RerankService interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// ChunkRepository persists produced chunks so the sparse index can be
// rebuilt at startup and deletes can cascade.
type ChunkRepository interface {
	SaveChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	ListAll(ctx context.Context) ([]domain.Chunk, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	CreateDocument(ctx context.Context, doc *domain.Document) error
}

// IngestQueue delivers index/delete events to the worker.
type IngestQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	PublishDocumentDeleted(ctx context.Context, documentID string) error
	SubscribeDocumentEvents(ctx context.Context, onIngest, onDelete func(context.Context, string) error) error
}
